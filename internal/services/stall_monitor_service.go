package services

import (
	"context"
	"errors"
	"time"

	"swap-backend/internal/events"
	"swap-backend/internal/metrics"
	"swap-backend/internal/models"
	"swap-backend/internal/repository"

	"github.com/sirupsen/logrus"
)

// StallMonitorService periodically flags assignments stuck at
// src_deployed past their destination timelock. It only records the
// condition; remediation is an operator decision or the source escrow's
// own timelock refund path.
type StallMonitorService struct {
	assignRepo repository.AssignmentRepository
	eventRepo  repository.EventRepository
	publisher  *events.Publisher
	logger     *logrus.Logger
	interval   time.Duration
	stopChan   chan struct{}
	now        func() int64
}

// NewStallMonitorService creates a new StallMonitorService instance.
// intervalSeconds must be positive.
func NewStallMonitorService(
	assignRepo repository.AssignmentRepository,
	eventRepo repository.EventRepository,
	publisher *events.Publisher,
	logger *logrus.Logger,
	intervalSeconds int,
) *StallMonitorService {
	if logger == nil {
		logger = logrus.New()
	}
	return &StallMonitorService{
		assignRepo: assignRepo,
		eventRepo:  eventRepo,
		publisher:  publisher,
		logger:     logger,
		interval:   time.Duration(intervalSeconds) * time.Second,
		stopChan:   make(chan struct{}),
		now:        func() int64 { return time.Now().Unix() },
	}
}

// Start launches the background scan loop
func (s *StallMonitorService) Start() {
	s.logger.WithFields(logrus.Fields{
		"interval": s.interval.String(),
	}).Info("Stall monitor started")

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.scan(context.Background())
			case <-s.stopChan:
				s.logger.Info("Stall monitor stopped")
				return
			}
		}
	}()
}

// Stop terminates the scan loop
func (s *StallMonitorService) Stop() {
	close(s.stopChan)
}

// scan records one stall_detected event per stuck assignment. Re-runs
// are idempotent: an order already flagged is only gauged, not
// re-announced.
func (s *StallMonitorService) scan(ctx context.Context) {
	stalled, err := s.assignRepo.FindStalled(ctx, s.now())
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("Stall scan failed")
		return
	}

	metrics.StalledAssignments.Set(float64(len(stalled)))
	if len(stalled) == 0 {
		return
	}

	for _, assignment := range stalled {
		if _, err := s.eventRepo.LatestByType(ctx, assignment.OrderID, models.EventStallDetected); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			s.logger.WithFields(logrus.Fields{
				"order_id": assignment.OrderID,
				"error":    err.Error(),
			}).Error("Failed to check previous stall events")
			continue
		}

		payload := map[string]interface{}{
			"resolverAddress":  assignment.ResolverAddress,
			"srcEscrowAddress": assignment.SrcEscrowAddress,
			"dstTimelock":      assignment.DstTimelock,
		}
		if err := s.eventRepo.Append(ctx, assignment.OrderID, models.EventStallDetected, payload); err != nil {
			s.logger.WithFields(logrus.Fields{
				"order_id": assignment.OrderID,
				"error":    err.Error(),
			}).Error("Failed to record stall event")
			continue
		}
		if s.publisher != nil {
			s.publisher.Publish(assignment.OrderID, models.EventStallDetected, payload)
		}

		s.logger.WithFields(logrus.Fields{
			"order_id":   assignment.OrderID,
			"resolver":   assignment.ResolverAddress,
			"src_escrow": assignment.SrcEscrowAddress,
		}).Warn("Assignment stalled at src_deployed past destination timelock")
	}
}
