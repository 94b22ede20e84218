package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"swap-backend/internal/auction"
	"swap-backend/internal/dto"
	"swap-backend/internal/events"
	"swap-backend/internal/metrics"
	"swap-backend/internal/models"
	"swap-backend/internal/repository"
	"swap-backend/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OrderService owns every state transition of orders and assignments.
// Resolvers and makers only ever reach the store through it, which keeps
// the protocol auditable even though execution is spread across
// independent resolver processes.
type OrderService struct {
	orderRepo  repository.OrderRepository
	assignRepo repository.AssignmentRepository
	eventRepo  repository.EventRepository
	publisher  *events.Publisher // optional NATS mirror, may be nil
	logger     *logrus.Logger
	eventLimit int
	now        func() int64 // injectable clock for tests
}

// NewOrderService creates a new OrderService instance.
func NewOrderService(
	orderRepo repository.OrderRepository,
	assignRepo repository.AssignmentRepository,
	eventRepo repository.EventRepository,
	publisher *events.Publisher,
	logger *logrus.Logger,
	eventLimit int,
) *OrderService {
	if logger == nil {
		logger = logrus.New()
	}
	if eventLimit <= 0 {
		eventLimit = 10
	}
	return &OrderService{
		orderRepo:  orderRepo,
		assignRepo: assignRepo,
		eventRepo:  eventRepo,
		publisher:  publisher,
		logger:     logger,
		eventLimit: eventLimit,
		now:        func() int64 { return time.Now().Unix() },
	}
}

// CreateOrder validates and persists a maker submission. The order nonce
// is the idempotency key: a duplicate submission is rejected, never
// silently merged.
func (s *OrderService) CreateOrder(ctx context.Context, req *dto.CreateOrderRequest) (*dto.CreateOrderResponse, error) {
	if err := validateCreateOrder(req); err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:               uuid.NewString(),
		MakerAddress:     req.MakerAddress,
		TakerAddress:     req.TakerAddress,
		MakerChain:       req.MakerChain,
		TakerChain:       req.TakerChain,
		MakerAsset:       req.MakerAsset,
		TakerAsset:       req.TakerAsset,
		MakingAmount:     req.MakingAmount,
		TakingAmount:     req.TakingAmount,
		EthereumHashlock: req.EthereumHashlock,
		StarknetHashlock: req.StarknetHashlock,
		AuctionStartTime: req.Auction.StartTime,
		AuctionDuration:  req.Auction.Duration,
		SrcWithdrawal:    req.Timelocks.SrcWithdrawal,
		DstWithdrawal:    req.Timelocks.DstWithdrawal,
		OrderNonce:       req.OrderNonce,
		Signature:        req.Signature,
		Status:           models.OrderStatusPendingAuction,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrDuplicateNonce
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.appendEvent(ctx, order.ID, models.EventOrderCreated, map[string]interface{}{
		"makerAddress": order.MakerAddress,
		"makerChain":   order.MakerChain,
		"takerChain":   order.TakerChain,
		"makingAmount": order.MakingAmount,
		"takingAmount": order.TakingAmount,
	})
	metrics.OrdersCreated.Inc()

	s.logger.WithFields(logrus.Fields{
		"order_id":    order.ID,
		"maker":       order.MakerAddress,
		"maker_chain": order.MakerChain,
		"taker_chain": order.TakerChain,
	}).Info("Order created")

	return &dto.CreateOrderResponse{OrderID: order.ID, Status: string(order.Status)}, nil
}

// GetPendingAuctions lists live auctions with their current decayed
// amount. Orders past their window are omitted: they are abandoned, not
// assignable.
func (s *OrderService) GetPendingAuctions(ctx context.Context) ([]*dto.PendingOrder, error) {
	orders, err := s.orderRepo.FindByStatus(ctx, models.OrderStatusPendingAuction)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}

	now := s.now()
	pending := make([]*dto.PendingOrder, 0, len(orders))
	for _, order := range orders {
		if !auction.IsOrderValid(order, now) {
			continue
		}
		params := auction.Params{StartTime: order.AuctionStartTime, Duration: order.AuctionDuration}
		amount, err := auction.CurrentAmount(params, order.MakingAmount, order.TakingAmount, now)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			}).Warn("Skipping order with unpriceable auction")
			continue
		}
		pending = append(pending, &dto.PendingOrder{
			OrderID:       order.ID,
			MakerAddress:  order.MakerAddress,
			MakingAmount:  order.MakingAmount,
			TakingAmount:  order.TakingAmount,
			Auction:       dto.AuctionParams{StartTime: order.AuctionStartTime, Duration: order.AuctionDuration},
			CurrentAmount: amount,
			Status:        string(order.Status),
		})
	}
	return pending, nil
}

// GetOrderDetails returns the order together with its assignment (nil if
// none) and the newest audit events.
func (s *OrderService) GetOrderDetails(ctx context.Context, orderID string) (*dto.OrderDetail, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	assignment, err := s.assignRepo.GetByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load assignment: %w", err)
	}

	eventList, err := s.eventRepo.ListByOrder(ctx, orderID, s.eventLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	return &dto.OrderDetail{Order: order, Assignment: assignment, Events: eventList}, nil
}

// AssignOrder binds a resolver to an order. The winner is decided by an
// atomic insert against the unique order_id index, so under concurrent
// attempts exactly one resolver succeeds and the rest get
// ErrAlreadyAssigned.
func (s *OrderService) AssignOrder(ctx context.Context, orderID string, req *dto.AssignOrderRequest) (*dto.AssignOrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if order.Status != models.OrderStatusPendingAuction {
		if _, err := s.assignRepo.GetByOrderID(ctx, orderID); err == nil {
			metrics.AssignmentAttempts.WithLabelValues("lost_race").Inc()
			return nil, ErrAlreadyAssigned
		}
		metrics.AssignmentAttempts.WithLabelValues("unavailable").Inc()
		return nil, ErrOrderNotAvailable
	}

	if auction.IsExpired(order, s.now()) {
		metrics.AssignmentAttempts.WithLabelValues("expired").Inc()
		return nil, ErrOrderExpired
	}

	assignment := &models.ResolverAssignment{
		ID:              uuid.NewString(),
		OrderID:         orderID,
		ResolverAddress: req.ResolverAddress,
		EffectiveAmount: req.EffectiveAmount,
		AssignedAt:      time.Now().UTC(),
		Status:          models.AssignmentStatusAssigned,
	}

	if err := s.assignRepo.Assign(ctx, assignment); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			metrics.AssignmentAttempts.WithLabelValues("lost_race").Inc()
			return nil, ErrAlreadyAssigned
		case errors.Is(err, repository.ErrNoRows):
			metrics.AssignmentAttempts.WithLabelValues("unavailable").Inc()
			return nil, ErrOrderNotAvailable
		default:
			return nil, fmt.Errorf("failed to assign order: %w", err)
		}
	}

	s.appendEvent(ctx, orderID, models.EventOrderAssigned, map[string]interface{}{
		"resolverAddress": req.ResolverAddress,
		"effectiveAmount": req.EffectiveAmount,
	})
	metrics.AssignmentAttempts.WithLabelValues("won").Inc()

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"resolver": req.ResolverAddress,
		"amount":   req.EffectiveAmount,
	}).Info("Order assigned")

	return &dto.AssignOrderResponse{
		OrderID:          orderID,
		AssignedResolver: req.ResolverAddress,
		EffectiveAmount:  req.EffectiveAmount,
		Status:           string(models.OrderStatusAssigned),
	}, nil
}

// FeedAssignment applies a partial progress update from the winning
// resolver. Status moves are validated against the no-regress rule before
// anything is written; a rejected feed leaves the store untouched.
func (s *OrderService) FeedAssignment(ctx context.Context, orderID string, req *dto.FeedAssignmentRequest) error {
	assignment, err := s.assignRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAssignmentNotFound
		}
		return fmt.Errorf("failed to load assignment: %w", err)
	}

	updates := map[string]interface{}{}
	payload := map[string]interface{}{}

	if req.SrcEscrowAddress != nil {
		updates["src_escrow_address"] = *req.SrcEscrowAddress
		payload["srcEscrowAddress"] = *req.SrcEscrowAddress
	}
	if req.DstEscrowAddress != nil {
		updates["dst_escrow_address"] = *req.DstEscrowAddress
		payload["dstEscrowAddress"] = *req.DstEscrowAddress
	}
	if req.SrcTimelock != nil {
		updates["src_timelock"] = *req.SrcTimelock
		payload["srcTimelock"] = *req.SrcTimelock
	}
	if req.DstTimelock != nil {
		updates["dst_timelock"] = *req.DstTimelock
		payload["dstTimelock"] = *req.DstTimelock
	}
	if req.FillAmount != nil {
		updates["fill_amount"] = *req.FillAmount
		payload["fillAmount"] = *req.FillAmount
	}
	if req.TakeAmount != nil {
		updates["take_amount"] = *req.TakeAmount
		payload["takeAmount"] = *req.TakeAmount
	}

	var nextOrderStatus models.OrderStatus
	var fromStatus models.AssignmentStatus
	if req.Status != nil {
		next := models.AssignmentStatus(*req.Status)
		if !assignment.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, assignment.Status, next)
		}
		updates["status"] = next
		payload["status"] = string(next)
		nextOrderStatus = orderStatusFor(next)
		// Pin the status the transition was validated against; a
		// concurrent feed that advanced the row first wins.
		fromStatus = assignment.Status
	}

	if len(updates) == 0 {
		return nil
	}

	if err := s.assignRepo.UpdateFields(ctx, orderID, fromStatus, updates); err != nil {
		if errors.Is(err, repository.ErrNoRows) && req.Status != nil {
			return fmt.Errorf("%w: assignment moved past %s", ErrInvalidTransition, assignment.Status)
		}
		return fmt.Errorf("failed to update assignment: %w", err)
	}

	// Mirror the confirmed leg onto the order status.
	if nextOrderStatus != "" {
		order, err := s.orderRepo.GetByID(ctx, orderID)
		if err == nil && order.Status.CanTransitionTo(nextOrderStatus) {
			if err := s.orderRepo.SetStatus(ctx, orderID, nextOrderStatus); err != nil {
				s.logger.WithFields(logrus.Fields{
					"order_id": orderID,
					"status":   nextOrderStatus,
				}).Warn("Failed to mirror assignment status onto order")
			}
		}
	}

	s.appendEvent(ctx, orderID, models.EventAssignmentUpdated, payload)
	return nil
}

// CompleteOrder finishes an order in a terminal status and closes out its
// assignment.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID string, req *dto.CompleteOrderRequest) error {
	status := models.OrderStatus(req.Status)
	switch status {
	case models.OrderStatusCompleted, models.OrderStatusFailed,
		models.OrderStatusRefundedSrc, models.OrderStatusRefundedDst:
	default:
		return fmt.Errorf("%w: %q is not a terminal status", ErrInvalidTransition, req.Status)
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to load order: %w", err)
	}
	if !order.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}

	if err := s.orderRepo.SetStatus(ctx, orderID, status); err != nil {
		return fmt.Errorf("failed to complete order: %w", err)
	}

	assignmentStatus := models.AssignmentStatusFailed
	if status == models.OrderStatusCompleted {
		assignmentStatus = models.AssignmentStatusCompleted
	}
	if err := s.assignRepo.UpdateFields(ctx, orderID, "", map[string]interface{}{"status": assignmentStatus}); err != nil &&
		!errors.Is(err, repository.ErrNoRows) {
		s.logger.WithFields(logrus.Fields{
			"order_id": orderID,
			"error":    err.Error(),
		}).Warn("Failed to close out assignment")
	}

	payload := map[string]interface{}{"status": string(status)}
	if len(req.Details) > 0 {
		payload["details"] = req.Details
	}
	s.appendEvent(ctx, orderID, models.EventOrderCompleted, payload)
	metrics.OrdersCompleted.WithLabelValues(string(status)).Inc()

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"status":   status,
	}).Info("Order completed")
	return nil
}

// UploadSecret records the secret the maker revealed by claiming the
// destination escrow. The secret is checked against both hashlock
// encodings and is set-once: re-uploading the same secret is a no-op,
// uploading a different one is rejected.
func (s *OrderService) UploadSecret(ctx context.Context, orderID string, req *dto.UploadSecretRequest) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to load order: %w", err)
	}

	assignment, err := s.assignRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAssignmentNotFound
		}
		return fmt.Errorf("failed to load assignment: %w", err)
	}

	ok, err := utils.VerifySecret(req.Secret, order.EthereumHashlock, order.StarknetHashlock)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSecretMismatch, err)
	}
	if !ok {
		return ErrSecretMismatch
	}

	// Idempotent re-upload of the same secret.
	if assignment.Secret == req.Secret {
		return nil
	}
	if assignment.Secret != "" {
		return ErrSecretImmutable
	}

	if err := s.assignRepo.SetSecret(ctx, orderID, req.Secret, req.DestinationTxHash); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			// Lost a race with another upload. The same secret landing
			// first is the idempotent case and already announced itself.
			current, gerr := s.assignRepo.GetByOrderID(ctx, orderID)
			if gerr == nil && current.Secret == req.Secret {
				return nil
			}
			return ErrSecretImmutable
		}
		return fmt.Errorf("failed to store secret: %w", err)
	}

	if err := s.orderRepo.MarkSecretRevealed(ctx, orderID); err != nil {
		return fmt.Errorf("failed to mark secret revealed: %w", err)
	}
	if order.Status.CanTransitionTo(models.OrderStatusSecretRevealed) {
		if err := s.orderRepo.SetStatus(ctx, orderID, models.OrderStatusSecretRevealed); err != nil {
			s.logger.WithFields(logrus.Fields{
				"order_id": orderID,
			}).Warn("Failed to mirror secret reveal onto order status")
		}
	}

	payload := map[string]interface{}{}
	if req.DestinationTxHash != "" {
		payload["destinationTxHash"] = req.DestinationTxHash
	}
	s.appendEvent(ctx, orderID, models.EventSecretRevealed, payload)
	metrics.SecretsRevealed.Inc()

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"claim_tx": req.DestinationTxHash,
	}).Info("Secret revealed by maker")
	return nil
}

// GetSecret returns the revealed secret, or ErrSecretNotRevealed.
func (s *OrderService) GetSecret(ctx context.Context, orderID string) (string, error) {
	assignment, err := s.assignRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrSecretNotRevealed
		}
		return "", fmt.Errorf("failed to load assignment: %w", err)
	}
	if assignment.Secret == "" {
		return "", ErrSecretNotRevealed
	}
	return assignment.Secret, nil
}

// GetRevealedOrders returns every non-terminal assignment with a revealed
// secret for one resolver, paired with its order. The query is the
// resolver's sole discovery mechanism for claimable source escrows and is
// safe to call and re-process repeatedly.
func (s *OrderService) GetRevealedOrders(ctx context.Context, resolverAddress string) ([]*dto.RevealedOrder, error) {
	assignments, err := s.assignRepo.FindRevealedByResolver(ctx, resolverAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to list revealed assignments: %w", err)
	}

	revealed := make([]*dto.RevealedOrder, 0, len(assignments))
	for _, assignment := range assignments {
		order, err := s.orderRepo.GetByID(ctx, assignment.OrderID)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"order_id": assignment.OrderID,
				"error":    err.Error(),
			}).Warn("Revealed assignment references missing order")
			continue
		}
		revealed = append(revealed, &dto.RevealedOrder{Order: order, Assignment: assignment})
	}
	return revealed, nil
}

// GetStalledAssignments is the operator view of partial-protocol failure:
// source escrow funded, destination leg never confirmed, destination
// timelock already past.
func (s *OrderService) GetStalledAssignments(ctx context.Context) ([]*dto.StalledAssignment, error) {
	now := s.now()
	assignments, err := s.assignRepo.FindStalled(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list stalled assignments: %w", err)
	}

	stalled := make([]*dto.StalledAssignment, 0, len(assignments))
	for _, assignment := range assignments {
		order, err := s.orderRepo.GetByID(ctx, assignment.OrderID)
		if err != nil {
			continue
		}
		deadline := assignment.AssignedAt.Unix() + assignment.DstTimelock
		stalled = append(stalled, &dto.StalledAssignment{
			Order:      order,
			Assignment: assignment,
			StalledFor: now - deadline,
		})
	}
	return stalled, nil
}

func (s *OrderService) appendEvent(ctx context.Context, orderID, eventType string, payload map[string]interface{}) {
	if err := s.eventRepo.Append(ctx, orderID, eventType, payload); err != nil {
		s.logger.WithFields(logrus.Fields{
			"order_id": orderID,
			"type":     eventType,
			"error":    err.Error(),
		}).Error("Failed to append audit event")
	}
	if s.publisher != nil {
		s.publisher.Publish(orderID, eventType, payload)
	}
}

func validateCreateOrder(req *dto.CreateOrderRequest) error {
	for name, amount := range map[string]string{
		"makingAmount": req.MakingAmount,
		"takingAmount": req.TakingAmount,
	} {
		value, ok := new(big.Int).SetString(amount, 10)
		if !ok || value.Sign() <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer", ErrInvalidOrder, name)
		}
	}
	if req.MakerChain == req.TakerChain {
		return fmt.Errorf("%w: makerChain and takerChain must differ", ErrInvalidOrder)
	}
	if req.Auction.Duration <= 0 {
		return fmt.Errorf("%w: auction duration must be positive", ErrInvalidOrder)
	}
	if req.Timelocks.SrcWithdrawal <= 0 || req.Timelocks.DstWithdrawal <= 0 {
		return fmt.Errorf("%w: timelocks must be positive", ErrInvalidOrder)
	}
	return nil
}

// orderStatusFor maps an assignment status onto the order status that
// mirrors it.
func orderStatusFor(status models.AssignmentStatus) models.OrderStatus {
	switch status {
	case models.AssignmentStatusSrcDeployed:
		return models.OrderStatusSrcDeployed
	case models.AssignmentStatusDstDeployed:
		return models.OrderStatusDstDeployed
	case models.AssignmentStatusSecretRevealed:
		return models.OrderStatusSecretRevealed
	case models.AssignmentStatusCompleted:
		return models.OrderStatusCompleted
	case models.AssignmentStatusFailed:
		return models.OrderStatusFailed
	}
	return ""
}
