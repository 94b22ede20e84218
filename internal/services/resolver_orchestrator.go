package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"swap-backend/internal/chains"
	"swap-backend/internal/dto"
	"swap-backend/internal/metrics"
	"swap-backend/internal/models"

	"github.com/sirupsen/logrus"
)

// RelayerAPI is the orchestrator's view of the order book. Satisfied by
// clients.RelayerClient.
type RelayerAPI interface {
	GetPendingOrders(ctx context.Context) ([]*dto.PendingOrder, error)
	GetOrderDetail(ctx context.Context, orderID string) (*dto.OrderDetail, error)
	AssignOrder(ctx context.Context, orderID string, req *dto.AssignOrderRequest) (*dto.AssignOrderResponse, error)
	FeedAssignment(ctx context.Context, orderID string, req *dto.FeedAssignmentRequest) error
	CompleteOrder(ctx context.Context, orderID string, req *dto.CompleteOrderRequest) error
	GetRevealedOrders(ctx context.Context, resolverAddress string) ([]*dto.RevealedOrder, error)
}

// ResolverOrchestratorConfig configures one resolver process.
type ResolverOrchestratorConfig struct {
	ResolverAddress  string
	PendingInterval  time.Duration
	RevealedInterval time.Duration
}

// ResolverOrchestrator runs the resolver's two polling loops: winning and
// executing new auctions, and claiming source escrows once the maker has
// revealed the secret. Orders within one scan are processed sequentially
// so one order's failure cannot corrupt another's bookkeeping; the two
// scans run independently.
type ResolverOrchestrator struct {
	relayer  RelayerAPI
	registry *chains.Registry
	cfg      ResolverOrchestratorConfig
	logger   *logrus.Logger

	pendingBusy  atomic.Bool
	revealedBusy atomic.Bool
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// NewResolverOrchestrator creates a new ResolverOrchestrator instance.
func NewResolverOrchestrator(
	relayer RelayerAPI,
	registry *chains.Registry,
	cfg ResolverOrchestratorConfig,
	logger *logrus.Logger,
) *ResolverOrchestrator {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.PendingInterval <= 0 {
		cfg.PendingInterval = 30 * time.Second
	}
	if cfg.RevealedInterval <= 0 {
		cfg.RevealedInterval = 30 * time.Second
	}
	return &ResolverOrchestrator{
		relayer:  relayer,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches both polling loops.
func (o *ResolverOrchestrator) Start() {
	o.logger.WithFields(logrus.Fields{
		"resolver":          o.cfg.ResolverAddress,
		"pending_interval":  o.cfg.PendingInterval.String(),
		"revealed_interval": o.cfg.RevealedInterval.String(),
		"chains":            o.registry.Names(),
	}).Info("Resolver orchestrator started")

	o.wg.Add(2)
	go o.loop(o.cfg.PendingInterval, "pending", &o.pendingBusy, o.ScanPendingOrders)
	go o.loop(o.cfg.RevealedInterval, "revealed", &o.revealedBusy, o.ScanRevealedOrders)
}

// Stop terminates the loops and waits for in-flight scans to finish.
func (o *ResolverOrchestrator) Stop() {
	close(o.stopChan)
	o.wg.Wait()
	o.logger.Info("Resolver orchestrator stopped")
}

// loop runs one scan function on a ticker. A tick that arrives while the
// previous scan is still running is skipped, never queued.
func (o *ResolverOrchestrator) loop(interval time.Duration, name string, busy *atomic.Bool, scan func(context.Context)) {
	defer o.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !busy.CompareAndSwap(false, true) {
				metrics.ScansSkipped.WithLabelValues(name).Inc()
				continue
			}
			start := time.Now()
			scan(context.Background())
			metrics.ScanDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			busy.Store(false)
		case <-o.stopChan:
			return
		}
	}
}

// ScanPendingOrders polls live auctions and tries to win each one at its
// current decayed price. Losing an assignment race is routine, not an
// error.
func (o *ResolverOrchestrator) ScanPendingOrders(ctx context.Context) {
	pending, err := o.relayer.GetPendingOrders(ctx)
	if err != nil {
		o.logger.WithField("error", err.Error()).Error("Failed to fetch pending orders")
		return
	}

	for _, candidate := range pending {
		if err := o.tryOrder(ctx, candidate); err != nil {
			o.logger.WithFields(logrus.Fields{
				"order_id": candidate.OrderID,
				"error":    err.Error(),
			}).Error("Failed to process pending order")
		}
	}
}

func (o *ResolverOrchestrator) tryOrder(ctx context.Context, candidate *dto.PendingOrder) error {
	detail, err := o.relayer.GetOrderDetail(ctx, candidate.OrderID)
	if err != nil {
		return err
	}
	order := detail.Order

	// Only try orders whose chains this resolver can actually serve.
	if _, err := o.registry.Get(order.MakerChain); err != nil {
		return nil
	}
	if _, err := o.registry.Get(order.TakerChain); err != nil {
		return nil
	}

	assigned, err := o.relayer.AssignOrder(ctx, order.ID, &dto.AssignOrderRequest{
		ResolverAddress: o.cfg.ResolverAddress,
		EffectiveAmount: candidate.CurrentAmount,
	})
	if err != nil {
		// Another resolver won, or the auction expired between the
		// listing and the attempt.
		o.logger.WithFields(logrus.Fields{
			"order_id": order.ID,
			"reason":   err.Error(),
		}).Debug("Assignment not won")
		return nil
	}
	if assigned.AssignedResolver != o.cfg.ResolverAddress {
		return nil
	}

	o.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"amount":   assigned.EffectiveAmount,
	}).Info("Won order assignment")

	return o.executeEscrows(ctx, order)
}

// executeEscrows deploys both escrows for a won order. The source escrow
// must be deployed and fed back before the destination deployment starts:
// the resolver never locks its own capital for an order whose source
// funds are not yet secured. On any failure the order is left where it
// stopped for the stall monitor or timelock refund to handle.
func (o *ResolverOrchestrator) executeEscrows(ctx context.Context, order *models.Order) error {
	srcAdapter, err := o.registry.Get(order.MakerChain)
	if err != nil {
		return err
	}
	dstAdapter, err := o.registry.Get(order.TakerChain)
	if err != nil {
		return err
	}

	// Source leg: maker's funds, maker -> resolver.
	srcEscrow, err := srcAdapter.DeployEscrow(ctx, chains.EscrowParams{
		Maker:      order.MakerAddress,
		Taker:      o.cfg.ResolverAddress,
		Token:      order.MakerAsset,
		Amount:     order.MakingAmount,
		SecretHash: hashlockFor(srcAdapter, order),
		Timelock:   order.SrcWithdrawal,
	})
	if err != nil {
		metrics.EscrowDeployFailures.WithLabelValues(order.MakerChain, "src").Inc()
		return fmt.Errorf("source escrow deployment failed: %w", err)
	}
	metrics.EscrowDeployments.WithLabelValues(order.MakerChain, "src").Inc()

	srcStatus := string(models.AssignmentStatusSrcDeployed)
	if err := o.relayer.FeedAssignment(ctx, order.ID, &dto.FeedAssignmentRequest{
		Status:           &srcStatus,
		SrcEscrowAddress: &srcEscrow,
		SrcTimelock:      &order.SrcWithdrawal,
		FillAmount:       &order.MakingAmount,
	}); err != nil {
		return fmt.Errorf("failed to report source escrow: %w", err)
	}

	// Destination leg: resolver's own funds, resolver -> taker.
	if _, err := dstAdapter.Approve(ctx, order.TakerAsset, order.TakingAmount); err != nil {
		metrics.EscrowDeployFailures.WithLabelValues(order.TakerChain, "dst").Inc()
		return fmt.Errorf("destination token approval failed: %w", err)
	}
	dstEscrow, err := dstAdapter.DeployEscrow(ctx, chains.EscrowParams{
		Maker:      o.cfg.ResolverAddress,
		Taker:      order.TakerAddress,
		Token:      order.TakerAsset,
		Amount:     order.TakingAmount,
		SecretHash: hashlockFor(dstAdapter, order),
		Timelock:   order.DstWithdrawal,
	})
	if err != nil {
		metrics.EscrowDeployFailures.WithLabelValues(order.TakerChain, "dst").Inc()
		return fmt.Errorf("destination escrow deployment failed: %w", err)
	}
	metrics.EscrowDeployments.WithLabelValues(order.TakerChain, "dst").Inc()

	dstStatus := string(models.AssignmentStatusDstDeployed)
	if err := o.relayer.FeedAssignment(ctx, order.ID, &dto.FeedAssignmentRequest{
		Status:           &dstStatus,
		DstEscrowAddress: &dstEscrow,
		DstTimelock:      &order.DstWithdrawal,
		TakeAmount:       &order.TakingAmount,
	}); err != nil {
		return fmt.Errorf("failed to report destination escrow: %w", err)
	}

	o.logger.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"src_escrow": srcEscrow,
		"dst_escrow": dstEscrow,
	}).Info("Both escrows deployed, waiting for maker to reveal the secret")
	return nil
}

// ScanRevealedOrders claims the source escrow for every order whose
// secret the maker has revealed. The whole pass is idempotent: an order
// that fails here is retried on the next tick.
func (o *ResolverOrchestrator) ScanRevealedOrders(ctx context.Context) {
	revealed, err := o.relayer.GetRevealedOrders(ctx, o.cfg.ResolverAddress)
	if err != nil {
		o.logger.WithField("error", err.Error()).Error("Failed to fetch revealed orders")
		return
	}

	for _, item := range revealed {
		if err := o.claimSource(ctx, item); err != nil {
			metrics.SourceClaims.WithLabelValues("failure").Inc()
			o.logger.WithFields(logrus.Fields{
				"order_id": item.Order.ID,
				"error":    err.Error(),
			}).Error("Failed to claim source escrow")
		}
	}
}

func (o *ResolverOrchestrator) claimSource(ctx context.Context, item *dto.RevealedOrder) error {
	order, assignment := item.Order, item.Assignment
	if assignment.Secret == "" {
		return fmt.Errorf("revealed order %s has no secret", order.ID)
	}
	if assignment.SrcEscrowAddress == "" {
		return fmt.Errorf("revealed order %s has no source escrow", order.ID)
	}

	srcAdapter, err := o.registry.Get(order.MakerChain)
	if err != nil {
		return err
	}

	txHash, err := srcAdapter.Claim(ctx, assignment.SrcEscrowAddress, assignment.Secret)
	if err != nil {
		return err
	}

	if err := o.relayer.CompleteOrder(ctx, order.ID, &dto.CompleteOrderRequest{
		Status:  string(models.OrderStatusCompleted),
		Details: map[string]interface{}{"srcClaimTx": txHash},
	}); err != nil {
		return fmt.Errorf("claimed source escrow but failed to complete order: %w", err)
	}

	metrics.SourceClaims.WithLabelValues("success").Inc()
	o.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"tx":       txHash,
	}).Info("Source escrow claimed, order completed")
	return nil
}

// hashlockFor picks the hashlock encoding the target chain verifies.
func hashlockFor(adapter chains.Adapter, order *models.Order) string {
	if adapter.Family() == "starkgate" {
		return order.StarknetHashlock
	}
	return order.EthereumHashlock
}
