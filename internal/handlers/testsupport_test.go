package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"swap-backend/internal/models"
	"swap-backend/internal/repository"
	"swap-backend/internal/services"
)

// In-memory repository fakes so handler tests exercise the full
// handler -> service path without a database.

type handlerStore struct {
	mu          sync.Mutex
	orders      map[string]*models.Order
	assignments map[string]*models.ResolverAssignment
	nonces      map[string]bool
	events      []*models.OrderEvent
}

func newHandlerTestService(logger *logrus.Logger) *services.OrderService {
	store := &handlerStore{
		orders:      map[string]*models.Order{},
		assignments: map[string]*models.ResolverAssignment{},
		nonces:      map[string]bool{},
	}
	return services.NewOrderService(
		(*storeOrderRepo)(store),
		(*storeAssignmentRepo)(store),
		(*storeEventRepo)(store),
		nil,
		logger,
		10,
	)
}

type storeOrderRepo handlerStore

func (r *storeOrderRepo) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nonces[order.OrderNonce] {
		return repository.ErrDuplicateKey
	}
	clone := *order
	r.orders[order.ID] = &clone
	r.nonces[order.OrderNonce] = true
	return nil
}

func (r *storeOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (r *storeOrderRepo) FindByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Order
	for _, order := range r.orders {
		if order.Status == status {
			clone := *order
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *storeOrderRepo) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.Status != from {
		return repository.ErrNoRows
	}
	order.Status = to
	return nil
}

func (r *storeOrderRepo) SetStatus(ctx context.Context, id string, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return repository.ErrNoRows
	}
	order.Status = status
	return nil
}

func (r *storeOrderRepo) MarkSecretRevealed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order, ok := r.orders[id]; ok {
		order.SecretRevealed = true
	}
	return nil
}

type storeAssignmentRepo handlerStore

func (r *storeAssignmentRepo) Assign(ctx context.Context, assignment *models.ResolverAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.assignments[assignment.OrderID]; exists {
		return repository.ErrDuplicateKey
	}
	order, ok := r.orders[assignment.OrderID]
	if !ok || order.Status != models.OrderStatusPendingAuction {
		return repository.ErrNoRows
	}
	clone := *assignment
	r.assignments[assignment.OrderID] = &clone
	order.Status = models.OrderStatusAssigned
	return nil
}

func (r *storeAssignmentRepo) GetByOrderID(ctx context.Context, orderID string) (*models.ResolverAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	assignment, ok := r.assignments[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *assignment
	return &clone, nil
}

func (r *storeAssignmentRepo) UpdateFields(ctx context.Context, orderID string, fromStatus models.AssignmentStatus, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	assignment, ok := r.assignments[orderID]
	if !ok {
		return repository.ErrNoRows
	}
	if fromStatus != "" && assignment.Status != fromStatus {
		return repository.ErrNoRows
	}
	for column, value := range updates {
		switch column {
		case "src_escrow_address":
			assignment.SrcEscrowAddress = value.(string)
		case "dst_escrow_address":
			assignment.DstEscrowAddress = value.(string)
		case "src_timelock":
			assignment.SrcTimelock = value.(int64)
		case "dst_timelock":
			assignment.DstTimelock = value.(int64)
		case "fill_amount":
			assignment.FillAmount = value.(string)
		case "take_amount":
			assignment.TakeAmount = value.(string)
		case "status":
			assignment.Status = value.(models.AssignmentStatus)
		}
	}
	return nil
}

func (r *storeAssignmentRepo) SetSecret(ctx context.Context, orderID, secret, claimTxHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	assignment, ok := r.assignments[orderID]
	if !ok {
		return repository.ErrNoRows
	}
	if assignment.Secret != "" {
		return repository.ErrNoRows
	}
	assignment.Secret = secret
	assignment.Status = models.AssignmentStatusSecretRevealed
	if claimTxHash != "" {
		assignment.ClaimTxHash = claimTxHash
	}
	return nil
}

func (r *storeAssignmentRepo) FindRevealedByResolver(ctx context.Context, resolverAddress string) ([]*models.ResolverAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ResolverAssignment
	for _, assignment := range r.assignments {
		if assignment.ResolverAddress != resolverAddress || assignment.Secret == "" {
			continue
		}
		if assignment.Status.IsTerminal() {
			continue
		}
		clone := *assignment
		out = append(out, &clone)
	}
	return out, nil
}

func (r *storeAssignmentRepo) FindStalled(ctx context.Context, now int64) ([]*models.ResolverAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ResolverAssignment
	for _, assignment := range r.assignments {
		if assignment.Status != models.AssignmentStatusSrcDeployed || assignment.DstTimelock <= 0 {
			continue
		}
		if assignment.AssignedAt.Unix()+assignment.DstTimelock < now {
			clone := *assignment
			out = append(out, &clone)
		}
	}
	return out, nil
}

type storeEventRepo handlerStore

func (r *storeEventRepo) Append(ctx context.Context, orderID, eventType string, payload map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.events = append(r.events, &models.OrderEvent{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Type:      eventType,
		Payload:   string(raw),
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (r *storeEventRepo) ListByOrder(ctx context.Context, orderID string, limit int) ([]*models.OrderEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.OrderEvent
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.events[i].OrderID == orderID {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}

func (r *storeEventRepo) LatestByType(ctx context.Context, orderID, eventType string) (*models.OrderEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].OrderID == orderID && r.events[i].Type == eventType {
			return r.events[i], nil
		}
	}
	return nil, repository.ErrNotFound
}
