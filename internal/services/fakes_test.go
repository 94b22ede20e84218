package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"swap-backend/internal/models"
	"swap-backend/internal/repository"
)

// In-memory repository fakes. They replicate the store's atomicity
// guarantees (unique order_id insert, guarded updates) behind a mutex so
// service tests can exercise concurrent behavior without a database.

type memStore struct {
	mu          sync.Mutex
	orders      map[string]*models.Order
	assignments map[string]*models.ResolverAssignment // keyed by orderID
	nonces      map[string]bool
	events      []*models.OrderEvent

	// afterGetAssignment, when set, runs outside the lock after every
	// assignment read. Tests use it to land a competing write inside the
	// service's read-validate-write window.
	afterGetAssignment func()
}

func newMemStore() *memStore {
	return &memStore{
		orders:      map[string]*models.Order{},
		assignments: map[string]*models.ResolverAssignment{},
		nonces:      map[string]bool{},
	}
}

type memOrderRepo struct{ store *memStore }

func (r *memOrderRepo) Create(ctx context.Context, order *models.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.nonces[order.OrderNonce] {
		return repository.ErrDuplicateKey
	}
	clone := *order
	r.store.orders[order.ID] = &clone
	r.store.nonces[order.OrderNonce] = true
	return nil
}

func (r *memOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order, ok := r.store.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (r *memOrderRepo) FindByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.Order
	for _, order := range r.store.orders {
		if order.Status == status {
			clone := *order
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memOrderRepo) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order, ok := r.store.orders[id]
	if !ok || order.Status != from {
		return repository.ErrNoRows
	}
	order.Status = to
	return nil
}

func (r *memOrderRepo) SetStatus(ctx context.Context, id string, status models.OrderStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order, ok := r.store.orders[id]
	if !ok {
		return repository.ErrNoRows
	}
	order.Status = status
	return nil
}

func (r *memOrderRepo) MarkSecretRevealed(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if order, ok := r.store.orders[id]; ok {
		order.SecretRevealed = true
	}
	return nil
}

type memAssignmentRepo struct{ store *memStore }

func (r *memAssignmentRepo) Assign(ctx context.Context, assignment *models.ResolverAssignment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.assignments[assignment.OrderID]; exists {
		return repository.ErrDuplicateKey
	}
	order, ok := r.store.orders[assignment.OrderID]
	if !ok || order.Status != models.OrderStatusPendingAuction {
		return repository.ErrNoRows
	}
	clone := *assignment
	r.store.assignments[assignment.OrderID] = &clone
	order.Status = models.OrderStatusAssigned
	return nil
}

func (r *memAssignmentRepo) GetByOrderID(ctx context.Context, orderID string) (*models.ResolverAssignment, error) {
	r.store.mu.Lock()
	assignment, ok := r.store.assignments[orderID]
	if !ok {
		r.store.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	clone := *assignment
	hook := r.store.afterGetAssignment
	r.store.mu.Unlock()
	if hook != nil {
		hook()
	}
	return &clone, nil
}

func (r *memAssignmentRepo) UpdateFields(ctx context.Context, orderID string, fromStatus models.AssignmentStatus, updates map[string]interface{}) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	assignment, ok := r.store.assignments[orderID]
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

func (r *memAssignmentRepo) SetSecret(ctx context.Context, orderID, secret, claimTxHash string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	assignment, ok := r.store.assignments[orderID]
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

func (r *memAssignmentRepo) FindRevealedByResolver(ctx context.Context, resolverAddress string) ([]*models.ResolverAssignment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.ResolverAssignment
	for _, assignment := range r.store.assignments {
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

func (r *memAssignmentRepo) FindStalled(ctx context.Context, now int64) ([]*models.ResolverAssignment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.ResolverAssignment
	for _, assignment := range r.store.assignments {
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

type memEventRepo struct{ store *memStore }

func (r *memEventRepo) Append(ctx context.Context, orderID, eventType string, payload map[string]interface{}) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.store.events = append(r.store.events, &models.OrderEvent{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Type:      eventType,
		Payload:   string(raw),
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (r *memEventRepo) ListByOrder(ctx context.Context, orderID string, limit int) ([]*models.OrderEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.OrderEvent
	for i := len(r.store.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.store.events[i].OrderID == orderID {
			out = append(out, r.store.events[i])
		}
	}
	return out, nil
}

func (r *memEventRepo) LatestByType(ctx context.Context, orderID, eventType string) (*models.OrderEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := len(r.store.events) - 1; i >= 0; i-- {
		if r.store.events[i].OrderID == orderID && r.store.events[i].Type == eventType {
			return r.store.events[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memEventRepo) countByType(orderID, eventType string) int {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, event := range r.store.events {
		if event.OrderID == orderID && event.Type == eventType {
			count++
		}
	}
	return count
}
