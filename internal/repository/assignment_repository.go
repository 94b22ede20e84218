package repository

import (
	"context"

	"swap-backend/internal/models"

	"gorm.io/gorm"
)

// AssignmentRepository defines the interface for ResolverAssignment data
// access. Assign is the single-winner choke point: the insert and the
// order-status flip happen in one transaction against the unique index on
// order_id, never as a separate read-then-write.
type AssignmentRepository interface {
	// Assign inserts the assignment and moves the order from
	// pending_auction to assigned atomically. Returns ErrDuplicateKey when
	// another resolver won the race, ErrNoRows when the order was no
	// longer pending.
	Assign(ctx context.Context, assignment *models.ResolverAssignment) error
	GetByOrderID(ctx context.Context, orderID string) (*models.ResolverAssignment, error)
	// UpdateFields applies a partial update. A non-empty fromStatus pins
	// the row's current status in the WHERE clause so a stale retry
	// cannot overwrite a transition that landed after the caller's read;
	// the lost write surfaces as ErrNoRows.
	UpdateFields(ctx context.Context, orderID string, fromStatus models.AssignmentStatus, updates map[string]interface{}) error
	// SetSecret stores the revealed secret. The guard makes the write
	// set-once at the row level: any already-set secret, including an
	// equal one from a concurrent upload, leaves the row untouched and
	// returns ErrNoRows.
	SetSecret(ctx context.Context, orderID, secret, claimTxHash string) error
	// FindRevealedByResolver returns non-terminal assignments with a
	// revealed secret for one resolver.
	FindRevealedByResolver(ctx context.Context, resolverAddress string) ([]*models.ResolverAssignment, error)
	// FindStalled returns assignments stuck at src_deployed since before
	// the cutoff (unix seconds against assigned_at + dst timelock).
	FindStalled(ctx context.Context, now int64) ([]*models.ResolverAssignment, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository creates a new AssignmentRepository instance
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Assign(ctx context.Context, assignment *models.ResolverAssignment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Unique index on order_id rejects the second winner.
		if err := tx.Create(assignment).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", assignment.OrderID, models.OrderStatusPendingAuction).
			Update("status", models.OrderStatusAssigned)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNoRows
		}
		return nil
	})
	return translateError(err)
}

func (r *assignmentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.ResolverAssignment, error) {
	var assignment models.ResolverAssignment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&assignment).Error; err != nil {
		return nil, translateError(err)
	}
	return &assignment, nil
}

func (r *assignmentRepository) UpdateFields(ctx context.Context, orderID string, fromStatus models.AssignmentStatus, updates map[string]interface{}) error {
	query := r.db.WithContext(ctx).
		Model(&models.ResolverAssignment{}).
		Where("order_id = ?", orderID)
	if fromStatus != "" {
		query = query.Where("status = ?", fromStatus)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoRows
	}
	return nil
}

func (r *assignmentRepository) SetSecret(ctx context.Context, orderID, secret, claimTxHash string) error {
	updates := map[string]interface{}{
		"secret": secret,
		"status": models.AssignmentStatusSecretRevealed,
	}
	if claimTxHash != "" {
		updates["claim_tx_hash"] = claimTxHash
	}
	result := r.db.WithContext(ctx).
		Model(&models.ResolverAssignment{}).
		Where("order_id = ? AND secret = ''", orderID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoRows
	}
	return nil
}

func (r *assignmentRepository) FindRevealedByResolver(ctx context.Context, resolverAddress string) ([]*models.ResolverAssignment, error) {
	var assignments []*models.ResolverAssignment
	err := r.db.WithContext(ctx).
		Where("resolver_address = ? AND secret <> '' AND status NOT IN ?",
			resolverAddress,
			[]models.AssignmentStatus{models.AssignmentStatusCompleted, models.AssignmentStatusFailed}).
		Order("assigned_at ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *assignmentRepository) FindStalled(ctx context.Context, now int64) ([]*models.ResolverAssignment, error) {
	var assignments []*models.ResolverAssignment
	err := r.db.WithContext(ctx).
		Where("status = ? AND dst_timelock > 0 AND EXTRACT(EPOCH FROM assigned_at) + dst_timelock < ?",
			models.AssignmentStatusSrcDeployed, now).
		Order("assigned_at ASC").
		Find(&assignments).Error
	return assignments, err
}
