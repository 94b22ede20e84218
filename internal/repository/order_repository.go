package repository

import (
	"context"
	"errors"

	"swap-backend/internal/models"

	"gorm.io/gorm"
)

// Store-level errors. The service layer maps these onto its own sentinel
// errors; the repository only reports what the database said.
var (
	ErrDuplicateKey = errors.New("duplicate key")
	ErrNotFound     = errors.New("record not found")
	ErrNoRows       = errors.New("no rows updated")
)

// OrderRepository defines the interface for Order data access
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	FindByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error)
	// UpdateStatus advances the order status with a guard on the current
	// status; ErrNoRows means the guard did not hold.
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error
	// SetStatus sets the status unconditionally (terminal transitions
	// validated by the service layer).
	SetStatus(ctx context.Context, id string, status models.OrderStatus) error
	MarkSecretRevealed(ctx context.Context, id string) error
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new OrderRepository instance
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

func (r *orderRepository) FindByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	var orders []*models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("auction_start_time ASC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoRows
	}
	return nil
}

func (r *orderRepository) SetStatus(ctx context.Context, id string, status models.OrderStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoRows
	}
	return nil
}

func (r *orderRepository) MarkSecretRevealed(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("secret_revealed", true).Error
}

// translateError maps gorm errors onto the repository sentinel errors.
// Requires TranslateError to be enabled on the gorm config.
func translateError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	default:
		return err
	}
}
