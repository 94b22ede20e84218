package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"swap-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventRepository is the append-only audit log. Events are never updated
// or deleted.
type EventRepository interface {
	Append(ctx context.Context, orderID, eventType string, payload map[string]interface{}) error
	// ListByOrder returns at most limit events, newest first.
	ListByOrder(ctx context.Context, orderID string, limit int) ([]*models.OrderEvent, error)
	// LatestByType returns the newest event of a given type for an order,
	// or ErrNotFound.
	LatestByType(ctx context.Context, orderID, eventType string) (*models.OrderEvent, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new EventRepository instance
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Append(ctx context.Context, orderID, eventType string, payload map[string]interface{}) error {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	event := &models.OrderEvent{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Type:      eventType,
		Payload:   string(raw),
		Timestamp: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) ListByOrder(ctx context.Context, orderID string, limit int) ([]*models.OrderEvent, error) {
	var events []*models.OrderEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *eventRepository) LatestByType(ctx context.Context, orderID, eventType string) (*models.OrderEvent, error) {
	var event models.OrderEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND type = ?", orderID, eventType).
		Order("timestamp DESC").
		First(&event).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &event, nil
}
