// Optional NATS mirror of the order audit log.
//
// Order discovery stays pull-based polling; these messages exist for
// operator dashboards and alerting only, so publish failures are counted
// and dropped, never propagated into order-book state.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"swap-backend/internal/config"
	"swap-backend/internal/metrics"

	"github.com/nats-io/nats.go"
)

// Publisher mirrors order events onto NATS subjects
// "<prefix>.<event_type>".
type Publisher struct {
	conn          *nats.Conn
	subjectPrefix string
}

type eventMessage struct {
	OrderID   string                 `json:"orderId"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewPublisher connects to the configured NATS server. Returns an error
// when NATS is unreachable; callers treat the publisher as optional.
func NewPublisher(cfg *config.NATSConfig) (*Publisher, error) {
	connectTimeout := 10 * time.Second
	if cfg.Timeout > 0 {
		connectTimeout = time.Duration(cfg.Timeout) * time.Second
	}
	reconnectWait := 5 * time.Second
	if cfg.ReconnectWait > 0 {
		reconnectWait = time.Duration(cfg.ReconnectWait) * time.Second
	}
	maxReconnects := -1
	if cfg.MaxReconnects > 0 {
		maxReconnects = cfg.MaxReconnects
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("⚠️ NATS disconnected: %v", err)
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("✅ NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	metrics.NATSConnectionStatus.Set(1)
	log.Printf("✅ NATS event publisher connected: %s", cfg.URL)

	return &Publisher{
		conn:          conn,
		subjectPrefix: cfg.SubjectPrefix,
	}, nil
}

// Publish mirrors one audit event. Failures are logged and counted.
func (p *Publisher) Publish(orderID, eventType string, payload map[string]interface{}) {
	if p == nil || p.conn == nil {
		return
	}

	msg := eventMessage{
		OrderID:   orderID,
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		metrics.NATSEventsFailed.WithLabelValues(eventType).Inc()
		log.Printf("⚠️ Failed to encode NATS event %s for order %s: %v", eventType, orderID, err)
		return
	}

	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, eventType)
	if err := p.conn.Publish(subject, raw); err != nil {
		metrics.NATSEventsFailed.WithLabelValues(eventType).Inc()
		log.Printf("⚠️ Failed to publish NATS event %s for order %s: %v", eventType, orderID, err)
		return
	}
	metrics.NATSEventsPublished.WithLabelValues(eventType).Inc()
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
	metrics.NATSConnectionStatus.Set(0)
}
