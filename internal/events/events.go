// Package events provides the advisory event channel: typed events published
// by the risk and portfolio services and broadcast to WebSocket subscribers.
// Delivery is best-effort; events are advisory, never transactional.
package events

import "time"

// EventType identifies the kind of advisory event.
type EventType string

const (
	// EventRiskChanged fires when a portfolio's risk level moves between
	// buckets (e.g. medium -> high).
	EventRiskChanged EventType = "risk_changed"

	// EventRebalanceSuggested fires when a rebalance plan with at least one
	// trade has been computed for a portfolio.
	EventRebalanceSuggested EventType = "rebalance_suggested"
)

// Event is a single advisory notification.
type Event struct {
	Type        EventType   `json:"type"`
	PortfolioID string      `json:"portfolio_id"`
	UserID      string      `json:"user_id"`
	Payload     interface{} `json:"payload,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// Publisher is the narrow contract services use to emit advisory events.
type Publisher interface {
	Publish(event Event)
}

// NopPublisher discards all events. Used in tests and when the hub is
// disabled.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(Event) {}
