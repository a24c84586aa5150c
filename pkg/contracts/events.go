// Package contracts holds the event envelopes exchanged over Kafka.
package contracts

import (
	"encoding/json"
	"fmt"
	"time"
)

type Event struct {
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	OrderID   int64           `json:"order_id"`
	ClientID  int64           `json:"client_id"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

const (
	EventOrderConfirmed      = "order.confirmed"
	EventNotificationEmitted = "notification.emitted"
)

type OrderConfirmed struct {
	OrderID   int64                `json:"order_id"`
	ClientID  int64                `json:"client_id"`
	OrderedAt time.Time            `json:"ordered_at"`
	Total     string               `json:"total"`
	Lines     []OrderConfirmedLine `json:"lines"`
}

type OrderConfirmedLine struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
}

func NewOrderConfirmed(eventID string, p OrderConfirmed, now time.Time) (Event, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		EventID:   eventID,
		Type:      EventOrderConfirmed,
		OrderID:   p.OrderID,
		ClientID:  p.ClientID,
		CreatedAt: now.UTC(),
		Payload:   data,
	}, nil
}

func (e Event) OrderConfirmed() (OrderConfirmed, error) {
	if e.Type != EventOrderConfirmed {
		return OrderConfirmed{}, fmt.Errorf("event %s is %q, not %q", e.EventID, e.Type, EventOrderConfirmed)
	}
	var p OrderConfirmed
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return OrderConfirmed{}, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return p, nil
}
