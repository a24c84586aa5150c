package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"coffee-eshop-go/pkg/contracts"
	"coffee-eshop-go/pkg/logging"
)

type Notification struct {
	EventID  string
	OrderID  int64
	ClientID int64
	Email    Email
}

// Inbox stores each notification once per event id. Save reports false for
// an event it has already seen.
type Inbox interface {
	Save(ctx context.Context, n Notification) (bool, error)
}

type MemInbox struct {
	mu   sync.Mutex
	byID map[string]Notification
	list []Notification
}

func NewMemInbox() *MemInbox {
	return &MemInbox{byID: map[string]Notification{}}
}

func (m *MemInbox) Save(_ context.Context, n Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[n.EventID]; ok {
		return false, nil
	}
	m.byID[n.EventID] = n
	m.list = append(m.list, n)
	return true, nil
}

func (m *MemInbox) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification(nil), m.list...)
}

var errPoison = errors.New("undecodable message")

type Consumer struct {
	inbox Inbox
	log   *logging.Logger
}

func NewConsumer(inbox Inbox, log *logging.Logger) *Consumer {
	if log == nil {
		log = logging.NewNop()
	}
	return &Consumer{inbox: inbox, log: log}
}

// Handle processes one message value. Events other than order.confirmed are
// ignored.
func (c *Consumer) Handle(ctx context.Context, value []byte) error {
	var evt contracts.Event
	if err := json.Unmarshal(value, &evt); err != nil {
		return fmt.Errorf("%w: %v", errPoison, err)
	}
	if evt.EventID == "" || evt.Type != contracts.EventOrderConfirmed {
		return nil
	}
	p, err := evt.OrderConfirmed()
	if err != nil {
		return fmt.Errorf("%w: %v", errPoison, err)
	}

	n := Notification{EventID: evt.EventID, OrderID: p.OrderID, ClientID: p.ClientID, Email: Render(p)}
	fresh, err := c.inbox.Save(ctx, n)
	if err != nil {
		return fmt.Errorf("save notification %s: %w", evt.EventID, err)
	}
	status := "duplicate"
	if fresh {
		status = "emitted"
	}
	c.log.Log(logging.Fields{
		OrderID: p.OrderID, ClientID: p.ClientID, EventID: evt.EventID,
		Step: contracts.EventNotificationEmitted, Status: status, Message: n.Email.Subject,
	})
	return nil
}

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Run consumes until ctx is done. A message is committed once handled or
// found undecodable; any other failure is retried on the same message after
// a pause.
func (c *Consumer) Run(ctx context.Context, r MessageReader, retry time.Duration) {
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn(logging.Fields{Step: "kafka_fetch", Status: "failed"}, err)
			if !sleep(ctx, retry) {
				return
			}
			continue
		}

		for {
			err := c.Handle(ctx, msg.Value)
			if err == nil {
				break
			}
			if errors.Is(err, errPoison) {
				c.log.Error(logging.Fields{Step: "handle", Status: "skipped"}, err)
				break
			}
			c.log.Warn(logging.Fields{Step: "handle", Status: "retry"}, err)
			if !sleep(ctx, retry) {
				return
			}
		}
		if err := r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Warn(logging.Fields{Step: "kafka_commit", Status: "failed"}, err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
