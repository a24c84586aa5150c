package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coffee-eshop-go/internal/order/checkout"
	"coffee-eshop-go/internal/order/domain"
	"coffee-eshop-go/pkg/contracts"
	"coffee-eshop-go/pkg/logging"
	"coffee-eshop-go/pkg/outbox"
)

// LogNotifier simulates sending the confirmation email by logging it.
type LogNotifier struct {
	log *logging.Logger
}

var _ checkout.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(log *logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyOrderConfirmed(_ context.Context, o domain.Order) error {
	e := Render(OrderConfirmed(o))
	n.log.Zap().Info("order confirmation email",
		zap.String("to", e.To), zap.String("subject", e.Subject), zap.String("body", e.Body),
		zap.Int64("order_id", int64(o.ID)))
	return nil
}

// KafkaNotifier publishes order.confirmed events keyed by order id. When the
// publish fails the event is parked in the outbox, if there is one, and the
// error is still returned.
type KafkaNotifier struct {
	pub    outbox.Publisher
	topic  string
	parked outbox.Store
	now    func() time.Time
}

var _ checkout.Notifier = (*KafkaNotifier)(nil)

func NewKafkaNotifier(pub outbox.Publisher, topic string, parked outbox.Store) *KafkaNotifier {
	return &KafkaNotifier{pub: pub, topic: topic, parked: parked, now: time.Now}
}

func (n *KafkaNotifier) NotifyOrderConfirmed(ctx context.Context, o domain.Order) error {
	evt, err := contracts.NewOrderConfirmed(EventID(o.ID), OrderConfirmed(o), n.now())
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%d", o.ID)
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	pubErr := n.pub.Publish(ctx, n.topic, key, data)
	if pubErr == nil {
		return nil
	}
	pubErr = fmt.Errorf("publish %s: %w", evt.EventID, pubErr)
	if n.parked == nil {
		return pubErr
	}
	if err := n.parked.Insert(context.WithoutCancel(ctx), evt.EventID, n.topic, key, evt); err != nil {
		return errors.Join(pubErr, fmt.Errorf("park %s: %w", evt.EventID, err))
	}
	return pubErr
}

// Multi sends to every notifier and joins their errors.
type Multi []checkout.Notifier

func (m Multi) NotifyOrderConfirmed(ctx context.Context, o domain.Order) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyOrderConfirmed(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
