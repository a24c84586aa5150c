package outbox

import (
	"context"
	"fmt"
	"time"

	"coffee-eshop-go/pkg/logging"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

type Relay struct {
	store    Store
	pub      Publisher
	interval time.Duration
	batch    int
	log      *logging.Logger
}

func NewRelay(store Store, pub Publisher, interval time.Duration, log *logging.Logger) *Relay {
	if log == nil {
		log = logging.NewNop()
	}
	return &Relay{store: store, pub: pub, interval: interval, batch: 100, log: log}
}

// Run flushes the outbox every interval until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn(logging.Fields{Step: "outbox_flush", Status: "failed"}, err)
			}
		}
	}
}

// Flush publishes pending records in id order and stops at the first
// failure, so a record is never sent ahead of an older one.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	records, err := r.store.FetchPending(ctx, r.batch)
	if err != nil {
		return 0, fmt.Errorf("fetch pending: %w", err)
	}
	sent := 0
	for _, rec := range records {
		if err := r.pub.Publish(ctx, rec.Topic, rec.Key, rec.Payload); err != nil {
			return sent, fmt.Errorf("publish %s: %w", rec.EventID, err)
		}
		if err := r.store.MarkSent(ctx, rec.ID); err != nil {
			return sent, fmt.Errorf("mark %s sent: %w", rec.EventID, err)
		}
		sent++
		r.log.Log(logging.Fields{EventID: rec.EventID, Step: "outbox_flush", Status: "sent"})
	}
	return sent, nil
}
