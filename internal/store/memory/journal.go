package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"coffee-eshop-go/internal/order/domain"
	"coffee-eshop-go/internal/order/tx"
)

type Journal struct {
	mu       sync.Mutex
	attempts map[tx.AttemptID]tx.Attempt
	now      func() time.Time
}

var _ tx.Journal = (*Journal)(nil)

func NewJournal() *Journal {
	return &Journal{attempts: map[tx.AttemptID]tx.Attempt{}, now: time.Now}
}

func (j *Journal) Create(_ context.Context, id tx.AttemptID, clientID domain.ClientID) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.attempts[id]; ok {
		return fmt.Errorf("attempt %s already exists", id)
	}
	now := j.now().UTC()
	j.attempts[id] = tx.Attempt{ID: id, ClientID: clientID, Status: tx.StatusStarted, CreatedAt: now, UpdatedAt: now}
	return nil
}

func (j *Journal) SetStatus(_ context.Context, id tx.AttemptID, status tx.Status, orderID domain.OrderID, reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	a, ok := j.attempts[id]
	if !ok {
		return fmt.Errorf("attempt %s not found", id)
	}
	if !tx.CanTransition(a.Status, status) {
		return fmt.Errorf("attempt %s: illegal transition %s -> %s", id, a.Status, status)
	}
	a.Status = status
	if orderID != 0 {
		a.OrderID = orderID
	}
	if reason != "" {
		a.Reason = reason
	}
	a.UpdatedAt = j.now().UTC()
	j.attempts[id] = a
	return nil
}

func (j *Journal) Get(_ context.Context, id tx.AttemptID) (tx.Attempt, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	a, ok := j.attempts[id]
	if !ok {
		return tx.Attempt{}, fmt.Errorf("attempt %s not found", id)
	}
	return a, nil
}

// Attempts returns every recorded attempt, oldest first.
func (j *Journal) Attempts() []tx.Attempt {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]tx.Attempt, 0, len(j.attempts))
	for _, a := range j.attempts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return out
}
