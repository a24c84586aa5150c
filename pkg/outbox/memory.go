package outbox

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemStore is the outbox used when the service runs without Postgres.
type MemStore struct {
	mu      sync.Mutex
	records []Record
	seen    map[string]bool
	now     func() time.Time
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{seen: map[string]bool{}, now: time.Now}
}

func (s *MemStore) Insert(_ context.Context, eventID, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[eventID] {
		return nil
	}
	s.seen[eventID] = true
	s.records = append(s.records, Record{
		ID:        int64(len(s.records) + 1),
		EventID:   eventID,
		Topic:     topic,
		Key:       key,
		Payload:   data,
		CreatedAt: s.now().UTC(),
	})
	return nil
}

func (s *MemStore) FetchPending(_ context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, r := range s.records {
		if r.SentAt != nil {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *MemStore) MarkSent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > int64(len(s.records)) {
		return nil
	}
	now := s.now().UTC()
	s.records[id-1].SentAt = &now
	return nil
}

// Pending reports how many records are still waiting to be sent.
func (s *MemStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.SentAt == nil {
			n++
		}
	}
	return n
}
