// Package memory is a storage backend that keeps everything in process.
//
// A unit of work buffers its writes and validates them at commit while
// holding the locks of every product it touched, taken in ascending id
// order, then the basket lock, then the orders lock. Checkouts on disjoint
// products only contend on the short basket/orders critical sections.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"coffee-eshop-go/internal/catalog"
	"coffee-eshop-go/internal/order/domain"
	"coffee-eshop-go/internal/order/tx"
)

type productRow struct {
	mu sync.Mutex
	p  domain.Product
}

type Store struct {
	mu         sync.RWMutex
	products   map[domain.ProductID]*productRow
	categories map[domain.CategoryID]domain.Category
	clients    map[domain.ClientID]domain.Client

	basketMu   sync.Mutex
	lines      map[domain.BasketLineID]domain.BasketLine
	nextLineID atomic.Int64

	ordersMu        sync.Mutex
	orders          map[domain.OrderID]domain.Order
	byKey           map[string]domain.OrderID
	nextOrderID     atomic.Int64
	nextOrderLineID atomic.Int64
}

var _ tx.UnitOfWork = (*Store)(nil)

func New(seed catalog.Seed) *Store {
	s := &Store{
		products:   map[domain.ProductID]*productRow{},
		categories: map[domain.CategoryID]domain.Category{},
		clients:    map[domain.ClientID]domain.Client{},
		lines:      map[domain.BasketLineID]domain.BasketLine{},
		orders:     map[domain.OrderID]domain.Order{},
		byKey:      map[string]domain.OrderID{},
	}
	for _, c := range seed.DomainCategories() {
		s.categories[c.ID] = c
	}
	for _, p := range seed.DomainProducts() {
		s.products[p.ID] = &productRow{p: p}
	}
	for _, c := range seed.DomainClients() {
		s.clients[c.ID] = c
	}
	return s
}

// WithinTx runs fn against a fresh write set and commits it if fn succeeds
// and ctx is still live.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, st tx.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newMemTx(s)
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.commit()
}

func (s *Store) row(id domain.ProductID) *productRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products[id]
}

func (s *Store) productIDs() []domain.ProductID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]domain.ProductID, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *productRow) snapshot() domain.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.p
}

type catalogView struct {
	t *memTx
}

func (v catalogView) ListProducts(_ context.Context, categoryID *domain.CategoryID) ([]domain.Product, error) {
	out := []domain.Product{}
	for _, id := range v.t.s.productIDs() {
		p, ok := v.t.product(id)
		if !ok {
			continue
		}
		if categoryID != nil && p.CategoryID != *categoryID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (v catalogView) ListCategories(context.Context) ([]domain.Category, error) {
	out := make([]domain.Category, 0, len(v.t.s.categories))
	for _, c := range v.t.s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v catalogView) GetCategory(_ context.Context, id domain.CategoryID) (domain.Category, error) {
	c, ok := v.t.s.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return c, nil
}

type clientsView struct {
	t *memTx
}

func (v clientsView) GetClient(_ context.Context, id domain.ClientID) (domain.Client, error) {
	c, ok := v.t.s.clients[id]
	if !ok {
		return domain.Client{}, domain.ErrClientNotFound
	}
	return c, nil
}
