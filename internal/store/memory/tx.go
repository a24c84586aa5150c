package memory

import (
	"sort"

	"coffee-eshop-go/internal/order/domain"
	"coffee-eshop-go/internal/order/tx"
)

// memTx is the write set of one unit of work. Reads see committed state with
// the tx's own pending writes applied on top.
type memTx struct {
	s      *Store
	deltas map[domain.ProductID]int
	basket []basketOp
	orders []domain.Order
}

func newMemTx(s *Store) *memTx {
	return &memTx{s: s, deltas: map[domain.ProductID]int{}}
}

func (t *memTx) Inventory() tx.Inventory { return inventoryView{t} }
func (t *memTx) Basket() tx.Basket       { return basketView{t} }
func (t *memTx) Orders() tx.Orders       { return ordersView{t} }
func (t *memTx) Catalog() tx.Catalog     { return catalogView{t} }
func (t *memTx) Clients() tx.Clients     { return clientsView{t} }

func (t *memTx) product(id domain.ProductID) (domain.Product, bool) {
	r := t.s.row(id)
	if r == nil {
		return domain.Product{}, false
	}
	p := r.snapshot()
	p.Stock += t.deltas[id]
	return p, true
}

func (t *memTx) commit() error {
	ids := make([]domain.ProductID, 0, len(t.deltas))
	for id := range t.deltas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([]*productRow, 0, len(ids))
	defer func() {
		for i := len(rows) - 1; i >= 0; i-- {
			rows[i].mu.Unlock()
		}
	}()
	for _, id := range ids {
		r := t.s.row(id)
		if r == nil {
			return &domain.InsufficientStockError{ProductID: id, Requested: -t.deltas[id], Available: -1}
		}
		r.mu.Lock()
		rows = append(rows, r)
	}
	for i, r := range rows {
		delta := t.deltas[ids[i]]
		if r.p.Stock+delta < 0 {
			return &domain.InsufficientStockError{
				ProductID:   r.p.ID,
				ProductName: r.p.Name,
				Requested:   -delta,
				Available:   r.p.Stock,
			}
		}
	}

	if len(t.basket) > 0 {
		t.s.basketMu.Lock()
		defer t.s.basketMu.Unlock()
	}
	if len(t.orders) > 0 {
		t.s.ordersMu.Lock()
		defer t.s.ordersMu.Unlock()
	}

	for _, o := range t.orders {
		if o.IdempotencyKey == "" {
			continue
		}
		if _, taken := t.s.byKey[idemKey(o.ClientID, o.IdempotencyKey)]; taken {
			return domain.ErrDuplicateCheckout
		}
	}
	working, err := t.replayBasket()
	if err != nil {
		return err
	}

	for i, r := range rows {
		r.p.Stock += t.deltas[ids[i]]
	}
	for clientID, lines := range working {
		for id, l := range t.s.lines {
			if l.ClientID == clientID {
				delete(t.s.lines, id)
			}
		}
		for id, l := range lines {
			t.s.lines[id] = l
		}
	}
	for _, o := range t.orders {
		t.s.orders[o.ID] = o
		if o.IdempotencyKey != "" {
			t.s.byKey[idemKey(o.ClientID, o.IdempotencyKey)] = o.ID
		}
	}
	return nil
}

// replayBasket applies the buffered basket ops to a copy of the committed
// lines of every client they touch. Caller holds basketMu.
func (t *memTx) replayBasket() (map[domain.ClientID]map[domain.BasketLineID]domain.BasketLine, error) {
	working := map[domain.ClientID]map[domain.BasketLineID]domain.BasketLine{}
	for _, op := range t.basket {
		lines, ok := working[op.clientID]
		if !ok {
			lines = t.s.committedLines(op.clientID)
			working[op.clientID] = lines
		}
		if err := op.apply(lines, t.s.allocLineID); err != nil {
			return nil, err
		}
	}
	return working, nil
}
