package memory

import (
	"context"
	"sort"
	"time"

	"coffee-eshop-go/internal/order/domain"
	"coffee-eshop-go/internal/order/tx"
)

type opKind int

const (
	opAdd opKind = iota
	opSetQuantity
	opRemove
	opConsume
	opClear
)

type basketOp struct {
	kind      opKind
	clientID  domain.ClientID
	productID domain.ProductID
	lineID    domain.BasketLineID
	ids       []domain.BasketLineID
	consumed  []domain.BasketLine
	qty       int
	at        time.Time
}

func (op basketOp) apply(lines map[domain.BasketLineID]domain.BasketLine, alloc func() domain.BasketLineID) error {
	switch op.kind {
	case opAdd:
		for id, l := range lines {
			if l.ProductID == op.productID {
				l.Quantity += op.qty
				lines[id] = l
				return nil
			}
		}
		id := op.lineID
		if id == 0 {
			id = alloc()
		}
		lines[id] = domain.BasketLine{ID: id, ClientID: op.clientID, ProductID: op.productID, Quantity: op.qty, AddedAt: op.at}
	case opSetQuantity:
		l, ok := lines[op.lineID]
		if !ok {
			return domain.ErrBasketLineNotFound
		}
		l.Quantity = op.qty
		lines[op.lineID] = l
	case opRemove:
		for _, id := range op.ids {
			if _, ok := lines[id]; !ok {
				return domain.ErrStaleBasket
			}
		}
		for _, id := range op.ids {
			delete(lines, id)
		}
	case opConsume:
		for _, c := range op.consumed {
			if l, ok := lines[c.ID]; !ok || l.Quantity < c.Quantity {
				return domain.ErrStaleBasket
			}
		}
		for _, c := range op.consumed {
			l := lines[c.ID]
			if l.Quantity == c.Quantity {
				delete(lines, c.ID)
				continue
			}
			l.Quantity -= c.Quantity
			lines[c.ID] = l
		}
	case opClear:
		for id := range lines {
			delete(lines, id)
		}
	}
	return nil
}

func (s *Store) allocLineID() domain.BasketLineID {
	return domain.BasketLineID(s.nextLineID.Add(1))
}

// committedLines copies the committed lines of one client. Caller holds basketMu.
func (s *Store) committedLines(clientID domain.ClientID) map[domain.BasketLineID]domain.BasketLine {
	out := map[domain.BasketLineID]domain.BasketLine{}
	for id, l := range s.lines {
		if l.ClientID == clientID {
			out[id] = l
		}
	}
	return out
}

type basketView struct {
	t *memTx
}

// view returns the client's lines as this tx sees them.
func (v basketView) view(clientID domain.ClientID) (map[domain.BasketLineID]domain.BasketLine, error) {
	v.t.s.basketMu.Lock()
	lines := v.t.s.committedLines(clientID)
	v.t.s.basketMu.Unlock()

	for _, op := range v.t.basket {
		if op.clientID != clientID {
			continue
		}
		if err := op.apply(lines, v.t.s.allocLineID); err != nil {
			return nil, domain.ErrStaleBasket
		}
	}
	return lines, nil
}

func (v basketView) LinesForClient(_ context.Context, clientID domain.ClientID) ([]domain.BasketLine, error) {
	lines, err := v.view(clientID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BasketLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v basketView) GetLine(_ context.Context, clientID domain.ClientID, id domain.BasketLineID) (domain.BasketLine, error) {
	lines, err := v.view(clientID)
	if err != nil {
		return domain.BasketLine{}, err
	}
	l, ok := lines[id]
	if !ok {
		return domain.BasketLine{}, domain.ErrBasketLineNotFound
	}
	return l, nil
}

func (v basketView) RemoveLines(_ context.Context, clientID domain.ClientID, ids []domain.BasketLineID) error {
	lines, err := v.view(clientID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := lines[id]; !ok {
			return domain.ErrStaleBasket
		}
	}
	v.t.basket = append(v.t.basket, basketOp{kind: opRemove, clientID: clientID, ids: append([]domain.BasketLineID(nil), ids...)})
	return nil
}

func (v basketView) ConsumeLines(_ context.Context, clientID domain.ClientID, read []domain.BasketLine) error {
	op := basketOp{kind: opConsume, clientID: clientID, consumed: tx.MergeConsumed(read)}
	lines, err := v.view(clientID)
	if err != nil {
		return err
	}
	if err := op.apply(lines, v.t.s.allocLineID); err != nil {
		return err
	}
	v.t.basket = append(v.t.basket, op)
	return nil
}

func (v basketView) AddLine(_ context.Context, clientID domain.ClientID, productID domain.ProductID, qty int, now time.Time) (domain.BasketLine, error) {
	if qty <= 0 {
		return domain.BasketLine{}, domain.ErrInvalidQuantity
	}
	lines, err := v.view(clientID)
	if err != nil {
		return domain.BasketLine{}, err
	}
	op := basketOp{kind: opAdd, clientID: clientID, productID: productID, qty: qty, at: now.UTC()}
	for _, l := range lines {
		if l.ProductID == productID {
			l.Quantity += qty
			v.t.basket = append(v.t.basket, op)
			return l, nil
		}
	}
	op.lineID = v.t.s.allocLineID()
	v.t.basket = append(v.t.basket, op)
	return domain.BasketLine{ID: op.lineID, ClientID: clientID, ProductID: productID, Quantity: qty, AddedAt: op.at}, nil
}

func (v basketView) SetQuantity(_ context.Context, clientID domain.ClientID, id domain.BasketLineID, qty int) (domain.BasketLine, error) {
	if qty <= 0 {
		return domain.BasketLine{}, domain.ErrInvalidQuantity
	}
	lines, err := v.view(clientID)
	if err != nil {
		return domain.BasketLine{}, err
	}
	l, ok := lines[id]
	if !ok {
		return domain.BasketLine{}, domain.ErrBasketLineNotFound
	}
	l.Quantity = qty
	v.t.basket = append(v.t.basket, basketOp{kind: opSetQuantity, clientID: clientID, lineID: id, qty: qty})
	return l, nil
}

func (v basketView) ClearClient(_ context.Context, clientID domain.ClientID) error {
	v.t.basket = append(v.t.basket, basketOp{kind: opClear, clientID: clientID})
	return nil
}
