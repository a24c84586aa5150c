package memory

import (
	"context"
	"fmt"
	"sort"

	"coffee-eshop-go/internal/order/domain"
)

func idemKey(clientID domain.ClientID, key string) string {
	return fmt.Sprintf("%d:%s", clientID, key)
}

func cloneOrder(o domain.Order) domain.Order {
	o.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return o
}

type ordersView struct {
	t *memTx
}

func (v ordersView) Save(ctx context.Context, o domain.Order) (domain.Order, error) {
	if o.IdempotencyKey != "" {
		if _, ok, _ := v.ByIdempotencyKey(ctx, o.ClientID, o.IdempotencyKey); ok {
			return domain.Order{}, domain.ErrDuplicateCheckout
		}
	}
	o = cloneOrder(o)
	o.ID = domain.OrderID(v.t.s.nextOrderID.Add(1))
	for i := range o.Lines {
		o.Lines[i].ID = v.t.s.nextOrderLineID.Add(1)
		o.Lines[i].OrderID = o.ID
	}
	v.t.orders = append(v.t.orders, o)
	return cloneOrder(o), nil
}

// all returns the committed orders of a client plus the ones pending in this tx.
func (v ordersView) all(clientID domain.ClientID) []domain.Order {
	var out []domain.Order
	v.t.s.ordersMu.Lock()
	for _, o := range v.t.s.orders {
		if o.ClientID == clientID {
			out = append(out, cloneOrder(o))
		}
	}
	v.t.s.ordersMu.Unlock()
	for _, o := range v.t.orders {
		if o.ClientID == clientID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v ordersView) Get(_ context.Context, clientID domain.ClientID, id domain.OrderID) (domain.Order, error) {
	for _, o := range v.all(clientID) {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

func (v ordersView) ListForClient(_ context.Context, clientID domain.ClientID) ([]domain.Order, error) {
	out := v.all(clientID)
	if out == nil {
		out = []domain.Order{}
	}
	return out, nil
}

func (v ordersView) ByIdempotencyKey(_ context.Context, clientID domain.ClientID, key string) (domain.Order, bool, error) {
	for _, o := range v.all(clientID) {
		if o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return domain.Order{}, false, nil
}
