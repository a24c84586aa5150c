package memory

import (
	"context"

	"coffee-eshop-go/internal/order/domain"
)

type inventoryView struct {
	t *memTx
}

func (v inventoryView) GetProduct(_ context.Context, id domain.ProductID) (domain.Product, bool, error) {
	p, ok := v.t.product(id)
	return p, ok, nil
}

func (v inventoryView) DecrementStock(_ context.Context, id domain.ProductID, amount int) error {
	if amount <= 0 {
		return domain.ErrInvalidQuantity
	}
	p, ok := v.t.product(id)
	if !ok {
		return &domain.InsufficientStockError{ProductID: id, Requested: amount, Available: -1}
	}
	if p.Stock < amount {
		return &domain.InsufficientStockError{ProductID: id, ProductName: p.Name, Requested: amount, Available: p.Stock}
	}
	v.t.deltas[id] -= amount
	return nil
}
