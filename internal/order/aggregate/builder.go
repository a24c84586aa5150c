// Package aggregate turns a client's basket into a priced order draft.
// It does no I/O; stores are consulted by the caller beforehand.
package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"coffee-eshop-go/internal/order/domain"
)

// Line pairs a basket line with the product snapshot it refers to.
// Product is nil when the product no longer exists.
type Line struct {
	Basket  domain.BasketLine
	Product *domain.Product
}

// Build validates every line in basket order and prices the order. The first
// line that cannot be covered by stock aborts the build. Demand for a product
// is accumulated, so two lines on the same product are checked together.
func Build(clientID domain.ClientID, lines []Line, now time.Time) (domain.Order, error) {
	if len(lines) == 0 {
		return domain.Order{}, domain.ErrEmptyBasket
	}

	demand := make(map[domain.ProductID]int, len(lines))
	order := domain.Order{
		ClientID:  clientID,
		OrderedAt: now.UTC(),
		Total:     decimal.Zero,
		Lines:     make([]domain.OrderLine, 0, len(lines)),
	}

	for _, l := range lines {
		if l.Basket.Quantity <= 0 {
			return domain.Order{}, domain.ErrInvalidQuantity
		}
		if l.Product == nil {
			return domain.Order{}, &domain.InsufficientStockError{
				ProductID: l.Basket.ProductID,
				Requested: l.Basket.Quantity,
				Available: -1,
			}
		}

		p := *l.Product
		demand[p.ID] += l.Basket.Quantity
		if p.Stock < demand[p.ID] {
			return domain.Order{}, &domain.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   demand[p.ID],
				Available:   p.Stock,
			}
		}

		line := domain.OrderLine{
			ProductID:   p.ID,
			ProductName: p.Name,
			Price:       p.Price,
			Quantity:    l.Basket.Quantity,
		}
		order.Lines = append(order.Lines, line)
		order.Total = order.Total.Add(line.Subtotal())
	}
	return order, nil
}
