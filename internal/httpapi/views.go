package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"coffee-eshop-go/internal/basket"
	"coffee-eshop-go/internal/order/domain"
)

// Money leaves the API as a fixed two-decimal string.

type productView struct {
	ID          domain.ProductID  `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Price       string            `json:"price"`
	CategoryID  domain.CategoryID `json:"category_id"`
	Available   bool              `json:"available"`
	Stock       int               `json:"stock_quantity"`
}

func toProduct(p domain.Product) productView {
	return productView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		CategoryID:  p.CategoryID,
		Available:   p.Available,
		Stock:       p.Stock,
	}
}

type basketItemView struct {
	ID        domain.BasketLineID `json:"id"`
	ProductID domain.ProductID    `json:"product_id"`
	Quantity  int                 `json:"quantity"`
	AddedAt   time.Time           `json:"added_at"`
	Product   *productView        `json:"product,omitempty"`
	Subtotal  string              `json:"subtotal,omitempty"`
}

func toBasketItem(it basket.Item) basketItemView {
	v := basketItemView{ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity, AddedAt: it.AddedAt}
	if it.Product != nil {
		p := toProduct(*it.Product)
		v.Product = &p
		v.Subtotal = it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).StringFixed(2)
	}
	return v
}

type orderLineView struct {
	ID          int64            `json:"id"`
	ProductID   domain.ProductID `json:"product_id"`
	ProductName string           `json:"product_name"`
	Price       string           `json:"price"`
	Quantity    int              `json:"quantity"`
	Subtotal    string           `json:"subtotal"`
}

type orderView struct {
	ID        domain.OrderID  `json:"id"`
	ClientID  domain.ClientID `json:"client_id"`
	OrderedAt time.Time       `json:"ordered_at"`
	Total     string          `json:"total_price"`
	Lines     []orderLineView `json:"order_items"`
}

func toOrder(o domain.Order) orderView {
	v := orderView{
		ID:        o.ID,
		ClientID:  o.ClientID,
		OrderedAt: o.OrderedAt,
		Total:     o.Total.StringFixed(2),
		Lines:     make([]orderLineView, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		v.Lines = append(v.Lines, orderLineView{
			ID:          l.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Price:       l.Price.StringFixed(2),
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal().StringFixed(2),
		})
	}
	return v
}

type checkoutView struct {
	orderView
	AttemptID string `json:"attempt_id,omitempty"`
	Replayed  bool   `json:"replayed,omitempty"`
}
