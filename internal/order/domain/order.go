package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductID int64
type ClientID int64
type OrderID int64
type BasketLineID int64
type CategoryID int64

type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

type Category struct {
	ID          CategoryID `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
}

// Product is a snapshot of a catalog row. Stores hand it out by value, so
// holding one never pins or mutates the stored product.
type Product struct {
	ID          ProductID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  CategoryID      `json:"category_id"`
	Available   bool            `json:"available"`
	Stock       int             `json:"stock"`
}

type Client struct {
	ID        ClientID `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Role      Role     `json:"role"`
}

func (c Client) FullName() string {
	return c.FirstName + " " + c.LastName
}

// BasketLine is a pending purchase intent. There is at most one line per
// (client, product); adding the same product again grows Quantity.
type BasketLine struct {
	ID        BasketLineID `json:"id"`
	ClientID  ClientID     `json:"client_id"`
	ProductID ProductID    `json:"product_id"`
	Quantity  int          `json:"quantity"`
	AddedAt   time.Time    `json:"added_at"`
}

// OrderLine freezes the product name and price at checkout time.
type OrderLine struct {
	ID          int64           `json:"id"`
	OrderID     OrderID         `json:"order_id"`
	ProductID   ProductID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Order struct {
	ID             OrderID         `json:"id"`
	ClientID       ClientID        `json:"client_id"`
	OrderedAt      time.Time       `json:"ordered_at"`
	Total          decimal.Decimal `json:"total"`
	Lines          []OrderLine     `json:"lines"`
	IdempotencyKey string          `json:"-"`
}

// LinesTotal recomputes the total from the lines.
func (o Order) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
