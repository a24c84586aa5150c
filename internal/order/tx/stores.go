package tx

import (
	"context"
	"sort"
	"time"

	"coffee-eshop-go/internal/order/domain"
)

type Inventory interface {
	GetProduct(ctx context.Context, id domain.ProductID) (domain.Product, bool, error)
	// DecrementStock lowers stock by amount, failing with
	// *domain.InsufficientStockError when the result would be negative.
	DecrementStock(ctx context.Context, id domain.ProductID, amount int) error
}

type Basket interface {
	LinesForClient(ctx context.Context, clientID domain.ClientID) ([]domain.BasketLine, error)
	// RemoveLines deletes exactly the given lines. A line that is already
	// gone fails the call with domain.ErrStaleBasket.
	RemoveLines(ctx context.Context, clientID domain.ClientID, ids []domain.BasketLineID) error
	// ConsumeLines takes the quantities that were read off their lines. A line
	// holding exactly that much is deleted, a line that grew keeps the rest. A
	// line that is gone or shrank fails with domain.ErrStaleBasket.
	ConsumeLines(ctx context.Context, clientID domain.ClientID, read []domain.BasketLine) error

	GetLine(ctx context.Context, clientID domain.ClientID, id domain.BasketLineID) (domain.BasketLine, error)
	// AddLine merges into the existing line for (client, product) if there is one.
	AddLine(ctx context.Context, clientID domain.ClientID, productID domain.ProductID, qty int, now time.Time) (domain.BasketLine, error)
	SetQuantity(ctx context.Context, clientID domain.ClientID, id domain.BasketLineID, qty int) (domain.BasketLine, error)
	ClearClient(ctx context.Context, clientID domain.ClientID) error
}

// MergeConsumed sums the quantities of repeated line ids and orders the
// result by id.
func MergeConsumed(read []domain.BasketLine) []domain.BasketLine {
	byID := map[domain.BasketLineID]int{}
	out := make([]domain.BasketLine, 0, len(read))
	for _, l := range read {
		if i, ok := byID[l.ID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		byID[l.ID] = len(out)
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type Orders interface {
	// Save persists the order with its lines and returns it with ids assigned.
	// A reused idempotency key fails with domain.ErrDuplicateCheckout.
	Save(ctx context.Context, order domain.Order) (domain.Order, error)
	Get(ctx context.Context, clientID domain.ClientID, id domain.OrderID) (domain.Order, error)
	ListForClient(ctx context.Context, clientID domain.ClientID) ([]domain.Order, error)
	ByIdempotencyKey(ctx context.Context, clientID domain.ClientID, key string) (domain.Order, bool, error)
}

type Catalog interface {
	ListProducts(ctx context.Context, categoryID *domain.CategoryID) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id domain.CategoryID) (domain.Category, error)
}

type Clients interface {
	GetClient(ctx context.Context, id domain.ClientID) (domain.Client, error)
}

// Stores is the view of storage handed to a unit of work. Everything
// reached through it commits or rolls back together.
type Stores interface {
	Inventory() Inventory
	Basket() Basket
	Orders() Orders
	Catalog() Catalog
	Clients() Clients
}

// UnitOfWork runs fn in one storage transaction. A nil return from fn
// commits; an error (or a cancelled ctx) rolls everything back and is
// returned unchanged.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
