package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"coffee-eshop-go/internal/order/domain"
)

const productColumns = `id, name, description, price::text, category_id, is_available, stock_quantity`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.CategoryID, &p.Available, &p.Stock); err != nil {
		return domain.Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %d: bad price %q: %w", p.ID, price, err)
	}
	p.Price = d
	return p, nil
}

type inventoryStore struct {
	q querier
}

func (s inventoryStore) GetProduct(ctx context.Context, id domain.ProductID) (domain.Product, bool, error) {
	p, err := scanProduct(s.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, int64(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, false, nil
	}
	if err != nil {
		return domain.Product{}, false, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, true, nil
}

// DecrementStock relies on the row lock taken by UPDATE: a concurrent
// decrement waits for this transaction and re-checks the predicate against
// the committed stock.
func (s inventoryStore) DecrementStock(ctx context.Context, id domain.ProductID, amount int) error {
	if amount <= 0 {
		return domain.ErrInvalidQuantity
	}
	tag, err := s.q.Exec(ctx,
		`UPDATE products SET stock_quantity = stock_quantity - $2 WHERE id = $1 AND stock_quantity >= $2`,
		int64(id), amount,
	)
	if err != nil {
		return fmt.Errorf("decrement stock %d: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	stockErr := &domain.InsufficientStockError{ProductID: id, Requested: amount, Available: -1}
	err = s.q.QueryRow(ctx, `SELECT name, stock_quantity FROM products WHERE id = $1`, int64(id)).
		Scan(&stockErr.ProductName, &stockErr.Available)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("decrement stock %d: %w", id, err)
	}
	return stockErr
}
