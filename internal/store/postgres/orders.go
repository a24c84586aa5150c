package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"coffee-eshop-go/internal/order/domain"
)

type orderStore struct {
	q querier
}

func (s orderStore) Save(ctx context.Context, o domain.Order) (domain.Order, error) {
	var key *string
	if o.IdempotencyKey != "" {
		key = &o.IdempotencyKey
	}
	err := s.q.QueryRow(ctx,
		`INSERT INTO orders(client_id, ordered_at, total, idempotency_key) VALUES ($1, $2, $3::numeric, $4) RETURNING id`,
		int64(o.ClientID), o.OrderedAt, o.Total.String(), key,
	).Scan(&o.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Order{}, domain.ErrDuplicateCheckout
		}
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	lines := make([]domain.OrderLine, len(o.Lines))
	copy(lines, o.Lines)
	for i := range lines {
		lines[i].OrderID = o.ID
		err := s.q.QueryRow(ctx,
			`INSERT INTO order_items(order_id, product_id, product_name, price, quantity) VALUES ($1, $2, $3, $4::numeric, $5) RETURNING id`,
			int64(o.ID), int64(lines[i].ProductID), lines[i].ProductName, lines[i].Price.String(), lines[i].Quantity,
		).Scan(&lines[i].ID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}
	o.Lines = lines
	return o, nil
}

const orderColumns = `id, client_id, ordered_at, total::text, COALESCE(idempotency_key, '')`

func (s orderStore) Get(ctx context.Context, clientID domain.ClientID, id domain.OrderID) (domain.Order, error) {
	orders, err := s.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND client_id = $2`, int64(id), int64(clientID))
	if err != nil {
		return domain.Order{}, err
	}
	if len(orders) == 0 {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return orders[0], nil
}

func (s orderStore) ListForClient(ctx context.Context, clientID domain.ClientID) ([]domain.Order, error) {
	return s.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE client_id = $1 ORDER BY id`, int64(clientID))
}

func (s orderStore) ByIdempotencyKey(ctx context.Context, clientID domain.ClientID, key string) (domain.Order, bool, error) {
	orders, err := s.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE client_id = $1 AND idempotency_key = $2`, int64(clientID), key)
	if err != nil || len(orders) == 0 {
		return domain.Order{}, false, err
	}
	return orders[0], true, nil
}

// query loads orders and then their lines in one round trip.
func (s orderStore) query(ctx context.Context, sql string, args ...any) ([]domain.Order, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	orders := []domain.Order{}
	index := map[domain.OrderID]int{}
	ids := []int64{}
	for rows.Next() {
		var (
			o     domain.Order
			total string
		)
		if err := rows.Scan(&o.ID, &o.ClientID, &o.OrderedAt, &total, &o.IdempotencyKey); err != nil {
			rows.Close()
			return nil, err
		}
		if o.Total, err = decimal.NewFromString(total); err != nil {
			rows.Close()
			return nil, fmt.Errorf("order %d: bad total %q: %w", o.ID, total, err)
		}
		o.Lines = []domain.OrderLine{}
		index[o.ID] = len(orders)
		orders = append(orders, o)
		ids = append(ids, int64(o.ID))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return orders, nil
	}

	lineRows, err := s.q.Query(ctx,
		`SELECT id, order_id, product_id, product_name, price::text, quantity FROM order_items WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var (
			l     domain.OrderLine
			price string
		)
		if err := lineRows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &price, &l.Quantity); err != nil {
			return nil, err
		}
		if l.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("order item %d: bad price %q: %w", l.ID, price, err)
		}
		i, ok := index[l.OrderID]
		if !ok {
			return nil, errors.New("order item without order")
		}
		orders[i].Lines = append(orders[i].Lines, l)
	}
	return orders, lineRows.Err()
}
