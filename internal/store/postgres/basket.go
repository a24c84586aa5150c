package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"coffee-eshop-go/internal/order/domain"
	"coffee-eshop-go/internal/order/tx"
)

const basketColumns = `id, client_id, product_id, quantity, added_at`

func scanLine(row pgx.Row) (domain.BasketLine, error) {
	var l domain.BasketLine
	err := row.Scan(&l.ID, &l.ClientID, &l.ProductID, &l.Quantity, &l.AddedAt)
	return l, err
}

type basketStore struct {
	q querier
}

func (s basketStore) LinesForClient(ctx context.Context, clientID domain.ClientID) ([]domain.BasketLine, error) {
	rows, err := s.q.Query(ctx, `SELECT `+basketColumns+` FROM basket_items WHERE client_id = $1 ORDER BY id`, int64(clientID))
	if err != nil {
		return nil, fmt.Errorf("load basket: %w", err)
	}
	defer rows.Close()

	out := []domain.BasketLine{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s basketStore) GetLine(ctx context.Context, clientID domain.ClientID, id domain.BasketLineID) (domain.BasketLine, error) {
	l, err := scanLine(s.q.QueryRow(ctx,
		`SELECT `+basketColumns+` FROM basket_items WHERE id = $1 AND client_id = $2`, int64(id), int64(clientID)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BasketLine{}, domain.ErrBasketLineNotFound
	}
	return l, err
}

func (s basketStore) RemoveLines(ctx context.Context, clientID domain.ClientID, ids []domain.BasketLineID) error {
	unique := map[int64]struct{}{}
	raw := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := unique[int64(id)]; ok {
			continue
		}
		unique[int64(id)] = struct{}{}
		raw = append(raw, int64(id))
	}
	if len(raw) == 0 {
		return nil
	}
	tag, err := s.q.Exec(ctx, `DELETE FROM basket_items WHERE client_id = $1 AND id = ANY($2)`, int64(clientID), raw)
	if err != nil {
		return fmt.Errorf("remove basket lines: %w", err)
	}
	if tag.RowsAffected() != int64(len(raw)) {
		return domain.ErrStaleBasket
	}
	return nil
}

func (s basketStore) ConsumeLines(ctx context.Context, clientID domain.ClientID, read []domain.BasketLine) error {
	for _, l := range tx.MergeConsumed(read) {
		tag, err := s.q.Exec(ctx,
			`DELETE FROM basket_items WHERE id = $1 AND client_id = $2 AND quantity = $3`,
			int64(l.ID), int64(clientID), l.Quantity)
		if err != nil {
			return fmt.Errorf("consume basket line %d: %w", l.ID, err)
		}
		if tag.RowsAffected() == 1 {
			continue
		}
		tag, err = s.q.Exec(ctx,
			`UPDATE basket_items SET quantity = quantity - $3 WHERE id = $1 AND client_id = $2 AND quantity > $3`,
			int64(l.ID), int64(clientID), l.Quantity)
		if err != nil {
			return fmt.Errorf("consume basket line %d: %w", l.ID, err)
		}
		if tag.RowsAffected() != 1 {
			return domain.ErrStaleBasket
		}
	}
	return nil
}

func (s basketStore) AddLine(ctx context.Context, clientID domain.ClientID, productID domain.ProductID, qty int, now time.Time) (domain.BasketLine, error) {
	if qty <= 0 {
		return domain.BasketLine{}, domain.ErrInvalidQuantity
	}
	return scanLine(s.q.QueryRow(ctx, `
		INSERT INTO basket_items(client_id, product_id, quantity, added_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id, product_id) DO UPDATE SET quantity = basket_items.quantity + EXCLUDED.quantity
		RETURNING `+basketColumns,
		int64(clientID), int64(productID), qty, now.UTC()))
}

func (s basketStore) SetQuantity(ctx context.Context, clientID domain.ClientID, id domain.BasketLineID, qty int) (domain.BasketLine, error) {
	if qty <= 0 {
		return domain.BasketLine{}, domain.ErrInvalidQuantity
	}
	l, err := scanLine(s.q.QueryRow(ctx,
		`UPDATE basket_items SET quantity = $3 WHERE id = $1 AND client_id = $2 RETURNING `+basketColumns,
		int64(id), int64(clientID), qty))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BasketLine{}, domain.ErrBasketLineNotFound
	}
	return l, err
}

func (s basketStore) ClearClient(ctx context.Context, clientID domain.ClientID) error {
	_, err := s.q.Exec(ctx, `DELETE FROM basket_items WHERE client_id = $1`, int64(clientID))
	return err
}
