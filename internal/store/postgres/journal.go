package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"coffee-eshop-go/internal/order/domain"
	"coffee-eshop-go/internal/order/tx"
)

// Journal keeps checkout attempts in checkout_attempts. It writes through the
// pool, never through a checkout transaction, so a rolled back attempt still
// leaves its FAILED row behind.
type Journal struct {
	db *DB
}

var _ tx.Journal = (*Journal)(nil)

func NewJournal(db *DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Create(ctx context.Context, id tx.AttemptID, clientID domain.ClientID) error {
	_, err := j.db.pool.Exec(ctx,
		`INSERT INTO checkout_attempts(id, client_id, status) VALUES ($1, $2, $3)`,
		string(id), int64(clientID), string(tx.StatusStarted))
	if err != nil {
		return fmt.Errorf("create attempt %s: %w", id, err)
	}
	return nil
}

func (j *Journal) SetStatus(ctx context.Context, id tx.AttemptID, status tx.Status, orderID domain.OrderID, reason string) error {
	return j.db.inTx(ctx, func(ctx context.Context, q querier) error {
		var current string
		err := q.QueryRow(ctx, `SELECT status FROM checkout_attempts WHERE id = $1 FOR UPDATE`, string(id)).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("attempt %s not found", id)
		}
		if err != nil {
			return fmt.Errorf("load attempt %s: %w", id, err)
		}
		if !tx.CanTransition(tx.Status(current), status) {
			return fmt.Errorf("attempt %s: illegal transition %s -> %s", id, current, status)
		}

		var order *int64
		if orderID != 0 {
			v := int64(orderID)
			order = &v
		}
		_, err = q.Exec(ctx, `UPDATE checkout_attempts
			SET status = $2, order_id = COALESCE($3, order_id), reason = COALESCE(NULLIF($4, ''), reason), updated_at = NOW()
			WHERE id = $1`, string(id), string(status), order, reason)
		if err != nil {
			return fmt.Errorf("update attempt %s: %w", id, err)
		}
		return nil
	})
}

func (j *Journal) Get(ctx context.Context, id tx.AttemptID) (tx.Attempt, error) {
	var (
		a       tx.Attempt
		aid     string
		status  string
		orderID *int64
	)
	err := j.db.pool.QueryRow(ctx, `SELECT id, client_id, status, order_id, reason, created_at, updated_at
		FROM checkout_attempts WHERE id = $1`, string(id)).
		Scan(&aid, &a.ClientID, &status, &orderID, &a.Reason, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return tx.Attempt{}, fmt.Errorf("attempt %s not found", id)
	}
	if err != nil {
		return tx.Attempt{}, fmt.Errorf("get attempt %s: %w", id, err)
	}
	a.ID = tx.AttemptID(aid)
	a.Status = tx.Status(status)
	if orderID != nil {
		a.OrderID = domain.OrderID(*orderID)
	}
	return a, nil
}
