package postgres

import (
	"context"
	"fmt"

	"coffee-eshop-go/internal/notify"
)

type Inbox struct {
	db *DB
}

var _ notify.Inbox = (*Inbox)(nil)

func NewInbox(db *DB) *Inbox {
	return &Inbox{db: db}
}

// Save records the event id and the notification in one transaction, so a
// redelivered event never produces a second notification row.
func (i *Inbox) Save(ctx context.Context, n notify.Notification) (bool, error) {
	fresh := false
	err := i.db.inTx(ctx, func(ctx context.Context, q querier) error {
		tag, err := q.Exec(ctx, `INSERT INTO inbox(event_id) VALUES ($1) ON CONFLICT (event_id) DO NOTHING`, n.EventID)
		if err != nil {
			return fmt.Errorf("inbox %s: %w", n.EventID, err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		fresh = true
		_, err = q.Exec(ctx, `INSERT INTO notifications(event_id, order_id, client_id, recipient, subject, body)
			VALUES ($1, $2, $3, $4, $5, $6)`, n.EventID, n.OrderID, n.ClientID, n.Email.To, n.Email.Subject, n.Email.Body)
		if err != nil {
			return fmt.Errorf("notification %s: %w", n.EventID, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return fresh, nil
}
