package tx

import (
	"context"
	"time"

	"coffee-eshop-go/internal/order/domain"
)

type Attempt struct {
	ID        AttemptID
	ClientID  domain.ClientID
	Status    Status
	OrderID   domain.OrderID
	Reason    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Journal records checkout attempts. Writes happen outside the checkout
// transaction and are best-effort.
type Journal interface {
	Create(ctx context.Context, id AttemptID, clientID domain.ClientID) error
	SetStatus(ctx context.Context, id AttemptID, status Status, orderID domain.OrderID, reason string) error
	Get(ctx context.Context, id AttemptID) (Attempt, error)
}
