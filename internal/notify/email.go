// Package notify delivers order confirmations: as a log line, as a Kafka
// event, or both.
package notify

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"coffee-eshop-go/internal/order/domain"
	"coffee-eshop-go/pkg/contracts"
)

var eventNamespace = uuid.MustParse("6f1c7a52-3f0e-4d8e-9a57-0c4f6f3b2d11")

// EventID is stable per order, so a republished confirmation is recognised
// as the same event downstream.
func EventID(orderID domain.OrderID) string {
	return uuid.NewSHA1(eventNamespace, []byte(fmt.Sprintf("%s:%d", contracts.EventOrderConfirmed, orderID))).String()
}

func OrderConfirmed(o domain.Order) contracts.OrderConfirmed {
	p := contracts.OrderConfirmed{
		OrderID:   int64(o.ID),
		ClientID:  int64(o.ClientID),
		OrderedAt: o.OrderedAt,
		Total:     o.Total.StringFixed(2),
		Lines:     make([]contracts.OrderConfirmedLine, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		p.Lines = append(p.Lines, contracts.OrderConfirmedLine{
			ProductID:   int64(l.ProductID),
			ProductName: l.ProductName,
			Price:       l.Price.StringFixed(2),
			Quantity:    l.Quantity,
		})
	}
	return p
}

type Email struct {
	To      string
	Subject string
	Body    string
}

func Render(p contracts.OrderConfirmed) Email {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order! Order ID: %d\n", p.OrderID)
	for _, l := range p.Lines {
		fmt.Fprintf(&b, "  %d x %s @ $%s\n", l.Quantity, l.ProductName, l.Price)
	}
	fmt.Fprintf(&b, "Total Price: $%s", p.Total)
	return Email{
		To:      fmt.Sprintf("User ID %d", p.ClientID),
		Subject: "Your CoffeeEShop Order Confirmation",
		Body:    b.String(),
	}
}
