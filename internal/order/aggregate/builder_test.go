package aggregate

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"coffee-eshop-go/internal/order/domain"
)

var now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func product(id domain.ProductID, name, price string, stock int) *domain.Product {
	return &domain.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Available: true, Stock: stock}
}

func line(id domain.BasketLineID, productID domain.ProductID, qty int) domain.BasketLine {
	return domain.BasketLine{ID: id, ClientID: 1, ProductID: productID, Quantity: qty}
}

func TestBuild(t *testing.T) {
	lab := product(1, "CoffeeLab", "40.00", 100)
	braz := product(2, "Braziliana", "70.99", 80)
	empty := product(6, "CoffeeKenya", "111.33", 0)

	tests := []struct {
		name      string
		lines     []Line
		wantTotal string
		wantErr   error
		wantID    domain.ProductID
	}{
		{
			name:      "single line",
			lines:     []Line{{Basket: line(1, 1, 1), Product: lab}},
			wantTotal: "40.00",
		},
		{
			name:      "two lines",
			lines:     []Line{{Basket: line(1, 1, 2), Product: lab}, {Basket: line(2, 2, 3), Product: braz}},
			wantTotal: "292.97",
		},
		{
			name:    "empty basket",
			wantErr: domain.ErrEmptyBasket,
		},
		{
			name:    "quantity over stock",
			lines:   []Line{{Basket: line(1, 1, 200), Product: product(1, "CoffeeLab", "40.00", 10)}},
			wantErr: domain.ErrInsufficientStock,
			wantID:  1,
		},
		{
			name:    "first failing line wins",
			lines:   []Line{{Basket: line(1, 1, 1), Product: lab}, {Basket: line(2, 6, 1), Product: empty}, {Basket: line(3, 9, 1)}},
			wantErr: domain.ErrInsufficientStock,
			wantID:  6,
		},
		{
			name:    "missing product",
			lines:   []Line{{Basket: line(1, 9, 1)}},
			wantErr: domain.ErrInsufficientStock,
			wantID:  9,
		},
		{
			name:    "demand accumulates per product",
			lines:   []Line{{Basket: line(1, 1, 60), Product: lab}, {Basket: line(2, 1, 60), Product: lab}},
			wantErr: domain.ErrInsufficientStock,
			wantID:  1,
		},
		{
			name:    "zero quantity",
			lines:   []Line{{Basket: line(1, 1, 0), Product: lab}},
			wantErr: domain.ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := Build(1, tt.lines, now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				if tt.wantID != 0 {
					var stockErr *domain.InsufficientStockError
					require.True(t, errors.As(err, &stockErr))
					assert.Equal(t, tt.wantID, stockErr.ProductID)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, order.Total.StringFixed(2))
			assert.Len(t, order.Lines, len(tt.lines))
			assert.Equal(t, domain.ClientID(1), order.ClientID)
			assert.Equal(t, now, order.OrderedAt)
		})
	}
}

func TestBuildSnapshotsNameAndPrice(t *testing.T) {
	p := product(3, "Qubana", "120.75", 90)
	order, err := Build(2, []Line{{Basket: line(7, 3, 2), Product: p}}, now)
	require.NoError(t, err)

	p.Price = decimal.RequireFromString("1.00")
	p.Name = "renamed"

	require.Len(t, order.Lines, 1)
	assert.Equal(t, "Qubana", order.Lines[0].ProductName)
	assert.Equal(t, "120.75", order.Lines[0].Price.StringFixed(2))
	assert.Equal(t, 2, order.Lines[0].Quantity)
}

func TestBuildTotalProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "lines")
		lines := make([]Line, 0, n)
		expected := decimal.Zero
		for i := 0; i < n; i++ {
			cents := rapid.Int64Range(1, 1_000_000).Draw(t, "cents")
			qty := rapid.IntRange(1, 50).Draw(t, "qty")
			price := decimal.New(cents, -2)
			lines = append(lines, Line{
				Basket:  line(domain.BasketLineID(i+1), domain.ProductID(i+1), qty),
				Product: &domain.Product{ID: domain.ProductID(i + 1), Name: "p", Price: price, Stock: qty},
			})
			expected = expected.Add(price.Mul(decimal.NewFromInt(int64(qty))))
		}

		order, err := Build(1, lines, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !order.Total.Equal(expected) {
			t.Fatalf("total %s, want %s", order.Total, expected)
		}
		if !order.Total.Equal(order.LinesTotal()) {
			t.Fatalf("total %s differs from line sum %s", order.Total, order.LinesTotal())
		}
	})
}

func TestBuildRejectsAnyOversoldLine(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "lines")
		bad := rapid.IntRange(0, n-1).Draw(t, "bad")
		lines := make([]Line, 0, n)
		for i := 0; i < n; i++ {
			qty := rapid.IntRange(1, 20).Draw(t, "qty")
			stock := qty + rapid.IntRange(0, 5).Draw(t, "extra")
			if i == bad {
				stock = qty - 1
			}
			id := domain.ProductID(i + 1)
			lines = append(lines, Line{
				Basket:  line(domain.BasketLineID(i+1), id, qty),
				Product: &domain.Product{ID: id, Price: decimal.NewFromInt(1), Stock: stock},
			})
		}

		_, err := Build(1, lines, now)
		var stockErr *domain.InsufficientStockError
		if !errors.As(err, &stockErr) {
			t.Fatalf("expected insufficient stock, got %v", err)
		}
		if stockErr.ProductID != domain.ProductID(bad+1) {
			t.Fatalf("failed on product %d, want %d", stockErr.ProductID, bad+1)
		}
	})
}
