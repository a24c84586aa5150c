package basket

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffee-eshop-go/internal/catalog"
	"coffee-eshop-go/internal/order/domain"
	"coffee-eshop-go/internal/store/memory"
)

func newService(t *testing.T) *Service {
	t.Helper()
	store := memory.New(catalog.Seed{
		Categories: []catalog.CategoryRow{{ID: 1, Name: "Brazil"}},
		Products: []catalog.ProductRow{
			{ID: 1, Name: "CoffeeLab", Price: decimal.RequireFromString("40.00"), CategoryID: 1, Available: true, Stock: 10},
			{ID: 2, Name: "Hidden", Price: decimal.RequireFromString("5.00"), CategoryID: 1, Available: false, Stock: 10},
		},
		Clients: []catalog.ClientRow{{ID: 1, FirstName: "John"}, {ID: 2, FirstName: "Jane"}},
	})
	return NewService(store, nil)
}

func TestAddMergesAndChecksStock(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	first, err := svc.Add(ctx, 1, 1, 4)
	require.NoError(t, err)
	require.NotNil(t, first.Product)
	assert.Equal(t, "CoffeeLab", first.Product.Name)

	merged, err := svc.Add(ctx, 1, 1, 6)
	require.NoError(t, err)
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, 10, merged.Quantity)

	_, err = svc.Add(ctx, 1, 1, 1)
	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 11, stockErr.Requested)

	items, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 10, items[0].Quantity)
}

func TestAddRejections(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, 1, 1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = svc.Add(ctx, 1, 99, 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = svc.Add(ctx, 1, 2, 1)
	assert.ErrorIs(t, err, domain.ErrProductUnavailable)
	_, err = svc.Add(ctx, 42, 1, 1)
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestUpdateQuantity(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	item, err := svc.Add(ctx, 1, 1, 1)
	require.NoError(t, err)

	updated, err := svc.UpdateQuantity(ctx, 1, item.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)

	_, err = svc.UpdateQuantity(ctx, 1, item.ID, 11)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	_, err = svc.UpdateQuantity(ctx, 1, item.ID, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = svc.UpdateQuantity(ctx, 2, item.ID, 2)
	assert.ErrorIs(t, err, domain.ErrBasketLineNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	item, err := svc.Add(ctx, 1, 1, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Remove(ctx, 2, item.ID), domain.ErrBasketLineNotFound)
	require.NoError(t, svc.Remove(ctx, 1, item.ID))
	assert.ErrorIs(t, svc.Remove(ctx, 1, item.ID), domain.ErrBasketLineNotFound)

	_, err = svc.Add(ctx, 2, 1, 2)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, 2))
	items, err := svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, items)
}
