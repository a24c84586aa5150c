package scenario

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffee-eshop-go/internal/basket"
	"coffee-eshop-go/internal/catalog"
	"coffee-eshop-go/internal/httpapi"
	"coffee-eshop-go/internal/order/checkout"
	"coffee-eshop-go/internal/shopclient"
	"coffee-eshop-go/internal/store/memory"
)

func newRunner(t *testing.T) *Runner {
	t.Helper()
	gin.SetMode(gin.TestMode)
	seed, err := catalog.Load("")
	require.NoError(t, err)
	store := memory.New(seed)
	srv := httptest.NewServer(httpapi.NewRouter(httpapi.Deps{
		UoW:      store,
		Basket:   basket.NewService(store, nil),
		Checkout: checkout.NewService(store, nil),
	}))
	t.Cleanup(srv.Close)
	return NewRunner(shopclient.New(srv.URL, 5*time.Second), 2, 3)
}

func TestAllScenariosPassAgainstSeededShop(t *testing.T) {
	r := newRunner(t)
	for _, res := range r.RunAll(context.Background()) {
		assert.True(t, res.Passed, "scenario %s: %s", res.Name, res.Detail)
	}
}

func TestScenariosLeaveBasketsEmpty(t *testing.T) {
	r := newRunner(t)
	ctx := context.Background()
	s, ok := Find("B")
	require.True(t, ok)
	require.True(t, r.Run(ctx, s).Passed)

	for _, client := range []int64{2, 3} {
		items, err := r.c.Basket(ctx, client)
		require.NoError(t, err)
		assert.Empty(t, items)
	}

	_, ok = Find("Z")
	assert.False(t, ok)
}
