package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffee-eshop-go/internal/basket"
	"coffee-eshop-go/internal/catalog"
	"coffee-eshop-go/internal/order/checkout"
	"coffee-eshop-go/internal/store/memory"
	"coffee-eshop-go/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	store   *memory.Store
	metrics *metrics.ServerMetrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	seed, err := catalog.Load("")
	require.NoError(t, err)
	store := memory.New(seed)
	reg := prometheus.NewRegistry()
	m := metrics.NewServerMetrics(reg, "order_service")
	r := NewRouter(Deps{
		UoW:      store,
		Basket:   basket.NewService(store, nil),
		Checkout: checkout.NewService(store, nil, checkout.WithMetrics(metrics.NewCheckoutMetrics(reg))),
		Metrics:  m,
		Gatherer: reg,
	})
	return &testServer{router: r, store: store, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path, client string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if client != "" {
		req.Header.Set(ClientHeader, client)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "coffee_eshop_order_service_http_requests_total")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Requests.WithLabelValues("/health", "200")))
}

func TestCatalogRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 4)

	w = s.do(t, http.MethodGet, "/api/categories/99", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/products?category_id=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	products := decode[[]productView](t, w)
	require.Len(t, products, 3)
	assert.Equal(t, "40.00", products[0].Price)

	w = s.do(t, http.MethodGet, "/api/products?category_id=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/products/2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Braziliana", decode[productView](t, w).Name)

	w = s.do(t, http.MethodGet, "/api/products/404", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClientIdentity(t *testing.T) {
	s := newTestServer(t)
	for _, client := range []string{"", "abc", "-1", "99"} {
		w := s.do(t, http.MethodGet, "/api/basket", client, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "client %q", client)
	}
}

func TestBasketLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/basket", "2", addRequest{ProductID: 1, Quantity: 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	item := decode[basketItemView](t, w)
	assert.Equal(t, "80.00", item.Subtotal)

	w = s.do(t, http.MethodPost, "/api/basket", "2", addRequest{ProductID: 1, Quantity: 1})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 3, decode[basketItemView](t, w).Quantity)

	w = s.do(t, http.MethodPost, "/api/basket", "2", addRequest{ProductID: 1, Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/basket", "2", addRequest{ProductID: 6, Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "insufficient_stock", decode[map[string]any](t, w)["code"])

	w = s.do(t, http.MethodPut, "/api/basket/"+itoa(item.ID)+"/quantity", "2", quantityRequest{Quantity: 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, decode[basketItemView](t, w).Quantity)

	w = s.do(t, http.MethodDelete, "/api/basket/"+itoa(item.ID), "3", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "another client's line")

	w = s.do(t, http.MethodGet, "/api/basket", "2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]basketItemView](t, w), 1)

	w = s.do(t, http.MethodDelete, "/api/basket/"+itoa(item.ID), "2", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	s.do(t, http.MethodPost, "/api/basket", "2", addRequest{ProductID: 2, Quantity: 1})
	w = s.do(t, http.MethodDelete, "/api/basket", "2", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, "/api/basket", "2", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCheckoutRoute(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/orders/checkout", "2", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Your basket is empty.", decode[map[string]any](t, w)["error"])

	s.do(t, http.MethodPost, "/api/basket", "2", addRequest{ProductID: 1, Quantity: 2})
	s.do(t, http.MethodPost, "/api/basket", "2", addRequest{ProductID: 2, Quantity: 3})

	w = s.do(t, http.MethodPost, "/api/orders/checkout", "2", nil, "Idempotency-Key", "order-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := decode[checkoutView](t, w)
	assert.Equal(t, "292.97", order.Total)
	assert.Len(t, order.Lines, 2)
	assert.False(t, order.Replayed)

	w = s.do(t, http.MethodPost, "/api/orders/checkout", "2", nil, "Idempotency-Key", "order-1")
	require.Equal(t, http.StatusOK, w.Code)
	replay := decode[checkoutView](t, w)
	assert.True(t, replay.Replayed)
	assert.Equal(t, order.ID, replay.ID)

	w = s.do(t, http.MethodGet, "/api/orders", "2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]orderView](t, w), 1)

	w = s.do(t, http.MethodGet, "/api/orders/"+itoa(order.ID), "2", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/orders/"+itoa(order.ID), "3", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/basket", "2", addRequest{ProductID: 5, Quantity: 20})
	s.do(t, http.MethodPost, "/api/basket", "3", addRequest{ProductID: 5, Quantity: 20})

	w := s.do(t, http.MethodPost, "/api/orders/checkout", "2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/orders/checkout", "3", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "insufficient_stock", body["code"])
	assert.Equal(t, 5.0, body["product_id"])
	assert.True(t, strings.HasSuffix(body["error"].(string), "EthCoffee"))
}

func TestCheckoutRejectsOversizedKey(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/basket", "2", addRequest{ProductID: 1, Quantity: 1})
	w := s.do(t, http.MethodPost, "/api/orders/checkout", "2", nil, "Idempotency-Key", strings.Repeat("k", 200))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/basket", "2", nil)
	assert.Len(t, decode[[]basketItemView](t, w), 1)
}

func itoa[T ~int64](v T) string {
	return strconv.FormatInt(int64(v), 10)
}
