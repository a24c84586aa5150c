package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.Outcomes.WithLabelValues(OutcomeCommitted).Inc()
	m.Outcomes.WithLabelValues(OutcomeCommitted).Inc()
	m.Outcomes.WithLabelValues(OutcomeEmptyBasket).Inc()
	m.NotificationFailures.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Outcomes.WithLabelValues(OutcomeCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues(OutcomeEmptyBasket)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationFailures))
}

func TestHandlerExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	sm := NewServerMetrics(reg, "order_service")
	sm.Requests.WithLabelValues("checkout", "200").Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "coffee_eshop_order_service_http_requests_total"))
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCheckoutMetrics(reg)
	assert.Panics(t, func() { NewCheckoutMetrics(reg) })
}
