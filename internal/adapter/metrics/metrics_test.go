package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDispatcherMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDispatcherMetrics(reg)

	m.ConnectedClients.Set(3)
	m.Requests.WithLabelValues("subscribe", "ok").Inc()
	m.Deliveries.WithLabelValues(DeliveryDropped).Add(2)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ConnectedClients))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("subscribe", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(DeliveryDropped)))

	count, err := testutil.GatherAndCount(reg, "minichats_dispatcher_connected_clients")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewDispatcherMetrics_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewDispatcherMetrics(reg)
	assert.Panics(t, func() { NewDispatcherMetrics(reg) })
}

func TestNewWebSocketMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebSocketMetrics(reg)

	m.ConnectionsTotal.WithLabelValues(ConnectAccepted).Inc()
	m.ActiveConnections.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionsTotal.WithLabelValues(ConnectAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveConnections))
}

func TestHTTPMetrics_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/version", func(c echo.Context) error { return c.String(http.StatusOK, "v") })
	e.GET("/health/live", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	for _, path := range []string{"/version", "/version", "/health/live"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodGet, "/version", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodGet, "/health/live", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlightGauge))
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := NewRegistry()
	NewDispatcherMetrics(reg)

	srv := httptest.NewServer(Handler(reg))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "minichats_dispatcher_active_topics")
	assert.Contains(t, string(body), "go_goroutines")
}
