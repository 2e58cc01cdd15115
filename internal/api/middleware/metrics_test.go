package middleware

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/api/v1/deployments/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/api/v1/deployments/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	return r
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	h := metricsRouter()
	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/deployments/{id}", "200")
	before := counterValue(t, counter)

	for _, id := range []string{"dep-1", "dep-2"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deployments/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, before+2, counterValue(t, counter))
}

func TestMetrics_RecordsStatus(t *testing.T) {
	h := metricsRouter()
	counter := httpRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/deployments/{id}/cancel", "409")
	before := counterValue(t, counter)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/deployments/dep-1/cancel", nil))

	assert.Equal(t, before+1, counterValue(t, counter))
}

func TestMetrics_UnmatchedRoutesShareLabel(t *testing.T) {
	h := metricsRouter()
	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")
	before := counterValue(t, counter)

	for _, path := range []string{"/wp-login.php", "/.env", "/api/v1/nope/123"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, before+3, counterValue(t, counter))
}

type hijackRecorder struct {
	*httptest.ResponseRecorder
}

func (h hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	server, client := net.Pipe()
	client.Close()
	return server, bufio.NewReadWriter(bufio.NewReader(server), bufio.NewWriter(server)), nil
}

func TestStatusWriter_Hijack(t *testing.T) {
	ww := &statusWriter{ResponseWriter: hijackRecorder{httptest.NewRecorder()}, status: http.StatusOK}
	conn, _, err := ww.Hijack()
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, ww.status)

	plain := &statusWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	_, _, err = plain.Hijack()
	assert.Error(t, err)
	assert.Equal(t, http.StatusOK, plain.status)
}
