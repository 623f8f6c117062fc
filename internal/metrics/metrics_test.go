package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveAction("update_rank", time.Now(), nil)
	m.ObserveAction("update_rank", time.Now(), assert.AnError)
	m.ObserveAction("update_rank", time.Now(), nil)
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.Broadcast(nil)
	m.CRMLead(assert.AnError)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.actions.WithLabelValues("update_rank", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("update_rank", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.crmLeads.WithLabelValues("error")))

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), "automarket_actions_total")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveAction("create", time.Now(), nil)
		m.Broadcast(nil)
		m.CacheLookup(true)
		m.CRMLead(nil)
	})
}
