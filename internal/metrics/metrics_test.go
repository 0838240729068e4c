package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Run("observe", func(t *testing.T) {
		m, err := New(prometheus.NewRegistry())
		require.NoError(t, err)

		m.ObserveScan("ai", time.Second)
		m.ObserveScan("ai", time.Second)
		m.ObserveScan("too_short", 0)
		m.ObserveLogin(LoginSucceeded)

		assert.Equal(t, 2.0, testutil.ToFloat64(m.scans.WithLabelValues("ai")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues("too_short")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues(LoginSucceeded)))
		assert.Equal(t, 0.0, testutil.ToFloat64(m.logins.WithLabelValues(LoginFailed)))
		assert.Equal(t, 1, testutil.CollectAndCount(m.scanDuration), "histogram is a single metric")
	})

	t.Run("register twice on same registry", func(t *testing.T) {
		reg := prometheus.NewRegistry()

		first, err := New(reg)
		require.NoError(t, err)
		second, err := New(reg)
		require.NoError(t, err)

		second.ObserveLogin(LoginFailed)
		assert.Equal(t, 1.0, testutil.ToFloat64(first.logins.WithLabelValues(LoginFailed)), "collectors must be shared")
	})

	t.Run("nil is noop", func(t *testing.T) {
		var m *Metrics

		require.NotPanics(t, func() {
			m.ObserveScan("ai", time.Second)
			m.ObserveLogin(LoginFailed)
		})
	})

	t.Run("handler", func(t *testing.T) {
		m, err := New(prometheus.NewRegistry())
		require.NoError(t, err)
		m.ObserveScan("human", time.Second)

		ts := httptest.NewServer(m.Handler())
		defer ts.Close()

		resp, err := http.Get(ts.URL)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer resp.Body.Close() //nolint:errcheck

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), `aicheck_scans_total{verdict="human"} 1`)
	})
}
