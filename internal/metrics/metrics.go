package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aicheck"

// Login outcomes
const (
	LoginSucceeded = "succeeded"
	LoginFailed    = "failed"
)

// Metrics records scans and logins
// A nil *Metrics is valid and records nothing
type Metrics struct {
	scans        *prometheus.CounterVec
	scanDuration prometheus.Histogram
	logins       *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates metrics and registers them on reg
// Already registered collectors are reused, so New may be called for the same registry twice
func New(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Checks processed, by verdict",
		}, []string{"verdict"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Duration of checks that reached the detector",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Logins to identity service, by result",
		}, []string{"result"}),
		gatherer: reg,
	}

	var err error
	m.scans, err = register(reg, m.scans)
	if err != nil {
		return nil, err
	}
	m.scanDuration, err = register(reg, m.scanDuration)
	if err != nil {
		return nil, err
	}
	m.logins, err = register(reg, m.logins)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)

	var are prometheus.AlreadyRegisteredError
	switch {
	case err == nil:
		return c, nil
	case errors.As(err, &are):
		existing, ok := are.ExistingCollector.(C)
		if !ok {
			return c, err
		}
		return existing, nil
	default:
		return c, err
	}
}

func (m *Metrics) ObserveScan(verdict string, d time.Duration) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(verdict).Inc()
	if d > 0 {
		m.scanDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

// Handler exposes registered metrics in Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
