package eagerload

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts batch fetches per target model
type Metrics struct {
	fetches  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the loader collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "redi_eager",
			Name:      "fetch_total",
			Help:      "Batched relation fetches issued by the eager loader.",
		}, []string{"model", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "redi_eager",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of batched relation fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model"}),
	}

	if reg == nil {
		return m, nil
	}
	if err := reg.Register(m.fetches); err != nil {
		existing, err := existingCollector[*prometheus.CounterVec](err)
		if err != nil {
			return nil, err
		}
		m.fetches = existing
	}
	if err := reg.Register(m.duration); err != nil {
		existing, err := existingCollector[*prometheus.HistogramVec](err)
		if err != nil {
			return nil, err
		}
		m.duration = existing
	}
	return m, nil
}

// existingCollector reuses a collector registered by an earlier NewMetrics
// call on the same registry.
func existingCollector[C prometheus.Collector](err error) (C, error) {
	var zero C
	var already prometheus.AlreadyRegisteredError
	if !errors.As(err, &already) {
		return zero, err
	}
	existing, ok := already.ExistingCollector.(C)
	if !ok {
		return zero, err
	}
	return existing, nil
}

func (m *Metrics) observe(model string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.fetches.WithLabelValues(model, status).Inc()
	m.duration.WithLabelValues(model).Observe(elapsed.Seconds())
}
