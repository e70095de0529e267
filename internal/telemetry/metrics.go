// Package telemetry exposes pipeline and review metrics in the Prometheus
// text format.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/rfpdesk/internal/analytics"
	"github.com/kalambet/rfpdesk/internal/model"
)

const namespace = "rfpdesk"

// Source supplies the live records the gauges are computed from.
// Implemented by fixture.Store.
type Source interface {
	RFPs() []model.RFP
	ValidationItems() []model.ValidationItem
}

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry  *prometheus.Registry
	decisions *prometheus.CounterVec
	alerts    *prometheus.CounterVec
	sweeps    prometheus.Counter
	requests  *prometheus.CounterVec
}

// New registers the collectors. now is used for deadline gauges; nil means
// time.Now.
func New(src Source, now func() time.Time) *Metrics {
	if now == nil {
		now = time.Now
	}
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_decisions_total",
			Help:      "Validation decisions by outcome.",
		}, []string{"decision"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Alerts raised by the deadline monitor, by type.",
		}, []string{"type"}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_sweeps_total",
			Help:      "Completed deadline monitor sweeps.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
	}

	reg.MustRegister(
		m.decisions, m.alerts, m.sweeps, m.requests,
		collectors.NewGoCollector(),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "validation_pending",
			Help:      "Validation items awaiting review.",
		}, func() float64 {
			return float64(analytics.ApprovalPendingCount(src.ValidationItems()))
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rfps_near_deadline",
			Help:      "RFPs due within the near-deadline window.",
		}, func() float64 {
			return float64(analytics.NearDeadlineCount(src.RFPs(), now()))
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_value_rupees",
			Help:      "Sum of estimated RFP values.",
		}, func() float64 {
			return analytics.TotalPipelineValue(src.RFPs()).InexactFloat64()
		}),
	)

	for _, s := range []model.ValidationStatus{model.ValidationApproved, model.ValidationRejected} {
		m.decisions.WithLabelValues(string(s))
	}
	return m
}

func (m *Metrics) ObserveDecision(status model.ValidationStatus) {
	m.decisions.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) ObserveAlert(typ model.AlertType) {
	m.alerts.WithLabelValues(string(typ)).Inc()
}

func (m *Metrics) ObserveSweep() {
	m.sweeps.Inc()
}

func (m *Metrics) ObserveRequest(route string, code int) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
