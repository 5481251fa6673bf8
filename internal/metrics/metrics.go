// Package metrics содержит Prometheus-метрики сервиса.
// Метрики регистрируются в собственном реестре экземпляра, а не в глобальном.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics хранит реестр и все счётчики сервиса. Методы безопасны для nil-получателя.
type Metrics struct {
	registry *prometheus.Registry

	admissions      *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	geoEnrichments  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New создаёт набор метрик в новом реестре
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		admissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkpulse_admission_decisions_total",
				Help: "Admission decisions by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkpulse_resolutions_total",
				Help: "Link resolutions by outcome",
			},
			[]string{"outcome"},
		),
		geoEnrichments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkpulse_geo_enrichments_total",
				Help: "Background geo enrichments by outcome",
			},
			[]string{"outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linkpulse_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"route", "method", "status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.admissions,
		m.resolutions,
		m.geoEnrichments,
		m.requestDuration,
	)
	return m
}

// Registry возвращает реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler отдаёт метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAdmission учитывает решение о допуске запроса
func (m *Metrics) ObserveAdmission(tier string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	m.admissions.WithLabelValues(tier, outcome).Inc()
}

// ObserveResolution учитывает исход перехода по ссылке
func (m *Metrics) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

// ObserveGeo учитывает исход фонового обогащения
func (m *Metrics) ObserveGeo(outcome string) {
	if m == nil {
		return
	}
	m.geoEnrichments.WithLabelValues(outcome).Inc()
}

// ObserveRequest учитывает длительность HTTP-запроса
func (m *Metrics) ObserveRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(duration.Seconds())
}
