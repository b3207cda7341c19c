package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "market_data"

// Metrics holds the service collectors.
type Metrics struct {
	registry *prometheus.Registry

	TaskRunsTotal    *prometheus.CounterVec
	TaskDuration     *prometheus.HistogramVec
	CatalogRefreshes *prometheus.CounterVec
	CatalogRecords   *prometheus.CounterVec
	CatalogSize      prometheus.Gauge
	FXUpdates        *prometheus.CounterVec
	FXRates          prometheus.Gauge
	PublishCycles    *prometheus.CounterVec
	PublishReceivers prometheus.Gauge
	InterestSymbols  prometheus.Gauge
	StreamsActive    *prometheus.GaugeVec
	StreamFrames     *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		TaskRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_runs_total",
			Help:      "Scheduled task runs by task and result",
		}, []string{"task", "result"}),
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Scheduled task run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
		CatalogRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_refreshes_total",
			Help:      "Security catalog refreshes by result",
		}, []string{"result"}),
		CatalogRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_records_total",
			Help:      "Upstream security records seen by disposition",
		}, []string{"disposition"}),
		CatalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_securities",
			Help:      "Number of securities in the catalog",
		}),
		FXUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fx_updates_total",
			Help:      "FX rate updates by result",
		}, []string{"result"}),
		FXRates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fx_rates",
			Help:      "Number of cached FX rates",
		}),
		PublishCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_cycles_total",
			Help:      "Quote publish cycles by outcome",
		}, []string{"outcome"}),
		PublishReceivers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "publish_receivers",
			Help:      "Receivers reported by the broker for the last publish",
		}),
		InterestSymbols: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "interest_symbols",
			Help:      "Number of symbols requested by any client",
		}),
		StreamsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streams_active",
			Help:      "Open quote streams by transport",
		}, []string{"transport"}),
		StreamFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_frames_total",
			Help:      "Frames written to quote stream clients by transport",
		}, []string{"transport"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.TaskRunsTotal,
		m.TaskDuration,
		m.CatalogRefreshes,
		m.CatalogRecords,
		m.CatalogSize,
		m.FXUpdates,
		m.FXRates,
		m.PublishCycles,
		m.PublishReceivers,
		m.InterestSymbols,
		m.StreamsActive,
		m.StreamFrames,
	)

	return m
}

// Handler returns the scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordTask records one scheduled task run.
func (m *Metrics) RecordTask(task string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.TaskRunsTotal.WithLabelValues(task, result(err)).Inc()
	m.TaskDuration.WithLabelValues(task).Observe(d.Seconds())
}

// RecordCatalogRefresh records one catalog refresh and its record dispositions.
func (m *Metrics) RecordCatalogRefresh(accepted, invalid, unsupported, size int, err error) {
	if m == nil {
		return
	}
	m.CatalogRefreshes.WithLabelValues(result(err)).Inc()
	if err != nil {
		return
	}
	m.CatalogRecords.WithLabelValues("accepted").Add(float64(accepted))
	m.CatalogRecords.WithLabelValues("invalid").Add(float64(invalid))
	m.CatalogRecords.WithLabelValues("unsupported_exchange").Add(float64(unsupported))
	m.CatalogSize.Set(float64(size))
}

// RecordFXUpdate records one FX update.
func (m *Metrics) RecordFXUpdate(rates int, err error) {
	if m == nil {
		return
	}
	m.FXUpdates.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.FXRates.Set(float64(rates))
	}
}

// RecordPublish records one publish cycle outcome.
func (m *Metrics) RecordPublish(outcome string, interest int) {
	if m == nil {
		return
	}
	m.PublishCycles.WithLabelValues(outcome).Inc()
	m.InterestSymbols.Set(float64(interest))
}

// SetReceivers records the receiver count of the last publish.
func (m *Metrics) SetReceivers(n int64) {
	if m == nil {
		return
	}
	m.PublishReceivers.Set(float64(n))
}

// StreamOpened increments the active stream gauge for transport.
func (m *Metrics) StreamOpened(transport string) {
	if m == nil {
		return
	}
	m.StreamsActive.WithLabelValues(transport).Inc()
}

// StreamClosed decrements the active stream gauge for transport.
func (m *Metrics) StreamClosed(transport string) {
	if m == nil {
		return
	}
	m.StreamsActive.WithLabelValues(transport).Dec()
}

// StreamFrame counts one frame written on transport.
func (m *Metrics) StreamFrame(transport string) {
	if m == nil {
		return
	}
	m.StreamFrames.WithLabelValues(transport).Inc()
}
