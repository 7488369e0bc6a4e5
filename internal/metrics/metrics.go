// Package metrics 导入相关的 Prometheus 指标（独立 Registry）
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 记录级计数的 kind 标签
const (
	KindAccepted = "accepted"
	KindSkipped  = "skipped"
	KindCreated  = "created"
	KindUpdated  = "updated"
	KindFailed   = "failed"
)

// Metrics 导入指标集合
type Metrics struct {
	reg *prometheus.Registry

	imports  *prometheus.CounterVec // rolmap_import_total{mode,status}
	records  *prometheus.CounterVec // rolmap_import_records_total{kind}
	duration *prometheus.HistogramVec
	stored   prometheus.Gauge
}

// ImportSample 单次导入的观测值
type ImportSample struct {
	Mode     string
	Status   string // success/partial/failed
	Accepted int
	Skipped  int
	Created  int
	Updated  int
	Failed   int
	Duration time.Duration
}

// New 创建并注册指标
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	imports := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rolmap_import_total",
			Help: "Number of spreadsheet imports, partitioned by mode and status.",
		},
		[]string{"mode", "status"},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rolmap_import_records_total",
			Help: "Record-level import counts per kind (accepted, skipped, created, updated, failed).",
		},
		[]string{"kind"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rolmap_import_duration_seconds",
			Help:    "Duration of spreadsheet imports in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"mode"},
	)
	stored := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rolmap_properties_stored",
		Help: "Number of property records in the store after the last mutation.",
	})

	for _, c := range []prometheus.Collector{imports, records, duration, stored} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register collector: %w", err)
		}
	}

	return &Metrics{
		reg:      reg,
		imports:  imports,
		records:  records,
		duration: duration,
		stored:   stored,
	}, nil
}

// ObserveImport 记录一次导入
func (m *Metrics) ObserveImport(s ImportSample) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(s.Mode, s.Status).Inc()
	m.records.WithLabelValues(KindAccepted).Add(float64(s.Accepted))
	m.records.WithLabelValues(KindSkipped).Add(float64(s.Skipped))
	m.records.WithLabelValues(KindCreated).Add(float64(s.Created))
	m.records.WithLabelValues(KindUpdated).Add(float64(s.Updated))
	m.records.WithLabelValues(KindFailed).Add(float64(s.Failed))
	if s.Duration > 0 {
		m.duration.WithLabelValues(s.Mode).Observe(s.Duration.Seconds())
	}
}

// SetStored 更新当前记录数
func (m *Metrics) SetStored(n int) {
	if m == nil {
		return
	}
	m.stored.Set(float64(n))
}

// Handler Prometheus 抓取端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
