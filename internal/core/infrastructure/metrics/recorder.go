// Package metrics 内存压力管理的 Prometheus 指标
//
// Recorder 把采样、压力、泄漏、修复、异常记录为 Prometheus 指标；
// footprintCollector 把各组件自身的内存占用暴露为常量指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	metricsiface "github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	"github.com/weisyn/memwatch/pkg/types"
)

const namespace = "memwatch"

// Recorder Prometheus 指标记录器
type Recorder struct {
	registry *prometheus.Registry

	targetMemory   *prometheus.GaugeVec
	systemFree     prometheus.Gauge
	systemPercent  prometheus.Gauge
	pressureLevel  prometheus.Gauge
	leaksTotal     *prometheus.CounterVec
	remediations   *prometheus.CounterVec
	bytesSaved     prometheus.Counter
	anomaliesTotal *prometheus.CounterVec
	tickDuration   *prometheus.HistogramVec
}

// NewRecorder 在独立注册表上创建指标，避免与进程默认注册表冲突
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		targetMemory: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "target_memory_bytes",
			Help:      "Latest sampled process memory of a monitored target",
		}, []string{"target"}),
		systemFree: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "system_free_bytes",
			Help:      "Free system memory at the last pressure sample",
		}),
		systemPercent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "system_used_percent",
			Help:      "Percent of system memory in use at the last pressure sample",
		}),
		pressureLevel: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "pressure_level",
			Help:      "System pressure level: 0 low, 1 medium, 2 high, 3 critical",
		}),
		leaksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leak",
			Name:      "detected_total",
			Help:      "Leak patterns detected by type",
		}, []string{"type"}),
		remediations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remediation",
			Name:      "events_total",
			Help:      "Remediation events by action, reason and outcome",
		}, []string{"action", "reason", "outcome"}),
		bytesSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remediation",
			Name:      "bytes_saved_total",
			Help:      "Memory reclaimed by remediation",
		}),
		anomaliesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diagnostics",
			Name:      "anomalies_total",
			Help:      "Performance anomalies by type and severity",
		}, []string{"type", "severity"}),
		tickDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feature",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one feature tick",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"feature"}),
	}
}

// Registry 返回底层注册表，供 /metrics 端点使用
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) ObserveTargetMemory(targetID string, bytes uint64) {
	r.targetMemory.WithLabelValues(targetID).Set(float64(bytes))
}

func (r *Recorder) ForgetTarget(targetID string) {
	r.targetMemory.DeleteLabelValues(targetID)
}

func (r *Recorder) ObservePressure(s types.SystemPressureSnapshot) {
	r.systemFree.Set(float64(s.FreeBytes))
	r.systemPercent.Set(s.PercentUsed)
	r.pressureLevel.Set(float64(s.PressureLevel.Rank()))
}

func (r *Recorder) ObserveLeak(p types.LeakPattern) {
	r.leaksTotal.WithLabelValues(string(p.Type)).Inc()
}

func (r *Recorder) ObserveRemediation(e types.RemediationEvent) {
	outcome := "ok"
	if !e.Succeeded() {
		outcome = "failed"
	}
	r.remediations.WithLabelValues(string(e.Action), string(e.Reason), outcome).Inc()
	r.bytesSaved.Add(float64(e.MemorySavedBytes))
}

func (r *Recorder) ObserveAnomaly(a types.PerformanceAnomaly) {
	r.anomaliesTotal.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
}

func (r *Recorder) ObserveTick(feature string, d time.Duration) {
	r.tickDuration.WithLabelValues(feature).Observe(d.Seconds())
}

// RegisterFootprint 注册组件自身内存占用采集器
func (r *Recorder) RegisterFootprint(collect func() []metricsiface.ModuleMemoryStats) error {
	return r.registry.Register(newFootprintCollector(collect))
}

var _ metricsiface.Recorder = (*Recorder)(nil)

// NopRecorder 丢弃所有指标
type NopRecorder struct{}

func (NopRecorder) ObserveTargetMemory(string, uint64)           {}
func (NopRecorder) ForgetTarget(string)                          {}
func (NopRecorder) ObservePressure(types.SystemPressureSnapshot) {}
func (NopRecorder) ObserveLeak(types.LeakPattern)                {}
func (NopRecorder) ObserveRemediation(types.RemediationEvent)    {}
func (NopRecorder) ObserveAnomaly(types.PerformanceAnomaly)      {}
func (NopRecorder) ObserveTick(string, time.Duration)            {}

var _ metricsiface.Recorder = NopRecorder{}
