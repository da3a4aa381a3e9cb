package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"github.com/weisyn/memwatch/internal/core/feature"
	"github.com/weisyn/memwatch/internal/core/infrastructure/log"
	metricsimpl "github.com/weisyn/memwatch/internal/core/infrastructure/metrics"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	featureiface "github.com/weisyn/memwatch/pkg/interfaces/feature"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	"github.com/weisyn/memwatch/pkg/types"
	"github.com/weisyn/memwatch/pkg/utils/history"
)

// PerformanceMonitorName 功能名
const PerformanceMonitorName = "performance-monitor"

// PerformanceMonitor 按独立间隔采集性能快照并检测异常
type PerformanceMonitor struct {
	cfg      Config
	registry host.Registry
	system   host.SystemInfo
	clock    clock.Clock
	recorder metrics.Recorder
	logger   *zap.Logger

	hostStats func(time.Time) HostStats
	lagProbe  func() time.Duration

	snapshots *history.Ring[types.PerformanceSnapshot]
	anomalies *history.Ring[types.PerformanceAnomaly]
	acc       feature.Accumulator

	mu      sync.Mutex
	loop    *feature.Loop
	enabled bool
}

// NewPerformanceMonitor 创建性能监控功能
func NewPerformanceMonitor(cfg Config, registry host.Registry, system host.SystemInfo, clk clock.Clock,
	recorder metrics.Recorder, logger *zap.Logger) *PerformanceMonitor {
	if recorder == nil {
		recorder = metricsimpl.NopRecorder{}
	}
	return &PerformanceMonitor{
		cfg:       cfg,
		registry:  registry,
		system:    system,
		clock:     clk,
		recorder:  recorder,
		logger:    log.NewModuleZapLogger(logger, "performance"),
		hostStats: ReadHostStats,
		lagProbe:  measureSchedulingLag,
		snapshots: history.NewRing[types.PerformanceSnapshot](cfg.SnapshotCapacity),
		anomalies: history.NewRing[types.PerformanceAnomaly](cfg.AnomalyCapacity),
	}
}

// Name 实现 Feature
func (pm *PerformanceMonitor) Name() string { return PerformanceMonitorName }

// Config 当前配置
func (pm *PerformanceMonitor) Config() Config { return pm.cfg }

// Enable 实现 Feature
func (pm *PerformanceMonitor) Enable(ctx context.Context) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.enabled {
		return nil
	}
	pm.loop = feature.NewLoop(PerformanceMonitorName, pm.cfg.Interval, pm.clock, pm.Tick, pm.logger, pm.recorder)
	if _, err := pm.loop.Start(ctx); err != nil {
		pm.loop = nil
		return err
	}
	pm.enabled = true
	pm.acc.Activated()
	return nil
}

// Disable 实现 Feature；已采集的快照与异常保留，供报告与导出使用
func (pm *PerformanceMonitor) Disable() error {
	pm.mu.Lock()
	loop := pm.loop
	pm.loop = nil
	pm.enabled = false
	pm.mu.Unlock()
	if loop != nil {
		loop.Stop()
	}
	// 保留汇总快照供报告使用，丢弃按目标记录的数据
	pm.snapshots.Update(func(s *types.PerformanceSnapshot) { s.DOMNodes = nil })
	return nil
}

// Enabled 实现 Feature
func (pm *PerformanceMonitor) Enabled() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.enabled
}

// ApplyToTarget 实现 Feature：目标在每次采样时从注册表读取
func (pm *PerformanceMonitor) ApplyToTarget(ctx context.Context, target host.Target) {}

// OnSystemSleep 实现 Feature
func (pm *PerformanceMonitor) OnSystemSleep(ctx context.Context) {
	if loop := pm.currentLoop(); loop != nil {
		loop.Pause()
	}
}

// OnSystemResume 实现 Feature
func (pm *PerformanceMonitor) OnSystemResume(ctx context.Context) {
	if loop := pm.currentLoop(); loop != nil {
		loop.Resume()
	}
}

// Metrics 实现 Feature
func (pm *PerformanceMonitor) Metrics() types.FeatureMetrics { return pm.acc.Snapshot() }

func (pm *PerformanceMonitor) currentLoop() *feature.Loop {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.loop
}

// Tick 采集一次快照并记录超过阈值的异常
func (pm *PerformanceMonitor) Tick(ctx context.Context) {
	snap := pm.Capture(ctx)
	pm.snapshots.Push(snap)
	for _, a := range DetectAnomalies(pm.cfg, snap) {
		pm.anomalies.Push(a)
		pm.recorder.ObserveAnomaly(a)
		pm.logger.Warn("performance_anomaly",
			zap.String("type", string(a.Type)),
			zap.String("severity", string(a.Severity)),
			zap.Float64("value", a.MetricValue),
			zap.Float64("threshold", a.Threshold))
	}
	pm.acc.Ran(snap.Timestamp)
}

// Capture 读取当前性能指标，不写入历史
func (pm *PerformanceMonitor) Capture(ctx context.Context) types.PerformanceSnapshot {
	now := pm.clock.Now()
	hs := pm.hostStats(now)
	snap := types.PerformanceSnapshot{
		Timestamp:    now,
		HeapBytes:    hs.HeapAlloc,
		RSSBytes:     hs.RSS,
		EventLoopLag: pm.lagProbe(),
		SystemMemoryPercent: telemetry.ComputePressure(now, pm.system.TotalMemory(),
			pm.system.FreeMemory()).PercentUsed,
	}

	var fpsSum float64
	for _, t := range pm.registry.Targets() {
		if t.Destroyed() {
			continue
		}
		snap.TargetCount++
		if cpu, err := pm.cpuOf(ctx, t); err == nil {
			snap.CPUPercent += cpu
		}
		if fps, err := pm.query(ctx, t, host.QueryFrameRate); err == nil {
			fpsSum += fps.Value
			snap.FPSSamples++
		}
		if dom, err := pm.query(ctx, t, host.QueryDOMSize); err == nil {
			if snap.DOMNodes == nil {
				snap.DOMNodes = make(map[string]int)
			}
			snap.DOMNodes[t.ID()] = int(dom.Value)
		}
	}
	if snap.FPSSamples > 0 {
		snap.AverageFPS = fpsSum / float64(snap.FPSSamples)
	}
	return snap
}

func (pm *PerformanceMonitor) cpuOf(ctx context.Context, t host.Target) (float64, error) {
	qctx, cancel := context.WithTimeout(ctx, pm.cfg.QueryTimeout)
	defer cancel()
	return t.CPUPercent(qctx)
}

func (pm *PerformanceMonitor) query(ctx context.Context, t host.Target, kind host.QueryKind) (host.QueryResult, error) {
	qctx, cancel := context.WithTimeout(ctx, pm.cfg.QueryTimeout)
	defer cancel()
	res, err := t.Query(qctx, host.Query{Kind: kind})
	if err != nil && !errors.Is(err, host.ErrQueryUnsupported) {
		pm.logger.Debug("target_query_failed", zap.String("target", t.ID()),
			zap.String("query", string(kind)), zap.Error(err))
	}
	return res, err
}

// Snapshots 快照历史（从旧到新）
func (pm *PerformanceMonitor) Snapshots() []types.PerformanceSnapshot { return pm.snapshots.Snapshot() }

// Anomalies 异常历史（从旧到新）
func (pm *PerformanceMonitor) Anomalies() []types.PerformanceAnomaly { return pm.anomalies.Snapshot() }

// GenerateReport 基于当前历史生成性能报告
func (pm *PerformanceMonitor) GenerateReport() types.PerformanceReport {
	return BuildReport(pm.cfg, pm.clock.Now(), pm.Snapshots(), pm.Anomalies())
}

// ModuleName 实现 MemoryReporter
func (pm *PerformanceMonitor) ModuleName() string { return "diagnostics.performance" }

// CollectMemoryStats 实现 MemoryReporter
func (pm *PerformanceMonitor) CollectMemoryStats() metrics.ModuleMemoryStats {
	n := int64(pm.snapshots.Len() + pm.anomalies.Len())
	return metrics.ModuleMemoryStats{
		Module:  pm.ModuleName(),
		Layer:   "core",
		Objects: n,
		ApproxBytes: int64(pm.snapshots.Cap())*int64(unsafe.Sizeof(types.PerformanceSnapshot{})) +
			int64(pm.anomalies.Cap())*int64(unsafe.Sizeof(types.PerformanceAnomaly{})),
		QueueLength: n,
	}
}

// DetectAnomalies 按阈值检查一次快照
func DetectAnomalies(cfg Config, snap types.PerformanceSnapshot) []types.PerformanceAnomaly {
	var out []types.PerformanceAnomaly
	add := func(typ types.AnomalyType, value, threshold, excess float64, desc string) {
		out = append(out, types.PerformanceAnomaly{
			Timestamp:   snap.Timestamp,
			Type:        typ,
			Severity:    severityFor(excess),
			Description: desc,
			MetricValue: value,
			Threshold:   threshold,
		})
	}

	if th := cfg.CPUThresholdPercent; snap.CPUPercent > th {
		add(types.AnomalyHighCPU, snap.CPUPercent, th, (snap.CPUPercent-th)/th,
			fmt.Sprintf("目标 CPU 合计 %.1f%% 超过 %.0f%%", snap.CPUPercent, th))
	}
	if th := cfg.MemoryThresholdPercent; snap.SystemMemoryPercent > th {
		add(types.AnomalyHighMemory, snap.SystemMemoryPercent, th, (snap.SystemMemoryPercent-th)/(100-th),
			fmt.Sprintf("系统内存使用 %.1f%% 超过 %.0f%%", snap.SystemMemoryPercent, th))
	}
	if th := cfg.FPSThreshold; snap.FPSSamples > 0 && snap.AverageFPS < th {
		add(types.AnomalyLowFPS, snap.AverageFPS, th, (th-snap.AverageFPS)/th,
			fmt.Sprintf("平均帧率 %.1f 低于 %.0f", snap.AverageFPS, th))
	}
	if th := cfg.LagThreshold; snap.EventLoopLag > th {
		lag, limit := millis(snap.EventLoopLag), millis(th)
		add(types.AnomalyEventLoopLag, lag, limit, (lag-limit)/limit,
			fmt.Sprintf("调度延迟 %s 超过 %s", snap.EventLoopLag, th))
	}
	return out
}

// severityFor 超出比例：< 0.1 低，< 0.5 中，其余高
func severityFor(excess float64) types.Severity {
	switch {
	case excess >= 0.5:
		return types.SeverityHigh
	case excess >= 0.1:
		return types.SeverityMedium
	default:
		return types.SeverityLow
	}
}

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// measureSchedulingLag 从调度一个空 goroutine 到其开始运行的耗时
func measureSchedulingLag() time.Duration {
	start := time.Now()
	done := make(chan time.Duration, 1)
	go func() { done <- time.Since(start) }()
	return <-done
}

var _ featureiface.Feature = (*PerformanceMonitor)(nil)
