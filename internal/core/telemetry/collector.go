package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"github.com/weisyn/memwatch/internal/core/feature"
	"github.com/weisyn/memwatch/internal/core/infrastructure/log"
	metricsimpl "github.com/weisyn/memwatch/internal/core/infrastructure/metrics"
	featureiface "github.com/weisyn/memwatch/pkg/interfaces/feature"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	"github.com/weisyn/memwatch/pkg/types"
	"github.com/weisyn/memwatch/pkg/utils/history"
)

// FeatureName 采集功能名
const FeatureName = "memory-telemetry"

// TickReport 一次采样的结果
type TickReport struct {
	At       time.Time
	Sampled  []string // 本次成功采样的目标
	Pressure types.SystemPressureSnapshot
}

// PressureListener 持续高压时在采样 tick 内同步调用
type PressureListener func(ctx context.Context, snapshot types.SystemPressureSnapshot)

// TickListener 每次采样结束后调用
type TickListener func(ctx context.Context, report TickReport)

// Collector 周期采样各目标进程内存与系统压力
type Collector struct {
	cfg      Config
	registry host.Registry
	system   host.SystemInfo
	store    *Store
	clock    clock.Clock
	bus      event.EventBus
	recorder metrics.Recorder
	logger   *zap.Logger

	pressure *history.Ring[types.SystemPressureSnapshot]
	acc      feature.Accumulator

	mu         sync.Mutex
	loop       *feature.Loop
	enabled    bool
	highStreak int
	lastLevel  types.PressureLevel
	onPressure []PressureListener
	onTick     []TickListener
	interval   time.Duration
}

// NewCollector 创建采集器
func NewCollector(cfg Config, registry host.Registry, system host.SystemInfo, store *Store,
	clk clock.Clock, bus event.EventBus, recorder metrics.Recorder, logger *zap.Logger) *Collector {
	if recorder == nil {
		recorder = metricsimpl.NopRecorder{}
	}
	return &Collector{
		cfg:       cfg,
		registry:  registry,
		system:    system,
		store:     store,
		clock:     clk,
		bus:       bus,
		recorder:  recorder,
		logger:    log.NewModuleZapLogger(logger, "telemetry"),
		pressure:  history.NewRing[types.SystemPressureSnapshot](cfg.PressureCapacity),
		lastLevel: types.PressureLow,
	}
}

// Name 实现 Feature
func (c *Collector) Name() string { return FeatureName }

// Store 样本存储
func (c *Collector) Store() *Store { return c.store }

// Interval 当前采样间隔，未启用时按系统内存推导
func (c *Collector) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interval > 0 {
		return c.interval
	}
	return c.cfg.IntervalFor(c.system.TotalMemory())
}

// AddPressureListener 注册持续高压监听器
func (c *Collector) AddPressureListener(l PressureListener) {
	c.mu.Lock()
	c.onPressure = append(c.onPressure, l)
	c.mu.Unlock()
}

// AddTickListener 注册采样完成监听器
func (c *Collector) AddTickListener(l TickListener) {
	c.mu.Lock()
	c.onTick = append(c.onTick, l)
	c.mu.Unlock()
}

// Enable 实现 Feature，重复调用无副作用
func (c *Collector) Enable(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled {
		return nil
	}
	c.interval = c.cfg.IntervalFor(c.system.TotalMemory())
	c.loop = feature.NewLoop(FeatureName, c.interval, c.clock, c.Tick, c.logger, c.recorder)
	if _, err := c.loop.Start(ctx); err != nil {
		c.loop = nil
		return err
	}
	c.enabled = true
	c.acc.Activated()
	c.logger.Info("telemetry_enabled", zap.Duration("interval", c.interval))
	return nil
}

// Disable 实现 Feature：停止定时器并释放全部目标状态与压力历史
func (c *Collector) Disable() error {
	c.mu.Lock()
	loop := c.loop
	c.loop = nil
	c.enabled = false
	c.highStreak = 0
	c.lastLevel = types.PressureLow
	c.mu.Unlock()

	if loop != nil {
		loop.Stop()
	}
	for _, id := range c.store.IDs() {
		c.forget(id)
	}
	c.pressure.Reset()
	return nil
}

// Enabled 实现 Feature
func (c *Collector) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// ApplyToTarget 实现 Feature：建立目标状态并尽力取一个初始样本
func (c *Collector) ApplyToTarget(ctx context.Context, target host.Target) {
	if target.Destroyed() {
		return
	}
	c.store.Ensure(target.ID())
	if bytes, err := c.readMemory(ctx, target); err == nil {
		c.store.Append(target.ID(), c.clock.Now(), bytes)
		c.recorder.ObserveTargetMemory(target.ID(), bytes)
	}
}

// RemoveTarget 实现 TargetRemover
func (c *Collector) RemoveTarget(targetID string) { c.forget(targetID) }

// OnSystemSleep 实现 Feature：暂停定时采样
func (c *Collector) OnSystemSleep(ctx context.Context) {
	if loop := c.currentLoop(); loop != nil {
		loop.Pause()
	}
}

// OnSystemResume 实现 Feature：恢复定时采样并立即补采一次
func (c *Collector) OnSystemResume(ctx context.Context) {
	if loop := c.currentLoop(); loop != nil {
		loop.Resume()
		loop.RunNow()
	}
}

// Metrics 实现 Feature
func (c *Collector) Metrics() types.FeatureMetrics { return c.acc.Snapshot() }

// RunNow 立即执行一次采样，未启用时返回 false
func (c *Collector) RunNow() bool {
	if loop := c.currentLoop(); loop != nil {
		return loop.RunNow()
	}
	return false
}

func (c *Collector) currentLoop() *feature.Loop {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loop
}

// Tick 执行一次完整采样
func (c *Collector) Tick(ctx context.Context) {
	now := c.clock.Now()
	live := make(map[string]bool)
	var sampled []string

	for _, t := range c.registry.Targets() {
		id := t.ID()
		if t.Destroyed() {
			c.forget(id)
			continue
		}
		live[id] = true

		bytes, err := c.readMemory(ctx, t)
		if err != nil {
			if errors.Is(err, host.ErrTargetGone) {
				c.forget(id)
				delete(live, id)
				continue
			}
			c.logger.Debug("memory_sample_missed", zap.String("target", id), zap.Error(err))
			continue
		}
		sample := c.store.Append(id, now, bytes)
		c.recorder.ObserveTargetMemory(id, bytes)
		sampled = append(sampled, id)
		c.logger.Debug("memory_sample",
			zap.String("target", id),
			zap.Uint64("bytes", sample.MemoryBytes),
			zap.Int64("delta", sample.DeltaFromPrevious))
	}

	// 注册表中已不存在的目标
	for _, id := range c.store.IDs() {
		if !live[id] {
			c.forget(id)
		}
	}

	snap := c.SamplePressure(now)
	c.acc.Ran(now)

	c.mu.Lock()
	if snap.PressureLevel.AtLeast(types.PressureHigh) {
		c.highStreak++
	} else {
		c.highStreak = 0
	}
	persistent := snap.PressureLevel == types.PressureCritical || c.highStreak >= c.cfg.PressurePersistTicks
	pressureListeners := append([]PressureListener(nil), c.onPressure...)
	tickListeners := append([]TickListener(nil), c.onTick...)
	c.mu.Unlock()

	if persistent && snap.PressureLevel.AtLeast(types.PressureHigh) {
		c.logger.Warn("memory_pressure_persistent",
			zap.String("level", string(snap.PressureLevel)),
			zap.Float64("percent_used", snap.PercentUsed))
		for _, l := range pressureListeners {
			l(ctx, snap)
		}
	}

	report := TickReport{At: now, Sampled: sampled, Pressure: snap}
	for _, l := range tickListeners {
		l(ctx, report)
	}
}

// SamplePressure 读取系统内存，计算压力快照并写入历史
func (c *Collector) SamplePressure(now time.Time) types.SystemPressureSnapshot {
	snap := ComputePressure(now, c.system.TotalMemory(), c.system.FreeMemory())
	c.pressure.Push(snap)
	c.recorder.ObservePressure(snap)

	c.mu.Lock()
	changed := snap.PressureLevel != c.lastLevel
	prev := c.lastLevel
	c.lastLevel = snap.PressureLevel
	c.mu.Unlock()

	if changed {
		c.logger.Info("memory_pressure_changed",
			zap.String("from", string(prev)),
			zap.String("to", string(snap.PressureLevel)),
			zap.Float64("percent_used", snap.PercentUsed))
		if c.bus != nil {
			c.bus.Publish(types.EventTypePressureChanged, snap)
		}
	}
	return snap
}

// CurrentPressure 最近一次压力快照，尚无历史时即时计算
func (c *Collector) CurrentPressure() types.SystemPressureSnapshot {
	if snap, ok := c.pressure.Latest(); ok {
		return snap
	}
	return ComputePressure(c.clock.Now(), c.system.TotalMemory(), c.system.FreeMemory())
}

// PressureHistory 压力历史（从旧到新）
func (c *Collector) PressureHistory() []types.SystemPressureSnapshot {
	return c.pressure.Snapshot()
}

func (c *Collector) readMemory(ctx context.Context, t host.Target) (uint64, error) {
	qctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()
	return t.ProcessMemory(qctx)
}

func (c *Collector) forget(id string) {
	if c.store.Remove(id) {
		c.recorder.ForgetTarget(id)
		c.logger.Debug("target_state_dropped", zap.String("target", id))
	}
}

// ModuleName 实现 MemoryReporter
func (c *Collector) ModuleName() string { return "telemetry.pressure" }

// CollectMemoryStats 实现 MemoryReporter
func (c *Collector) CollectMemoryStats() metrics.ModuleMemoryStats {
	n := int64(c.pressure.Len())
	return metrics.ModuleMemoryStats{
		Module:      c.ModuleName(),
		Layer:       "core",
		Objects:     n,
		ApproxBytes: int64(c.pressure.Cap()) * int64(unsafe.Sizeof(types.SystemPressureSnapshot{})),
		QueueLength: n,
	}
}

var (
	_ featureiface.Feature       = (*Collector)(nil)
	_ featureiface.TargetRemover = (*Collector)(nil)
)
