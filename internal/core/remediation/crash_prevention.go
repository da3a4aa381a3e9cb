package remediation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/weisyn/memwatch/internal/core/feature"
	"github.com/weisyn/memwatch/internal/core/infrastructure/log"
	metricsimpl "github.com/weisyn/memwatch/internal/core/infrastructure/metrics"
	"github.com/weisyn/memwatch/internal/core/leak"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	featureiface "github.com/weisyn/memwatch/pkg/interfaces/feature"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	"github.com/weisyn/memwatch/pkg/types"
)

// CrashPreventionName 功能名
const CrashPreventionName = "crash-prevention"

// ErrUnknownTarget 注册表中没有该目标
var ErrUnknownTarget = errors.New("unknown target")

// CrashPrevention 在每次采样后分类、决策并在需要时重载目标
//
// 没有自己的定时器，由采集器的 tick 与持续高压回调驱动。
type CrashPrevention struct {
	registry   host.Registry
	store      *telemetry.Store
	classifier *leak.Classifier
	engine     *Engine
	executor   *Executor
	clock      clock.Clock
	bus        event.EventBus
	recorder   metrics.Recorder
	logger     *zap.Logger

	acc     feature.Accumulator
	running atomic.Bool

	mu      sync.RWMutex
	enabled bool
	leaks   map[string]types.LeakPattern
}

// NewCrashPrevention 创建功能并挂到采集器上
func NewCrashPrevention(collector *telemetry.Collector, registry host.Registry, classifier *leak.Classifier,
	engine *Engine, executor *Executor, clk clock.Clock, bus event.EventBus, recorder metrics.Recorder, logger *zap.Logger) *CrashPrevention {
	if recorder == nil {
		recorder = metricsimpl.NopRecorder{}
	}
	cp := &CrashPrevention{
		registry:   registry,
		store:      collector.Store(),
		classifier: classifier,
		engine:     engine,
		executor:   executor,
		clock:      clk,
		bus:        bus,
		recorder:   recorder,
		logger:     log.NewModuleZapLogger(logger, "crash_prevention"),
		leaks:      make(map[string]types.LeakPattern),
	}
	collector.AddTickListener(cp.OnTick)
	collector.AddPressureListener(cp.OnPressure)
	return cp
}

// Name 实现 Feature
func (cp *CrashPrevention) Name() string { return CrashPreventionName }

// Enable 实现 Feature
func (cp *CrashPrevention) Enable(ctx context.Context) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if cp.enabled {
		return nil
	}
	cp.enabled = true
	cp.acc.Activated()
	return nil
}

// Disable 实现 Feature，丢弃已检测到的泄漏
func (cp *CrashPrevention) Disable() error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.enabled = false
	cp.leaks = make(map[string]types.LeakPattern)
	return nil
}

// Enabled 实现 Feature
func (cp *CrashPrevention) Enabled() bool {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return cp.enabled
}

// ApplyToTarget 实现 Feature；目标状态由采集器建立
func (cp *CrashPrevention) ApplyToTarget(ctx context.Context, target host.Target) {}

// RemoveTarget 实现 TargetRemover
func (cp *CrashPrevention) RemoveTarget(targetID string) {
	cp.mu.Lock()
	delete(cp.leaks, targetID)
	cp.mu.Unlock()
}

// OnSystemSleep 实现 Feature
func (cp *CrashPrevention) OnSystemSleep(ctx context.Context) {}

// OnSystemResume 实现 Feature；唤醒后的补采会驱动一次评估
func (cp *CrashPrevention) OnSystemResume(ctx context.Context) {}

// Metrics 实现 Feature
func (cp *CrashPrevention) Metrics() types.FeatureMetrics { return cp.acc.Snapshot() }

// DetectedLeaks 当前检测到的泄漏，按目标排序
func (cp *CrashPrevention) DetectedLeaks() []types.LeakPattern {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	out := make([]types.LeakPattern, 0, len(cp.leaks))
	for _, p := range cp.leaks {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out
}

// OnTick 采集器每次采样后调用：对本次采样到的目标逐个评估
func (cp *CrashPrevention) OnTick(ctx context.Context, report telemetry.TickReport) {
	if !cp.Enabled() {
		return
	}
	if !cp.running.CompareAndSwap(false, true) {
		return
	}
	defer cp.running.Store(false)

	for _, id := range report.Sampled {
		cp.evaluate(ctx, id, report.Pressure)
	}
	cp.acc.Ran(report.At)
}

// OnPressure 持续高压时调用
//
// critical 时立即对超过告警线的目标做决策；high 时对最大的目标做一次轻量清理。
func (cp *CrashPrevention) OnPressure(ctx context.Context, snap types.SystemPressureSnapshot) {
	if !cp.Enabled() {
		return
	}
	if snap.PressureLevel == types.PressureCritical {
		for _, st := range cp.store.States() {
			if cur, ok := st.CurrentBytes(); ok && cur >= cp.engine.Config().WarningBytes {
				cp.evaluate(ctx, st.TargetID, snap)
			}
		}
		return
	}

	largest, ok := cp.largestPrunable(snap)
	if !ok {
		return
	}
	if t, found := cp.registry.Get(largest); found {
		ev, err := cp.executor.Prune(ctx, t, types.ReasonPressure)
		if err != nil && !errors.Is(err, host.ErrTargetGone) {
			cp.logger.Debug("pressure_prune_failed", zap.String("target", largest), zap.Error(err))
		}
		cp.acc.Saved(ev.MemorySavedBytes)
	}
}

func (cp *CrashPrevention) largestPrunable(snap types.SystemPressureSnapshot) (string, bool) {
	cooldown := cp.engine.Config().IdleCooldown
	var best string
	var bestBytes uint64
	for _, st := range cp.store.States() {
		cur, ok := st.CurrentBytes()
		if !ok || cur <= bestBytes {
			continue
		}
		if !st.LastCleanupAt.IsZero() && snap.Timestamp.Sub(st.LastCleanupAt) < cooldown {
			continue
		}
		best, bestBytes = st.TargetID, cur
	}
	return best, best != ""
}

// evaluate 一个目标的一次完整状态转换：分类 → 更新速率与预测 → 决策 → 执行
func (cp *CrashPrevention) evaluate(ctx context.Context, id string, pressure types.SystemPressureSnapshot) {
	st, ok := cp.store.State(id)
	if !ok {
		return
	}
	current, ok := st.CurrentBytes()
	if !ok {
		return
	}
	now := cp.clock.Now()

	rate := 0.0
	if pattern, found := cp.classifier.Classify(id, st.Samples, now); found {
		rate = pattern.GrowthRateBytesPerMinute
		cp.rememberLeak(pattern)
	} else {
		cp.forgetLeak(id)
		if len(st.Samples) >= cp.classifier.Config().MinSamples {
			rate = leak.EstimateGrowthRate(st.Samples)
		}
	}

	predicted := cp.engine.PredictExhaustion(now, current, rate)
	cp.store.SetGrowth(id, rate, predicted)

	dec := cp.engine.Decide(Input{
		Now:                      now,
		CurrentBytes:             current,
		GrowthRateBytesPerMinute: rate,
		PredictedExhaustionAt:    predicted,
		LastRemediationAt:        st.LastRemediationAt,
		Pressure:                 pressure,
	})
	cp.store.SetDecision(id, dec.State)

	if dec.Suppressed {
		cp.logger.Debug("remediation_suppressed_cooldown",
			zap.String("target", id),
			zap.String("reason", string(dec.Reason)),
			zap.Time("last_remediation_at", st.LastRemediationAt))
	}
	if !dec.Trigger {
		return
	}

	target, found := cp.registry.Get(id)
	if !found {
		return
	}
	cp.logger.Info("remediation_triggered",
		zap.String("target", id),
		zap.String("reason", string(dec.Reason)),
		zap.Uint64("current", current),
		zap.Float64("rate_bytes_per_min", rate))

	ev, err := cp.executor.Reload(ctx, target, dec.Reason)
	if err != nil {
		cp.logger.Warn("remediation_error", zap.String("target", id), zap.Error(err))
	}
	cp.acc.Saved(ev.MemorySavedBytes)
	cp.forgetLeak(id)
}

// Force 手动重载，跳过冷却检查但同样推进冷却
func (cp *CrashPrevention) Force(ctx context.Context, targetID string) (types.RemediationEvent, error) {
	target, ok := cp.registry.Get(targetID)
	if !ok {
		return types.RemediationEvent{}, fmt.Errorf("%w: %s", ErrUnknownTarget, targetID)
	}
	ev, err := cp.executor.Reload(ctx, target, types.ReasonManual)
	cp.acc.Saved(ev.MemorySavedBytes)
	if ev.ID != "" {
		cp.forgetLeak(targetID)
	}
	return ev, err
}

func (cp *CrashPrevention) rememberLeak(p types.LeakPattern) {
	cp.mu.Lock()
	prev, existed := cp.leaks[p.TargetID]
	if !cp.enabled {
		cp.mu.Unlock()
		return
	}
	cp.leaks[p.TargetID] = p
	cp.mu.Unlock()

	if existed && prev.Type == p.Type {
		return
	}
	cp.recorder.ObserveLeak(p)
	cp.logger.Warn("leak_detected",
		zap.String("target", p.TargetID),
		zap.String("type", string(p.Type)),
		zap.Float64("confidence", p.Confidence),
		zap.Float64("rate_bytes_per_min", p.GrowthRateBytesPerMinute))
	if cp.bus != nil {
		cp.bus.Publish(types.EventTypeLeakDetected, p)
	}
}

func (cp *CrashPrevention) forgetLeak(id string) {
	cp.mu.Lock()
	delete(cp.leaks, id)
	cp.mu.Unlock()
}

var (
	_ featureiface.Feature       = (*CrashPrevention)(nil)
	_ featureiface.TargetRemover = (*CrashPrevention)(nil)
)
