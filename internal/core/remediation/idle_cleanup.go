package remediation

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/weisyn/memwatch/internal/core/feature"
	"github.com/weisyn/memwatch/internal/core/infrastructure/log"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	featureiface "github.com/weisyn/memwatch/pkg/interfaces/feature"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	"github.com/weisyn/memwatch/pkg/types"
)

// IdleCleanupName 功能名
const IdleCleanupName = "idle-cleanup"

// IdleCleanup 用户空闲时对目标做轻量清理，休眠与唤醒时也做一次
type IdleCleanup struct {
	cfg      Config
	registry host.Registry
	idle     host.IdleReporter // 为 nil 时只处理休眠与唤醒
	store    *telemetry.Store
	executor *Executor
	clock    clock.Clock
	recorder metrics.Recorder
	logger   *zap.Logger

	acc feature.Accumulator

	mu      sync.Mutex
	loop    *feature.Loop
	enabled bool
}

// NewIdleCleanup 创建空闲清理功能；system 实现 host.IdleReporter 时启用空闲检测
func NewIdleCleanup(cfg Config, registry host.Registry, system host.SystemInfo, store *telemetry.Store,
	executor *Executor, clk clock.Clock, recorder metrics.Recorder, logger *zap.Logger) *IdleCleanup {
	ic := &IdleCleanup{
		cfg:      cfg,
		registry: registry,
		store:    store,
		executor: executor,
		clock:    clk,
		recorder: recorder,
		logger:   log.NewModuleZapLogger(logger, "idle_cleanup"),
	}
	if r, ok := system.(host.IdleReporter); ok {
		ic.idle = r
	}
	return ic
}

// Name 实现 Feature
func (ic *IdleCleanup) Name() string { return IdleCleanupName }

// Enable 实现 Feature
func (ic *IdleCleanup) Enable(ctx context.Context) error {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	if ic.enabled {
		return nil
	}
	ic.loop = feature.NewLoop(IdleCleanupName, ic.cfg.IdleCheckInterval, ic.clock, ic.Tick, ic.logger, ic.recorder)
	if _, err := ic.loop.Start(ctx); err != nil {
		ic.loop = nil
		return err
	}
	ic.enabled = true
	ic.acc.Activated()
	return nil
}

// Disable 实现 Feature
func (ic *IdleCleanup) Disable() error {
	ic.mu.Lock()
	loop := ic.loop
	ic.loop = nil
	ic.enabled = false
	ic.mu.Unlock()
	if loop != nil {
		loop.Stop()
	}
	return nil
}

// Enabled 实现 Feature
func (ic *IdleCleanup) Enabled() bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.enabled
}

// ApplyToTarget 实现 Feature
func (ic *IdleCleanup) ApplyToTarget(ctx context.Context, target host.Target) {}

// OnSystemSleep 实现 Feature：释放空闲连接后暂停检查
func (ic *IdleCleanup) OnSystemSleep(ctx context.Context) {
	ic.pruneAll(ctx, types.ReasonSleep, false)
	if loop := ic.currentLoop(); loop != nil {
		loop.Pause()
	}
}

// OnSystemResume 实现 Feature：请求回收并恢复检查
func (ic *IdleCleanup) OnSystemResume(ctx context.Context) {
	if loop := ic.currentLoop(); loop != nil {
		loop.Resume()
	}
	ic.pruneAll(ctx, types.ReasonResume, false)
}

// Metrics 实现 Feature
func (ic *IdleCleanup) Metrics() types.FeatureMetrics { return ic.acc.Snapshot() }

func (ic *IdleCleanup) currentLoop() *feature.Loop {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.loop
}

// Tick 用户空闲超过阈值时清理冷却期外的目标
func (ic *IdleCleanup) Tick(ctx context.Context) {
	ic.acc.Ran(ic.clock.Now())
	if ic.idle == nil || ic.idle.IdleDuration() < ic.cfg.IdleThreshold {
		return
	}
	ic.pruneAll(ctx, types.ReasonIdle, true)
}

func (ic *IdleCleanup) pruneAll(ctx context.Context, reason types.RemediationReason, respectCooldown bool) {
	if !ic.Enabled() {
		return
	}
	now := ic.clock.Now()
	for _, t := range ic.registry.Targets() {
		if t.Destroyed() {
			continue
		}
		if respectCooldown {
			if st, ok := ic.store.State(t.ID()); ok && !st.LastCleanupAt.IsZero() &&
				now.Sub(st.LastCleanupAt) < ic.cfg.IdleCooldown {
				continue
			}
		}
		ev, err := ic.executor.Prune(ctx, t, reason)
		if err != nil && !errors.Is(err, host.ErrTargetGone) {
			ic.logger.Debug("idle_prune_failed", zap.String("target", t.ID()), zap.Error(err))
		}
		ic.acc.Saved(ev.MemorySavedBytes)
	}
}

var _ featureiface.Feature = (*IdleCleanup)(nil)
