package remediation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/weisyn/memwatch/internal/core/infrastructure/log"
	metricsimpl "github.com/weisyn/memwatch/internal/core/infrastructure/metrics"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	"github.com/weisyn/memwatch/pkg/types"
)

// ErrInProgress 该目标已有修复在执行
var ErrInProgress = errors.New("remediation already in progress")

// StateSaver 保存重载前的恢复状态
type StateSaver interface {
	Save(targetID string, state []byte) error
}

// Executor 对目标执行重载或轻量清理，并记录前后内存
type Executor struct {
	cfg      Config
	store    *telemetry.Store
	history  *History
	saver    StateSaver
	clock    clock.Clock
	bus      event.EventBus
	recorder metrics.Recorder
	logger   *zap.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// NewExecutor 创建执行器，saver 与 bus 可为 nil
func NewExecutor(cfg Config, store *telemetry.Store, hist *History, saver StateSaver,
	clk clock.Clock, bus event.EventBus, recorder metrics.Recorder, logger *zap.Logger) *Executor {
	if recorder == nil {
		recorder = metricsimpl.NopRecorder{}
	}
	return &Executor{
		cfg:      cfg,
		store:    store,
		history:  hist,
		saver:    saver,
		clock:    clk,
		bus:      bus,
		recorder: recorder,
		logger:   log.NewModuleZapLogger(logger, "remediation"),
		inflight: make(map[string]bool),
	}
}

// History 修复历史
func (x *Executor) History() *History { return x.history }

// Reload 保存恢复状态后重载目标
//
// 重载失败同样记录事件（节省为 0）并推进冷却，返回的 error 非 nil。
// 目标在执行前已销毁时不记录事件。
func (x *Executor) Reload(ctx context.Context, target host.Target, reason types.RemediationReason) (types.RemediationEvent, error) {
	if err := x.acquire(target); err != nil {
		return types.RemediationEvent{}, err
	}
	defer x.release(target.ID())

	id := target.ID()
	start := x.clock.Now()
	before, err := x.measure(ctx, target)
	if errors.Is(err, host.ErrTargetGone) {
		return types.RemediationEvent{}, fmt.Errorf("%s: %w", id, host.ErrTargetGone)
	}

	x.saveRecoveryState(ctx, target)
	if target.Destroyed() {
		return types.RemediationEvent{}, fmt.Errorf("%s: %w", id, host.ErrTargetGone)
	}

	rctx, cancel := context.WithTimeout(ctx, x.cfg.QueryTimeout)
	reloadErr := target.Reload(rctx)
	cancel()

	after := before
	if reloadErr == nil {
		x.settle(ctx)
		if m, err := x.measure(ctx, target); err == nil {
			after = m
		}
	}

	ev := x.newEvent(start, id, types.ActionReload, reason, before, after, reloadErr)
	x.store.Ensure(id)
	x.store.MarkRemediated(id, start)
	x.publish(ev)

	if reloadErr != nil {
		return ev, fmt.Errorf("重载目标 %s 失败: %w", id, reloadErr)
	}
	return ev, nil
}

// pruneSteps 各原因对应的清理查询
func pruneSteps(reason types.RemediationReason) []host.QueryKind {
	switch reason {
	case types.ReasonSleep:
		return []host.QueryKind{host.QueryReleaseConnections}
	case types.ReasonResume:
		return []host.QueryKind{host.QueryRequestGC}
	default:
		return []host.QueryKind{host.QueryPruneOffscreen, host.QueryReleaseConnections, host.QueryRequestGC}
	}
}

// Prune 不重载，只释放离屏内容、空闲连接并请求回收；只推进清理冷却
func (x *Executor) Prune(ctx context.Context, target host.Target, reason types.RemediationReason) (types.RemediationEvent, error) {
	if err := x.acquire(target); err != nil {
		return types.RemediationEvent{}, err
	}
	defer x.release(target.ID())

	id := target.ID()
	start := x.clock.Now()
	before, err := x.measure(ctx, target)
	if errors.Is(err, host.ErrTargetGone) {
		return types.RemediationEvent{}, fmt.Errorf("%s: %w", id, host.ErrTargetGone)
	}

	steps := pruneSteps(reason)
	var failures []error
	for _, kind := range steps {
		qctx, cancel := context.WithTimeout(ctx, x.cfg.QueryTimeout)
		_, qerr := target.Query(qctx, host.Query{Kind: kind})
		cancel()
		if qerr != nil && !errors.Is(qerr, host.ErrQueryUnsupported) {
			failures = append(failures, fmt.Errorf("%s: %w", kind, qerr))
		}
	}

	var pruneErr error
	if len(failures) == len(steps) {
		pruneErr = errors.Join(failures...)
	}

	after := before
	if pruneErr == nil {
		x.settle(ctx)
		if m, err := x.measure(ctx, target); err == nil {
			after = m
		}
	}

	ev := x.newEvent(start, id, types.ActionPrune, reason, before, after, pruneErr)
	x.store.Ensure(id)
	x.store.MarkCleanedUp(id, start)
	x.publish(ev)

	if pruneErr != nil {
		return ev, fmt.Errorf("清理目标 %s 失败: %w", id, pruneErr)
	}
	return ev, nil
}

func (x *Executor) acquire(target host.Target) error {
	if target == nil || target.Destroyed() {
		return host.ErrTargetGone
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.inflight[target.ID()] {
		return fmt.Errorf("%s: %w", target.ID(), ErrInProgress)
	}
	x.inflight[target.ID()] = true
	return nil
}

func (x *Executor) release(id string) {
	x.mu.Lock()
	delete(x.inflight, id)
	x.mu.Unlock()
}

// measure 读取目标内存，失败时回退到最新样本
func (x *Executor) measure(ctx context.Context, target host.Target) (uint64, error) {
	if target.Destroyed() {
		return 0, host.ErrTargetGone
	}
	qctx, cancel := context.WithTimeout(ctx, x.cfg.QueryTimeout)
	defer cancel()
	bytes, err := target.ProcessMemory(qctx)
	if err == nil {
		return bytes, nil
	}
	if errors.Is(err, host.ErrTargetGone) {
		return 0, err
	}
	if s, ok := x.store.Latest(target.ID()); ok {
		return s.MemoryBytes, nil
	}
	return 0, err
}

func (x *Executor) saveRecoveryState(ctx context.Context, target host.Target) {
	qctx, cancel := context.WithTimeout(ctx, x.cfg.QueryTimeout)
	defer cancel()
	res, err := target.Query(qctx, host.Query{Kind: host.QuerySaveRecoveryState})
	if err != nil {
		x.logger.Debug("recovery_state_unavailable", zap.String("target", target.ID()), zap.Error(err))
		return
	}
	if x.saver == nil || len(res.Payload) == 0 {
		return
	}
	if err := x.saver.Save(target.ID(), res.Payload); err != nil {
		x.logger.Debug("recovery_state_not_cached", zap.String("target", target.ID()), zap.Error(err))
	}
}

func (x *Executor) settle(ctx context.Context) {
	if x.cfg.SettleDelay <= 0 {
		return
	}
	select {
	case <-x.clock.After(x.cfg.SettleDelay):
	case <-ctx.Done():
	}
}

func (x *Executor) newEvent(at time.Time, id string, action types.RemediationAction, reason types.RemediationReason,
	before, after uint64, actionErr error) types.RemediationEvent {
	ev := types.RemediationEvent{
		ID:                uuid.New().String(),
		Timestamp:         at,
		TargetID:          id,
		Action:            action,
		Reason:            reason,
		MemoryBeforeBytes: before,
		MemoryAfterBytes:  after,
	}
	if before > after {
		ev.MemorySavedBytes = before - after
	}
	if actionErr != nil {
		ev.Error = strings.ReplaceAll(actionErr.Error(), "\n", "; ")
	}
	return ev
}

func (x *Executor) publish(ev types.RemediationEvent) {
	x.history.Record(ev)
	x.recorder.ObserveRemediation(ev)

	fields := []zap.Field{
		zap.String("id", ev.ID),
		zap.String("target", ev.TargetID),
		zap.String("action", string(ev.Action)),
		zap.String("reason", string(ev.Reason)),
		zap.Uint64("before", ev.MemoryBeforeBytes),
		zap.Uint64("after", ev.MemoryAfterBytes),
		zap.Uint64("saved", ev.MemorySavedBytes),
	}
	if ev.Succeeded() {
		x.logger.Info("remediation_done", fields...)
	} else {
		x.logger.Warn("remediation_failed", append(fields, zap.String("error", ev.Error))...)
	}
	if x.bus != nil {
		x.bus.Publish(types.EventTypeRemediation, ev)
	}
}
