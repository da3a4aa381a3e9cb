package remediation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/weisyn/memwatch/internal/core/host/testutil"
	clockimpl "github.com/weisyn/memwatch/internal/core/infrastructure/clock"
	eventimpl "github.com/weisyn/memwatch/internal/core/infrastructure/event"
	"github.com/weisyn/memwatch/internal/core/infrastructure/recovery"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/types"
)

type executorFixture struct {
	cfg      Config
	clock    *clockimpl.MockClock
	store    *telemetry.Store
	bus      *eventimpl.EventBus
	recovery *recovery.Store
	x        *Executor
}

func newExecutorFixture(t *testing.T, logger *zap.Logger) *executorFixture {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SettleDelay = 0
	clk := clockimpl.NewMockClock(epoch)
	rs, err := recovery.NewStore(cfg.RecoveryTTL, clk, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })

	f := &executorFixture{
		cfg:      cfg,
		clock:    clk,
		store:    telemetry.NewStore(60),
		bus:      eventimpl.NewEventBus(nil),
		recovery: rs,
	}
	f.x = NewExecutor(cfg, f.store, NewHistory(cfg.HistoryCapacity), rs, clk, f.bus, nil, logger)
	return f
}

func TestExecutorReload(t *testing.T) {
	ctx := context.Background()

	t.Run("成功重载记录节省并重置样本", func(t *testing.T) {
		f := newExecutorFixture(t, nil)
		tab := testutil.NewFakeTarget("tab", 3000*mib)
		tab.SetReloadResult(400 * mib)
		f.store.Append("tab", epoch, 3000*mib)

		var published []types.RemediationEvent
		require.NoError(t, f.bus.Subscribe(types.EventTypeRemediation, func(e types.RemediationEvent) {
			published = append(published, e)
		}))

		ev, err := f.x.Reload(ctx, tab, types.ReasonMemoryLimit)
		require.NoError(t, err)
		assert.NotEmpty(t, ev.ID)
		assert.Equal(t, types.ActionReload, ev.Action)
		assert.Equal(t, uint64(3000*mib), ev.MemoryBeforeBytes)
		assert.Equal(t, uint64(400*mib), ev.MemoryAfterBytes)
		assert.Equal(t, uint64(2600*mib), ev.MemorySavedBytes)
		assert.True(t, ev.Succeeded())
		assert.Equal(t, 1, tab.Reloads())

		st, _ := f.store.State("tab")
		assert.Equal(t, epoch, st.LastRemediationAt)
		assert.Equal(t, 1, st.RemediationCount)
		assert.Empty(t, st.Samples)

		assert.Equal(t, []types.RemediationEvent{ev}, f.x.History().Events())
		assert.Equal(t, []types.RemediationEvent{ev}, published)
	})

	t.Run("保存恢复状态", func(t *testing.T) {
		f := newExecutorFixture(t, nil)
		tab := testutil.NewFakeTarget("tab", 100*mib)
		tab.SetQuery(host.QuerySaveRecoveryState, host.QueryResult{Payload: []byte(`{"scroll":42}`)})

		_, err := f.x.Reload(ctx, tab, types.ReasonManual)
		require.NoError(t, err)
		state, ok := f.recovery.Load("tab")
		require.True(t, ok)
		assert.JSONEq(t, `{"scroll":42}`, string(state))
	})

	t.Run("恢复状态失败不影响重载", func(t *testing.T) {
		f := newExecutorFixture(t, nil)
		tab := testutil.NewFakeTarget("tab", 100*mib)
		tab.SetQueryError(host.QuerySaveRecoveryState, errors.New("script error"))

		_, err := f.x.Reload(ctx, tab, types.ReasonManual)
		require.NoError(t, err)
		assert.Equal(t, 1, tab.Reloads())
		assert.Zero(t, f.recovery.Len())
	})

	t.Run("重载失败仍记录事件并推进冷却", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		f := newExecutorFixture(t, zap.New(core))
		tab := testutil.NewFakeTarget("tab", 2000*mib)
		tab.SetReloadError(errors.New("renderer hung"))

		ev, err := f.x.Reload(ctx, tab, types.ReasonGrowthRate)
		require.Error(t, err)
		assert.False(t, ev.Succeeded())
		assert.Equal(t, ev.MemoryBeforeBytes, ev.MemoryAfterBytes)
		assert.Zero(t, ev.MemorySavedBytes)
		assert.Contains(t, ev.Error, "renderer hung")

		st, ok := f.store.State("tab")
		require.True(t, ok)
		assert.Equal(t, epoch, st.LastRemediationAt)
		assert.Equal(t, 1, f.x.History().Len())
		assert.Equal(t, 1, logs.FilterMessage("remediation_failed").Len())
	})

	t.Run("已销毁的目标不执行", func(t *testing.T) {
		f := newExecutorFixture(t, nil)
		tab := testutil.NewFakeTarget("tab", 100*mib)
		tab.Destroy()

		_, err := f.x.Reload(ctx, tab, types.ReasonManual)
		assert.ErrorIs(t, err, host.ErrTargetGone)
		assert.Zero(t, tab.Reloads())
		assert.Zero(t, f.x.History().Len())
	})

	t.Run("等待稳定后再测量", func(t *testing.T) {
		f := newExecutorFixture(t, nil)
		f.cfg.SettleDelay = 3 * time.Second
		f.x = NewExecutor(f.cfg, f.store, NewHistory(10), nil, f.clock, nil, nil, nil)
		tab := testutil.NewFakeTarget("tab", 1000*mib)
		tab.SetReloadResult(200 * mib)

		done := make(chan types.RemediationEvent, 1)
		go func() {
			ev, _ := f.x.Reload(ctx, tab, types.ReasonManual)
			done <- ev
		}()

		var ev types.RemediationEvent
		require.Eventually(t, func() bool {
			f.clock.Advance(time.Second)
			select {
			case ev = <-done:
				return true
			default:
				return false
			}
		}, time.Second, time.Millisecond)
		assert.Equal(t, uint64(800*mib), ev.MemorySavedBytes)
	})

	t.Run("同一目标不并发执行", func(t *testing.T) {
		f := newExecutorFixture(t, nil)
		f.cfg.SettleDelay = time.Hour
		f.x = NewExecutor(f.cfg, f.store, NewHistory(10), nil, f.clock, nil, nil, nil)
		tab := testutil.NewFakeTarget("tab", 1000*mib)

		cctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			_, _ = f.x.Reload(cctx, tab, types.ReasonManual)
			close(done)
		}()
		require.Eventually(t, func() bool { return tab.Reloads() == 1 }, time.Second, time.Millisecond)

		_, err := f.x.Reload(ctx, tab, types.ReasonManual)
		assert.ErrorIs(t, err, ErrInProgress)
		cancel()
		<-done
	})
}

func TestExecutorPrune(t *testing.T) {
	ctx := context.Background()

	t.Run("清理只推进清理冷却", func(t *testing.T) {
		f := newExecutorFixture(t, nil)
		tab := testutil.NewFakeTarget("tab", 800*mib)
		tab.SetQuery(host.QueryPruneOffscreen, host.QueryResult{Value: 1})
		f.store.Append("tab", epoch, 800*mib)

		ev, err := f.x.Prune(ctx, tab, types.ReasonIdle)
		require.NoError(t, err)
		assert.Equal(t, types.ActionPrune, ev.Action)
		assert.Equal(t, types.ReasonIdle, ev.Reason)
		assert.Zero(t, tab.Reloads())
		assert.Equal(t, []host.QueryKind{host.QueryPruneOffscreen, host.QueryReleaseConnections, host.QueryRequestGC}, tab.Queries())

		st, _ := f.store.State("tab")
		assert.Equal(t, epoch, st.LastCleanupAt)
		assert.True(t, st.LastRemediationAt.IsZero())
		assert.Len(t, st.Samples, 1)
	})

	t.Run("休眠只释放连接", func(t *testing.T) {
		f := newExecutorFixture(t, nil)
		tab := testutil.NewFakeTarget("tab", 800*mib)
		_, err := f.x.Prune(ctx, tab, types.ReasonSleep)
		require.NoError(t, err)
		assert.Equal(t, []host.QueryKind{host.QueryReleaseConnections}, tab.Queries())
	})

	t.Run("全部步骤失败时记录错误", func(t *testing.T) {
		f := newExecutorFixture(t, nil)
		tab := testutil.NewFakeTarget("tab", 800*mib)
		tab.SetQueryError(host.QueryRequestGC, errors.New("boom"))

		ev, err := f.x.Prune(ctx, tab, types.ReasonResume)
		require.Error(t, err)
		assert.Contains(t, ev.Error, "boom")
		assert.Zero(t, ev.MemorySavedBytes)
		assert.Equal(t, 1, f.x.History().Len())
	})

	t.Run("查询超时", func(t *testing.T) {
		f := newExecutorFixture(t, nil)
		f.cfg.QueryTimeout = 10 * time.Millisecond
		f.x = NewExecutor(f.cfg, f.store, NewHistory(10), nil, f.clock, nil, nil, nil)
		tab := testutil.NewFakeTarget("tab", 800*mib)
		tab.BlockQuery(host.QueryReleaseConnections)

		ev, err := f.x.Prune(ctx, tab, types.ReasonSleep)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, ev.Succeeded())
	})
}

func TestHistory(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Record(types.RemediationEvent{TargetID: []string{"a", "b"}[i%2], MemorySavedBytes: uint64(i)})
	}
	events := h.Events()
	require.Len(t, events, 3)
	assert.Equal(t, uint64(2), events[0].MemorySavedBytes)
	assert.Equal(t, uint64(4), events[2].MemorySavedBytes)
	assert.Len(t, h.ForTarget("a"), 2)
	assert.Equal(t, uint64(9), h.TotalSaved())
	assert.Equal(t, "remediation.history", h.CollectMemoryStats().Module)
}
