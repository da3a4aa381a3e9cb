package remediation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hostimpl "github.com/weisyn/memwatch/internal/core/host"
	"github.com/weisyn/memwatch/internal/core/host/testutil"
	clockimpl "github.com/weisyn/memwatch/internal/core/infrastructure/clock"
	eventimpl "github.com/weisyn/memwatch/internal/core/infrastructure/event"
	"github.com/weisyn/memwatch/internal/core/leak"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	"github.com/weisyn/memwatch/pkg/types"
)

const gib = 1 << 30

type pipeline struct {
	clock     *clockimpl.MockClock
	registry  *hostimpl.Registry
	system    *testutil.FakeSystem
	bus       *eventimpl.EventBus
	collector *telemetry.Collector
	executor  *Executor
	cp        *CrashPrevention
}

// newPipeline 组装 采集 → 分类 → 决策 → 执行，tick 由测试直接驱动
func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SettleDelay = 0

	p := &pipeline{
		clock:    clockimpl.NewMockClock(epoch),
		registry: hostimpl.NewRegistry(),
		system:   testutil.NewFakeSystem(16*gib, 8*gib),
		bus:      eventimpl.NewEventBus(nil),
	}
	p.collector = telemetry.NewCollector(telemetry.DefaultConfig(), p.registry, p.system,
		telemetry.NewStore(60), p.clock, p.bus, nil, nil)
	p.executor = NewExecutor(cfg, p.collector.Store(), NewHistory(cfg.HistoryCapacity), nil, p.clock, p.bus, nil, nil)
	p.cp = NewCrashPrevention(p.collector, p.registry, leak.NewClassifier(leak.DefaultConfig()),
		NewEngine(cfg), p.executor, p.clock, p.bus, nil, nil)
	require.NoError(t, p.cp.Enable(context.Background()))
	return p
}

// tick 推进 30 秒后采样一次
func (p *pipeline) tick() {
	p.clock.Advance(30 * time.Second)
	p.collector.Tick(context.Background())
}

func TestScenarioA_SteadyGrowthPredictsWithoutTrigger(t *testing.T) {
	p := newPipeline(t)
	tab := testutil.NewFakeTarget("tab", 0)
	p.registry.Attach(tab)

	var leaks []types.LeakPattern
	require.NoError(t, p.bus.Subscribe(types.EventTypeLeakDetected, func(l types.LeakPattern) { leaks = append(leaks, l) }))

	for _, v := range []uint64{100, 110, 125, 140, 160, 175, 190, 205, 220, 235} {
		tab.SetMemory(v * mib)
		p.tick()
	}

	detected := p.cp.DetectedLeaks()
	require.Len(t, detected, 1)
	assert.Equal(t, types.LeakSteadyGrowth, detected[0].Type)
	assert.InDelta(t, 30*mib, detected[0].GrowthRateBytesPerMinute, 2*mib)
	require.Len(t, leaks, 1)

	st, ok := p.collector.Store().State("tab")
	require.True(t, ok)
	require.NotNil(t, st.PredictedExhaustionAt)
	assert.True(t, st.PredictedExhaustionAt.After(p.clock.Now()))
	assert.InDelta(t, 30*mib, st.GrowthRateBytesPerMinute, 2*mib)
	assert.Equal(t, types.DecisionIdle, st.DecisionState)

	assert.Zero(t, p.executor.History().Len())
	assert.Zero(t, tab.Reloads())
}

func TestScenarioB_MemoryLimitTriggersImmediately(t *testing.T) {
	p := newPipeline(t)
	tab := testutil.NewFakeTarget("tab", 1*gib)
	tab.SetReloadResult(300 * mib)
	p.registry.Attach(tab)

	p.tick()
	p.tick()
	assert.Zero(t, tab.Reloads())

	tab.SetMemory(3900 * mib)
	p.tick()

	require.Equal(t, 1, tab.Reloads())
	events := p.executor.History().Events()
	require.Len(t, events, 1)
	assert.Equal(t, types.ReasonMemoryLimit, events[0].Reason)
	assert.Equal(t, uint64(3900*mib), events[0].MemoryBeforeBytes)
	assert.Equal(t, uint64(3600*mib), events[0].MemorySavedBytes)
	assert.Equal(t, uint64(3600*mib), p.cp.Metrics().TotalBytesSaved)

	st, _ := p.collector.Store().State("tab")
	assert.Equal(t, 1, st.RemediationCount)
	assert.Empty(t, st.Samples)
}

func TestScenarioC_CooldownSuppressesSecondTrigger(t *testing.T) {
	p := newPipeline(t)
	tab := testutil.NewFakeTarget("tab", 3900*mib)
	p.registry.Attach(tab)

	p.tick()
	require.Equal(t, 1, p.executor.History().Len())
	first := p.executor.History().Events()[0].Timestamp

	// 两分钟后再次超过上限
	for i := 0; i < 4; i++ {
		p.tick()
	}
	assert.Equal(t, 1, p.executor.History().Len())
	st, _ := p.collector.Store().State("tab")
	assert.Equal(t, types.DecisionPendingCooldown, st.DecisionState)

	// 冷却期满
	for p.clock.Now().Sub(first) < 10*time.Minute {
		p.tick()
	}
	events := p.executor.History().Events()
	require.Len(t, events, 2)
	assert.GreaterOrEqual(t, events[1].Timestamp.Sub(events[0].Timestamp), 10*time.Minute)
}

func TestCrashPrevention(t *testing.T) {
	ctx := context.Background()

	t.Run("启用幂等", func(t *testing.T) {
		p := newPipeline(t)
		require.NoError(t, p.cp.Enable(ctx))
		assert.Equal(t, uint64(1), p.cp.Metrics().Activations)
	})

	t.Run("停用后不再评估", func(t *testing.T) {
		p := newPipeline(t)
		tab := testutil.NewFakeTarget("tab", 3900*mib)
		p.registry.Attach(tab)
		require.NoError(t, p.cp.Disable())
		assert.False(t, p.cp.Enabled())

		p.tick()
		assert.Zero(t, tab.Reloads())
		assert.Empty(t, p.cp.DetectedLeaks())
	})

	t.Run("critical压力同步触发", func(t *testing.T) {
		p := newPipeline(t)
		tab := testutil.NewFakeTarget("tab", 3700*mib)
		small := testutil.NewFakeTarget("small", 200*mib)
		p.registry.Attach(tab)
		p.registry.Attach(small)
		p.tick()
		assert.Zero(t, tab.Reloads())

		p.system.SetFree(500 * mib)
		p.tick()
		require.Equal(t, 1, tab.Reloads())
		assert.Zero(t, small.Reloads())
		assert.Equal(t, types.ReasonPressure, p.executor.History().Events()[0].Reason)
	})

	t.Run("持续high压力清理最大的目标", func(t *testing.T) {
		p := newPipeline(t)
		big := testutil.NewFakeTarget("big", 900*mib)
		small := testutil.NewFakeTarget("small", 100*mib)
		p.registry.Attach(big)
		p.registry.Attach(small)

		p.system.SetFree(1536 * mib)
		p.tick()
		assert.Zero(t, p.executor.History().Len())
		p.tick()

		events := p.executor.History().Events()
		require.Len(t, events, 1)
		assert.Equal(t, "big", events[0].TargetID)
		assert.Equal(t, types.ActionPrune, events[0].Action)
		assert.Equal(t, types.ReasonPressure, events[0].Reason)

		// 清理冷却期内换下一个目标
		p.tick()
		events = p.executor.History().Events()
		require.Len(t, events, 2)
		assert.Equal(t, "small", events[1].TargetID)
	})

	t.Run("手动修复跳过冷却", func(t *testing.T) {
		p := newPipeline(t)
		tab := testutil.NewFakeTarget("tab", 3900*mib)
		p.registry.Attach(tab)
		p.tick()
		require.Equal(t, 1, tab.Reloads())

		ev, err := p.cp.Force(ctx, "tab")
		require.NoError(t, err)
		assert.Equal(t, types.ReasonManual, ev.Reason)
		assert.Equal(t, 2, tab.Reloads())

		st, _ := p.collector.Store().State("tab")
		assert.Equal(t, p.clock.Now(), st.LastRemediationAt)

		_, err = p.cp.Force(ctx, "missing")
		assert.ErrorIs(t, err, ErrUnknownTarget)
	})

	t.Run("样本不足时不估计速率", func(t *testing.T) {
		p := newPipeline(t)
		tab := testutil.NewFakeTarget("tab", 100*mib)
		p.registry.Attach(tab)
		for i := 0; i < 5; i++ {
			tab.SetMemory(uint64(100+50*i) * mib)
			p.tick()
		}
		st, _ := p.collector.Store().State("tab")
		assert.Zero(t, st.GrowthRateBytesPerMinute)
		assert.Nil(t, st.PredictedExhaustionAt)
	})

	t.Run("目标移除后忘记泄漏", func(t *testing.T) {
		p := newPipeline(t)
		tab := testutil.NewFakeTarget("tab", 0)
		p.registry.Attach(tab)
		for i := 0; i < 12; i++ {
			tab.SetMemory(uint64(100+20*i) * mib)
			p.tick()
		}
		require.Len(t, p.cp.DetectedLeaks(), 1)
		p.cp.RemoveTarget("tab")
		assert.Empty(t, p.cp.DetectedLeaks())
	})
}
