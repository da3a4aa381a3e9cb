package feature

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	clockimpl "github.com/weisyn/memwatch/internal/core/infrastructure/clock"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestLoop(t *testing.T) {
	t.Run("定时触发", func(t *testing.T) {
		clk := clockimpl.NewMockClock(epoch)
		var n atomic.Int32
		l := NewLoop("t", 10*time.Second, clk, func(context.Context) { n.Add(1) }, nil, nil)

		started, err := l.Start(context.Background())
		require.NoError(t, err)
		require.True(t, started)
		defer l.Stop()

		clk.Advance(10 * time.Second)
		assert.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, time.Millisecond)
		clk.Advance(10 * time.Second)
		assert.Eventually(t, func() bool { return n.Load() == 2 }, time.Second, time.Millisecond)
		assert.Equal(t, uint64(2), l.Ticks())
	})

	t.Run("重复启动不产生第二个定时器", func(t *testing.T) {
		clk := clockimpl.NewMockClock(epoch)
		l := NewLoop("t", time.Second, clk, func(context.Context) {}, nil, nil)
		ok, err := l.Start(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = l.Start(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
		l.Stop()
		assert.False(t, l.Running())
		l.Stop()
	})

	t.Run("间隔非法", func(t *testing.T) {
		l := NewLoop("t", 0, clockimpl.NewMockClock(epoch), func(context.Context) {}, nil, nil)
		_, err := l.Start(context.Background())
		assert.Error(t, err)
	})

	t.Run("父上下文取消不影响循环", func(t *testing.T) {
		clk := clockimpl.NewMockClock(epoch)
		var n atomic.Int32
		l := NewLoop("t", time.Second, clk, func(context.Context) { n.Add(1) }, nil, nil)
		ctx, cancel := context.WithCancel(context.Background())
		_, err := l.Start(ctx)
		require.NoError(t, err)
		defer l.Stop()
		cancel()

		clk.Advance(time.Second)
		assert.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, time.Millisecond)
	})

	t.Run("暂停与恢复", func(t *testing.T) {
		clk := clockimpl.NewMockClock(epoch)
		var n atomic.Int32
		l := NewLoop("t", time.Second, clk, func(context.Context) { n.Add(1) }, nil, nil)
		_, err := l.Start(context.Background())
		require.NoError(t, err)
		defer l.Stop()

		l.Pause()
		assert.True(t, l.Paused())
		clk.Advance(5 * time.Second)
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, int32(0), n.Load())

		// 暂停时仍可手动执行
		assert.True(t, l.RunNow())
		assert.Equal(t, int32(1), n.Load())

		l.Resume()
		assert.False(t, l.Paused())
		clk.Advance(time.Second)
		assert.Eventually(t, func() bool { return n.Load() == 2 }, time.Second, time.Millisecond)
	})

	t.Run("未启动时RunNow无效", func(t *testing.T) {
		l := NewLoop("t", time.Second, clockimpl.NewMockClock(epoch), func(context.Context) {}, nil, nil)
		assert.False(t, l.RunNow())
	})

	t.Run("重叠的tick被跳过", func(t *testing.T) {
		clk := clockimpl.NewMockClock(epoch)
		entered := make(chan struct{})
		release := make(chan struct{})
		l := NewLoop("t", time.Minute, clk, func(context.Context) {
			entered <- struct{}{}
			<-release
		}, nil, nil)
		_, err := l.Start(context.Background())
		require.NoError(t, err)
		defer l.Stop()

		done := make(chan bool)
		go func() { done <- l.RunNow() }()
		<-entered
		assert.False(t, l.RunNow())
		close(release)
		assert.True(t, <-done)
		assert.Equal(t, uint64(1), l.Ticks())
	})

	t.Run("panic被捕获", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		l := NewLoop("boom", time.Minute, clockimpl.NewMockClock(epoch), func(context.Context) {
			panic("bad tick")
		}, zap.New(core), nil)
		_, err := l.Start(context.Background())
		require.NoError(t, err)
		defer l.Stop()

		assert.True(t, l.RunNow())
		assert.True(t, l.RunNow())
		assert.Equal(t, uint64(2), l.Ticks())
		require.Equal(t, 2, logs.FilterMessage("tick_panic").Len())
		assert.Equal(t, "boom", logs.All()[0].ContextMap()["feature"])
	})
}

func TestAccumulator(t *testing.T) {
	var a Accumulator
	a.Activated()
	a.Activated()
	a.Ran(epoch.Add(time.Minute))
	a.Ran(epoch) // 更早的时间不回退
	a.Saved(100)
	a.Saved(50)

	m := a.Snapshot()
	assert.Equal(t, uint64(2), m.Activations)
	assert.Equal(t, epoch.Add(time.Minute), m.LastRunAt)
	assert.Equal(t, uint64(150), m.TotalBytesSaved)
}
