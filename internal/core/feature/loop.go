// Package feature 监控功能的定时循环、统计与集中管理
package feature

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
)

// TickFunc 一次定时任务
type TickFunc func(ctx context.Context)

// Loop 可暂停的定时循环
//
// 同一个 Loop 的 tick 不会重叠：上一次 tick 尚未结束时到来的定时信号或 RunNow 会被跳过。
// tick 内的 panic 被捕获并记录，循环继续运行。
// Stop 不能在 tick 内部调用。
type Loop struct {
	name     string
	interval time.Duration
	clock    clock.Clock
	tick     TickFunc
	logger   *zap.Logger
	recorder metrics.Recorder

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	ticker  clock.Ticker
	running bool
	paused  bool
	wake    chan struct{}
	wg      sync.WaitGroup

	inTick atomic.Bool
	ticks  atomic.Uint64
}

// NewLoop 创建定时循环
func NewLoop(name string, interval time.Duration, clk clock.Clock, tick TickFunc, logger *zap.Logger, recorder metrics.Recorder) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		name:     name,
		interval: interval,
		clock:    clk,
		tick:     tick,
		logger:   logger,
		recorder: recorder,
		wake:     make(chan struct{}, 1),
	}
}

// Start 启动循环，已在运行时返回 false
// 循环的生命周期与 ctx 的取消解耦，只由 Stop 结束
func (l *Loop) Start(ctx context.Context) (bool, error) {
	if l.interval <= 0 {
		return false, fmt.Errorf("%s: 定时间隔必须为正数: %s", l.name, l.interval)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return false, nil
	}

	l.ctx, l.cancel = context.WithCancel(context.WithoutCancel(ctx))
	l.ticker = l.clock.NewTicker(l.interval)
	l.running = true
	l.paused = false

	l.wg.Add(1)
	go l.run(l.ctx)
	return true, nil
}

// Stop 停止循环并等待当前 tick 结束
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.cancel()
	if l.ticker != nil {
		l.ticker.Stop()
		l.ticker = nil
	}
	l.mu.Unlock()

	l.wg.Wait()
}

// Pause 暂停定时触发，RunNow 仍可用
func (l *Loop) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running || l.paused {
		return
	}
	l.paused = true
	l.ticker.Stop()
	l.ticker = nil
	l.signal()
}

// Resume 恢复定时触发
func (l *Loop) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running || !l.paused {
		return
	}
	l.paused = false
	l.ticker = l.clock.NewTicker(l.interval)
	l.signal()
}

// RunNow 在调用方 goroutine 中立即执行一次 tick，返回是否执行
func (l *Loop) RunNow() bool {
	l.mu.Lock()
	ctx := l.ctx
	running := l.running
	l.mu.Unlock()
	if !running {
		return false
	}
	return l.runTick(ctx)
}

// Running 是否已启动
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Paused 是否暂停
func (l *Loop) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// Ticks 已完成的 tick 数
func (l *Loop) Ticks() uint64 { return l.ticks.Load() }

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) tickChan() <-chan time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ticker == nil {
		return nil // 暂停时阻塞
	}
	return l.ticker.C()
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		case <-l.tickChan():
			l.runTick(ctx)
		}
	}
}

func (l *Loop) runTick(ctx context.Context) (ran bool) {
	if !l.inTick.CompareAndSwap(false, true) {
		l.logger.Debug("tick_skipped_overlap", zap.String("feature", l.name))
		return false
	}
	defer l.inTick.Store(false)
	ran = true

	start := l.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("tick_panic", zap.String("feature", l.name), zap.Any("panic", r))
		}
		if l.recorder != nil {
			l.recorder.ObserveTick(l.name, l.clock.Since(start))
		}
		l.ticks.Add(1)
	}()

	l.tick(ctx)
	return ran
}
