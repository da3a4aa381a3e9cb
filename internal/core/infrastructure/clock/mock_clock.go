package clock

import (
	"sync"
	"time"

	infraClock "github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
)

// MockClock 测试用时钟，时间可控
// 定时器与周期定时器只在 Advance 时触发，通道带 1 个缓冲，未被读取的 tick 会被丢弃（与 time.Ticker 一致）
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
	waiters     []*mockWaiter
}

type mockWaiter struct {
	deadline time.Time
	period   time.Duration // 0 表示一次性
	ch       chan time.Time
	stopped  bool
}

func NewMockClock(initial time.Time) *MockClock { return &MockClock{currentTime: initial} }

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

func (c *MockClock) Since(t time.Time) time.Duration { return c.Now().Sub(t) }
func (c *MockClock) Unix() int64                     { return c.Now().Unix() }
func (c *MockClock) UnixNano() int64                 { return c.Now().UnixNano() }

// After 返回在时间推进 d 之后触发的通道；d<=0 时立即触发
func (c *MockClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &mockWaiter{deadline: c.currentTime.Add(d), ch: make(chan time.Time, 1)}
	if d <= 0 {
		w.ch <- c.currentTime
		return w.ch
	}
	c.waiters = append(c.waiters, w)
	return w.ch
}

// NewTicker 创建由 Advance 驱动的周期定时器
func (c *MockClock) NewTicker(d time.Duration) infraClock.Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &mockWaiter{deadline: c.currentTime.Add(d), period: d, ch: make(chan time.Time, 1)}
	c.waiters = append(c.waiters, w)
	return &mockTicker{clock: c, w: w}
}

// Advance 推进时间并触发到期的定时器
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = c.currentTime.Add(d)

	alive := c.waiters[:0]
	for _, w := range c.waiters {
		if w.stopped {
			continue
		}
		if !c.currentTime.Before(w.deadline) {
			select {
			case w.ch <- c.currentTime:
			default:
			}
			if w.period == 0 {
				continue
			}
			for !c.currentTime.Before(w.deadline) {
				w.deadline = w.deadline.Add(w.period)
			}
		}
		alive = append(alive, w)
	}
	c.waiters = alive
}

// Set 直接设置当前时间（不触发定时器）
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.currentTime = t
	c.mu.Unlock()
}

type mockTicker struct {
	clock *MockClock
	w     *mockWaiter
}

func (t *mockTicker) C() <-chan time.Time { return t.w.ch }

func (t *mockTicker) Stop() {
	t.clock.mu.Lock()
	t.w.stopped = true
	t.clock.mu.Unlock()
}

// Ensure接口实现满足 infraClock.Clock
var _ infraClock.Clock = (*MockClock)(nil)
