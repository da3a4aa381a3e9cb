// Package clock provides clock interfaces.
package clock

import "time"

// Clock 提供统一的时间源接口（基础设施层接口）
//
// 所有采样、冷却与定时任务都通过 Clock 读时间和建定时器，
// 测试中以 MockClock 替换后可以精确推进时间。
type Clock interface {
	// Now 获取当前时间
	Now() time.Time

	// Since 计算从指定时间到现在的持续时间
	Since(t time.Time) time.Duration

	// Unix 获取当前Unix时间戳（秒）
	Unix() int64

	// UnixNano 获取当前Unix时间戳（纳秒）
	UnixNano() int64

	// After 在 d 之后向返回的通道发送当前时间
	After(d time.Duration) <-chan time.Time

	// NewTicker 创建周期定时器
	NewTicker(d time.Duration) Ticker
}

// Ticker 周期定时器
type Ticker interface {
	C() <-chan time.Time
	Stop()
}
