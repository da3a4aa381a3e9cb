package feature

import (
	"sync"
	"time"

	"github.com/weisyn/memwatch/pkg/types"
)

// Accumulator 线程安全的功能运行统计
type Accumulator struct {
	mu sync.RWMutex
	m  types.FeatureMetrics
}

// Activated 记录一次启用
func (a *Accumulator) Activated() {
	a.mu.Lock()
	a.m.Activations++
	a.mu.Unlock()
}

// Ran 记录一次运行时间
func (a *Accumulator) Ran(at time.Time) {
	a.mu.Lock()
	if at.After(a.m.LastRunAt) {
		a.m.LastRunAt = at
	}
	a.mu.Unlock()
}

// Saved 累加回收的字节数
func (a *Accumulator) Saved(bytes uint64) {
	a.mu.Lock()
	a.m.TotalBytesSaved += bytes
	a.mu.Unlock()
}

// Snapshot 返回当前统计
func (a *Accumulator) Snapshot() types.FeatureMetrics {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.m
}
