// Package metrics 提供组件自身内存上报器的注册和收集工具
package metrics

import (
	"sort"
	"sync"

	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
)

// Registry 内存上报器注册表
//
// 线程安全；同名上报器重复注册时后者覆盖前者，
// 这样功能被反复启用时不会累积过期的上报器。
type Registry struct {
	mu        sync.RWMutex
	reporters map[string]metrics.MemoryReporter
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{reporters: make(map[string]metrics.MemoryReporter)}
}

// Register 注册一个内存上报器，nil 忽略
func (r *Registry) Register(rep metrics.MemoryReporter) {
	if rep == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reporters[rep.ModuleName()] = rep
}

// Unregister 按名称移除上报器
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reporters, name)
}

// ForEach 按名称顺序遍历上报器
func (r *Registry) ForEach(fn func(metrics.MemoryReporter)) {
	if fn == nil {
		return
	}
	for _, rep := range r.sorted() {
		fn(rep)
	}
}

// CollectAll 收集所有已注册组件的统计，按组件名排序
// 单个上报器 panic 时跳过该组件，不影响其他组件
func (r *Registry) CollectAll() []metrics.ModuleMemoryStats {
	reps := r.sorted()
	stats := make([]metrics.ModuleMemoryStats, 0, len(reps))
	for _, rep := range reps {
		func() {
			defer func() {
				_ = recover()
			}()
			stats = append(stats, rep.CollectMemoryStats())
		}()
	}
	return stats
}

// TotalApproxBytes 汇总所有组件的估算字节数
func (r *Registry) TotalApproxBytes() int64 {
	var total int64
	for _, s := range r.CollectAll() {
		total += s.ApproxBytes
	}
	return total
}

// Count 返回已注册的上报器数量
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reporters)
}

func (r *Registry) sorted() []metrics.MemoryReporter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]metrics.MemoryReporter, 0, len(r.reporters))
	for _, rep := range r.reporters {
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleName() < out[j].ModuleName() })
	return out
}
