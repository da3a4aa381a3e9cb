// Package host 宿主侧目标注册表与进程目标实现
package host

import (
	"sort"
	"sync"

	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
)

// Registry 按 ID 持有目标，显式 Attach / Detach
type Registry struct {
	mu      sync.RWMutex
	targets map[string]host.Target
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]host.Target)}
}

// Attach 加入目标，ID 已存在时返回 false
func (r *Registry) Attach(t host.Target) bool {
	if t == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.targets[t.ID()]; exists {
		return false
	}
	r.targets[t.ID()] = t
	return true
}

// Detach 移除目标
func (r *Registry) Detach(id string) (host.Target, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[id]
	if ok {
		delete(r.targets, id)
	}
	return t, ok
}

// Targets 按 ID 排序返回全部目标
func (r *Registry) Targets() []host.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]host.Target, 0, len(r.targets))
	for _, t := range r.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Get 按 ID 查找
func (r *Registry) Get(id string) (host.Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[id]
	return t, ok
}

// Len 目标数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}

// ModuleName 实现 MemoryReporter
func (r *Registry) ModuleName() string { return "host.registry" }

// CollectMemoryStats 实现 MemoryReporter
func (r *Registry) CollectMemoryStats() metrics.ModuleMemoryStats {
	n := int64(r.Len())
	return metrics.ModuleMemoryStats{Module: r.ModuleName(), Layer: "core", Objects: n}
}

var _ host.Registry = (*Registry)(nil)
