package remediation

import (
	"unsafe"

	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	"github.com/weisyn/memwatch/pkg/types"
	"github.com/weisyn/memwatch/pkg/utils/history"
)

// History 定长修复历史
type History struct {
	ring *history.Ring[types.RemediationEvent]
}

// NewHistory 创建历史，容量不足 1 时按 1 处理
func NewHistory(capacity int) *History {
	return &History{ring: history.NewRing[types.RemediationEvent](capacity)}
}

// Record 追加一条记录
func (h *History) Record(e types.RemediationEvent) { h.ring.Push(e) }

// Events 全部记录（从旧到新）
func (h *History) Events() []types.RemediationEvent { return h.ring.Snapshot() }

// ForTarget 某目标的记录
func (h *History) ForTarget(targetID string) []types.RemediationEvent {
	var out []types.RemediationEvent
	for _, e := range h.ring.Snapshot() {
		if e.TargetID == targetID {
			out = append(out, e)
		}
	}
	return out
}

// TotalSaved 历史中累计节省的字节数
func (h *History) TotalSaved() uint64 {
	var total uint64
	for _, e := range h.ring.Snapshot() {
		total += e.MemorySavedBytes
	}
	return total
}

// Len 当前记录数
func (h *History) Len() int { return h.ring.Len() }

// Reset 清空
func (h *History) Reset() { h.ring.Reset() }

// ModuleName 实现 MemoryReporter
func (h *History) ModuleName() string { return "remediation.history" }

// CollectMemoryStats 实现 MemoryReporter
func (h *History) CollectMemoryStats() metrics.ModuleMemoryStats {
	n := int64(h.ring.Len())
	return metrics.ModuleMemoryStats{
		Module:      h.ModuleName(),
		Layer:       "core",
		Objects:     n,
		ApproxBytes: int64(h.ring.Cap()) * int64(unsafe.Sizeof(types.RemediationEvent{})),
		QueueLength: n,
	}
}
