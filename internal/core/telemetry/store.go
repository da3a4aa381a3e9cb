// Package telemetry 按目标采样进程内存并计算系统压力
package telemetry

import (
	"sort"
	"sync"
	"time"
	"unsafe"

	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	"github.com/weisyn/memwatch/pkg/types"
	"github.com/weisyn/memwatch/pkg/utils/history"
)

// TargetState 目标状态的只读快照
type TargetState struct {
	TargetID                 string               `json:"target_id"`
	Samples                  []types.MemorySample `json:"samples"`
	LastRemediationAt        time.Time            `json:"last_remediation_at"`
	LastCleanupAt            time.Time            `json:"last_cleanup_at"`
	RemediationCount         int                  `json:"remediation_count"`
	GrowthRateBytesPerMinute float64              `json:"growth_rate_bytes_per_minute"`
	PredictedExhaustionAt    *time.Time           `json:"predicted_exhaustion_at,omitempty"`
	DecisionState            types.DecisionState  `json:"decision_state"`
}

// CurrentBytes 最新样本的内存值
func (s TargetState) CurrentBytes() (uint64, bool) {
	if len(s.Samples) == 0 {
		return 0, false
	}
	return s.Samples[len(s.Samples)-1].MemoryBytes, true
}

type targetState struct {
	samples           *history.Ring[types.MemorySample]
	lastRemediationAt time.Time
	lastCleanupAt     time.Time
	remediationCount  int
	growthRate        float64
	predicted         *time.Time
	decision          types.DecisionState
}

// Store 按目标 ID 持有样本环与修复状态
//
// 每个方法都是一次 读取-计算-写入 的完整状态转换，在同一把锁内完成。
type Store struct {
	capacity int

	mu      sync.RWMutex
	targets map[string]*targetState
}

// NewStore 创建存储，capacity 为每个目标的样本环容量
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{capacity: capacity, targets: make(map[string]*targetState)}
}

// Capacity 每个目标的样本容量
func (s *Store) Capacity() int { return s.capacity }

func (s *Store) ensureLocked(id string) *targetState {
	st, ok := s.targets[id]
	if !ok {
		st = &targetState{
			samples:  history.NewRing[types.MemorySample](s.capacity),
			decision: types.DecisionIdle,
		}
		s.targets[id] = st
	}
	return st
}

// Ensure 创建目标状态，已存在时返回 false
func (s *Store) Ensure(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.targets[id]; ok {
		return false
	}
	s.ensureLocked(id)
	return true
}

// Remove 丢弃目标状态及其历史
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.targets[id]
	if ok {
		st.samples.Reset()
		delete(s.targets, id)
	}
	return ok
}

// Has 是否持有目标
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.targets[id]
	return ok
}

// IDs 排序后的目标 ID
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.targets))
	for id := range s.targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len 目标数
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.targets)
}

// Append 追加一个样本，目标不存在时先创建；增量相对上一个样本计算
func (s *Store) Append(id string, at time.Time, bytes uint64) types.MemorySample {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ensureLocked(id)

	sample := types.MemorySample{Timestamp: at, MemoryBytes: bytes}
	if prev, ok := st.samples.Latest(); ok {
		if at.Before(prev.Timestamp) {
			sample.Timestamp = prev.Timestamp
		}
		sample.DeltaFromPrevious = int64(bytes) - int64(prev.MemoryBytes)
	}
	st.samples.Push(sample)
	return sample
}

// Samples 目标样本（从旧到新）
func (s *Store) Samples(id string) []types.MemorySample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.targets[id]; ok {
		return st.samples.Snapshot()
	}
	return nil
}

// Latest 最新样本
func (s *Store) Latest(id string) (types.MemorySample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.targets[id]; ok {
		return st.samples.Latest()
	}
	return types.MemorySample{}, false
}

// SetGrowth 更新增长速率与预测耗尽时间
func (s *Store) SetGrowth(id string, rate float64, predicted *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.targets[id]
	if !ok {
		return
	}
	st.growthRate = rate
	if predicted != nil {
		p := *predicted
		st.predicted = &p
	} else {
		st.predicted = nil
	}
}

// SetDecision 更新决策状态
func (s *Store) SetDecision(id string, state types.DecisionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.targets[id]; ok {
		st.decision = state
	}
}

// MarkRemediated 记录一次重载：推进冷却时间、计数加一、清空样本
// 冷却时间只向前推进
func (s *Store) MarkRemediated(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.targets[id]
	if !ok {
		return
	}
	if at.After(st.lastRemediationAt) {
		st.lastRemediationAt = at
	}
	st.remediationCount++
	st.samples.Reset()
	st.growthRate = 0
	st.predicted = nil
	st.decision = types.DecisionTriggered
}

// MarkCleanedUp 记录一次轻量清理，只推进清理冷却
func (s *Store) MarkCleanedUp(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.targets[id]
	if !ok {
		return
	}
	if at.After(st.lastCleanupAt) {
		st.lastCleanupAt = at
	}
}

// State 目标状态快照
func (s *Store) State(id string) (TargetState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.targets[id]
	if !ok {
		return TargetState{}, false
	}
	return st.snapshot(id), true
}

// States 全部目标状态快照，按 ID 排序
func (s *Store) States() []TargetState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TargetState, 0, len(s.targets))
	for id, st := range s.targets {
		out = append(out, st.snapshot(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out
}

// Reset 丢弃全部目标状态
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, st := range s.targets {
		st.samples.Reset()
		delete(s.targets, id)
	}
}

func (st *targetState) snapshot(id string) TargetState {
	out := TargetState{
		TargetID:                 id,
		Samples:                  st.samples.Snapshot(),
		LastRemediationAt:        st.lastRemediationAt,
		LastCleanupAt:            st.lastCleanupAt,
		RemediationCount:         st.remediationCount,
		GrowthRateBytesPerMinute: st.growthRate,
		DecisionState:            st.decision,
	}
	if st.predicted != nil {
		p := *st.predicted
		out.PredictedExhaustionAt = &p
	}
	return out
}

// ModuleName 实现 MemoryReporter
func (s *Store) ModuleName() string { return "telemetry.store" }

// CollectMemoryStats 实现 MemoryReporter
func (s *Store) CollectMemoryStats() metrics.ModuleMemoryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var queued int64
	for _, st := range s.targets {
		queued += int64(st.samples.Len())
	}
	sampleSize := int64(unsafe.Sizeof(types.MemorySample{}))
	return metrics.ModuleMemoryStats{
		Module:      s.ModuleName(),
		Layer:       "core",
		Objects:     int64(len(s.targets)),
		ApproxBytes: int64(len(s.targets)) * int64(s.capacity) * sampleSize,
		QueueLength: queued,
	}
}
