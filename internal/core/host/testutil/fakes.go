// Package testutil 提供宿主接口的测试替身
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/weisyn/memwatch/pkg/interfaces/host"
)

const MiB = 1 << 20

// FakeTarget 可编程的目标
type FakeTarget struct {
	mu sync.Mutex

	id        string
	memory    uint64
	memErr    error
	cpu       float64
	destroyed bool

	reloads     int
	reloadErr   error
	afterReload *uint64

	results map[host.QueryKind]host.QueryResult
	errs    map[host.QueryKind]error
	blocked map[host.QueryKind]bool
	queries []host.QueryKind
}

// NewFakeTarget 创建目标，初始内存为 memory 字节
func NewFakeTarget(id string, memory uint64) *FakeTarget {
	return &FakeTarget{
		id:      id,
		memory:  memory,
		results: make(map[host.QueryKind]host.QueryResult),
		errs:    make(map[host.QueryKind]error),
		blocked: make(map[host.QueryKind]bool),
	}
}

func (f *FakeTarget) ID() string { return f.id }

func (f *FakeTarget) Destroyed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed
}

func (f *FakeTarget) ProcessMemory(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyed {
		return 0, host.ErrTargetGone
	}
	if f.memErr != nil {
		return 0, f.memErr
	}
	return f.memory, nil
}

func (f *FakeTarget) CPUPercent(ctx context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cpu, nil
}

func (f *FakeTarget) Reload(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	if f.reloadErr != nil {
		return f.reloadErr
	}
	if f.afterReload != nil {
		f.memory = *f.afterReload
	}
	return nil
}

func (f *FakeTarget) Query(ctx context.Context, q host.Query) (host.QueryResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q.Kind)
	blocked := f.blocked[q.Kind]
	res, ok := f.results[q.Kind]
	err := f.errs[q.Kind]
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return host.QueryResult{}, ctx.Err()
	}
	if err != nil {
		return host.QueryResult{}, err
	}
	if !ok {
		return host.QueryResult{}, host.ErrQueryUnsupported
	}
	return res, nil
}

// SetMemory 设置当前内存
func (f *FakeTarget) SetMemory(bytes uint64) {
	f.mu.Lock()
	f.memory = bytes
	f.mu.Unlock()
}

// SetMemoryError 设置读取内存时的错误
func (f *FakeTarget) SetMemoryError(err error) {
	f.mu.Lock()
	f.memErr = err
	f.mu.Unlock()
}

// SetCPU 设置 CPU 使用率
func (f *FakeTarget) SetCPU(percent float64) {
	f.mu.Lock()
	f.cpu = percent
	f.mu.Unlock()
}

// Destroy 标记为已销毁
func (f *FakeTarget) Destroy() {
	f.mu.Lock()
	f.destroyed = true
	f.mu.Unlock()
}

// SetReloadResult 重载成功后内存变为 bytes
func (f *FakeTarget) SetReloadResult(bytes uint64) {
	f.mu.Lock()
	f.afterReload = &bytes
	f.mu.Unlock()
}

// SetReloadError 重载失败
func (f *FakeTarget) SetReloadError(err error) {
	f.mu.Lock()
	f.reloadErr = err
	f.mu.Unlock()
}

// SetQuery 设置查询结果
func (f *FakeTarget) SetQuery(kind host.QueryKind, res host.QueryResult) {
	f.mu.Lock()
	f.results[kind] = res
	f.mu.Unlock()
}

// SetQueryError 设置查询错误
func (f *FakeTarget) SetQueryError(kind host.QueryKind, err error) {
	f.mu.Lock()
	f.errs[kind] = err
	f.mu.Unlock()
}

// BlockQuery 该查询一直阻塞到 ctx 结束
func (f *FakeTarget) BlockQuery(kind host.QueryKind) {
	f.mu.Lock()
	f.blocked[kind] = true
	f.mu.Unlock()
}

// Reloads 已执行的重载次数
func (f *FakeTarget) Reloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reloads
}

// Queries 已收到的查询
func (f *FakeTarget) Queries() []host.QueryKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]host.QueryKind(nil), f.queries...)
}

// FakeSystem 可编程的系统信息
type FakeSystem struct {
	mu    sync.Mutex
	total uint64
	free  uint64
	cpus  int
	load  [3]float64
	idle  time.Duration
}

// NewFakeSystem 创建系统信息
func NewFakeSystem(total, free uint64) *FakeSystem {
	return &FakeSystem{total: total, free: free, cpus: 4}
}

func (s *FakeSystem) TotalMemory() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *FakeSystem) FreeMemory() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.free
}

func (s *FakeSystem) NumCPU() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cpus
}

func (s *FakeSystem) LoadAverage() [3]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load
}

func (s *FakeSystem) IdleDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idle
}

// SetFree 设置可用内存
func (s *FakeSystem) SetFree(free uint64) {
	s.mu.Lock()
	s.free = free
	s.mu.Unlock()
}

// SetIdle 设置用户空闲时长
func (s *FakeSystem) SetIdle(d time.Duration) {
	s.mu.Lock()
	s.idle = d
	s.mu.Unlock()
}

var (
	_ host.Target       = (*FakeTarget)(nil)
	_ host.SystemInfo   = (*FakeSystem)(nil)
	_ host.IdleReporter = (*FakeSystem)(nil)
)
