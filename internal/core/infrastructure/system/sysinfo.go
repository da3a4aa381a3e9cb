// Package system 提供宿主机内存与负载信息
package system

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/pbnjay/memory"

	"github.com/weisyn/memwatch/pkg/interfaces/host"
)

// Info 基于 pbnjay/memory 的系统信息实现
//
// FreeMemory 在 Linux 上优先使用 /proc/meminfo 的 MemAvailable（包含可回收的页缓存），
// 读取失败时退回 memory.FreeMemory()。
type Info struct {
	lastInput atomic.Int64 // 最近一次用户输入时间（UnixNano），由宿主通过 Touch 更新
}

// NewInfo 创建系统信息实例
func NewInfo() *Info {
	i := &Info{}
	i.lastInput.Store(time.Now().UnixNano())
	return i
}

// TotalMemory 物理内存总量
func (i *Info) TotalMemory() uint64 {
	return memory.TotalMemory()
}

// FreeMemory 可用内存
func (i *Info) FreeMemory() uint64 {
	if avail, ok := availableMemory(); ok {
		return avail
	}
	return memory.FreeMemory()
}

// NumCPU 逻辑 CPU 数
func (i *Info) NumCPU() int {
	return runtime.NumCPU()
}

// LoadAverage 1/5/15 分钟平均负载，不支持的平台返回 0
func (i *Info) LoadAverage() [3]float64 {
	return loadAverage()
}

// Touch 记录一次用户输入
func (i *Info) Touch() {
	i.lastInput.Store(time.Now().UnixNano())
}

// IdleDuration 距最近一次用户输入的时长
func (i *Info) IdleDuration() time.Duration {
	return time.Since(time.Unix(0, i.lastInput.Load()))
}

var (
	_ host.SystemInfo   = (*Info)(nil)
	_ host.IdleReporter = (*Info)(nil)
)
