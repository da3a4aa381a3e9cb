// Package host 定义内存压力管理子系统与宿主之间的接口
//
// 子系统不直接依赖任何渲染或窗口实现，只通过这里的接口读取
// 目标（承载网页内容的表面）的进程内存、发送重载与查询指令。
package host

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrQueryUnsupported 目标不支持该查询
	ErrQueryUnsupported = errors.New("query not supported by target")
	// ErrTargetGone 目标已销毁
	ErrTargetGone = errors.New("target destroyed")
)

// QueryKind 目标查询类型
type QueryKind string

const (
	QueryHeapUsage          QueryKind = "heap_usage"          // 目标内脚本堆使用量（字节）
	QueryDOMSize            QueryKind = "dom_size"            // 文档节点数
	QueryFrameRate          QueryKind = "frame_rate"          // 最近一秒的帧率
	QuerySaveRecoveryState  QueryKind = "save_recovery_state" // 返回可在重载后恢复的状态
	QueryPruneOffscreen     QueryKind = "prune_offscreen"     // 释放离屏内容，返回释放的字节估算
	QueryReleaseConnections QueryKind = "release_connections" // 关闭空闲连接
	QueryRequestGC          QueryKind = "request_gc"          // 请求垃圾回收
)

// Query 发给目标的类型化查询
type Query struct {
	Kind QueryKind
}

// QueryResult 查询结果；数值类查询用 Value，状态类查询用 Payload
type QueryResult struct {
	Value   float64
	Payload []byte
}

// Target 被监控的内容表面
type Target interface {
	// ID 目标的稳定标识
	ID() string
	// Destroyed 目标是否已销毁
	Destroyed() bool
	// ProcessMemory 目标进程当前占用的内存（字节）
	ProcessMemory(ctx context.Context) (uint64, error)
	// CPUPercent 目标进程的 CPU 使用率（0-100 × 核数）
	CPUPercent(ctx context.Context) (float64, error)
	// Reload 重载目标
	Reload(ctx context.Context) error
	// Query 执行类型化查询，不支持时返回 ErrQueryUnsupported
	Query(ctx context.Context, q Query) (QueryResult, error)
}

// Registry 宿主持有的目标集合
type Registry interface {
	// Targets 返回当前所有目标（含可能刚被销毁的）
	Targets() []Target
	// Get 按 ID 查找目标
	Get(id string) (Target, bool)
}

// SystemInfo 系统资源信息
type SystemInfo interface {
	TotalMemory() uint64
	FreeMemory() uint64
	NumCPU() int
	LoadAverage() [3]float64
}

// IdleReporter 可选能力：报告用户空闲时长
type IdleReporter interface {
	IdleDuration() time.Duration
}
