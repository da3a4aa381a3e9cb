//go:build unix

// Package process 以操作系统进程作为监控目标
//
// 内存取 /proc/<pid>/status 的 VmRSS，CPU 由 /proc/<pid>/stat 的累计滴答差值推算，
// 重载通过发送信号实现（默认 SIGHUP），由被监控进程自行决定如何响应。
package process

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/utils/procfs"
)

// clockTicksPerSecond Linux 用户态 USER_HZ，几乎所有发行版都是 100
const clockTicksPerSecond = 100

// Options 进程目标选项
type Options struct {
	ID           string      // 为空时使用 "pid-<pid>"
	ReloadSignal unix.Signal // 为 0 时使用 SIGHUP
	// QuerySignals 把查询映射为信号，未映射的查询返回 ErrQueryUnsupported
	QuerySignals map[host.QueryKind]unix.Signal
}

// Target 基于 PID 的监控目标
type Target struct {
	pid   int
	id    string
	opts  Options
	clock clock.Clock

	gone atomic.Bool

	mu        sync.Mutex
	lastTicks uint64
	lastAt    time.Time
}

// NewTarget 创建进程目标；进程不存在时返回 host.ErrTargetGone
func NewTarget(pid int, opts Options, clk clock.Clock) (*Target, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("invalid pid %d", pid)
	}
	if opts.ID == "" {
		opts.ID = "pid-" + strconv.Itoa(pid)
	}
	if opts.ReloadSignal == 0 {
		opts.ReloadSignal = unix.SIGHUP
	}
	t := &Target{pid: pid, id: opts.ID, opts: opts, clock: clk}
	if t.Destroyed() {
		return nil, fmt.Errorf("pid %d: %w", pid, host.ErrTargetGone)
	}
	return t, nil
}

// PID 进程号
func (t *Target) PID() int { return t.pid }

// ID 实现 host.Target
func (t *Target) ID() string { return t.id }

// Destroyed 实现 host.Target：进程退出后永久为 true
func (t *Target) Destroyed() bool {
	if t.gone.Load() {
		return true
	}
	if err := unix.Kill(t.pid, 0); errors.Is(err, unix.ESRCH) {
		t.gone.Store(true)
		return true
	}
	return false
}

// ProcessMemory 实现 host.Target
func (t *Target) ProcessMemory(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rss, err := procfs.ReadRSS(t.pid)
	if err != nil {
		return 0, t.wrap(err)
	}
	return rss, nil
}

// CPUPercent 实现 host.Target：两次调用之间的平均 CPU 使用率，首次调用返回 0
func (t *Target) CPUPercent(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ticks, err := procfs.ReadCPUTicks(t.pid)
	if err != nil {
		return 0, t.wrap(err)
	}
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	prevTicks, prevAt := t.lastTicks, t.lastAt
	t.lastTicks, t.lastAt = ticks, now
	if prevAt.IsZero() || ticks < prevTicks {
		return 0, nil
	}
	elapsed := now.Sub(prevAt).Seconds()
	if elapsed <= 0 {
		return 0, nil
	}
	cpuSeconds := float64(ticks-prevTicks) / clockTicksPerSecond
	return cpuSeconds / elapsed * 100, nil
}

// Reload 实现 host.Target：发送重载信号
func (t *Target) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.signal(t.opts.ReloadSignal)
}

// Query 实现 host.Target：只支持映射为信号的查询，结果为空
func (t *Target) Query(ctx context.Context, q host.Query) (host.QueryResult, error) {
	sig, ok := t.opts.QuerySignals[q.Kind]
	if !ok {
		return host.QueryResult{}, host.ErrQueryUnsupported
	}
	if err := ctx.Err(); err != nil {
		return host.QueryResult{}, err
	}
	return host.QueryResult{}, t.signal(sig)
}

func (t *Target) signal(sig unix.Signal) error {
	if err := unix.Kill(t.pid, sig); err != nil {
		return t.wrap(fmt.Errorf("signal %s: %w", unix.SignalName(sig), err))
	}
	return nil
}

// wrap 进程已退出时转换为 host.ErrTargetGone
func (t *Target) wrap(err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, unix.ESRCH) {
		t.gone.Store(true)
		return fmt.Errorf("pid %d: %w", t.pid, host.ErrTargetGone)
	}
	return err
}

var _ host.Target = (*Target)(nil)
