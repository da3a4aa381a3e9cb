package diagnostics

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/weisyn/memwatch/pkg/utils/procfs"
)

// HostStats 监控进程自身的内存统计
type HostStats struct {
	HeapAlloc   uint64 // 当前堆分配
	HeapSys     uint64 // 从 OS 获取的堆内存
	HeapIdle    uint64 // 空闲但未归还的堆内存
	HeapInuse   uint64
	HeapObjects uint64
	Sys         uint64
	RSS         uint64 // 进程实际占用的物理内存，读取失败时为 0

	NumGC        uint32
	PauseTotalNs uint64
	Goroutines   int
	Timestamp    time.Time
}

// ReadHostStats 读取当前进程的堆与 RSS
func ReadHostStats(now time.Time) HostStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	rss, _ := procfs.ReadRSS(0)

	return HostStats{
		HeapAlloc:    m.Alloc,
		HeapSys:      m.HeapSys,
		HeapIdle:     m.HeapIdle,
		HeapInuse:    m.HeapInuse,
		HeapObjects:  m.HeapObjects,
		Sys:          m.Sys,
		RSS:          rss,
		NumGC:        m.NumGC,
		PauseTotalNs: m.PauseTotalNs,
		Goroutines:   runtime.NumGoroutine(),
		Timestamp:    now,
	}
}

// ReleaseHostMemory 强制 GC 并把空闲页归还 OS，返回前后统计
func ReleaseHostMemory(now func() time.Time) (before, after HostStats) {
	before = ReadHostStats(now())
	runtime.GC()
	debug.FreeOSMemory()
	after = ReadHostStats(now())
	return before, after
}

// FormatHostStats 文本形式的进程内存统计
func FormatHostStats(s HostStats) string {
	var b strings.Builder
	b.WriteString("================ 进程内存 ================\n")
	fmt.Fprintf(&b, "时间:        %s\n", s.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "RSS:         %s\n", rssText(s.RSS))
	fmt.Fprintf(&b, "HeapAlloc:   %s\n", humanize.IBytes(s.HeapAlloc))
	fmt.Fprintf(&b, "HeapSys:     %s\n", humanize.IBytes(s.HeapSys))
	fmt.Fprintf(&b, "HeapIdle:    %s\n", humanize.IBytes(s.HeapIdle))
	fmt.Fprintf(&b, "HeapObjects: %s\n", humanize.Comma(int64(s.HeapObjects)))
	fmt.Fprintf(&b, "Sys:         %s\n", humanize.IBytes(s.Sys))
	fmt.Fprintf(&b, "GC:          %d 次，累计暂停 %s\n", s.NumGC, time.Duration(s.PauseTotalNs))
	fmt.Fprintf(&b, "Goroutines:  %d\n", s.Goroutines)
	return b.String()
}

// CompareHostStats 两次统计的差值摘要
func CompareHostStats(before, after HostStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RSS:       %s -> %s (%s)\n", rssText(before.RSS), rssText(after.RSS), signedBytes(int64(after.RSS)-int64(before.RSS)))
	fmt.Fprintf(&b, "HeapAlloc: %s -> %s (%s)\n", humanize.IBytes(before.HeapAlloc), humanize.IBytes(after.HeapAlloc),
		signedBytes(int64(after.HeapAlloc)-int64(before.HeapAlloc)))
	fmt.Fprintf(&b, "HeapIdle:  %s -> %s (%s)\n", humanize.IBytes(before.HeapIdle), humanize.IBytes(after.HeapIdle),
		signedBytes(int64(after.HeapIdle)-int64(before.HeapIdle)))
	return b.String()
}

func rssText(rss uint64) string {
	if rss == 0 {
		return "N/A"
	}
	return humanize.IBytes(rss)
}

func signedBytes(delta int64) string {
	if delta < 0 {
		return "-" + humanize.IBytes(uint64(-delta))
	}
	return "+" + humanize.IBytes(uint64(delta))
}
