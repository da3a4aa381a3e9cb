// Package procfs 读取 Linux /proc 下的进程内存与 CPU 计数
//
// 非 Linux 平台上文件不存在，调用方按读取失败处理。
package procfs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrFieldMissing 文件中没有所需字段
var ErrFieldMissing = errors.New("procfs: field missing")

// StatusPath 返回 /proc/<pid>/status 路径，pid <= 0 表示当前进程
func StatusPath(pid int) string {
	if pid <= 0 {
		return "/proc/self/status"
	}
	return fmt.Sprintf("/proc/%d/status", pid)
}

// StatPath 返回 /proc/<pid>/stat 路径，pid <= 0 表示当前进程
func StatPath(pid int) string {
	if pid <= 0 {
		return "/proc/self/stat"
	}
	return fmt.Sprintf("/proc/%d/stat", pid)
}

// ReadRSS 读取进程的 VmRSS（字节）
func ReadRSS(pid int) (uint64, error) {
	f, err := os.Open(StatusPath(pid))
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ParseRSS(f)
}

// ParseRSS 从 status 内容中解析 VmRSS，单位 kB 换算为字节
func ParseRSS(r io.Reader) (uint64, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, fmt.Errorf("procfs: malformed VmRSS line %q", line)
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("procfs: parse VmRSS: %w", err)
		}
		return kb * 1024, nil
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return 0, ErrFieldMissing
}

// ReadCPUTicks 读取进程累计的 utime+stime（时钟滴答）
func ReadCPUTicks(pid int) (uint64, error) {
	b, err := os.ReadFile(StatPath(pid))
	if err != nil {
		return 0, err
	}
	return ParseCPUTicks(string(b))
}

// ParseCPUTicks 解析 stat 第 14、15 字段
//
// 第 2 字段 comm 可能包含空格和括号，因此从最后一个 ')' 之后开始切分。
func ParseCPUTicks(stat string) (uint64, error) {
	end := strings.LastIndexByte(stat, ')')
	if end < 0 {
		return 0, fmt.Errorf("procfs: malformed stat")
	}
	// ')' 之后从第 3 字段 state 开始
	fields := strings.Fields(stat[end+1:])
	const utimeIdx, stimeIdx = 14 - 3, 15 - 3
	if len(fields) <= stimeIdx {
		return 0, ErrFieldMissing
	}
	utime, err := strconv.ParseUint(fields[utimeIdx], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("procfs: parse utime: %w", err)
	}
	stime, err := strconv.ParseUint(fields[stimeIdx], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("procfs: parse stime: %w", err)
	}
	return utime + stime, nil
}
