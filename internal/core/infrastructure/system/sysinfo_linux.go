//go:build linux

package system

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// loadShift sysinfo(2) 的负载定点小数位数
const loadShift = 16

func loadAverage() [3]float64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return [3]float64{}
	}
	var out [3]float64
	for i := range out {
		out[i] = float64(info.Loads[i]) / float64(uint64(1)<<loadShift)
	}
	return out
}

// availableMemory 读取 /proc/meminfo 的 MemAvailable（单位 kB）
func availableMemory() (uint64, bool) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, false
	}
	defer f.Close()
	return parseMemAvailable(bufio.NewScanner(f))
}

func parseMemAvailable(scanner *bufio.Scanner) (uint64, bool) {
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return kb * 1024, true
	}
	return 0, false
}
