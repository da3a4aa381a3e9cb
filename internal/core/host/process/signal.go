//go:build unix

package process

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// ParseSignal 解析信号名，接受 "HUP"、"SIGHUP"、"sighup"
func ParseSignal(name string) (unix.Signal, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(n, "SIG") {
		n = "SIG" + n
	}
	sig := unix.SignalNum(n)
	if sig == 0 {
		return 0, fmt.Errorf("unknown signal %q", name)
	}
	return sig, nil
}
