package leak

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/weisyn/memwatch/pkg/types"
)

// FormatLeaks 文本形式的泄漏报告
func FormatLeaks(leaks []types.LeakPattern) string {
	var b strings.Builder
	b.WriteString("================================================================================\n")
	b.WriteString("                              泄漏检测报告\n")
	b.WriteString("================================================================================\n")
	if len(leaks) == 0 {
		b.WriteString("未检测到泄漏\n")
	}
	for _, l := range leaks {
		fmt.Fprintf(&b, "%s: %s（置信度 %.0f%%，%d 个样本）\n", l.TargetID, l.Type, l.Confidence*100, l.SampleWindow)
		if l.GrowthRateBytesPerMinute > 0 {
			fmt.Fprintf(&b, "  增长速率: %s/分钟\n", humanize.IBytes(uint64(l.GrowthRateBytesPerMinute)))
		}
		if !l.DetectedAt.IsZero() {
			fmt.Fprintf(&b, "  检测时间: %s\n", l.DetectedAt.Format("2006-01-02 15:04:05"))
		}
	}
	b.WriteString("================================================================================\n")
	return b.String()
}
