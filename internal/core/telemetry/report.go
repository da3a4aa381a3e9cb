package telemetry

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/weisyn/memwatch/pkg/types"
)

// FormatPressure 文本形式的压力报告：当前快照、历史等级分布与各目标状态
func FormatPressure(current types.SystemPressureSnapshot, history []types.SystemPressureSnapshot, states []TargetState) string {
	var b strings.Builder
	b.WriteString("================================================================================\n")
	b.WriteString("                              内存压力报告\n")
	b.WriteString("================================================================================\n")
	if current.Timestamp.IsZero() {
		b.WriteString("尚未采样\n")
	} else {
		fmt.Fprintf(&b, "采样时间: %s\n", current.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "系统内存: %s / %s 可用（已用 %.1f%%）\n",
			humanize.IBytes(current.FreeBytes), humanize.IBytes(current.TotalBytes), current.PercentUsed)
		fmt.Fprintf(&b, "压力等级: %s\n", current.PressureLevel)
	}

	if len(history) > 0 {
		counts := make(map[types.PressureLevel]int, 4)
		for _, s := range history {
			counts[s.PressureLevel]++
		}
		fmt.Fprintf(&b, "\n历史（%d 次采样，自 %s）:\n", len(history), history[0].Timestamp.Format("15:04:05"))
		for _, level := range []types.PressureLevel{types.PressureLow, types.PressureMedium, types.PressureHigh, types.PressureCritical} {
			if n := counts[level]; n > 0 {
				fmt.Fprintf(&b, "  - %-9s %d\n", level, n)
			}
		}
	}

	if len(states) > 0 {
		b.WriteString("\n目标:\n")
		for _, st := range states {
			cur, _ := st.CurrentBytes()
			fmt.Fprintf(&b, "  - %-20s %10s", st.TargetID, humanize.IBytes(cur))
			if st.GrowthRateBytesPerMinute > 0 {
				fmt.Fprintf(&b, "  +%s/分钟", humanize.IBytes(uint64(st.GrowthRateBytesPerMinute)))
			}
			if st.PredictedExhaustionAt != nil {
				fmt.Fprintf(&b, "  预计 %s 耗尽", st.PredictedExhaustionAt.Format("15:04:05"))
			}
			if st.RemediationCount > 0 {
				fmt.Fprintf(&b, "  已修复 %d 次", st.RemediationCount)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("================================================================================\n")
	return b.String()
}
