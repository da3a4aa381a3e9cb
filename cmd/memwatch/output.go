package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"

	"github.com/weisyn/memwatch/internal/core/telemetry"
	"github.com/weisyn/memwatch/pkg/types"
)

// printJSON 以缩进 JSON 写到标准输出
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderPressure 压力快照表格
func renderPressure(s types.SystemPressureSnapshot) error {
	return pterm.DefaultTable.WithHasHeader(false).WithData(pterm.TableData{
		{"总内存", humanize.IBytes(s.TotalBytes)},
		{"可用", humanize.IBytes(s.FreeBytes)},
		{"已用", fmt.Sprintf("%.1f%%", s.PercentUsed)},
		{"压力等级", levelText(s.PressureLevel)},
	}).Render()
}

func levelText(l types.PressureLevel) string {
	switch l {
	case types.PressureCritical:
		return pterm.Red(string(l))
	case types.PressureHigh:
		return pterm.LightRed(string(l))
	case types.PressureMedium:
		return pterm.Yellow(string(l))
	default:
		return pterm.Green(string(l))
	}
}

// renderTargets 目标状态表格
func renderTargets(states []telemetry.TargetState) error {
	if len(states) == 0 {
		pterm.Info.Println("没有监控目标")
		return nil
	}
	data := pterm.TableData{{"目标", "内存", "增长/分钟", "预计耗尽", "修复次数", "状态"}}
	for _, st := range states {
		cur, _ := st.CurrentBytes()
		exhaust := "-"
		if st.PredictedExhaustionAt != nil {
			exhaust = humanize.Time(*st.PredictedExhaustionAt)
		}
		data = append(data, []string{
			st.TargetID,
			humanize.IBytes(cur),
			humanize.IBytes(uint64(max(st.GrowthRateBytesPerMinute, 0))),
			exhaust,
			strconv.Itoa(st.RemediationCount),
			string(st.DecisionState),
		})
	}
	return pterm.DefaultTable.WithHasHeader(true).WithData(data).Render()
}

// renderRemediations 修复历史表格
func renderRemediations(events []types.RemediationEvent) error {
	if len(events) == 0 {
		return nil
	}
	data := pterm.TableData{{"时间", "目标", "动作", "原因", "节省", "结果"}}
	for _, ev := range events {
		result := pterm.Green("ok")
		if !ev.Succeeded() {
			result = pterm.Red(ev.Error)
		}
		data = append(data, []string{
			ev.Timestamp.Format("15:04:05"),
			ev.TargetID,
			string(ev.Action),
			string(ev.Reason),
			humanize.IBytes(ev.MemorySavedBytes),
			result,
		})
	}
	return pterm.DefaultTable.WithHasHeader(true).WithData(data).Render()
}
