package diagnostics

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/weisyn/memwatch/internal/core/leak"
	"github.com/weisyn/memwatch/pkg/types"
)

// 得分扣分权重，满分 100
const (
	weightCPU     = 25
	weightMemory  = 25
	weightFPS     = 20
	weightLag     = 15
	weightLeak    = 10
	weightAnomaly = 5 // 高严重度异常每次扣 1 分，最多扣 5 分
)

// BuildReport 汇总快照与异常
func BuildReport(cfg Config, now time.Time, snaps []types.PerformanceSnapshot, anomalies []types.PerformanceAnomaly) types.PerformanceReport {
	r := types.PerformanceReport{
		GeneratedAt:   now,
		SampleCount:   len(snaps),
		AnomalyCounts: make(map[types.AnomalyType]int),
	}
	for _, a := range anomalies {
		r.AnomalyCounts[a.Type]++
	}
	if len(snaps) == 0 {
		r.Score = 100
		r.Recommendations = []string{"尚无性能样本，启用 performance-monitor 后再生成报告"}
		return r
	}
	r.Window = snaps[len(snaps)-1].Timestamp.Sub(snaps[0].Timestamp)

	var fps []float64
	cpu := make([]float64, len(snaps))
	heap := make([]float64, len(snaps))
	lag := make([]float64, len(snaps))
	mem := make([]float64, len(snaps))
	for i, s := range snaps {
		cpu[i] = s.CPUPercent
		heap[i] = float64(s.HeapBytes)
		lag[i] = millis(s.EventLoopLag)
		mem[i] = s.SystemMemoryPercent
		if s.FPSSamples > 0 {
			fps = append(fps, s.AverageFPS)
		}
	}
	r.CPU = summarize(cpu)
	r.HeapBytes = summarize(heap)
	r.FPS = summarize(fps)
	r.EventLoopLagMillis = summarize(lag)
	r.SystemMemoryPercent = summarize(mem)

	r.HeapGrowthBytesPerMinute, r.LeakSuspected = heapTrend(cfg, snaps, heap)
	r.Score = score(cfg, r, anomalies)
	r.Recommendations = recommendations(cfg, r)
	return r
}

func summarize(xs []float64) types.MetricSummary {
	if len(xs) == 0 {
		return types.MetricSummary{}
	}
	var sum, peak float64
	for _, x := range xs {
		sum += x
		peak = math.Max(peak, x)
	}
	return types.MetricSummary{Average: sum / float64(len(xs)), Peak: peak}
}

// heapTrend 对堆样本做最小二乘回归，拟合良好且斜率超过下限时判定疑似泄漏
func heapTrend(cfg Config, snaps []types.PerformanceSnapshot, heap []float64) (float64, bool) {
	if len(snaps) < 2 {
		return 0, false
	}
	span := snaps[len(snaps)-1].Timestamp.Sub(snaps[0].Timestamp)
	if span <= 0 {
		return 0, false
	}
	perMinute := float64(time.Minute) / (float64(span) / float64(len(snaps)-1))
	fit := leak.LinearRegression(heap)
	rate := fit.Slope * perMinute
	suspected := len(snaps) >= cfg.HeapLeakMinSamples &&
		fit.RSquared >= cfg.HeapLeakMinRSquared &&
		rate > cfg.HeapLeakFloorBytesPerMin
	return rate, suspected
}

// over 返回 value 超出 threshold 的比例，按 span 归一化到 [0,1]
func over(value, threshold, span float64) float64 {
	if value <= threshold || span <= 0 {
		return 0
	}
	return math.Min(1, (value-threshold)/span)
}

func score(cfg Config, r types.PerformanceReport, anomalies []types.PerformanceAnomaly) int {
	deduct := weightCPU * over(r.CPU.Average, cfg.CPUThresholdPercent, cfg.CPUThresholdPercent)
	deduct += weightMemory * over(r.SystemMemoryPercent.Average, cfg.MemoryThresholdPercent, 100-cfg.MemoryThresholdPercent)
	if r.FPS.Average > 0 {
		deduct += weightFPS * over(cfg.FPSThreshold, r.FPS.Average, cfg.FPSThreshold)
	}
	lagLimit := millis(cfg.LagThreshold)
	deduct += weightLag * over(r.EventLoopLagMillis.Average, lagLimit, lagLimit)
	if r.LeakSuspected {
		deduct += weightLeak
	}
	high := 0
	for _, a := range anomalies {
		if a.Severity == types.SeverityHigh {
			high++
		}
	}
	deduct += math.Min(weightAnomaly, float64(high))

	s := int(math.Round(100 - deduct))
	if s < 0 {
		return 0
	}
	return s
}

func recommendations(cfg Config, r types.PerformanceReport) []string {
	var out []string
	if r.LeakSuspected {
		out = append(out, fmt.Sprintf("监控进程堆内存持续增长约 %s/分钟，抓取 heap profile 排查",
			humanize.IBytes(uint64(r.HeapGrowthBytesPerMinute))))
	}
	if r.CPU.Average > cfg.CPUThresholdPercent {
		out = append(out, fmt.Sprintf("目标 CPU 平均 %.0f%%，检查后台页面中的定时器与动画", r.CPU.Average))
	}
	if r.SystemMemoryPercent.Average > cfg.MemoryThresholdPercent {
		out = append(out, fmt.Sprintf("系统内存平均使用 %.0f%%，减少同时打开的目标或降低修复阈值", r.SystemMemoryPercent.Average))
	}
	if r.FPS.Average > 0 && r.FPS.Average < cfg.FPSThreshold {
		out = append(out, fmt.Sprintf("平均帧率 %.0f，检查渲染负载较重的页面", r.FPS.Average))
	}
	if r.EventLoopLagMillis.Peak > millis(cfg.LagThreshold) {
		out = append(out, fmt.Sprintf("调度延迟峰值 %.0fms，检查阻塞主线程的同步操作", r.EventLoopLagMillis.Peak))
	}
	if len(out) == 0 {
		out = append(out, "各项指标正常，继续保持监控")
	}
	return out
}

// FormatReport 文本形式的性能报告
func FormatReport(r types.PerformanceReport) string {
	var b strings.Builder
	b.WriteString("================================================================================\n")
	b.WriteString("                              性能报告\n")
	b.WriteString("================================================================================\n")
	fmt.Fprintf(&b, "生成时间: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "样本数:   %d（覆盖 %s）\n", r.SampleCount, r.Window)
	fmt.Fprintf(&b, "得分:     %d/100\n\n", r.Score)

	b.WriteString("指标（平均 / 峰值）:\n")
	fmt.Fprintf(&b, "  - CPU:          %6.1f%% / %6.1f%%\n", r.CPU.Average, r.CPU.Peak)
	fmt.Fprintf(&b, "  - 堆内存:       %s / %s\n", humanize.IBytes(uint64(r.HeapBytes.Average)), humanize.IBytes(uint64(r.HeapBytes.Peak)))
	fmt.Fprintf(&b, "  - 帧率:         %6.1f / %6.1f\n", r.FPS.Average, r.FPS.Peak)
	fmt.Fprintf(&b, "  - 调度延迟:     %6.1fms / %6.1fms\n", r.EventLoopLagMillis.Average, r.EventLoopLagMillis.Peak)
	fmt.Fprintf(&b, "  - 系统内存:     %6.1f%% / %6.1f%%\n\n", r.SystemMemoryPercent.Average, r.SystemMemoryPercent.Peak)

	if r.LeakSuspected {
		fmt.Fprintf(&b, "⚠️  疑似泄漏: 堆增长 %s/分钟\n\n", humanize.IBytes(uint64(r.HeapGrowthBytesPerMinute)))
	}
	if len(r.AnomalyCounts) > 0 {
		b.WriteString("异常:\n")
		for _, typ := range []types.AnomalyType{types.AnomalyHighCPU, types.AnomalyHighMemory, types.AnomalyLowFPS, types.AnomalyEventLoopLag} {
			if n := r.AnomalyCounts[typ]; n > 0 {
				fmt.Fprintf(&b, "  - %-16s %d\n", typ, n)
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("建议:\n")
	for i, rec := range r.Recommendations {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, rec)
	}
	b.WriteString("================================================================================\n")
	return b.String()
}
