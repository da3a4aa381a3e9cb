package types

import "time"

// AnomalyType 性能异常类型
type AnomalyType string

const (
	AnomalyHighCPU      AnomalyType = "high_cpu"
	AnomalyHighMemory   AnomalyType = "high_memory"
	AnomalyLowFPS       AnomalyType = "low_fps"
	AnomalyEventLoopLag AnomalyType = "event_loop_lag"
)

// Severity 异常严重程度
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// PerformanceAnomaly 一次性能异常
type PerformanceAnomaly struct {
	Timestamp   time.Time   `json:"timestamp"`
	Type        AnomalyType `json:"type"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	MetricValue float64     `json:"metric_value"`
	Threshold   float64     `json:"threshold"`
}

// PerformanceSnapshot 一次性能采样
type PerformanceSnapshot struct {
	Timestamp           time.Time      `json:"timestamp"`
	CPUPercent          float64        `json:"cpu_percent"`
	HeapBytes           uint64         `json:"heap_bytes"`
	RSSBytes            uint64         `json:"rss_bytes"`
	TargetCount         int            `json:"target_count"`
	AverageFPS          float64        `json:"average_fps"` // 没有可查询目标时为 0
	FPSSamples          int            `json:"fps_samples"`
	EventLoopLag        time.Duration  `json:"event_loop_lag"`
	DOMNodes            map[string]int `json:"dom_nodes,omitempty"`
	SystemMemoryPercent float64        `json:"system_memory_percent"`
}

// MetricSummary 指标的均值与峰值
type MetricSummary struct {
	Average float64 `json:"average"`
	Peak    float64 `json:"peak"`
}

// PerformanceReport 性能报告
type PerformanceReport struct {
	GeneratedAt              time.Time           `json:"generated_at"`
	SampleCount              int                 `json:"sample_count"`
	Window                   time.Duration       `json:"window"`
	CPU                      MetricSummary       `json:"cpu"`
	HeapBytes                MetricSummary       `json:"heap_bytes"`
	FPS                      MetricSummary       `json:"fps"`
	EventLoopLagMillis       MetricSummary       `json:"event_loop_lag_ms"`
	SystemMemoryPercent      MetricSummary       `json:"system_memory_percent"`
	Score                    int                 `json:"score"` // 0-100
	LeakSuspected            bool                `json:"leak_suspected"`
	HeapGrowthBytesPerMinute float64             `json:"heap_growth_bytes_per_minute"`
	AnomalyCounts            map[AnomalyType]int `json:"anomaly_counts"`
	Recommendations          []string            `json:"recommendations"`
}
