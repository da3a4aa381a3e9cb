// Package types provides configuration type definitions.
package types

// AppConfig 应用程序根配置
// 只包含配置文件解析所需的结构，指针字段用于区分"未设置"和"设置为零值"
// 默认值和完整配置结构在 internal/config/*/defaults.go 和 internal/config/*/config.go 中定义
type AppConfig struct {
	AppName *string `json:"app_name,omitempty" yaml:"app_name,omitempty"` // 应用名称

	// 日志配置
	Log *UserLogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	// 内存压力管理配置
	Memwatch *UserMemwatchConfig `json:"memwatch,omitempty" yaml:"memwatch,omitempty"`

	// 诊断 HTTP 服务配置
	API *UserAPIConfig `json:"api,omitempty" yaml:"api,omitempty"`
}

// UserLogConfig 用户日志配置
// 只包含配置文件中实际出现的字段
type UserLogConfig struct {
	Level     *string `json:"level,omitempty" yaml:"level,omitempty"`         // 日志级别：debug, info, warn, error, fatal
	FilePath  *string `json:"file_path,omitempty" yaml:"file_path,omitempty"` // 日志文件路径
	ToConsole *bool   `json:"to_console,omitempty" yaml:"to_console,omitempty"`
}

// UserAPIConfig 诊断服务配置
type UserAPIConfig struct {
	HTTPEnabled *bool   `json:"http_enabled,omitempty" yaml:"http_enabled,omitempty"` // 默认 false
	HTTPHost    *string `json:"http_host,omitempty" yaml:"http_host,omitempty"`       // 默认 127.0.0.1
	HTTPPort    *int    `json:"http_port,omitempty" yaml:"http_port,omitempty"`       // 默认 28690
}

// UserMemwatchConfig 内存压力管理用户配置
type UserMemwatchConfig struct {
	Telemetry   *UserTelemetryConfig   `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
	Leak        *UserLeakConfig        `json:"leak,omitempty" yaml:"leak,omitempty"`
	Remediation *UserRemediationConfig `json:"remediation,omitempty" yaml:"remediation,omitempty"`
	Diagnostics *UserDiagnosticsConfig `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`

	// DisabledFeatures 启动时不启用的功能名
	DisabledFeatures []string `json:"disabled_features,omitempty" yaml:"disabled_features,omitempty"`
}

// UserTelemetryConfig 采集配置
type UserTelemetryConfig struct {
	// IntervalSeconds 覆盖按总内存推导的采样间隔
	IntervalSeconds      *int `json:"interval_seconds,omitempty" yaml:"interval_seconds,omitempty"`
	SampleCapacity       *int `json:"sample_capacity,omitempty" yaml:"sample_capacity,omitempty"`             // 默认 60
	PressureCapacity     *int `json:"pressure_capacity,omitempty" yaml:"pressure_capacity,omitempty"`         // 默认 720
	PressurePersistTicks *int `json:"pressure_persist_ticks,omitempty" yaml:"pressure_persist_ticks,omitempty"` // 默认 2
	QueryTimeoutMillis   *int `json:"query_timeout_ms,omitempty" yaml:"query_timeout_ms,omitempty"`           // 默认 2000
}

// UserLeakConfig 泄漏分类器阈值
type UserLeakConfig struct {
	MinSamples          *int     `json:"min_samples,omitempty" yaml:"min_samples,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty" yaml:"confidence_threshold,omitempty"`
	LeakFloorMBPerMin   *float64 `json:"leak_floor_mb_per_min,omitempty" yaml:"leak_floor_mb_per_min,omitempty"`
	RecentWindow        *int     `json:"recent_window,omitempty" yaml:"recent_window,omitempty"`
	RapidMultiplier     *float64 `json:"rapid_multiplier,omitempty" yaml:"rapid_multiplier,omitempty"`
	SawtoothCycleRatio  *float64 `json:"sawtooth_cycle_ratio,omitempty" yaml:"sawtooth_cycle_ratio,omitempty"`
	PlateauRatio        *float64 `json:"plateau_ratio,omitempty" yaml:"plateau_ratio,omitempty"`
	PlateauMaxCV        *float64 `json:"plateau_max_cv,omitempty" yaml:"plateau_max_cv,omitempty"`
}

// UserRemediationConfig 修复配置
type UserRemediationConfig struct {
	CriticalMB               *uint64  `json:"critical_mb,omitempty" yaml:"critical_mb,omitempty"`                                 // 默认 3891 (3.8GB)
	WarningMB                *uint64  `json:"warning_mb,omitempty" yaml:"warning_mb,omitempty"`                                   // 默认 3584 (3.5GB)
	GrowthFloorMBPerMin      *float64 `json:"growth_floor_mb_per_min,omitempty" yaml:"growth_floor_mb_per_min,omitempty"`         // 默认 10
	ExhaustionHorizonSeconds *int     `json:"exhaustion_horizon_seconds,omitempty" yaml:"exhaustion_horizon_seconds,omitempty"`   // 默认 300
	CooldownSeconds          *int     `json:"cooldown_seconds,omitempty" yaml:"cooldown_seconds,omitempty"`                       // 默认 600
	IdleCooldownSeconds      *int     `json:"idle_cooldown_seconds,omitempty" yaml:"idle_cooldown_seconds,omitempty"`             // 默认 300
	IdleThresholdSeconds     *int     `json:"idle_threshold_seconds,omitempty" yaml:"idle_threshold_seconds,omitempty"`           // 默认 600
	IdleCheckIntervalSeconds *int     `json:"idle_check_interval_seconds,omitempty" yaml:"idle_check_interval_seconds,omitempty"` // 默认 60
	SettleDelayMillis        *int     `json:"settle_delay_ms,omitempty" yaml:"settle_delay_ms,omitempty"`                         // 默认 3000
	HistoryCapacity          *int     `json:"history_capacity,omitempty" yaml:"history_capacity,omitempty"`                       // 默认 100
	RecoveryTTLSeconds       *int     `json:"recovery_ttl_seconds,omitempty" yaml:"recovery_ttl_seconds,omitempty"`               // 默认 600
}

// UserDiagnosticsConfig 性能监控配置
type UserDiagnosticsConfig struct {
	IntervalSeconds      *int     `json:"interval_seconds,omitempty" yaml:"interval_seconds,omitempty"` // 默认 30
	AnomalyCapacity      *int     `json:"anomaly_capacity,omitempty" yaml:"anomaly_capacity,omitempty"` // 默认 1000
	SnapshotCapacity     *int     `json:"snapshot_capacity,omitempty" yaml:"snapshot_capacity,omitempty"`
	CPUThresholdPercent  *float64 `json:"cpu_threshold_percent,omitempty" yaml:"cpu_threshold_percent,omitempty"`
	MemThresholdPercent  *float64 `json:"mem_threshold_percent,omitempty" yaml:"mem_threshold_percent,omitempty"`
	FPSThreshold         *float64 `json:"fps_threshold,omitempty" yaml:"fps_threshold,omitempty"`
	LagThresholdMillis   *int     `json:"lag_threshold_ms,omitempty" yaml:"lag_threshold_ms,omitempty"`
	ExportDir            *string  `json:"export_dir,omitempty" yaml:"export_dir,omitempty"`
	CompressExport       *bool    `json:"compress_export,omitempty" yaml:"compress_export,omitempty"`
}

// 配置辅助函数
// 这些函数帮助创建指针类型的配置值，区分"未设置"和"设置为零值"

// BoolPtr 创建bool指针，用于明确表示用户设置了该值
func BoolPtr(v bool) *bool {
	return &v
}

// IntPtr 创建int指针，用于明确表示用户设置了该值
func IntPtr(v int) *int {
	return &v
}

// StringPtr 创建string指针，用于明确表示用户设置了该值
func StringPtr(v string) *string {
	return &v
}

// UInt64Ptr 创建uint64指针，用于明确表示用户设置了该值
func UInt64Ptr(v uint64) *uint64 {
	return &v
}

// Float64Ptr 创建float64指针
func Float64Ptr(v float64) *float64 {
	return &v
}
