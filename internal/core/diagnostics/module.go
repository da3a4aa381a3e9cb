package diagnostics

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	metricsutil "github.com/weisyn/memwatch/pkg/utils/metrics"
)

// MonitorParams 性能监控依赖
type MonitorParams struct {
	fx.In

	Config    Config
	Registry  host.Registry
	System    host.SystemInfo
	Clock     clock.Clock
	Recorder  metrics.Recorder `optional:"true"`
	Logger    *zap.Logger      `optional:"true"`
	Reporters *metricsutil.Registry
}

// ExportParams 导出器依赖，各数据来源由上层装配
type ExportParams struct {
	fx.In

	Config       Config
	Clock        clock.Clock
	Logger       *zap.Logger       `optional:"true"`
	System       host.SystemInfo   `optional:"true"`
	Pressure     PressureSource    `optional:"true"`
	Remediations RemediationSource `optional:"true"`
	Leaks        LeakSource        `optional:"true"`
	Performance  *PerformanceMonitor
	Footprint    *metricsutil.Registry
	Settings     *Settings `optional:"true"`
}

// Settings 写入导出文件的生效配置
type Settings struct {
	Value any
}

// Module 返回诊断模块
//
// 提供：*PerformanceMonitor、*Exporter
func Module() fx.Option {
	return fx.Module("diagnostics",
		fx.Provide(
			ProvidePerformanceMonitor,
			ProvideExporter,
		),
	)
}

// ProvidePerformanceMonitor 创建性能监控并注册内存上报
func ProvidePerformanceMonitor(p MonitorParams) (*PerformanceMonitor, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}
	pm := NewPerformanceMonitor(p.Config, p.Registry, p.System, p.Clock, p.Recorder, p.Logger)
	p.Reporters.Register(pm)
	return pm, nil
}

// ProvideExporter 创建诊断导出器
func ProvideExporter(p ExportParams) *Exporter {
	var settings any
	if p.Settings != nil {
		settings = p.Settings.Value
	}
	return NewExporter(p.Config, Sources{
		System:       p.System,
		Pressure:     p.Pressure,
		Remediations: p.Remediations,
		Leaks:        p.Leaks,
		Performance:  p.Performance,
		Footprint:    p.Footprint,
		Settings:     settings,
	}, p.Clock, p.Logger)
}
