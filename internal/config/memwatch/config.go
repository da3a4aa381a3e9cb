// Package memwatch 把用户配置映射为各核心组件的配置
package memwatch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/weisyn/memwatch/internal/core/diagnostics"
	"github.com/weisyn/memwatch/internal/core/leak"
	"github.com/weisyn/memwatch/internal/core/remediation"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	"github.com/weisyn/memwatch/pkg/types"
)

// Options 内存压力管理完整配置
type Options struct {
	Telemetry   telemetry.Config   `json:"telemetry"`
	Leak        leak.Config        `json:"leak"`
	Remediation remediation.Config `json:"remediation"`
	Diagnostics diagnostics.Config `json:"diagnostics"`

	// DisabledFeatures 启动时不启用的功能名
	DisabledFeatures []string `json:"disabled_features"`
}

// Config 内存压力管理配置实现
type Config struct {
	options *Options
}

// New 创建配置：先取默认值，再用用户配置中出现的字段覆盖
func New(userConfig *types.UserMemwatchConfig) *Config {
	options := createDefaultOptions()
	if userConfig != nil {
		applyUserConfig(options, userConfig)
	}
	return &Config{options: options}
}

func createDefaultOptions() *Options {
	diag := diagnostics.DefaultConfig()
	diag.ExportDir = filepath.Join(os.TempDir(), defaultExportSubdir)
	diag.CompressExport = defaultCompressExport

	return &Options{
		Telemetry:        telemetry.DefaultConfig(),
		Leak:             leak.DefaultConfig(),
		Remediation:      remediation.DefaultConfig(),
		Diagnostics:      diag,
		DisabledFeatures: append([]string(nil), defaultDisabledFeatures...),
	}
}

func applyUserConfig(o *Options, u *types.UserMemwatchConfig) {
	if t := u.Telemetry; t != nil {
		setSeconds(&o.Telemetry.Interval, t.IntervalSeconds)
		setInt(&o.Telemetry.SampleCapacity, t.SampleCapacity)
		setInt(&o.Telemetry.PressureCapacity, t.PressureCapacity)
		setInt(&o.Telemetry.PressurePersistTicks, t.PressurePersistTicks)
		setMillis(&o.Telemetry.QueryTimeout, t.QueryTimeoutMillis)
	}

	if l := u.Leak; l != nil {
		setInt(&o.Leak.MinSamples, l.MinSamples)
		setFloat(&o.Leak.ConfidenceThreshold, l.ConfidenceThreshold)
		if l.LeakFloorMBPerMin != nil {
			o.Leak.LeakFloorBytesPerMinute = *l.LeakFloorMBPerMin * bytesPerMB
		}
		setInt(&o.Leak.RecentWindow, l.RecentWindow)
		setFloat(&o.Leak.RapidMultiplier, l.RapidMultiplier)
		setFloat(&o.Leak.SawtoothCycleRatio, l.SawtoothCycleRatio)
		setFloat(&o.Leak.PlateauRatio, l.PlateauRatio)
		setFloat(&o.Leak.PlateauMaxCV, l.PlateauMaxCV)
	}

	if r := u.Remediation; r != nil {
		if r.CriticalMB != nil {
			o.Remediation.CriticalBytes = *r.CriticalMB * bytesPerMB
		}
		if r.WarningMB != nil {
			o.Remediation.WarningBytes = *r.WarningMB * bytesPerMB
		}
		if r.GrowthFloorMBPerMin != nil {
			o.Remediation.GrowthFloorBytesPerMinute = *r.GrowthFloorMBPerMin * bytesPerMB
		}
		setSeconds(&o.Remediation.ExhaustionHorizon, r.ExhaustionHorizonSeconds)
		setSeconds(&o.Remediation.Cooldown, r.CooldownSeconds)
		setSeconds(&o.Remediation.IdleCooldown, r.IdleCooldownSeconds)
		setSeconds(&o.Remediation.IdleThreshold, r.IdleThresholdSeconds)
		setSeconds(&o.Remediation.IdleCheckInterval, r.IdleCheckIntervalSeconds)
		setMillis(&o.Remediation.SettleDelay, r.SettleDelayMillis)
		setInt(&o.Remediation.HistoryCapacity, r.HistoryCapacity)
		setSeconds(&o.Remediation.RecoveryTTL, r.RecoveryTTLSeconds)
	}

	if d := u.Diagnostics; d != nil {
		setSeconds(&o.Diagnostics.Interval, d.IntervalSeconds)
		setInt(&o.Diagnostics.AnomalyCapacity, d.AnomalyCapacity)
		setInt(&o.Diagnostics.SnapshotCapacity, d.SnapshotCapacity)
		setFloat(&o.Diagnostics.CPUThresholdPercent, d.CPUThresholdPercent)
		setFloat(&o.Diagnostics.MemoryThresholdPercent, d.MemThresholdPercent)
		setFloat(&o.Diagnostics.FPSThreshold, d.FPSThreshold)
		setMillis(&o.Diagnostics.LagThreshold, d.LagThresholdMillis)
		if d.ExportDir != nil {
			o.Diagnostics.ExportDir = *d.ExportDir
		}
		if d.CompressExport != nil {
			o.Diagnostics.CompressExport = *d.CompressExport
		}
	}

	if u.DisabledFeatures != nil {
		o.DisabledFeatures = append([]string(nil), u.DisabledFeatures...)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setSeconds(dst *time.Duration, v *int) {
	if v != nil {
		*dst = time.Duration(*v) * time.Second
	}
}

func setMillis(dst *time.Duration, v *int) {
	if v != nil {
		*dst = time.Duration(*v) * time.Millisecond
	}
}

// GetOptions 获取完整配置
func (c *Config) GetOptions() *Options {
	return c.options
}

// Validate 逐个校验组件配置，返回全部错误
func (c *Config) Validate() error {
	var errs []error
	if err := c.options.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}
	if err := c.options.Leak.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("leak: %w", err))
	}
	if err := c.options.Remediation.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("remediation: %w", err))
	}
	if err := c.options.Diagnostics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("diagnostics: %w", err))
	}
	return errors.Join(errs...)
}
