package diagnostics

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/weisyn/memwatch/internal/core/infrastructure/log"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	"github.com/weisyn/memwatch/pkg/types"
)

// CompressedExt snappy 压缩导出文件的扩展名
const CompressedExt = ".json.sz"

// DumpVersion 导出格式版本
const DumpVersion = 1

// PressureSource 压力历史来源
type PressureSource interface {
	PressureHistory() []types.SystemPressureSnapshot
	CurrentPressure() types.SystemPressureSnapshot
}

// RemediationSource 修复历史来源
type RemediationSource interface {
	Events() []types.RemediationEvent
}

// LeakSource 泄漏检测结果来源
type LeakSource interface {
	DetectedLeaks() []types.LeakPattern
}

// FootprintSource 自身内存占用来源
type FootprintSource interface {
	CollectAll() []metrics.ModuleMemoryStats
}

// Sources 导出所需的数据来源，nil 字段对应的段为空
type Sources struct {
	System       host.SystemInfo
	Pressure     PressureSource
	Remediations RemediationSource
	Leaks        LeakSource
	Performance  *PerformanceMonitor
	Footprint    FootprintSource
	Settings     any // 生效配置，原样写入
}

// SystemInfo 导出中的系统信息
type SystemInfo struct {
	TotalMemoryBytes uint64     `json:"total_memory_bytes"`
	FreeMemoryBytes  uint64     `json:"free_memory_bytes"`
	NumCPU           int        `json:"num_cpu"`
	LoadAverage      [3]float64 `json:"load_average"`
	GOOS             string     `json:"goos"`
	GOARCH           string     `json:"goarch"`
	GoVersion        string     `json:"go_version"`
	Settings         any        `json:"settings,omitempty"`
}

// Summary 导出摘要
type Summary struct {
	PressureLevel      types.PressureLevel `json:"pressure_level"`
	TotalRemediations  int                 `json:"total_remediations"`
	FailedRemediations int                 `json:"failed_remediations"`
	TotalBytesSaved    uint64              `json:"total_bytes_saved"`
	DetectedLeaks      int                 `json:"detected_leaks"`
	AnomalyCount       int                 `json:"anomaly_count"`
	PerformanceScore   int                 `json:"performance_score"`
	SelfFootprintBytes int64               `json:"self_footprint_bytes"`
}

// Dump 一次诊断导出的完整内容
type Dump struct {
	Version      int                            `json:"version"`
	ID           string                         `json:"id"`
	GeneratedAt  time.Time                      `json:"generated_at"`
	System       SystemInfo                     `json:"system"`
	Snapshots    []types.PerformanceSnapshot    `json:"snapshots"`
	Pressure     []types.SystemPressureSnapshot `json:"pressure_history"`
	Remediations []types.RemediationEvent       `json:"remediation_history"`
	Leaks        []types.LeakPattern            `json:"detected_leaks"`
	Anomalies    []types.PerformanceAnomaly     `json:"anomalies"`
	Footprint    []metrics.ModuleMemoryStats    `json:"self_footprint"`
	Report       *types.PerformanceReport       `json:"performance_report,omitempty"`
	Summary      Summary                        `json:"summary"`
}

// Exporter 把当前诊断状态写成一次性 JSON 文件
type Exporter struct {
	cfg    Config
	src    Sources
	clock  clock.Clock
	logger *zap.Logger
}

// NewExporter 创建导出器
func NewExporter(cfg Config, src Sources, clk clock.Clock, logger *zap.Logger) *Exporter {
	return &Exporter{cfg: cfg, src: src, clock: clk, logger: log.NewModuleZapLogger(logger, "export")}
}

// Collect 组装导出内容
func (e *Exporter) Collect() Dump {
	now := e.clock.Now()
	d := Dump{
		Version:     DumpVersion,
		ID:          uuid.NewString(),
		GeneratedAt: now,
		System: SystemInfo{
			GOOS:      runtime.GOOS,
			GOARCH:    runtime.GOARCH,
			GoVersion: runtime.Version(),
			Settings:  e.src.Settings,
		},
	}
	if s := e.src.System; s != nil {
		d.System.TotalMemoryBytes = s.TotalMemory()
		d.System.FreeMemoryBytes = s.FreeMemory()
		d.System.NumCPU = s.NumCPU()
		d.System.LoadAverage = s.LoadAverage()
	}
	if p := e.src.Pressure; p != nil {
		d.Pressure = p.PressureHistory()
		d.Summary.PressureLevel = p.CurrentPressure().PressureLevel
	}
	if r := e.src.Remediations; r != nil {
		d.Remediations = r.Events()
		for _, ev := range d.Remediations {
			if !ev.Succeeded() {
				d.Summary.FailedRemediations++
			}
			d.Summary.TotalBytesSaved += ev.MemorySavedBytes
		}
		d.Summary.TotalRemediations = len(d.Remediations)
	}
	if l := e.src.Leaks; l != nil {
		d.Leaks = l.DetectedLeaks()
		d.Summary.DetectedLeaks = len(d.Leaks)
	}
	if pm := e.src.Performance; pm != nil {
		d.Snapshots = pm.Snapshots()
		d.Anomalies = pm.Anomalies()
		report := BuildReport(pm.Config(), now, d.Snapshots, d.Anomalies)
		d.Report = &report
		d.Summary.AnomalyCount = len(d.Anomalies)
		d.Summary.PerformanceScore = report.Score
	}
	if f := e.src.Footprint; f != nil {
		d.Footprint = f.CollectAll()
		for _, s := range d.Footprint {
			d.Summary.SelfFootprintBytes += s.ApproxBytes
		}
	}
	return d
}

// Export 写出诊断文件并返回最终路径
//
// path 为空时写入 ExportDir；path 是已存在的目录时在其中生成文件名；
// 以 .sz 结尾或配置了压缩时使用 snappy 块压缩。
func (e *Exporter) Export(path string) (string, error) {
	target, err := e.resolvePath(path)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(e.Collect(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode diagnostics: %w", err)
	}
	if strings.HasSuffix(target, ".sz") {
		data = snappy.Encode(nil, data)
	}
	if err := writeFileAtomic(target, data); err != nil {
		e.logger.Error("diagnostics_export_failed", zap.String("path", target), zap.Error(err))
		return "", fmt.Errorf("write diagnostics %s: %w", target, err)
	}
	e.logger.Info("diagnostics_exported", zap.String("path", target), zap.Int("bytes", len(data)))
	return target, nil
}

func (e *Exporter) resolvePath(path string) (string, error) {
	dir := path
	if path != "" {
		info, err := os.Stat(path)
		switch {
		case err == nil && info.IsDir():
		case err == nil || errors.Is(err, os.ErrNotExist):
			return path, nil
		default:
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
	} else {
		dir = e.cfg.ExportDir
		if dir == "" {
			dir = os.TempDir()
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create export dir: %w", err)
		}
	}
	ext := ".json"
	if e.cfg.CompressExport {
		ext = CompressedExt
	}
	return filepath.Join(dir, "memwatch-diagnostics-"+uuid.NewString()+ext), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".memwatch-export-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadDump 读取导出文件，按扩展名解压
func ReadDump(path string) (Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dump{}, err
	}
	if strings.HasSuffix(path, ".sz") {
		if data, err = snappy.Decode(nil, data); err != nil {
			return Dump{}, fmt.Errorf("decompress %s: %w", path, err)
		}
	}
	var d Dump
	if err := json.Unmarshal(data, &d); err != nil {
		return Dump{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return d, nil
}
