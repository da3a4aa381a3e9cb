package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	memwatchconfig "github.com/weisyn/memwatch/internal/config/memwatch"
	"github.com/weisyn/memwatch/internal/core/leak"
	"github.com/weisyn/memwatch/pkg/types"
)

// ClassifyFlags classify 子命令标志
type ClassifyFlags struct {
	File     string
	TargetID string
	Interval time.Duration // 纯数值序列的采样间隔
}

var classifyFlags ClassifyFlags

// SeriesFile 样本文件格式
//
// 接受三种形式：{"target_id":..., "samples":[...]}、样本数组、以字节为单位的数值数组。
type SeriesFile struct {
	TargetID string               `json:"target_id"`
	Samples  []types.MemorySample `json:"samples"`
}

// ClassifyResult classify 的输出
type ClassifyResult struct {
	TargetID   string             `json:"target_id"`
	Samples    int                `json:"samples"`
	Detections []leak.Detection   `json:"detections"`
	Pattern    *types.LeakPattern `json:"pattern,omitempty"`
}

// classifyCmd 离线分类
var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "离线分析内存样本序列的泄漏模式",
	RunE: func(_ *cobra.Command, _ []string) error {
		if classifyFlags.File == "" {
			return errors.New("需要 --file")
		}
		data, err := os.ReadFile(classifyFlags.File)
		if err != nil {
			return err
		}
		series, err := parseSeries(data, classifyFlags.Interval)
		if err != nil {
			return fmt.Errorf("解析 %s: %w", classifyFlags.File, err)
		}
		if classifyFlags.TargetID != "" {
			series.TargetID = classifyFlags.TargetID
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		leakCfg := memwatchconfig.New(cfg.Memwatch).GetOptions().Leak
		if err := leakCfg.Validate(); err != nil {
			return err
		}

		result := classifySeries(leak.NewClassifier(leakCfg), series)
		if globalFlags.JSON {
			return printJSON(result)
		}
		return renderClassify(result, leakCfg)
	},
}

func init() {
	f := classifyCmd.Flags()
	f.StringVarP(&classifyFlags.File, "file", "f", "", "样本文件 (JSON)")
	f.StringVar(&classifyFlags.TargetID, "target", "", "目标名，覆盖文件中的 target_id")
	f.DurationVar(&classifyFlags.Interval, "interval", 30*time.Second, "数值数组的采样间隔")
}

// parseSeries 解析样本文件，并补齐 DeltaFromPrevious
func parseSeries(data []byte, interval time.Duration) (SeriesFile, error) {
	data = bytes.TrimSpace(data)
	var series SeriesFile
	switch {
	case len(data) == 0:
		return series, errors.New("文件为空")
	case data[0] == '{':
		if err := json.Unmarshal(data, &series); err != nil {
			return series, err
		}
	default:
		// 解码失败时切片可能已部分填充，只在成功后赋值
		var samples []types.MemorySample
		err := json.Unmarshal(data, &samples)
		if err == nil {
			series.Samples = samples
			break
		}
		var values []uint64
		if err2 := json.Unmarshal(data, &values); err2 != nil {
			return series, err
		}
		start := time.Unix(0, 0).UTC()
		series.Samples = make([]types.MemorySample, 0, len(values))
		for i, v := range values {
			series.Samples = append(series.Samples, types.MemorySample{
				Timestamp:   start.Add(time.Duration(i) * interval),
				MemoryBytes: v,
			})
		}
	}
	for i := range series.Samples {
		if i == 0 {
			series.Samples[i].DeltaFromPrevious = 0
			continue
		}
		series.Samples[i].DeltaFromPrevious = int64(series.Samples[i].MemoryBytes) - int64(series.Samples[i-1].MemoryBytes)
	}
	if series.TargetID == "" {
		series.TargetID = "series"
	}
	return series, nil
}

func classifySeries(c *leak.Classifier, s SeriesFile) ClassifyResult {
	res := ClassifyResult{
		TargetID:   s.TargetID,
		Samples:    len(s.Samples),
		Detections: c.Evaluate(s.Samples),
	}
	var now time.Time
	if n := len(s.Samples); n > 0 {
		now = s.Samples[n-1].Timestamp
	}
	if p, ok := c.Classify(s.TargetID, s.Samples, now); ok {
		res.Pattern = &p
	}
	return res
}

func renderClassify(r ClassifyResult, cfg leak.Config) error {
	if len(r.Detections) == 0 {
		pterm.Warning.Printfln("%s: %d 个样本，至少需要 %d 个", r.TargetID, r.Samples, cfg.MinSamples)
		return nil
	}
	data := pterm.TableData{{"模式", "形状命中", "置信度", "增长/分钟"}}
	for _, d := range r.Detections {
		data = append(data, []string{
			string(d.Type),
			fmt.Sprintf("%t", d.Matched),
			fmt.Sprintf("%.2f", d.Confidence),
			humanize.IBytes(uint64(max(d.GrowthRateBytesPerMinute, 0))),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader(true).WithData(data).Render(); err != nil {
		return err
	}
	if r.Pattern == nil {
		pterm.Success.Printfln("%s: 未检测到泄漏（置信度阈值 %.2f）", r.TargetID, cfg.ConfidenceThreshold)
		return nil
	}
	fmt.Print(leak.FormatLeaks([]types.LeakPattern{*r.Pattern}))
	return nil
}
