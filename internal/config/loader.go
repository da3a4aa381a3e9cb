package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/weisyn/memwatch/pkg/types"
)

// Load 按扩展名读取 JSON 或 YAML 配置文件，未知字段视为错误
func Load(path string) (*types.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return Parse(data, FormatYAML)
	case ".json", "":
		return Parse(data, FormatJSON)
	default:
		return nil, fmt.Errorf("不支持的配置文件格式: %s", filepath.Ext(path))
	}
}

// Format 配置文件格式
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Parse 解析配置内容；空内容得到空配置
func Parse(data []byte, format Format) (*types.AppConfig, error) {
	cfg := &types.AppConfig{}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("解析 YAML 配置失败: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("解析 JSON 配置失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("未知配置格式: %s", format)
	}
	return cfg, nil
}
