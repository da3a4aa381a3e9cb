// Package configs 嵌入示例配置
package configs

import _ "embed"

// 示例配置，列出全部字段及其默认值
//
//go:embed memwatch.yaml
var exampleConfig []byte

// ExampleConfig 返回示例配置（YAML）
func ExampleConfig() []byte {
	return exampleConfig
}
