package memwatch

// 内存压力管理默认值
//
// 各阈值的默认值由对应核心包的 DefaultConfig 给出，这里只定义
// 跨组件或仅在配置层出现的默认值。
const (
	// defaultExportSubdir 诊断导出目录（相对系统临时目录）
	defaultExportSubdir = "memwatch"

	// defaultCompressExport 默认不压缩导出，便于直接查看
	defaultCompressExport = false

	// bytesPerMB 配置文件中的 MB 均按 MiB 解释
	bytesPerMB = 1 << 20
)

// defaultDisabledFeatures 默认全部功能启用
var defaultDisabledFeatures = []string{}
