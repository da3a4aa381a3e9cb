// Package api 对外诊断接口
package api

import (
	"go.uber.org/fx"

	"github.com/weisyn/memwatch/internal/api/http"
)

// Module 返回API模块，当前只有本地诊断 HTTP 服务
func Module() fx.Option {
	return fx.Module("api",
		http.Module(),
	)
}
