package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/memwatch/pkg/interfaces/memwatch"
	"github.com/weisyn/memwatch/pkg/types"
)

// HealthHandler 健康检查端点处理器
type HealthHandler struct {
	service   memwatch.Service
	startTime time.Time
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(service memwatch.Service) *HealthHandler {
	return &HealthHandler{service: service, startTime: time.Now()}
}

// RegisterRoutes 注册 /health
func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.GetHealth)
}

// GetHealth 返回运行时长、启用的功能数与当前压力等级
//
// 压力为 critical 时状态为 degraded，仍返回 200
func (h *HealthHandler) GetHealth(c *gin.Context) {
	enabled := 0
	features := h.service.Features()
	for _, f := range features {
		if f.Enabled {
			enabled++
		}
	}
	pressure := h.service.GetCurrentSystemPressure()
	status := "healthy"
	if pressure.PressureLevel == types.PressureCritical {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           status,
		"uptime":           time.Since(h.startTime).Round(time.Second).String(),
		"features_enabled": enabled,
		"features_total":   len(features),
		"pressure_level":   pressure.PressureLevel,
		"targets":          len(h.service.Targets()),
	})
}
