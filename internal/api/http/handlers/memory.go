package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/weisyn/memwatch/internal/core/diagnostics"
	"github.com/weisyn/memwatch/internal/core/feature"
	"github.com/weisyn/memwatch/internal/core/remediation"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/memwatch"
)

// MemoryHandler 内存压力诊断端点处理器
//
// 只读端点：
// - GET /pressure, /pressure/history: 当前系统压力与历史
// - GET /targets: 各目标的采样状态
// - GET /leaks: 检测到的泄漏
// - GET /remediations: 修复历史
// - GET /report: 性能报告，?format=text 返回文本
// - GET /features: 功能状态
// - GET /footprint: 各组件自身内存占用
// - GET /host: 本进程内存状态
//
// 控制端点（EnableControl 时注册）：
// - POST /gc: 强制回收本进程内存
// - POST /export: 写出诊断文件
// - POST /remediate/:id: 立即重载目标
// - POST /features/:name/enable, /features/:name/disable
// - POST /sleep, /resume: 模拟宿主休眠与唤醒
type MemoryHandler struct {
	service memwatch.Service
	logger  *zap.Logger
}

// NewMemoryHandler 创建内存诊断处理器
func NewMemoryHandler(service memwatch.Service, logger *zap.Logger) *MemoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryHandler{service: service, logger: logger}
}

// RegisterRoutes 注册只读端点
func (h *MemoryHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/pressure", h.GetPressure)
	r.GET("/pressure/history", h.GetPressureHistory)
	r.GET("/targets", h.GetTargets)
	r.GET("/leaks", h.GetLeaks)
	r.GET("/remediations", h.GetRemediations)
	r.GET("/report", h.GetReport)
	r.GET("/features", h.GetFeatures)
	r.GET("/footprint", h.GetFootprint)
	r.GET("/host", h.GetHostStats)
}

// RegisterControlRoutes 注册会改变状态的端点
func (h *MemoryHandler) RegisterControlRoutes(r *gin.RouterGroup) {
	r.POST("/gc", h.ReleaseHostMemory)
	r.POST("/export", h.Export)
	r.POST("/remediate/:id", h.Remediate)
	r.POST("/features/:name/enable", h.EnableFeature)
	r.POST("/features/:name/disable", h.DisableFeature)
	r.POST("/sleep", h.Sleep)
	r.POST("/resume", h.Resume)
}

// GetPressure 当前系统压力
func (h *MemoryHandler) GetPressure(c *gin.Context) {
	ok(c, h.service.GetCurrentSystemPressure())
}

// GetPressureHistory 系统压力历史
func (h *MemoryHandler) GetPressureHistory(c *gin.Context) {
	ok(c, h.service.GetPressureHistory())
}

// GetTargets 各目标的采样状态
func (h *MemoryHandler) GetTargets(c *gin.Context) {
	ok(c, h.service.Targets())
}

// GetLeaks 检测到的泄漏
func (h *MemoryHandler) GetLeaks(c *gin.Context) {
	ok(c, h.service.GetDetectedLeaks())
}

// GetRemediations 修复历史
func (h *MemoryHandler) GetRemediations(c *gin.Context) {
	ok(c, h.service.GetRemediationHistory())
}

// GetReport 性能报告
func (h *MemoryHandler) GetReport(c *gin.Context) {
	report := h.service.GeneratePerformanceReport()
	if c.Query("format") == "text" {
		c.String(http.StatusOK, diagnostics.FormatReport(report))
		return
	}
	ok(c, report)
}

// GetFeatures 功能状态
func (h *MemoryHandler) GetFeatures(c *gin.Context) {
	ok(c, h.service.Features())
}

// GetFootprint 各组件自身内存占用
func (h *MemoryHandler) GetFootprint(c *gin.Context) {
	ok(c, h.service.Footprint())
}

// GetHostStats 本进程内存状态
func (h *MemoryHandler) GetHostStats(c *gin.Context) {
	ok(c, h.service.HostStats())
}

// ReleaseHostMemory 强制回收本进程内存
func (h *MemoryHandler) ReleaseHostMemory(c *gin.Context) {
	before, after := h.service.ReleaseHostMemory()
	ok(c, gin.H{
		"before":  before,
		"after":   after,
		"summary": diagnostics.CompareHostStats(before, after),
	})
}

// exportRequest POST /export 请求体，可为空
type exportRequest struct {
	Path string `json:"path"`
}

// Export 写出诊断文件
func (h *MemoryHandler) Export(c *gin.Context) {
	var req exportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "请求体不是有效的 JSON", err)
			return
		}
	}
	path, err := h.service.ExportDiagnostics(req.Path)
	if err != nil {
		h.logger.Warn("http_export_failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, ErrorCodeInternalError, "导出诊断文件失败", err)
		return
	}
	ok(c, gin.H{"path": path})
}

// Remediate 立即重载目标
func (h *MemoryHandler) Remediate(c *gin.Context) {
	ev, err := h.service.ForceRemediation(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, remediation.ErrUnknownTarget), errors.Is(err, host.ErrTargetGone):
		fail(c, http.StatusNotFound, ErrorCodeNotFound, "目标不存在", err)
	case errors.Is(err, remediation.ErrInProgress):
		fail(c, http.StatusConflict, ErrorCodeConflict, "目标正在修复", err)
	case err != nil:
		// 修复失败时事件仍然记录，返回给调用方查看
		c.JSON(http.StatusInternalServerError, StandardAPIResponse{
			Success: false,
			Data:    ev,
			Error:   &APIError{Code: ErrorCodeInternalError, Message: "修复失败", Details: err.Error()},
		})
	default:
		ok(c, ev)
	}
}

// EnableFeature 启用功能
func (h *MemoryHandler) EnableFeature(c *gin.Context) {
	h.toggle(c, func(name string) error { return h.service.Enable(c.Request.Context(), name) })
}

// DisableFeature 停用功能
func (h *MemoryHandler) DisableFeature(c *gin.Context) {
	h.toggle(c, h.service.Disable)
}

func (h *MemoryHandler) toggle(c *gin.Context, fn func(name string) error) {
	name := c.Param("name")
	if err := fn(name); err != nil {
		if errors.Is(err, feature.ErrUnknownFeature) {
			fail(c, http.StatusNotFound, ErrorCodeNotFound, "功能不存在", err)
			return
		}
		fail(c, http.StatusInternalServerError, ErrorCodeInternalError, "切换功能失败", err)
		return
	}
	ok(c, h.service.Features())
}

// Sleep 模拟宿主休眠
func (h *MemoryHandler) Sleep(c *gin.Context) {
	h.service.NotifySleep()
	c.JSON(http.StatusAccepted, StandardAPIResponse{Success: true, Message: "sleep"})
}

// Resume 模拟宿主唤醒
func (h *MemoryHandler) Resume(c *gin.Context) {
	h.service.NotifyResume()
	c.JSON(http.StatusAccepted, StandardAPIResponse{Success: true, Message: "resume"})
}
