// Package handlers 诊断 HTTP 服务的请求处理器
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StandardAPIResponse 标准API响应格式
type StandardAPIResponse struct {
	Success bool        `json:"success"`           // 操作是否成功
	Data    interface{} `json:"data,omitempty"`    // 响应数据（成功时）
	Message string      `json:"message,omitempty"` // 成功消息或简要说明
	Error   *APIError   `json:"error,omitempty"`   // 错误信息（失败时）
}

// APIError 标准错误结构
type APIError struct {
	Code    string `json:"code"`              // 错误代码（用于程序化处理）
	Message string `json:"message"`           // 用户友好的错误消息
	Details string `json:"details,omitempty"` // 详细错误信息（调试用）
}

// 错误代码
const (
	ErrorCodeInvalidRequest = "INVALID_REQUEST"
	ErrorCodeNotFound       = "NOT_FOUND"
	ErrorCodeConflict       = "CONFLICT"
	ErrorCodeInternalError  = "INTERNAL_ERROR"
)

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, StandardAPIResponse{Success: true, Data: data})
}

func fail(c *gin.Context, status int, code, message string, err error) {
	apiErr := &APIError{Code: code, Message: message}
	if err != nil {
		apiErr.Details = err.Error()
	}
	c.JSON(status, StandardAPIResponse{Success: false, Error: apiErr})
}
