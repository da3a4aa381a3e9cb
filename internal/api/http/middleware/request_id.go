package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader 请求与响应中携带追踪 ID 的头
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
	// maxRequestIDLen 调用方提供的 ID 超过此长度时重新生成
	maxRequestIDLen = 64
)

// RequestID 为每个诊断请求分配追踪 ID，写入日志与响应头
type RequestID struct{}

// NewRequestID 创建请求ID中间件
func NewRequestID() *RequestID {
	return &RequestID{}
}

// Middleware 返回Gin中间件
func (m *RequestID) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID 当前请求的追踪 ID，未经过中间件时为空
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
