package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 请求日志中间件
func RequestLog(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if sellerID := GetSellerID(c); sellerID > 0 {
			fields = append(fields, zap.Int64("seller_id", sellerID))
		}

		if c.Writer.Status() >= 500 {
			log.Error("请求处理失败", fields...)
		} else {
			log.Info("请求完成", fields...)
		}
	}
}
