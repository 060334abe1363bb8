package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cbmonitor.com/pkg/common"
	"cbmonitor.com/pkg/logger"
)

func ReqId() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(common.HeaderRequestID)
		if rid == "" {
			rid = common.NewRequestID()
		}
		c.Set(common.CtxKeyRequestID, rid)
		c.Header(common.HeaderRequestID, rid)
		// request id 挂到 ctx，后续 logger.Info(ctx, ...) 自动带上
		ctx := logger.WithFields(c.Request.Context(), zap.String("request_id", rid))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
