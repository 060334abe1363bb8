package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cbmonitor.com/pkg/common"
	"cbmonitor.com/pkg/logger"
	"cbmonitor.com/pkg/ratelimit"
)

const codeTooManyRequests = http.StatusTooManyRequests

func RateLimit(store *ratelimit.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := c.ClientIP() + ":" + route

		if !store.Allow(key) {
			// 限流属于可控拒绝，不打堆栈
			logger.Warn(c.Request.Context(), "http rate limited",
				zap.String("ip", c.ClientIP()),
				zap.String("route", route),
			)
			common.Fail(c, http.StatusTooManyRequests, codeTooManyRequests, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
