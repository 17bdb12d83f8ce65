package middleware

import (
	"net/http"
	"strconv"

	"github.com/INTERACT-IV/vocalyx-frontend/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

// KeyFunc はリクエストからレート制限キーを導出する関数。
type KeyFunc func(c *gin.Context) string

// KeyByClientIP はクライアントIPアドレスをレート制限キーとする。
func KeyByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByProjectName はパスパラメータproject_nameをレート制限キーとする。
// パラメータが空の場合はdefaultに集約する。
func KeyByProjectName(c *gin.Context) string {
	name := c.Param("project_name")
	if name == "" {
		return "default"
	}
	return name
}

// RateLimit はリミッターの判定に従いリクエストを制限するGinミドルウェアを返す。
// 上限超過時は429とRetry-Afterヘッダーを返す。
func RateLimit(limiter *ratelimit.Limiter, key KeyFunc) gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(limiter.Window().Seconds()))
	return func(c *gin.Context) {
		if !limiter.Allow(c.Request.Context(), key(c)) {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "リクエストが多すぎます。しばらく待ってから再試行してください",
			})
			return
		}
		c.Next()
	}
}
