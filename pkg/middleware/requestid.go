package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID はリクエストIDを伝搬するHTTPヘッダー名。
const HeaderRequestID = "X-Request-ID"

// contextKeyRequestID はGinコンテキストに格納するリクエストIDのキー。
const contextKeyRequestID = "request_id"

// RequestID はリクエストにIDを付与するGinミドルウェアを返す。
// クライアントがX-Request-IDヘッダーを送信した場合はそれを引き継ぎ、
// 無い場合はUUIDを新規に発行する。IDはレスポンスヘッダーにも設定する。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID はRequestIDが付与したリクエストIDを取り出す。
func GetRequestID(c *gin.Context) string {
	return c.GetString(contextKeyRequestID)
}
