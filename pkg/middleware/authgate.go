package middleware

import (
	"errors"
	"net/http"

	"github.com/INTERACT-IV/vocalyx-frontend/pkg/apiclient"
	"github.com/INTERACT-IV/vocalyx-frontend/pkg/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginPath は未認証リクエストのリダイレクト先。
const LoginPath = "/login"

// contextKeyToken はGinコンテキストに格納するトークンのキー。
const contextKeyToken = "auth_token"

// AuthRequired はセッションCookieの存在を要求するGinミドルウェアを返す。
// Cookieが無い場合はログインページへ307でリダイレクトする。Cookieの
// 中身は検証しない。有効性の判定はバックエンドに委ねる。
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := session.Token(c)
		if err != nil {
			c.Redirect(http.StatusTemporaryRedirect, LoginPath)
			c.Abort()
			return
		}
		c.Set(contextKeyToken, token)
		c.Next()
	}
}

// Token はAuthRequiredが格納したセッショントークンを取り出す。
// AuthRequiredを通過していない場合は空文字列を返す。
func Token(c *gin.Context) string {
	return c.GetString(contextKeyToken)
}

// AdminRequired は管理者権限を要求するGinミドルウェアを返す。
// 権限はリクエストごとにバックエンドへ問い合わせて判定する。
// セッション側に権限情報を保持しないため、権限の剥奪は即座に反映される。
// AuthRequiredの後段に配置すること。
func AdminRequired(client *apiclient.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := client.UserProfile(c.Request.Context(), Token(c))
		if err != nil {
			if errors.Is(err, apiclient.ErrUnauthorized) {
				session.Clear(c)
				c.Redirect(http.StatusTemporaryRedirect, LoginPath)
				c.Abort()
				return
			}
			logger.Warn("管理者権限の確認に失敗しました",
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
				"error": "バックエンドに接続できません",
			})
			return
		}
		if !profile.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "管理者権限が必要です",
			})
			return
		}
		c.Next()
	}
}
