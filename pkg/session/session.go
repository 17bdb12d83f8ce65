package session

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CookieName は認証トークンを保持するCookieの名前。
const CookieName = "vocalyx_auth_token"

// MaxAge はCookieの有効期間（秒）。バックエンドのトークン有効期限
// （7日間）と一致させる。
const MaxAge = 604800

// ErrNoSession はセッションCookieが存在しないことを表す。
var ErrNoSession = errors.New("セッションCookieが存在しない")

// Write はBearerトークンをセッションCookieとしてレスポンスに設定する。
// HTTP-OnlyかつSameSite=Laxで設定する。Secure属性はTLS終端が未整備の
// ため現状はfalse（既知のギャップとして運用ドキュメントに記載）。
func Write(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, MaxAge, "/", "", false, true)
}

// Token はリクエストのセッションCookieからBearerトークンを取り出す。
// トークンの解析や検証は行わない。Cookieが無い場合はErrNoSessionを返す。
func Token(c *gin.Context) (string, error) {
	token, err := c.Cookie(CookieName)
	if err != nil {
		return "", ErrNoSession
	}
	return token, nil
}

// Clear はセッションCookieを削除する。バックエンド側のトークン失効は
// 行わない。トークン自体は自然失効まで有効なままとなる。
func Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", false, true)
}
