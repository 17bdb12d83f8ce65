package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/INTERACT-IV/vocalyx-frontend/pkg/apiclient"
	"github.com/INTERACT-IV/vocalyx-frontend/pkg/middleware"
	"github.com/INTERACT-IV/vocalyx-frontend/pkg/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// headerAPIKey はプロジェクトキーを受け取るHTTPヘッダー名。
const headerAPIKey = "X-API-Key"

// relayAsUser はセッショントークンでバックエンドへ中継するハンドラを返す。
func (s *Server) relayAsUser(backendPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.doRelayAsUser(c, backendPath)
	}
}

// relayAsUserWithParam はURLパラメータを含むパスをセッショントークンで中継するハンドラを返す。
func (s *Server) relayAsUserWithParam(pathPrefix, paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.doRelayAsUser(c, pathPrefix+c.Param(paramName))
	}
}

// doRelayAsUser はセッショントークンによる中継の共通処理。
// クエリ文字列とボディはそのまま引き継ぐ。
func (s *Server) doRelayAsUser(c *gin.Context, backendPath string) {
	resp, err := s.client.DoAsUser(c.Request.Context(), middleware.Token(c),
		c.Request.Method, backendPath, c.Request.URL.Query(),
		c.Request.Body, c.GetHeader("Content-Type"))
	if err != nil {
		s.relayError(c, err)
		return
	}
	c.Data(resp.StatusCode, resp.ContentType, resp.Body)
}

// relayInternal は内部サービスキーでバックエンドへ中継するハンドラを返す。
func (s *Server) relayInternal(backendPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.doRelayInternal(c, backendPath)
	}
}

// relayInternalWithParam はURLパラメータを含むパスを内部サービスキーで中継するハンドラを返す。
func (s *Server) relayInternalWithParam(pathPrefix, paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.doRelayInternal(c, pathPrefix+c.Param(paramName))
	}
}

// doRelayInternal は内部サービスキーによる中継の共通処理。
// バックエンドによる401/403は訪問者の資格情報ではなくゲートウェイの
// 内部キーへの拒否なので、セッションには触れず502を返す。
func (s *Server) doRelayInternal(c *gin.Context, backendPath string) {
	resp, err := s.client.DoInternal(c.Request.Context(),
		c.Request.Method, backendPath, c.Request.URL.Query())
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) || errors.Is(err, apiclient.ErrForbidden) {
			s.logger.Error("内部サービスキーがバックエンドに拒否されました",
				zap.String("path", backendPath),
				zap.String("request_id", middleware.GetRequestID(c)),
			)
			c.JSON(http.StatusBadGateway, gin.H{"error": "バックエンドに接続できません"})
			return
		}
		s.relayError(c, err)
		return
	}
	c.Data(resp.StatusCode, resp.ContentType, resp.Body)
}

// handleCreateTranscription はプロジェクトキーによる転写投入を中継するハンドラを返す。
// X-API-Keyヘッダーが無い場合は中継せずに400を返す。サイズ上限を超える
// ボディはバックエンドへ送らずに413を、長さを申告しないボディは411を返す。
func (s *Server) handleCreateTranscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(headerAPIKey)
		if apiKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-API-Keyヘッダーが必要です"})
			return
		}
		// 長さ不明のボディはサイズ上限を検査できないため受け付けない
		if c.Request.ContentLength < 0 {
			c.JSON(http.StatusLengthRequired, gin.H{"error": "Content-Lengthヘッダーが必要です"})
			return
		}
		if c.Request.ContentLength > s.cfg.MaxFileSizeBytes() {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("ファイルサイズが上限(%dMB)を超えています", s.cfg.Limits.MaxFileSizeMB),
			})
			return
		}

		resp, err := s.client.DoAsProject(c.Request.Context(), apiKey,
			http.MethodPost, "/api/transcriptions", c.Request.URL.Query(),
			c.Request.Body, c.GetHeader("Content-Type"))
		if err != nil {
			s.relayError(c, err)
			return
		}
		c.Data(resp.StatusCode, resp.ContentType, resp.Body)
	}
}

// handleMonitoringStatus は全ワーカーの状態を集約して返すハンドラを返す。
// ワーカー未設定や内部キー無効の場合は空の一覧を返す。
func (s *Server) handleMonitoringStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(s.cfg.Workers.URLs) == 0 {
			s.logger.Warn("監視対象ワーカーが設定されていません")
			c.JSON(http.StatusOK, []apiclient.WorkerStatus{})
			return
		}

		statuses, err := s.client.WorkerStatuses(c.Request.Context(), s.cfg.Workers.URLs)
		if err != nil {
			s.logger.Warn("ワーカー状態の取得に失敗しました",
				zap.String("request_id", middleware.GetRequestID(c)),
				zap.Error(err),
			)
			c.JSON(http.StatusOK, []apiclient.WorkerStatus{})
			return
		}
		c.JSON(http.StatusOK, statuses)
	}
}

// relayError はバックエンド呼び出しの失敗をHTTPレスポンスへ対応付ける。
// 無効なトークンはセッションを破棄してログインページへ戻す。
func (s *Server) relayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		session.Clear(c)
		c.Redirect(http.StatusTemporaryRedirect, middleware.LoginPath)
		c.Abort()
	case errors.Is(err, apiclient.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "アクセス権がありません"})
	case errors.Is(err, apiclient.ErrInternalKeyDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "内部API連携が無効です"})
	default:
		s.logger.Warn("バックエンドへの中継に失敗しました",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "バックエンドに接続できません"})
	}
}
