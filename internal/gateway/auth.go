package gateway

import (
	"errors"
	"net/http"

	"github.com/INTERACT-IV/vocalyx-frontend/pkg/apiclient"
	"github.com/INTERACT-IV/vocalyx-frontend/pkg/middleware"
	"github.com/INTERACT-IV/vocalyx-frontend/pkg/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleLoginPage はログインページを表示するハンドラを返す。
func (s *Server) handleLoginPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "login.html", gin.H{})
	}
}

// handleDashboardPage はダッシュボードページを表示するハンドラを返す。
func (s *Server) handleDashboardPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "dashboard.html", gin.H{
			"admin_project": s.cfg.API.AdminProject,
		})
	}
}

// handleLogin はフォーム認証を処理するハンドラを返す。
// 成功時はセッションCookieを1つだけ設定する。パスワードはログに出力しない。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")
		if username == "" || password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ユーザー名とパスワードを入力してください"})
			return
		}

		token, err := s.client.Login(c.Request.Context(), username, password)
		if err != nil {
			if errors.Is(err, apiclient.ErrBackendUnavailable) {
				s.logger.Warn("ログイン中にバックエンドへ接続できませんでした",
					zap.String("request_id", middleware.GetRequestID(c)),
					zap.Error(err),
				)
				c.JSON(http.StatusBadGateway, gin.H{"error": "バックエンドに接続できません"})
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザー名またはパスワードが正しくありません"})
			return
		}

		session.Write(c, token)
		s.logger.Info("ログインに成功しました",
			zap.String("username", username),
			zap.String("request_id", middleware.GetRequestID(c)),
		)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// handleLogout はセッションCookieを破棄してログインページへ戻すハンドラを返す。
// バックエンド側にトークン失効の仕組みがないため、破棄はCookieのみ。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		session.Clear(c)
		c.Redirect(http.StatusTemporaryRedirect, middleware.LoginPath)
	}
}

// handleBackendHealth はバックエンドAPIの死活情報を返すハンドラを返す。
func (s *Server) handleBackendHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.client.Health(c.Request.Context()))
	}
}

// handleLimits はアップロード制限を返すハンドラを返す。
// アップロードフォームが事前検証に使用する。
func (s *Server) handleLimits() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"max_file_size_mb":   s.cfg.Limits.MaxFileSizeMB,
			"allowed_extensions": s.cfg.Limits.AllowedExtensions,
		})
	}
}
