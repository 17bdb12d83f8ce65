package gateway

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/INTERACT-IV/vocalyx-frontend/internal/config"
	"github.com/INTERACT-IV/vocalyx-frontend/pkg/apiclient"
	"github.com/INTERACT-IV/vocalyx-frontend/pkg/middleware"
	"github.com/INTERACT-IV/vocalyx-frontend/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server はゲートウェイのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はゲートウェイ全体の設定。
	cfg *config.Config
	// client はバックエンドAPIクライアント。
	client *apiclient.Client
	// publicLimiter は公開読み取りエンドポイントのIP単位リミッター。
	publicLimiter *ratelimit.Limiter
	// projectLimiter は転写投入のプロジェクト単位リミッター。
	projectLimiter *ratelimit.Limiter
	// logger は構造化ロガー。
	logger *zap.Logger
}

// NewServer は新しいゲートウェイサーバーを生成する。
// テンプレートディレクトリが存在しない場合はエラーを返す。
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	client := apiclient.New(cfg.API.URL, cfg.Security.InternalAPIKey,
		cfg.Timeout(), cfg.ConnectTimeout(), logger)

	var store ratelimit.Store
	if cfg.RateLimit.RedisAddr != "" {
		store = ratelimit.NewRedisStore(cfg.RateLimit.RedisAddr)
		logger.Info("レート制限カウンタにRedisを使用します", zap.String("addr", cfg.RateLimit.RedisAddr))
	} else {
		store = ratelimit.NewMemoryStore()
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	if len(cfg.Server.AllowedOrigins) > 0 {
		router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	}

	if err := loadTemplates(router, cfg.Server.TemplatesDir); err != nil {
		return nil, err
	}

	s := &Server{
		router:         router,
		cfg:            cfg,
		client:         client,
		publicLimiter:  ratelimit.New(store, cfg.RateLimit.PublicPerMinute, time.Minute, logger),
		projectLimiter: ratelimit.New(store, cfg.RateLimit.ProjectPerMinute, time.Minute, logger),
		logger:         logger,
	}
	s.setupRoutes()

	return s, nil
}

// loadTemplates はHTMLテンプレートと静的ファイルをルーターへ登録する。
func loadTemplates(router *gin.Engine, dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("テンプレートディレクトリが見つかりません: %w", err)
	}
	router.LoadHTMLGlob(filepath.Join(dir, "*.html"))

	staticDir := filepath.Join(dir, "static")
	if _, err := os.Stat(staticDir); err == nil {
		router.Static("/static", staticDir)
	}
	return nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%d", s.cfg.Server.Port))
}

// setupRoutes はルーティングを設定する。
// 各ルートの合成順序はレート制限、認証ゲート、資格情報の選択、中継の順。
func (s *Server) setupRoutes() {
	// ページと認証フロー（認証不要）
	s.router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, "/dashboard")
	})
	s.router.GET("/login", s.handleLoginPage())
	s.router.POST("/login", s.handleLogin())
	s.router.GET("/logout", s.handleLogout())
	s.router.GET("/dashboard", middleware.AuthRequired(), s.handleDashboardPage())

	// ヘルスチェック（認証・制限なし）
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "vocalyx-frontend"})
	})
	s.router.GET("/api/health", s.handleBackendHealth())

	// アップロード制限の公開
	s.router.GET("/api/limits", s.handleLimits())

	// 認証済みユーザーのセッション中継
	user := s.router.Group("/api/user")
	user.Use(middleware.AuthRequired())
	{
		user.GET("/me", s.relayAsUser("/api/user/me"))
		user.GET("/projects", s.relayAsUser("/api/user/projects"))
		user.GET("/transcriptions", s.relayAsUser("/api/user/transcriptions"))
		user.GET("/transcriptions/count", s.relayAsUser("/api/user/transcriptions/count"))
		user.GET("/transcriptions/:id", s.relayAsUserWithParam("/api/user/transcriptions/", "id"))
		user.DELETE("/transcriptions/:id", s.relayAsUserWithParam("/api/user/transcriptions/", "id"))
	}

	// プロジェクトキーによる転写投入（プロジェクト単位のレート制限）
	s.router.POST("/api/transcribe/:project_name",
		middleware.RateLimit(s.projectLimiter, middleware.KeyByProjectName),
		s.handleCreateTranscription())

	// 内部キーによる公開読み取り（IP単位のレート制限）
	public := s.router.Group("/api/transcribe")
	public.Use(middleware.RateLimit(s.publicLimiter, middleware.KeyByClientIP))
	{
		public.GET("/recent", s.relayInternal("/api/transcriptions/recent"))
		public.GET("/count", s.relayInternal("/api/transcriptions/count"))
		public.GET("/:id", s.relayInternalWithParam("/api/transcriptions/", "id"))
	}

	// 管理者専用（リクエストごとに権限を再確認）
	admin := s.router.Group("/api/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired(s.client, s.logger))
	{
		admin.GET("/admin-api-key", s.relayAsUser("/api/admin/admin-api-key"))
		admin.GET("/users", s.relayAsUser("/api/admin/users"))
		admin.POST("/users", s.relayAsUser("/api/admin/users"))
		admin.DELETE("/users/:id", s.relayAsUserWithParam("/api/admin/users/", "id"))
		admin.POST("/users/assign-project", s.relayAsUser("/api/admin/users/assign-project"))
		admin.POST("/users/remove-project", s.relayAsUser("/api/admin/users/remove-project"))
		admin.GET("/workers", s.relayAsUser("/api/admin/workers"))
	}

	// ワーカー監視（管理者専用）
	s.router.GET("/api/monitoring/status",
		middleware.AuthRequired(), middleware.AdminRequired(s.client, s.logger),
		s.handleMonitoringStatus())
}
