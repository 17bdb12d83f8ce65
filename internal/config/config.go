package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// PlaceholderInternalKey は配布時の内部サービスキーの仮値。
// この値のまま運用してはならないため、検出時はキーを無効化する。
const PlaceholderInternalKey = "change_me_to_a_secure_secret_key"

// Config はゲートウェイ全体の設定。
type Config struct {
	// Server はゲートウェイ自身のHTTPサーバー設定。
	Server ServerConfig `yaml:"server"`
	// API はバックエンドAPIへの接続設定。
	API APIConfig `yaml:"api"`
	// Security は内部サービスキーの設定。
	Security SecurityConfig `yaml:"security"`
	// Limits はアップロード制限の設定。
	Limits LimitsConfig `yaml:"limits"`
	// RateLimit はレート制限の設定。
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	// Workers は転写ワーカーの設定。
	Workers WorkersConfig `yaml:"workers"`
	// Logging はログ出力の設定。
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig はゲートウェイ自身のHTTPサーバー設定。
type ServerConfig struct {
	// Port は待ち受けポート番号。
	Port int `yaml:"port"`
	// TemplatesDir はHTMLテンプレートのディレクトリ。
	TemplatesDir string `yaml:"templates_dir"`
	// AllowedOrigins はCORSで許可するオリジンの一覧。
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// APIConfig はバックエンドAPIへの接続設定。
type APIConfig struct {
	// URL はバックエンドAPIのベースURL。
	URL string `yaml:"url"`
	// TimeoutSeconds はリクエスト全体のタイムアウト秒数。
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// ConnectTimeoutSeconds は接続確立のタイムアウト秒数。
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
	// AdminProject は技術用デフォルトプロジェクト名。
	AdminProject string `yaml:"admin_project"`
}

// SecurityConfig は内部サービスキーの設定。
type SecurityConfig struct {
	// InternalAPIKey はサービス間通信用の内部キー。
	InternalAPIKey string `yaml:"internal_api_key"`
}

// LimitsConfig はアップロード制限の設定。
type LimitsConfig struct {
	// MaxFileSizeMB はアップロード可能な最大ファイルサイズ(MB)。
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
	// AllowedExtensions は受け付ける音声ファイルの拡張子。
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// RateLimitConfig はレート制限の設定。
type RateLimitConfig struct {
	// PublicPerMinute は公開読み取りエンドポイントのIPあたり毎分上限。
	PublicPerMinute int `yaml:"public_per_minute"`
	// ProjectPerMinute は転写投入のプロジェクトあたり毎分上限。
	ProjectPerMinute int `yaml:"project_per_minute"`
	// RedisAddr は複数台構成でカウンタを共有する場合のRedisアドレス。
	// 空の場合はインメモリのカウンタを使用する。
	RedisAddr string `yaml:"redis_addr"`
}

// WorkersConfig は転写ワーカーの設定。
type WorkersConfig struct {
	// URLs は監視対象ワーカーのベースURL一覧。
	URLs []string `yaml:"urls"`
}

// LoggingConfig はログ出力の設定。
type LoggingConfig struct {
	// Level はログレベル(debug, info, warn, error)。
	Level string `yaml:"level"`
	// FileEnabled はファイル出力の有効化フラグ。
	FileEnabled bool `yaml:"file_enabled"`
	// FilePath はファイル出力先のパス。
	FilePath string `yaml:"file_path"`
	// Colored はコンソール出力のレベル色付けフラグ。
	Colored bool `yaml:"colored"`
}

// Default はデフォルト設定を返す。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8000,
			TemplatesDir: "templates",
		},
		API: APIConfig{
			URL:                   "http://localhost:8080",
			TimeoutSeconds:        30,
			ConnectTimeoutSeconds: 5,
			AdminProject:          "default_internal",
		},
		Security: SecurityConfig{
			InternalAPIKey: PlaceholderInternalKey,
		},
		Limits: LimitsConfig{
			MaxFileSizeMB:     100,
			AllowedExtensions: []string{"wav", "mp3", "m4a", "flac", "ogg", "webm"},
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute:  100,
			ProjectPerMinute: 10,
		},
		Workers: WorkersConfig{
			URLs: []string{"http://localhost:8001"},
		},
		Logging: LoggingConfig{
			Level:       "info",
			FileEnabled: true,
			FilePath:    "logs/vocalyx.log",
		},
	}
}

// Load は設定ファイルを読み込み、環境変数による上書きを適用する。
// ファイルが存在しない場合はデフォルト設定を書き出して利用する。
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := writeDefault(path, cfg); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// writeDefault はデフォルト設定をファイルへ書き出す。
func writeDefault(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("デフォルト設定のシリアライズに失敗しました: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("デフォルト設定ファイルの作成に失敗しました: %w", err)
	}
	return nil
}

// applyEnv は環境変数による設定の上書きを適用する。
func (c *Config) applyEnv() {
	if port, err := strconv.Atoi(getEnvOr("PORT", "")); err == nil && port > 0 {
		c.Server.Port = port
	}
	c.API.URL = getEnvOr("VOCALYX_API_URL", c.API.URL)
	c.Security.InternalAPIKey = getEnvOr("VOCALYX_INTERNAL_API_KEY", c.Security.InternalAPIKey)
	c.RateLimit.RedisAddr = getEnvOr("VOCALYX_REDIS_ADDR", c.RateLimit.RedisAddr)
	c.Logging.Level = getEnvOr("VOCALYX_LOG_LEVEL", c.Logging.Level)
}

// getEnvOr は環境変数の値を返す。未設定の場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// Validate は設定値の健全性を確認し、危険な値を無効化する。
// 内部サービスキーが仮値または空の場合は警告してキーを空にする。
// キーが空の間、内部キーを要するエンドポイントは機能しない。
func (c *Config) Validate(logger *zap.Logger) {
	if c.Security.InternalAPIKey == "" || c.Security.InternalAPIKey == PlaceholderInternalKey {
		logger.Warn("内部サービスキーが未設定または仮値のため、内部API連携を無効化します")
		c.Security.InternalAPIKey = ""
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 30
	}
	if c.API.ConnectTimeoutSeconds <= 0 || c.API.ConnectTimeoutSeconds >= c.API.TimeoutSeconds {
		logger.Warn("接続タイムアウトが不正なため既定値を使用します",
			zap.Int("connect_timeout_seconds", c.API.ConnectTimeoutSeconds),
			zap.Int("timeout_seconds", c.API.TimeoutSeconds),
		)
		fallback := 5
		if fallback >= c.API.TimeoutSeconds {
			fallback = c.API.TimeoutSeconds / 2
			if fallback < 1 {
				fallback = 1
			}
		}
		c.API.ConnectTimeoutSeconds = fallback
	}
	if c.RateLimit.PublicPerMinute <= 0 {
		c.RateLimit.PublicPerMinute = 100
	}
	if c.RateLimit.ProjectPerMinute <= 0 {
		c.RateLimit.ProjectPerMinute = 10
	}
}

// Timeout はバックエンドAPIのリクエスト全体タイムアウトを返す。
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// ConnectTimeout はバックエンドAPIの接続タイムアウトを返す。
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.API.ConnectTimeoutSeconds) * time.Second
}

// MaxFileSizeBytes はアップロード可能な最大ファイルサイズをバイト数で返す。
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Limits.MaxFileSizeMB) * 1024 * 1024
}
