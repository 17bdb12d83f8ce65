// 音声転写ダッシュボードのフロントエンドゲートウェイのエントリポイント。
// ブラウザからの唯一の入口であり、セッション認証とレート制限を行い、
// 資格情報を付け替えてバックエンドAPIへ中継する。
package main

import (
	"log"
	"os"

	"github.com/INTERACT-IV/vocalyx-frontend/internal/config"
	"github.com/INTERACT-IV/vocalyx-frontend/internal/gateway"
	"github.com/INTERACT-IV/vocalyx-frontend/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	configPath := os.Getenv("VOCALYX_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		FileEnabled: cfg.Logging.FileEnabled,
		FilePath:    cfg.Logging.FilePath,
		Colored:     cfg.Logging.Colored,
	})
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg.Validate(logger)

	server, err := gateway.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("ゲートウェイサーバーの初期化に失敗", zap.Error(err))
	}

	logger.Info("ゲートウェイサービスを起動します", zap.Int("port", cfg.Server.Port))
	if err := server.Run(); err != nil {
		logger.Fatal("ゲートウェイサービスの起動に失敗", zap.Error(err))
	}
}
