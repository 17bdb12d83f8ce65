package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config はロガーの構成。
type Config struct {
	// Level はログレベル(debug, info, warn, error)。
	Level string
	// FileEnabled はファイル出力の有効化フラグ。
	FileEnabled bool
	// FilePath はファイル出力先のパス。
	FilePath string
	// Colored はコンソール出力のレベル色付けフラグ。
	Colored bool
}

// New は構成に従ったロガーを生成する。コンソールへは常に出力し、
// FileEnabledが真の場合はJSON形式でファイルへも出力する。
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("ログレベルの解析に失敗しました: %w", err)
	}

	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	if cfg.Colored {
		consoleEncoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		consoleEncoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleEncoderCfg),
		zapcore.Lock(os.Stdout),
		level,
	)

	if !cfg.FileEnabled {
		return zap.New(consoleCore), nil
	}

	if dir := filepath.Dir(cfg.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ログディレクトリの作成に失敗しました: %w", err)
		}
	}
	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ログファイルのオープンに失敗しました: %w", err)
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.Lock(file),
		level,
	)
	return zap.New(zapcore.NewTee(consoleCore, fileCore)), nil
}
