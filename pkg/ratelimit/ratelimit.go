package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Store は固定ウィンドウカウンタの増分操作を提供する。
// Incrは同一キーに対するread-modify-writeをアトミックに行わなければ
// ならない。カウンタの取りこぼしは流量制限の弱体化に直結する。
type Store interface {
	// Incr は現在のウィンドウにおけるkeyのカウンタを1増やし、
	// 増分後の値を返す。ウィンドウが切り替わっていた場合はカウンタを
	// リセットしてから増分する。
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter は固定ウィンドウ方式のレートリミッタ。
// ウィンドウ内のリクエスト数が閾値を超えた場合に拒否する。
type Limiter struct {
	// store はカウンタの保存先。
	store Store
	// limit はウィンドウあたりの許可リクエスト数。
	limit int64
	// window はウィンドウ幅。
	window time.Duration
	logger *zap.Logger
}

// New は新しい固定ウィンドウレートリミッタを生成する。
func New(store Store, limit int, window time.Duration, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		store:  store,
		limit:  int64(limit),
		window: window,
		logger: logger,
	}
}

// Allow はkeyからのリクエストを許可するかを判定する。
// カウンタストアの障害時は警告を出した上で許可する（流量制限より
// サービスの可用性を優先する）。メモリストアは障害を起こさない。
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	count, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		l.logger.Warn("レートリミットカウンタの更新に失敗", zap.Error(err))
		return true
	}
	return count <= l.limit
}

// Limit はウィンドウあたりの許可リクエスト数を返す。
func (l *Limiter) Limit() int {
	return int(l.limit)
}

// Window はウィンドウ幅を返す。Retry-Afterヘッダの算出に使用する。
func (l *Limiter) Window() time.Duration {
	return l.window
}
