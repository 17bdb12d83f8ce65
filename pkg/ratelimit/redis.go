package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript はカウンタ増分と有効期限設定をアトミックに行うLuaスクリプト。
// 初回増分時のみ有効期限を設定する。
var incrScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RedisStore はRedisを共有カウンタとして使う固定ウィンドウストア。
// ゲートウェイを複数レプリカで動かす場合にカウンタの過少計上を防ぐ。
type RedisStore struct {
	client *redis.Client
	// prefix は他用途のキーとの衝突を避けるためのキープレフィックス。
	prefix string
}

// NewRedisStore は指定アドレスのRedisへ接続するストアを生成する。
func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: "ratelimit:",
	}
}

// Incr はStoreを実装する。キーはウィンドウ開始時刻でバケット化され、
// 1回のLua実行で増分と有効期限設定が完結するため競合は発生しない。
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	bucket := time.Now().UnixNano() / window.Nanoseconds()
	redisKey := fmt.Sprintf("%s%s:%d", s.prefix, key, bucket)

	count, err := incrScript.Run(ctx, s.client, []string{redisKey}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("Redisカウンタの増分に失敗: %w", err)
	}
	return count, nil
}

// Close はRedis接続を閉じる。
func (s *RedisStore) Close() error {
	return s.client.Close()
}
