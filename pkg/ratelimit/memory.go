package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore はプロセス内メモリ上の固定ウィンドウカウンタストア。
// 単一インスタンス構成向け。複数レプリカで動かす場合はプロセスごとに
// カウンタが分かれて過少計上になるため、RedisStoreを使用する。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	// lastSweep は期限切れエントリを最後に一掃した時刻。
	lastSweep time.Time
	// now は現在時刻の取得関数。テストで差し替える。
	now func() time.Time
}

// windowEntry は1キー分のウィンドウ開始時刻とカウンタ。
type windowEntry struct {
	windowStart time.Time
	window      time.Duration
	count       int64
}

// NewMemoryStore は新しいメモリカウンタストアを生成する。
// エントリはキーからの初回リクエスト時に遅延生成される。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}
}

// Incr はStoreを実装する。ミューテックスにより同一キーへの同時増分でも
// 取りこぼしは発生しない。ウィンドウ経過後はカウンタを1から数え直す。
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.entries[key]
	if !ok || now.Sub(entry.windowStart) >= window {
		entry = &windowEntry{windowStart: now, window: window}
		s.entries[key] = entry
	}
	entry.count++
	count := entry.count

	s.sweep(now, window)
	return count, nil
}

// sweep はウィンドウを過ぎたエントリを破棄する。呼び出し元がロックを
// 保持していること。一見のキーがエントリを無限に残さないよう、増分の
// ついでにウィンドウ幅と同じ周期で一掃する。
func (s *MemoryStore) sweep(now time.Time, interval time.Duration) {
	if now.Sub(s.lastSweep) < interval {
		return
	}
	s.lastSweep = now
	for key, entry := range s.entries {
		if now.Sub(entry.windowStart) >= entry.window {
			delete(s.entries, key)
		}
	}
}
