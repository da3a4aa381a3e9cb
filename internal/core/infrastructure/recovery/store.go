// Package recovery 提供基于BigCache的恢复状态缓存
//
// 执行重载前，目标的恢复状态（滚动位置、表单内容等）会被保存在这里，
// 宿主在重载完成后按目标 ID 取回。条目在有效期过后视为不存在。
package recovery

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"github.com/weisyn/memwatch/internal/core/infrastructure/log"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
)

// headerSize 每个条目前缀保存时间戳（UnixNano）
const headerSize = 8

// ErrClosed 存储已关闭
var ErrClosed = errors.New("recovery store closed")

// Store 恢复状态缓存
type Store struct {
	cache  *bigcache.BigCache
	clock  clock.Clock
	ttl    time.Duration
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewStore 创建恢复状态缓存，ttl 同时作为 BigCache 的 LifeWindow
func NewStore(ttl time.Duration, clk clock.Clock, logger *zap.Logger) (*Store, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("恢复状态有效期必须为正数: %s", ttl)
	}

	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 16 // 目标数量是几十个的量级
	cfg.MaxEntriesInWindow = 256
	cfg.MaxEntrySize = 4096
	cfg.CleanWindow = ttl / 2
	cfg.Verbose = false

	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("创建BigCache实例失败: %w", err)
	}

	return &Store{
		cache:  cache,
		clock:  clk,
		ttl:    ttl,
		logger: log.NewModuleZapLogger(logger, "recovery"),
	}, nil
}

// Save 保存目标的恢复状态，覆盖旧值
func (s *Store) Save(targetID string, state []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	buf := make([]byte, headerSize+len(state))
	binary.BigEndian.PutUint64(buf[:headerSize], uint64(s.clock.Now().UnixNano()))
	copy(buf[headerSize:], state)

	if err := s.cache.Set(targetID, buf); err != nil {
		return fmt.Errorf("保存恢复状态失败: %w", err)
	}
	s.logger.Debug("recovery_state_saved", zap.String("target", targetID), zap.Int("bytes", len(state)))
	return nil
}

// Load 读取目标的恢复状态；不存在或已过期时返回 false
func (s *Store) Load(targetID string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false
	}

	buf, err := s.cache.Get(targetID)
	if err != nil || len(buf) < headerSize {
		return nil, false
	}

	savedAt := time.Unix(0, int64(binary.BigEndian.Uint64(buf[:headerSize])))
	if s.clock.Since(savedAt) > s.ttl {
		_ = s.cache.Delete(targetID)
		return nil, false
	}

	out := make([]byte, len(buf)-headerSize)
	copy(out, buf[headerSize:])
	return out, true
}

// Delete 删除目标的恢复状态
func (s *Store) Delete(targetID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	_ = s.cache.Delete(targetID)
}

// Len 当前条目数（可能包含尚未清理的过期条目）
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0
	}
	return s.cache.Len()
}

// Close 关闭缓存，重复调用无副作用
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.cache.Close()
}

// ModuleName 实现 MemoryReporter
func (s *Store) ModuleName() string { return "recovery.store" }

// CollectMemoryStats 实现 MemoryReporter
func (s *Store) CollectMemoryStats() metrics.ModuleMemoryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return metrics.ModuleMemoryStats{Module: s.ModuleName(), Layer: "infrastructure"}
	}
	return metrics.ModuleMemoryStats{
		Module:      s.ModuleName(),
		Layer:       "infrastructure",
		Objects:     int64(s.cache.Len()),
		ApproxBytes: int64(s.cache.Capacity()),
		CacheItems:  int64(s.cache.Len()),
	}
}
