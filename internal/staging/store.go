package staging

import (
	"context"
	"sync"
	"time"
)

// ==================== KV 存储抽象 ====================

// Store 会话级键值存储抽象
// 向导逻辑只依赖该接口，内存实现用于测试/单机，redis 实现用于多实例部署
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ==================== 内存实现 ====================

type memoryItem struct {
	value      string
	expiration int64 // 0 表示不过期
}

// MemoryStore 基于 sync.Map 的内存存储，懒删除过期键
type MemoryStore struct {
	items sync.Map
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	val, ok := s.items.Load(key)
	if !ok {
		return "", false, nil
	}

	item := val.(memoryItem)

	// 过期检查（懒删除）
	if item.expiration > 0 && time.Now().UnixNano() > item.expiration {
		s.items.Delete(key)
		return "", false, nil
	}

	return item.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}
	s.items.Store(key, memoryItem{value: value, expiration: exp})
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.items.Delete(key)
	return nil
}
