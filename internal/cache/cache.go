package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// TTLProvider 按缓存类别返回有效期，返回 0 或负值时使用默认值。
// 用于从站点设置动态读取 TTL，避免全局可变的配置入口。
type TTLProvider func(kind string) time.Duration

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Store 是一个带 TTL 的进程内缓存，用于降低读路径的数据库压力。
type Store struct {
	mu         sync.RWMutex
	items      map[string]entry
	defaultTTL time.Duration
	ttlFor     TTLProvider
}

// NewStore 创建缓存实例，defaultTTL 非正时回退为 5 分钟。
func NewStore(defaultTTL time.Duration) *Store {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &Store{
		items:      make(map[string]entry),
		defaultTTL: defaultTTL,
	}
}

// SetTTLProvider 注入动态 TTL 来源，传 nil 恢复默认行为。
func (s *Store) SetTTLProvider(provider TTLProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttlFor = provider
}

// Key 根据前缀和参数生成稳定的缓存键。
func Key(prefix string, parts ...string) string {
	hash := xxhash.Sum64String(strings.Join(parts, "|"))
	return fmt.Sprintf("%s:%016x", prefix, hash)
}

// Get 返回缓存值，不存在或已过期时返回 false。
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(item.expiresAt) {
		s.evictIfExpired(key)
		return nil, false
	}
	return item.value, true
}

// evictIfExpired 在写锁内复查后再删除，避免误删读锁释放后并发写入的新值。
func (s *Store) evictIfExpired(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[key]; ok && time.Now().After(item.expiresAt) {
		delete(s.items, key)
	}
}

// Set 写入缓存，kind 用于查询动态 TTL。
func (s *Store) Set(key, kind string, value interface{}) {
	ttl := s.ttl(kind)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
}

// Delete 删除指定键。
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// DeletePrefix 删除所有带指定前缀的键，返回删除数量。
func (s *Store) DeletePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

// Clear 清空全部缓存。
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]entry)
}

// Len 返回当前键数量，含未清理的过期键。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) ttl(kind string) time.Duration {
	s.mu.RLock()
	provider := s.ttlFor
	s.mu.RUnlock()

	if provider != nil {
		if ttl := provider(kind); ttl > 0 {
			return ttl
		}
	}
	return s.defaultTTL
}
