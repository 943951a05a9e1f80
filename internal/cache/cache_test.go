package cache

import (
	"testing"
	"time"
)

func TestStoreSetGet(t *testing.T) {
	store := NewStore(time.Minute)

	key := Key("posts", "list", "1")
	if _, ok := store.Get(key); ok {
		t.Fatal("未写入的键不应命中")
	}

	store.Set(key, "posts", "payload")
	value, ok := store.Get(key)
	if !ok || value.(string) != "payload" {
		t.Fatalf("读取缓存失败: %v %v", value, ok)
	}
}

func TestStoreExpiry(t *testing.T) {
	store := NewStore(time.Minute)
	store.SetTTLProvider(func(kind string) time.Duration {
		return 10 * time.Millisecond
	})

	store.Set("k", "posts", 1)
	time.Sleep(30 * time.Millisecond)

	if _, ok := store.Get("k"); ok {
		t.Fatal("过期键不应命中")
	}
	if store.Len() != 0 {
		t.Fatalf("过期键读取后应被清理，实际 %d", store.Len())
	}
}

func TestEvictIfExpiredKeepsFreshValue(t *testing.T) {
	store := NewStore(time.Minute)
	store.Set("k", "posts", "fresh")

	// 模拟读到过期快照的 Get 在新值写入后才执行删除
	store.evictIfExpired("k")
	value, ok := store.Get("k")
	if !ok || value.(string) != "fresh" {
		t.Fatalf("未过期的新值不应被清理: %v %v", value, ok)
	}

	store.items["k"] = entry{value: "stale", expiresAt: time.Now().Add(-time.Second)}
	store.evictIfExpired("k")
	if _, ok := store.items["k"]; ok {
		t.Fatal("过期条目复查后应被删除")
	}
}

func TestStoreDeletePrefix(t *testing.T) {
	store := NewStore(time.Minute)
	store.Set(Key("posts", "a"), "posts", 1)
	store.Set(Key("posts", "b"), "posts", 2)
	store.Set(Key("settings", "x"), "settings", 3)

	if removed := store.DeletePrefix("posts:"); removed != 2 {
		t.Fatalf("应删除 2 个键，实际 %d", removed)
	}
	if _, ok := store.Get(Key("settings", "x")); !ok {
		t.Fatal("其他前缀的键不应受影响")
	}
}

func TestKeyStable(t *testing.T) {
	first := Key("posts", "list", "page=1")
	second := Key("posts", "list", "page=1")
	other := Key("posts", "list", "page=2")

	if first != second {
		t.Fatalf("相同输入应生成相同键: %s vs %s", first, second)
	}
	if first == other {
		t.Fatal("不同输入不应冲突")
	}
}

func TestTTLProviderFallback(t *testing.T) {
	store := NewStore(time.Hour)
	store.SetTTLProvider(func(kind string) time.Duration { return 0 })

	store.Set("k", "posts", 1)
	if _, ok := store.Get("k"); !ok {
		t.Fatal("提供方返回 0 时应回退默认 TTL")
	}
}
