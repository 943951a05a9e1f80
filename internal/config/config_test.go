package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ListenAddr != ":8080" {
		t.Fatalf("默认监听地址不符: %s", cfg.ListenAddr)
	}
	if cfg.DatabasePath != "firefly.db" {
		t.Fatalf("默认数据库路径不符: %s", cfg.DatabasePath)
	}
	if cfg.SchedulerInterval != 60*time.Second {
		t.Fatalf("默认扫描间隔不符: %v", cfg.SchedulerInterval)
	}
}

func TestLoadSchedulerIntervalFloor(t *testing.T) {
	t.Setenv("SCHEDULER_INTERVAL_SECONDS", "2")

	cfg := Load()
	if cfg.SchedulerInterval != 10*time.Second {
		t.Fatalf("过小的间隔应被抬升到 10 秒，实际 %v", cfg.SchedulerInterval)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SCHEDULER_INTERVAL_SECONDS", "120")
	t.Setenv("CACHE_DEFAULT_TTL_SECONDS", "30")

	cfg := Load()
	if cfg.ListenAddr != ":9000" {
		t.Fatalf("监听地址应跟随 PORT，实际 %s", cfg.ListenAddr)
	}
	if cfg.SchedulerInterval != 2*time.Minute {
		t.Fatalf("扫描间隔未生效: %v", cfg.SchedulerInterval)
	}
	if cfg.CacheDefaultTTL != 30*time.Second {
		t.Fatalf("缓存默认 TTL 未生效: %v", cfg.CacheDefaultTTL)
	}
}

func TestLoadInvalidIntervalFallsBack(t *testing.T) {
	t.Setenv("SCHEDULER_INTERVAL_SECONDS", "abc")

	cfg := Load()
	if cfg.SchedulerInterval != 60*time.Second {
		t.Fatalf("非法间隔应回退默认值，实际 %v", cfg.SchedulerInterval)
	}
}
