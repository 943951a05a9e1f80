package service

import (
	"testing"
	"time"
)

func TestSiteSettingsDefaults(t *testing.T) {
	gdb := newTestDB(t)
	settings := NewSiteSettingService(gdb)

	got, err := settings.GetSettings()
	if err != nil {
		t.Fatalf("读取设置失败: %v", err)
	}
	if got.SiteName != "Firefly Blog" {
		t.Fatalf("默认站点名不符: %q", got.SiteName)
	}
	if got.PostsCacheTTL != defaultPostsCacheTTLSeconds {
		t.Fatalf("默认文章缓存 TTL 不符: %d", got.PostsCacheTTL)
	}
}

func TestSiteSettingsUpdateRoundTrip(t *testing.T) {
	gdb := newTestDB(t)
	settings := NewSiteSettingService(gdb)

	updated, err := settings.UpdateSettings(SiteSettingsInput{
		SiteName:        "萤火虫博客",
		SiteDescription: "写字的地方",
		PostsCacheTTL:   120,
	})
	if err != nil {
		t.Fatalf("更新设置失败: %v", err)
	}
	if updated.SettingsCacheTTL != defaultSettingsCacheTTLSeconds {
		t.Fatalf("非法 TTL 应回退默认值，实际 %d", updated.SettingsCacheTTL)
	}

	// 重复更新走 upsert 路径
	if _, err := settings.UpdateSettings(SiteSettingsInput{
		SiteName:      "萤火虫博客",
		PostsCacheTTL: 180,
	}); err != nil {
		t.Fatalf("重复更新失败: %v", err)
	}

	got, err := settings.GetSettings()
	if err != nil {
		t.Fatalf("读取设置失败: %v", err)
	}
	if got.PostsCacheTTL != 180 {
		t.Fatalf("更新后的 TTL 未生效: %d", got.PostsCacheTTL)
	}
	if got.SiteName != "萤火虫博客" {
		t.Fatalf("站点名未生效: %q", got.SiteName)
	}
}

func TestCacheTTLProvider(t *testing.T) {
	gdb := newTestDB(t)
	settings := NewSiteSettingService(gdb)

	if _, err := settings.UpdateSettings(SiteSettingsInput{
		SiteName:      "x",
		PostsCacheTTL: 42,
	}); err != nil {
		t.Fatalf("更新设置失败: %v", err)
	}

	provider := settings.CacheTTLProvider()
	if ttl := provider(CacheKindPosts); ttl != 42*time.Second {
		t.Fatalf("posts TTL 不符: %v", ttl)
	}
	if ttl := provider("unknown"); ttl != 0 {
		t.Fatalf("未知类别应返回 0，实际 %v", ttl)
	}
}
