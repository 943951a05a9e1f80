package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fireflyblog/internal/cache"
	"github.com/fireflyblog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// CacheKindPosts 表示文章列表与详情的缓存类别。
	CacheKindPosts = "posts"
	// CacheKindSettings 表示站点设置的缓存类别。
	CacheKindSettings = "settings"

	defaultPostsCacheTTLSeconds    = 300
	defaultSettingsCacheTTLSeconds = 600
)

// SiteSettings 描述后台可配置的站点信息。
type SiteSettings struct {
	SiteName         string
	SiteDescription  string
	PostsCacheTTL    int
	SettingsCacheTTL int
}

// SiteSettingsInput 用于更新站点设置。
type SiteSettingsInput struct {
	SiteName         string
	SiteDescription  string
	PostsCacheTTL    int
	SettingsCacheTTL int
}

// SiteSettingService 提供站点设置的读取与更新能力，
// 同时作为缓存层的动态 TTL 来源。
type SiteSettingService struct {
	db         *gorm.DB
	invalidate func()
}

// NewSiteSettingService 构造 SiteSettingService。
func NewSiteSettingService(gdb *gorm.DB) *SiteSettingService {
	return &SiteSettingService{db: gdb, invalidate: func() {}}
}

// SetCacheInvalidator 注册缓存失效回调。
func (s *SiteSettingService) SetCacheInvalidator(fn func()) {
	if fn == nil {
		s.invalidate = func() {}
		return
	}
	s.invalidate = fn
}

var siteSettingKeys = []string{
	db.SettingKeySiteName,
	db.SettingKeySiteDescription,
	db.SettingKeyPostsCacheTTL,
	db.SettingKeySettingsCacheTTL,
}

// GetSettings 读取站点设置，未设置的键返回默认值。
func (s *SiteSettingService) GetSettings() (SiteSettings, error) {
	result := SiteSettings{
		SiteName:         "Firefly Blog",
		PostsCacheTTL:    defaultPostsCacheTTLSeconds,
		SettingsCacheTTL: defaultSettingsCacheTTLSeconds,
	}

	var records []db.SiteSetting
	if err := s.db.Where("key IN ?", siteSettingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("load site settings: %w", err)
	}

	for _, record := range records {
		switch record.Key {
		case db.SettingKeySiteName:
			if strings.TrimSpace(record.Value) != "" {
				result.SiteName = record.Value
			}
		case db.SettingKeySiteDescription:
			result.SiteDescription = record.Value
		case db.SettingKeyPostsCacheTTL:
			if seconds := parseTTLSeconds(record.Value); seconds > 0 {
				result.PostsCacheTTL = seconds
			}
		case db.SettingKeySettingsCacheTTL:
			if seconds := parseTTLSeconds(record.Value); seconds > 0 {
				result.SettingsCacheTTL = seconds
			}
		}
	}

	return result, nil
}

// UpdateSettings 保存站点设置，非法的 TTL 回退默认值。
func (s *SiteSettingService) UpdateSettings(input SiteSettingsInput) (SiteSettings, error) {
	sanitized := SiteSettings{
		SiteName:         strings.TrimSpace(input.SiteName),
		SiteDescription:  strings.TrimSpace(input.SiteDescription),
		PostsCacheTTL:    input.PostsCacheTTL,
		SettingsCacheTTL: input.SettingsCacheTTL,
	}
	if sanitized.SiteName == "" {
		sanitized.SiteName = "Firefly Blog"
	}
	if sanitized.PostsCacheTTL <= 0 {
		sanitized.PostsCacheTTL = defaultPostsCacheTTLSeconds
	}
	if sanitized.SettingsCacheTTL <= 0 {
		sanitized.SettingsCacheTTL = defaultSettingsCacheTTLSeconds
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertSetting(tx, db.SettingKeySiteName, sanitized.SiteName); err != nil {
			return err
		}
		if err := upsertSetting(tx, db.SettingKeySiteDescription, sanitized.SiteDescription); err != nil {
			return err
		}
		if err := upsertSetting(tx, db.SettingKeyPostsCacheTTL, strconv.Itoa(sanitized.PostsCacheTTL)); err != nil {
			return err
		}
		return upsertSetting(tx, db.SettingKeySettingsCacheTTL, strconv.Itoa(sanitized.SettingsCacheTTL))
	})
	if err != nil {
		return SiteSettings{}, fmt.Errorf("update site settings: %w", err)
	}

	s.invalidate()
	return sanitized, nil
}

// CacheTTLProvider 将站点设置映射为缓存层的动态 TTL 来源。
// 读取失败时返回 0，由缓存层回退默认 TTL。
func (s *SiteSettingService) CacheTTLProvider() cache.TTLProvider {
	return func(kind string) time.Duration {
		settings, err := s.GetSettings()
		if err != nil {
			return 0
		}
		switch kind {
		case CacheKindPosts:
			return time.Duration(settings.PostsCacheTTL) * time.Second
		case CacheKindSettings:
			return time.Duration(settings.SettingsCacheTTL) * time.Second
		}
		return 0
	}
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SiteSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

func parseTTLSeconds(value string) int {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return 0
	}
	return seconds
}
