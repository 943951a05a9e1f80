package db

import "gorm.io/gorm"

// SiteSetting 存储后台可配置的站点级键值对。
type SiteSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (SiteSetting) TableName() string {
	return "site_settings"
}

const (
	// SettingKeySiteName 表示站点名称。
	SettingKeySiteName = "site_name"
	// SettingKeySiteDescription 表示站点描述。
	SettingKeySiteDescription = "site_description"
	// SettingKeyPostsCacheTTL 表示文章缓存有效期（秒）。
	SettingKeyPostsCacheTTL = "cache_ttl_posts"
	// SettingKeySettingsCacheTTL 表示设置缓存有效期（秒）。
	SettingKeySettingsCacheTTL = "cache_ttl_settings"
)
