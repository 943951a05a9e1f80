package db

import (
	"time"

	"gorm.io/gorm"
)

// 文章生命周期状态
const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
)

// Post 定义了文章模型
type Post struct {
	gorm.Model
	Title       string `gorm:"size:255;not null"`
	Slug        string `gorm:"size:255;uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	Content     string `gorm:"type:text"`
	Image       string `gorm:"size:500"`
	Status      string `gorm:"size:20;default:draft;index"`
	PublishedAt time.Time
	ScheduledAt *time.Time
	CategoryID  *uint
	Category    *Category
	Tags        []Tag `gorm:"many2many:post_tags;"`
	Pinned      bool  `gorm:"default:false;index"`
	PinOrder    int   `gorm:"default:0;index"`
	// Password 存储 bcrypt 哈希，空字符串表示无密码保护
	Password string `gorm:"size:255"`
	// 自动保存槽位：独立于已提交内容的编辑器草稿缓冲
	AutosaveData *string `gorm:"type:text"`
	AutosaveAt   *time.Time
}

// IsDraft 是 Status 的派生投影，保持与历史字段的兼容语义。
func (p *Post) IsDraft() bool {
	return p.Status != PostStatusPublished
}

// HasPassword 返回文章是否启用了访问密码。
func (p *Post) HasPassword() bool {
	return p.Password != ""
}

// AutosaveAvailable 返回是否存在未提交的自动保存草稿。
func (p *Post) AutosaveAvailable() bool {
	return p.AutosaveData != nil
}
