package db

import "gorm.io/gorm"

// MediaFile 定义了媒体库中的上传文件模型。
// UsageCount 是 post_media 关联表引用数的反范式缓存。
type MediaFile struct {
	gorm.Model
	Filename     string `gorm:"size:255;not null"`
	OriginalName string `gorm:"size:255"`
	MimeType     string `gorm:"size:100"`
	Size         int64
	URL          string `gorm:"size:500"`
	// Path 是相对上传根目录的规范存储路径，作为内容引用的匹配键
	Path       string `gorm:"size:500;uniqueIndex;not null"`
	Width      int
	Height     int
	Uploader   string `gorm:"size:100"`
	UsageCount int    `gorm:"default:0;index"`
}

// 媒体引用场景
const (
	MediaContextContent = "content"
	MediaContextCover   = "cover"
)

// PostMedia 是文章与媒体文件的多对多关联，Context 标记引用场景。
type PostMedia struct {
	gorm.Model
	PostID  uint   `gorm:"uniqueIndex:idx_post_media_pair;not null"`
	MediaID uint   `gorm:"uniqueIndex:idx_post_media_pair;not null"`
	Context string `gorm:"size:20;default:content"`
}

// TableName 指定自定义表名。
func (PostMedia) TableName() string {
	return "post_media"
}
