package db

import "gorm.io/gorm"

// PostRevision 记录文章可编辑字段的不可变历史快照。
// 每次成功的创建、更新或版本恢复都会追加一条记录。
type PostRevision struct {
	gorm.Model
	PostID      uint `gorm:"index;not null"`
	Post        Post
	Title       string `gorm:"size:255"`
	Slug        string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	Content     string `gorm:"type:text"`
	// Editor 为触发快照的操作者，系统触发时为空
	Editor *string `gorm:"size:100"`
}

// TableName 指定自定义表名。
func (PostRevision) TableName() string {
	return "post_revisions"
}
