package db

import "gorm.io/gorm"

// Category 定义了文章分类模型
type Category struct {
	gorm.Model
	Name  string `gorm:"size:50;unique;not null"`
	Posts []Post
}
