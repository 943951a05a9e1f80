package service

import (
	"errors"

	"github.com/fireflyblog/internal/db"
	"gorm.io/gorm"
)

var (
	ErrTagNotFound      = errors.New("tag not found")
	ErrTagInUse         = errors.New("tag is associated with posts")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryInUse    = errors.New("category is associated with posts")
)

// TaxonomyService 提供分类与标签的查询和清理能力。
// 创建走文章保存路径的 get-or-create，这里只负责列表与删除。
type TaxonomyService struct {
	db *gorm.DB
}

// TagUsage 描述标签及其关联文章数。
type TagUsage struct {
	ID    uint
	Name  string
	Count int64
}

// CategoryUsage 描述分类及其关联文章数。
type CategoryUsage struct {
	ID    uint
	Name  string
	Count int64
}

// NewTaxonomyService creates a TaxonomyService instance.
func NewTaxonomyService(gdb *gorm.DB) *TaxonomyService {
	return &TaxonomyService{db: gdb}
}

// ListTags 返回所有标签及使用次数，按名称排序。
func (s *TaxonomyService) ListTags() ([]TagUsage, error) {
	var rows []TagUsage
	if err := s.db.Table("tags").
		Select("tags.id, tags.name, COUNT(post_tags.post_id) AS count").
		Joins("LEFT JOIN post_tags ON post_tags.tag_id = tags.id").
		Group("tags.id, tags.name").
		Order("tags.name asc").
		Order("tags.id asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListCategories 返回所有分类及关联文章数，按名称排序。
func (s *TaxonomyService) ListCategories() ([]CategoryUsage, error) {
	var rows []CategoryUsage
	if err := s.db.Table("categories").
		Select("categories.id, categories.name, COUNT(posts.id) AS count").
		Joins("LEFT JOIN posts ON posts.category_id = categories.id AND posts.deleted_at IS NULL").
		Where("categories.deleted_at IS NULL").
		Group("categories.id, categories.name").
		Order("categories.name asc").
		Order("categories.id asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteTag 删除未被任何文章使用的标签。
func (s *TaxonomyService) DeleteTag(id uint) error {
	var tag db.Tag
	if err := s.db.First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTagNotFound
		}
		return err
	}

	var count int64
	if err := s.db.Table("post_tags").Where("tag_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrTagInUse
	}

	return s.db.Unscoped().Delete(&tag).Error
}

// DeleteCategory 删除未被任何文章使用的分类。
func (s *TaxonomyService) DeleteCategory(id uint) error {
	var category db.Category
	if err := s.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}

	var count int64
	if err := s.db.Model(&db.Post{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	return s.db.Unscoped().Delete(&category).Error
}
