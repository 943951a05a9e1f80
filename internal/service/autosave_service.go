package service

import (
	"errors"
	"time"

	"github.com/fireflyblog/internal/db"
	"gorm.io/gorm"
)

// AutosaveResult 描述自动保存槽位的当前内容。
type AutosaveResult struct {
	Data    string
	SavedAt *time.Time
}

// AutosaveService 维护每篇文章唯一的自动保存槽位。
// 槽位独立于版本快照：保存不产生历史，正式保存或回滚时被清空。
type AutosaveService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAutosaveService creates an AutosaveService instance.
func NewAutosaveService(gdb *gorm.DB) *AutosaveService {
	return &AutosaveService{db: gdb, now: time.Now}
}

// SetNow 覆盖时间来源，主要面向测试场景。
func (s *AutosaveService) SetNow(now func() time.Time) {
	if now == nil {
		s.now = time.Now
		return
	}
	s.now = now
}

// Save 覆写自动保存槽位并返回保存时间。
// 使用 UpdateColumns 避免触碰 updated_at，自动保存不算正式编辑。
func (s *AutosaveService) Save(postID uint, data string) (time.Time, error) {
	var post db.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, ErrPostNotFound
		}
		return time.Time{}, err
	}

	savedAt := s.now()
	if err := s.db.Model(&post).UpdateColumns(map[string]interface{}{
		"autosave_data": data,
		"autosave_at":   savedAt,
	}).Error; err != nil {
		return time.Time{}, err
	}
	return savedAt, nil
}

// Get 返回自动保存槽位内容；槽位为空时 Data 为空串且 SavedAt 为 nil。
func (s *AutosaveService) Get(postID uint) (*AutosaveResult, error) {
	var post db.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	result := &AutosaveResult{SavedAt: post.AutosaveAt}
	if post.AutosaveData != nil {
		result.Data = *post.AutosaveData
	}
	return result, nil
}

// Clear 丢弃自动保存槽位的内容。
func (s *AutosaveService) Clear(postID uint) error {
	var post db.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return err
	}

	return s.db.Model(&post).UpdateColumns(map[string]interface{}{
		"autosave_data": nil,
		"autosave_at":   nil,
	}).Error
}
