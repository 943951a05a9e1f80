package service

import (
	"errors"

	"github.com/fireflyblog/internal/db"
	"gorm.io/gorm"
)

var ErrRevisionNotFound = errors.New("post revision not found")

// defaultRevisionLimit 控制单次列出的历史版本数量上限。
const defaultRevisionLimit = 20

// RevisionService 管理文章的版本快照：列出、回滚与删除。
type RevisionService struct {
	db         *gorm.DB
	invalidate func()
}

// NewRevisionService creates a RevisionService instance.
func NewRevisionService(gdb *gorm.DB) *RevisionService {
	return &RevisionService{db: gdb, invalidate: func() {}}
}

// SetCacheInvalidator 注册缓存失效回调。
func (s *RevisionService) SetCacheInvalidator(fn func()) {
	if fn == nil {
		s.invalidate = func() {}
		return
	}
	s.invalidate = fn
}

// List 返回指定文章的版本快照，最新的在前。
// 回收站中的文章同样可以查看历史版本。
func (s *RevisionService) List(postID uint, limit int) ([]db.PostRevision, error) {
	var post db.Post
	if err := s.db.Unscoped().First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = defaultRevisionLimit
	}

	var revisions []db.PostRevision
	if err := s.db.
		Where("post_id = ?", postID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&revisions).Error; err != nil {
		return nil, err
	}
	return revisions, nil
}

// Restore 将文章内容回滚到指定版本。回滚本身也会生成一条新快照，
// 因此历史不会丢失；同时清空自动保存槽位并重新同步媒体引用。
func (s *RevisionService) Restore(postID, revisionID uint, editor string) (*db.Post, error) {
	var post db.Post

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		var revision db.PostRevision
		if err := tx.Where("id = ? AND post_id = ?", revisionID, postID).
			First(&revision).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRevisionNotFound
			}
			return err
		}

		post.Title = revision.Title
		post.Slug = revision.Slug
		post.Description = revision.Description
		post.Content = revision.Content
		post.AutosaveData = nil
		post.AutosaveAt = nil

		if err := tx.Save(&post).Error; err != nil {
			return translateSlugError(err)
		}

		if err := snapshotRevision(tx, &post, editorPointer(editor)); err != nil {
			return err
		}
		if _, _, err := syncPostMedia(tx, post.ID, post.Content, post.Image); err != nil {
			return err
		}

		return tx.Preload("Category").Preload("Tags").First(&post, post.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidate()
	return &post, nil
}

// Delete 删除一条版本快照，文章当前内容不受影响。
func (s *RevisionService) Delete(postID, revisionID uint) error {
	result := s.db.Unscoped().
		Where("id = ? AND post_id = ?", revisionID, postID).
		Delete(&db.PostRevision{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRevisionNotFound
	}
	return nil
}

// snapshotRevision 在给定事务内为当前文章内容生成一条版本快照。
func snapshotRevision(tx *gorm.DB, post *db.Post, editor *string) error {
	revision := db.PostRevision{
		PostID:      post.ID,
		Title:       post.Title,
		Slug:        post.Slug,
		Description: post.Description,
		Content:     post.Content,
		Editor:      editor,
	}
	return tx.Create(&revision).Error
}
