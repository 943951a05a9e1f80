package service

import (
	"errors"
	"strings"

	"github.com/fireflyblog/internal/db"
	"gorm.io/gorm"
)

var (
	ErrMediaNotFound = errors.New("media file not found")
	ErrMediaInUse    = errors.New("media file is still referenced by posts")
)

// MediaService 维护媒体库记录以及文章与媒体的引用关系。
type MediaService struct {
	db *gorm.DB
}

// MediaListResult aggregates paginated media library entries.
type MediaListResult struct {
	Items      []db.MediaFile
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// MediaRebuildResult 汇总全量重建的统计信息。
type MediaRebuildResult struct {
	Posts int
	Media int
	Links int
}

// NewMediaService creates a MediaService instance.
func NewMediaService(gdb *gorm.DB) *MediaService {
	return &MediaService{db: gdb}
}

// Create 登记一条新的媒体库记录。
func (s *MediaService) Create(file *db.MediaFile) error {
	return s.db.Create(file).Error
}

// Get fetches a media file by id.
func (s *MediaService) Get(id uint) (*db.MediaFile, error) {
	var file db.MediaFile
	if err := s.db.First(&file, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return &file, nil
}

// List returns media library entries ordered by upload time descending.
func (s *MediaService) List(search string, page, perPage int) (MediaListResult, error) {
	result := MediaListResult{
		Page:    normalizePage(page),
		PerPage: normalizePerPage(perPage, 20),
	}

	query := s.db.Model(&db.MediaFile{})
	if trimmed := strings.TrimSpace(search); trimmed != "" {
		like := "%" + trimmed + "%"
		query = query.Where("original_name LIKE ? OR path LIKE ?", like, like)
	}

	if err := query.Count(&result.Total).Error; err != nil {
		return result, err
	}
	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)

	offset := (result.Page - 1) * result.PerPage
	if err := query.Order("created_at desc").
		Limit(result.PerPage).
		Offset(offset).
		Find(&result.Items).Error; err != nil {
		return result, err
	}
	return result, nil
}

// Delete 删除一条媒体记录；仍被文章引用时拒绝删除。
// 删除前会重新聚合引用数，避免过期的 usage_count 误放行。
func (s *MediaService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var file db.MediaFile
		if err := tx.First(&file, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMediaNotFound
			}
			return err
		}

		if err := refreshUsageCounts(tx, []uint{file.ID}); err != nil {
			return err
		}
		if err := tx.First(&file, id).Error; err != nil {
			return err
		}
		if file.UsageCount > 0 {
			return ErrMediaInUse
		}

		return tx.Unscoped().Delete(&file).Error
	})
}

// SyncPostMedia 同步单篇文章的媒体引用关系，返回新增与移除的关联数。
func (s *MediaService) SyncPostMedia(postID uint, content, coverImage string) (added, removed int, err error) {
	err = s.db.Transaction(func(tx *gorm.DB) error {
		added, removed, err = syncPostMedia(tx, postID, content, coverImage)
		return err
	})
	return added, removed, err
}

// RefreshUsageCounts 重新聚合并写回指定媒体的引用次数。
func (s *MediaService) RefreshUsageCounts(mediaIDs []uint) error {
	return refreshUsageCounts(s.db, mediaIDs)
}

// RebuildAll 全量重建引用关系：清空关联表，按当前内容重算每篇文章的引用，
// 再从零重算每个媒体的引用数。整个过程在单个事务内完成。
func (s *MediaService) RebuildAll() (MediaRebuildResult, error) {
	var result MediaRebuildResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var mediaFiles []db.MediaFile
		if err := tx.Find(&mediaFiles).Error; err != nil {
			return err
		}

		mediaByPath := make(map[string]uint, len(mediaFiles))
		counts := make(map[uint]int, len(mediaFiles))
		for _, media := range mediaFiles {
			mediaByPath[media.Path] = media.ID
			counts[media.ID] = 0
		}

		if err := tx.Unscoped().Where("1 = 1").Delete(&db.PostMedia{}).Error; err != nil {
			return err
		}

		// 软删除的文章仍持有引用，回收站恢复后引用数不能漂移
		var posts []db.Post
		if err := tx.Unscoped().Find(&posts).Error; err != nil {
			return err
		}

		var links []db.PostMedia
		for _, post := range posts {
			for path, context := range CollectMediaPaths(post.Content, post.Image) {
				mediaID, ok := mediaByPath[path]
				if !ok {
					continue
				}
				links = append(links, db.PostMedia{
					PostID:  post.ID,
					MediaID: mediaID,
					Context: context,
				})
				counts[mediaID]++
			}
		}

		if len(links) > 0 {
			if err := tx.CreateInBatches(links, 200).Error; err != nil {
				return err
			}
		}

		for _, media := range mediaFiles {
			if err := tx.Model(&db.MediaFile{}).
				Where("id = ?", media.ID).
				Update("usage_count", counts[media.ID]).Error; err != nil {
				return err
			}
		}

		result = MediaRebuildResult{Posts: len(posts), Media: len(mediaFiles), Links: len(links)}
		return nil
	})

	return result, err
}

// syncPostMedia 在给定事务内完成单篇文章的引用差量同步。
func syncPostMedia(tx *gorm.DB, postID uint, content, coverImage string) (int, int, error) {
	pathContext := CollectMediaPaths(content, coverImage)

	var existingLinks []db.PostMedia
	if err := tx.Where("post_id = ?", postID).Find(&existingLinks).Error; err != nil {
		return 0, 0, err
	}
	existingIDs := make(map[uint]struct{}, len(existingLinks))
	for _, link := range existingLinks {
		existingIDs[link.MediaID] = struct{}{}
	}

	if len(pathContext) == 0 {
		if len(existingIDs) == 0 {
			return 0, 0, nil
		}
		if err := tx.Unscoped().Where("post_id = ?", postID).Delete(&db.PostMedia{}).Error; err != nil {
			return 0, 0, err
		}
		if err := refreshUsageCounts(tx, idSetToSlice(existingIDs)); err != nil {
			return 0, 0, err
		}
		return 0, len(existingIDs), nil
	}

	paths := make([]string, 0, len(pathContext))
	for path := range pathContext {
		paths = append(paths, path)
	}

	// 未登记在媒体库中的路径直接忽略：内容允许引用库外资源
	var mediaFiles []db.MediaFile
	if err := tx.Where("path IN ?", paths).Find(&mediaFiles).Error; err != nil {
		return 0, 0, err
	}

	desiredContext := make(map[uint]string, len(mediaFiles))
	for _, media := range mediaFiles {
		desiredContext[media.ID] = pathContext[media.Path]
	}

	var toAdd, toRemove []uint
	for mediaID := range desiredContext {
		if _, ok := existingIDs[mediaID]; !ok {
			toAdd = append(toAdd, mediaID)
		}
	}
	for mediaID := range existingIDs {
		if _, ok := desiredContext[mediaID]; !ok {
			toRemove = append(toRemove, mediaID)
		}
	}

	if len(toRemove) > 0 {
		if err := tx.Unscoped().
			Where("post_id = ? AND media_id IN ?", postID, toRemove).
			Delete(&db.PostMedia{}).Error; err != nil {
			return 0, 0, err
		}
	}

	for _, mediaID := range toAdd {
		link := db.PostMedia{PostID: postID, MediaID: mediaID, Context: desiredContext[mediaID]}
		if err := tx.Create(&link).Error; err != nil {
			return 0, 0, err
		}
	}

	touched := append(append([]uint{}, toAdd...), toRemove...)
	if err := refreshUsageCounts(tx, touched); err != nil {
		return 0, 0, err
	}

	return len(toAdd), len(toRemove), nil
}

// refreshUsageCounts 以关联表的全量聚合为准写回引用数，冗余调用是安全的。
func refreshUsageCounts(tx *gorm.DB, mediaIDs []uint) error {
	ids := dedupeIDs(mediaIDs)
	if len(ids) == 0 {
		return nil
	}

	type usageRow struct {
		MediaID uint
		Total   int64
	}
	var rows []usageRow
	if err := tx.Model(&db.PostMedia{}).
		Select("media_id, COUNT(*) as total").
		Where("media_id IN ?", ids).
		Group("media_id").
		Scan(&rows).Error; err != nil {
		return err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.MediaID] = row.Total
	}

	for _, id := range ids {
		if err := tx.Model(&db.MediaFile{}).
			Where("id = ?", id).
			Update("usage_count", counts[id]).Error; err != nil {
			return err
		}
	}
	return nil
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

func idSetToSlice(set map[uint]struct{}) []uint {
	ids := make([]uint, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}
