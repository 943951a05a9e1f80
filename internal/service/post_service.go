package service

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/fireflyblog/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrPostNotFound         = errors.New("post not found")
	ErrSlugTaken            = errors.New("post slug already exists")
	ErrInvalidStatus        = errors.New("post status is invalid")
	ErrScheduleTimeRequired = errors.New("scheduled publish requires a time")
	ErrScheduleTimePast     = errors.New("scheduled time must be in the future")
	ErrPostNotDeleted       = errors.New("post is not in the trash")
)

// scheduledLogMessageLimit 限制写入发布日志的错误信息长度。
const scheduledLogMessageLimit = 500

// PostService 是文章状态机的唯一入口，每次写入都会串联
// 版本快照、媒体引用同步与缓存失效。
type PostService struct {
	db         *gorm.DB
	now        func() time.Time
	invalidate func()
}

// PostInput 表示创建或更新文章时接受的字段。
type PostInput struct {
	Title        string
	Slug         string
	Description  string
	Content      string
	Image        string
	CategoryName string
	Tags         []string
	// Password 为 nil 时保持原密码；空字符串清除密码；其余值重新哈希
	Password    *string
	Status      string
	IsDraft     *bool
	ScheduledAt *time.Time
	PublishedAt *time.Time
	Pinned      bool
	PinOrder    int
	// Editor 为操作者标识，写入版本快照做审计归属
	Editor string
}

// PostFilter describes filters for listing posts.
type PostFilter struct {
	Search   string
	Status   string
	Category string
	TagNames []string
	// Trash 为 true 时仅返回回收站中的文章
	Trash   bool
	Page    int
	PerPage int
}

// PostListResult aggregates paginated list data and counters.
type PostListResult struct {
	Posts          []db.Post
	Total          int64
	PublishedCount int64
	DraftCount     int64
	ScheduledCount int64
	TotalPages     int
	Page           int
	PerPage        int
}

// NewPostService creates a PostService instance.
func NewPostService(gdb *gorm.DB) *PostService {
	return &PostService{
		db:         gdb,
		now:        time.Now,
		invalidate: func() {},
	}
}

// SetNow 覆盖时间来源，主要面向测试场景。
func (s *PostService) SetNow(now func() time.Time) {
	if now == nil {
		s.now = time.Now
		return
	}
	s.now = now
}

// SetCacheInvalidator 注册缓存失效回调，在影响读取结果的变更后触发。
func (s *PostService) SetCacheInvalidator(fn func()) {
	if fn == nil {
		s.invalidate = func() {}
		return
	}
	s.invalidate = fn
}

// Get fetches a post by id with category and tags preloaded.
func (s *PostService) Get(id uint) (*db.Post, error) {
	var post db.Post
	if err := s.db.Preload("Category").Preload("Tags").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetBySlug fetches a post by slug with category and tags preloaded.
func (s *PostService) GetBySlug(slug string) (*db.Post, error) {
	var post db.Post
	if err := s.db.Preload("Category").Preload("Tags").
		Where("slug = ?", strings.TrimSpace(slug)).
		First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// Create 创建文章：校验目标状态，持久化后依次写入版本快照、
// 同步媒体引用，全部成功后使缓存失效。
func (s *PostService) Create(input PostInput) (*db.Post, error) {
	status, err := resolveDesiredStatus(input)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var scheduledAt *time.Time
	if status == db.PostStatusScheduled {
		if input.ScheduledAt == nil {
			return nil, ErrScheduleTimeRequired
		}
		if !input.ScheduledAt.After(now) {
			return nil, ErrScheduleTimePast
		}
		at := *input.ScheduledAt
		scheduledAt = &at
	}

	publishedAt := now
	if input.PublishedAt != nil {
		publishedAt = *input.PublishedAt
	} else if scheduledAt != nil {
		publishedAt = *scheduledAt
	}

	post := db.Post{
		Title:       strings.TrimSpace(input.Title),
		Slug:        strings.TrimSpace(input.Slug),
		Description: input.Description,
		Content:     input.Content,
		Image:       strings.TrimSpace(input.Image),
		Status:      status,
		PublishedAt: publishedAt,
		ScheduledAt: scheduledAt,
		Pinned:      input.Pinned,
		PinOrder:    input.PinOrder,
	}

	if input.Password != nil && *input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		post.Password = string(hashed)
	}

	editor := editorPointer(input.Editor)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		category, err := getOrCreateCategory(tx, input.CategoryName)
		if err != nil {
			return err
		}
		if category != nil {
			post.CategoryID = &category.ID
		}

		if err := tx.Create(&post).Error; err != nil {
			return translateSlugError(err)
		}

		tags, err := getOrCreateTags(tx, input.Tags)
		if err != nil {
			return err
		}
		if err := tx.Model(&post).Association("Tags").Replace(tags); err != nil {
			return err
		}

		if err := snapshotRevision(tx, &post, editor); err != nil {
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

// Update 应用与 Create 相同的状态归一化规则更新文章。
// 离开 scheduled 状态时清空 scheduled_at；保存成功后自动保存槽位会被清空。
func (s *PostService) Update(id uint, input PostInput) (*db.Post, error) {
	var existing db.Post
	if err := s.db.First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	status, err := resolveDesiredStatus(input)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var scheduledAt *time.Time
	if status == db.PostStatusScheduled {
		if input.ScheduledAt == nil {
			return nil, ErrScheduleTimeRequired
		}
		at := *input.ScheduledAt
		scheduledAt = &at
	}

	publishedAt := existing.PublishedAt
	if input.PublishedAt != nil {
		publishedAt = *input.PublishedAt
	} else if scheduledAt != nil {
		publishedAt = *scheduledAt
	} else if publishedAt.IsZero() {
		publishedAt = now
	}

	existing.Title = strings.TrimSpace(input.Title)
	existing.Slug = strings.TrimSpace(input.Slug)
	existing.Description = input.Description
	existing.Content = input.Content
	existing.Image = strings.TrimSpace(input.Image)
	existing.Status = status
	existing.PublishedAt = publishedAt
	existing.ScheduledAt = scheduledAt
	existing.Pinned = input.Pinned
	existing.PinOrder = input.PinOrder

	if input.Password != nil {
		if *input.Password == "" {
			existing.Password = ""
		} else {
			hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, err
			}
			existing.Password = string(hashed)
		}
	}

	// 正式保存后编辑器缓冲不再有意义
	existing.AutosaveData = nil
	existing.AutosaveAt = nil

	editor := editorPointer(input.Editor)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		category, err := getOrCreateCategory(tx, input.CategoryName)
		if err != nil {
			return err
		}
		if category != nil {
			existing.CategoryID = &category.ID
		} else {
			existing.CategoryID = nil
		}

		if err := tx.Save(&existing).Error; err != nil {
			return translateSlugError(err)
		}

		tags, err := getOrCreateTags(tx, input.Tags)
		if err != nil {
			return err
		}
		if err := tx.Model(&existing).Association("Tags").Replace(tags); err != nil {
			return err
		}

		if err := snapshotRevision(tx, &existing, editor); err != nil {
			return err
		}
		if _, _, err := syncPostMedia(tx, existing.ID, existing.Content, existing.Image); err != nil {
			return err
		}

		return tx.Preload("Category").Preload("Tags").First(&existing, existing.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidate()
	return &existing, nil
}

// List provides paginated posts with aggregated status counters.
func (s *PostService) List(filter PostFilter) (*PostListResult, error) {
	result := &PostListResult{
		Page:    normalizePage(filter.Page),
		PerPage: normalizePerPage(filter.PerPage, 10),
	}

	countQuery := s.db.Model(&db.Post{})
	if filter.Trash {
		countQuery = s.db.Unscoped().Model(&db.Post{}).Where("posts.deleted_at IS NOT NULL")
	}
	countQuery = s.applyFilters(countQuery, filter, true)
	if err := countQuery.Count(&result.Total).Error; err != nil {
		return nil, err
	}

	dataQuery := s.db.Model(&db.Post{}).Preload("Category").Preload("Tags")
	if filter.Trash {
		dataQuery = s.db.Unscoped().Model(&db.Post{}).
			Preload("Category").Preload("Tags").
			Where("posts.deleted_at IS NOT NULL")
	}
	dataQuery = s.applyFilters(dataQuery, filter, true)

	// 置顶优先，置顶内按 pin_order 升序，其余按发布时间倒序
	offset := (result.Page - 1) * result.PerPage
	if err := dataQuery.
		Order("posts.pinned desc, posts.pin_order asc, posts.published_at desc").
		Limit(result.PerPage).
		Offset(offset).
		Find(&result.Posts).Error; err != nil {
		return nil, err
	}

	counterFilter := filter
	counterFilter.Status = ""
	counterFilter.Trash = false
	counter := func(status string, dest *int64) error {
		query := s.applyFilters(s.db.Model(&db.Post{}), counterFilter, false)
		return query.Where("posts.status = ?", status).Count(dest).Error
	}
	if err := counter(db.PostStatusPublished, &result.PublishedCount); err != nil {
		return nil, err
	}
	if err := counter(db.PostStatusDraft, &result.DraftCount); err != nil {
		return nil, err
	}
	if err := counter(db.PostStatusScheduled, &result.ScheduledCount); err != nil {
		return nil, err
	}

	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)
	return result, nil
}

// Delete 软删除文章：仅打删除标记，默认列表不再返回，引用关系保留。
func (s *PostService) Delete(id uint) error {
	var post db.Post
	if err := s.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return err
	}

	if err := s.db.Delete(&post).Error; err != nil {
		return err
	}

	s.invalidate()
	return nil
}

// Restore 将回收站中的文章恢复到正常列表，内容与引用保持不变。
func (s *PostService) Restore(id uint) (*db.Post, error) {
	var post db.Post
	if err := s.db.Unscoped().First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if !post.DeletedAt.Valid {
		return nil, ErrPostNotDeleted
	}

	if err := s.db.Unscoped().Model(&post).Update("deleted_at", nil).Error; err != nil {
		return nil, err
	}

	s.invalidate()
	return s.Get(id)
}

// Purge 彻底删除文章：清理媒体关联、历史版本与标签关联后删除文章行，
// 并刷新受影响媒体的引用数。不可逆。
func (s *PostService) Purge(id uint) error {
	var post db.Post
	if err := s.db.Unscoped().First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var links []db.PostMedia
		if err := tx.Where("post_id = ?", post.ID).Find(&links).Error; err != nil {
			return err
		}
		mediaIDs := make([]uint, 0, len(links))
		for _, link := range links {
			mediaIDs = append(mediaIDs, link.MediaID)
		}

		if err := tx.Unscoped().Where("post_id = ?", post.ID).Delete(&db.PostMedia{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("post_id = ?", post.ID).Delete(&db.PostRevision{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&post).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Unscoped().Delete(&post).Error; err != nil {
			return err
		}

		return refreshUsageCounts(tx, mediaIDs)
	})
	if err != nil {
		return err
	}

	s.invalidate()
	return nil
}

// TogglePin 切换置顶状态，不影响生命周期状态。
func (s *PostService) TogglePin(id uint) (*db.Post, error) {
	var post db.Post
	if err := s.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	post.Pinned = !post.Pinned
	if err := s.db.Model(&post).Update("pinned", post.Pinned).Error; err != nil {
		return nil, err
	}

	s.invalidate()
	return &post, nil
}

// SetPin 设置置顶状态与排序权重。
func (s *PostService) SetPin(id uint, pinned bool, pinOrder int) (*db.Post, error) {
	var post db.Post
	if err := s.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	if err := s.db.Model(&post).Updates(map[string]interface{}{
		"pinned":    pinned,
		"pin_order": pinOrder,
	}).Error; err != nil {
		return nil, err
	}

	post.Pinned = pinned
	post.PinOrder = pinOrder
	s.invalidate()
	return &post, nil
}

// VerifyPassword 校验文章访问密码；未设置密码时直接通过。
func (s *PostService) VerifyPassword(id uint, password string) (bool, error) {
	var post db.Post
	if err := s.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrPostNotFound
		}
		return false, err
	}

	if !post.HasPassword() {
		return true, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(post.Password), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PublishDueScheduled 扫描到期的定时文章并逐篇转为已发布。
// 每篇独立提交：单篇失败只追加 failed 日志并继续处理其余文章。
// 文章一旦离开 scheduled 状态就不会再被选中，重复调用是幂等的。
func (s *PostService) PublishDueScheduled() (int, error) {
	now := s.now()

	var due []db.Post
	if err := s.db.
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", db.PostStatusScheduled, now).
		Find(&due).Error; err != nil {
		return 0, err
	}

	published := 0
	for i := range due {
		transitioned, err := s.publishScheduledPost(&due[i], now)
		if err != nil {
			continue
		}
		if transitioned {
			published++
		}
	}

	if published > 0 {
		s.invalidate()
	}
	return published, nil
}

// publishScheduledPost 在独立事务内把单篇到期文章转为已发布。
// 状态守卫未命中说明已被并发扫描处理，跳过且不写日志；
// 事务失败时在事务外追加一条 failed 日志。
func (s *PostService) publishScheduledPost(post *db.Post, now time.Time) (bool, error) {
	var scheduledAt *time.Time
	if post.ScheduledAt != nil {
		at := *post.ScheduledAt
		scheduledAt = &at
	}
	publishedAt := now
	if scheduledAt != nil {
		publishedAt = *scheduledAt
	}

	transitioned := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&db.Post{}).
			Where("id = ? AND status = ?", post.ID, db.PostStatusScheduled).
			Updates(map[string]interface{}{
				"status":       db.PostStatusPublished,
				"published_at": publishedAt,
				"scheduled_at": nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		transitioned = true
		return tx.Create(&db.ScheduledPublishLog{
			PostID:      post.ID,
			Status:      db.SchedulePublishSuccess,
			Message:     "定时发布成功",
			ScheduledAt: scheduledAt,
		}).Error
	})
	if err != nil {
		failedLog := db.ScheduledPublishLog{
			PostID:      post.ID,
			Status:      db.SchedulePublishFailed,
			Message:     truncateMessage(err.Error(), scheduledLogMessageLimit),
			ScheduledAt: scheduledAt,
		}
		if logErr := s.db.Create(&failedLog).Error; logErr != nil {
			log.Printf("scheduled publish: failed to record failure for post %d: %v", post.ID, logErr)
		}
		return false, err
	}
	return transitioned, nil
}

// ScheduledLogs 返回指定文章的定时发布日志，最新的在前。
func (s *PostService) ScheduledLogs(postID uint, limit int) ([]db.ScheduledPublishLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []db.ScheduledPublishLog
	if err := s.db.
		Where("post_id = ?", postID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *PostService) applyFilters(query *gorm.DB, filter PostFilter, includeStatus bool) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("(posts.title LIKE ? OR posts.content LIKE ? OR posts.description LIKE ?)", like, like, like)
	}

	if includeStatus && filter.Status != "" {
		query = query.Where("posts.status = ?", filter.Status)
	}

	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Joins("JOIN categories ON categories.id = posts.category_id").
			Where("categories.name = ?", category)
	}

	if len(filter.TagNames) > 0 {
		subQuery := s.db.Model(&db.Post{}).
			Select("posts.id").
			Joins("JOIN post_tags ON posts.id = post_tags.post_id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.name IN ?", filter.TagNames).
			Distinct()

		query = query.Where("posts.id IN (?)", subQuery)
	}

	return query
}

// resolveDesiredStatus 归一化目标状态：显式 status 优先，
// 否则回退到旧版 is_draft 布尔字段的映射。
func resolveDesiredStatus(input PostInput) (string, error) {
	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status == "" {
		if input.IsDraft != nil && !*input.IsDraft {
			return db.PostStatusPublished, nil
		}
		return db.PostStatusDraft, nil
	}

	switch status {
	case db.PostStatusDraft, db.PostStatusScheduled, db.PostStatusPublished:
		return status, nil
	}
	return "", ErrInvalidStatus
}

func getOrCreateCategory(tx *gorm.DB, name string) (*db.Category, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, nil
	}

	var category db.Category
	if err := tx.Where("name = ?", trimmed).First(&category).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		category = db.Category{Name: trimmed}
		if err := tx.Create(&category).Error; err != nil {
			return nil, err
		}
	}
	return &category, nil
}

func getOrCreateTags(tx *gorm.DB, names []string) ([]db.Tag, error) {
	tags := make([]db.Tag, 0, len(names))
	seen := make(map[string]struct{}, len(names))

	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		var tag db.Tag
		if err := tx.Where("name = ?", trimmed).First(&tag).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			tag = db.Tag{Name: trimmed}
			if err := tx.Create(&tag).Error; err != nil {
				return nil, err
			}
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// translateSlugError 将存储层的唯一约束冲突映射为 ErrSlugTaken。
func translateSlugError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSlugTaken
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed: posts.slug") {
		return ErrSlugTaken
	}
	return err
}

func editorPointer(editor string) *string {
	trimmed := strings.TrimSpace(editor)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func truncateMessage(message string, limit int) string {
	runes := []rune(message)
	if len(runes) <= limit {
		return message
	}
	return string(runes[:limit])
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func normalizePerPage(perPage, fallback int) int {
	if perPage <= 0 {
		return fallback
	}
	return perPage
}

func calculateTotalPages(total int64, perPage int) int {
	if perPage <= 0 || total == 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
