package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fireflyblog/internal/db"
	"github.com/fireflyblog/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type postRequest struct {
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Content     string     `json:"content"`
	Image       string     `json:"image"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	Password    *string    `json:"password"`
	Status      string     `json:"status"`
	IsDraft     *bool      `json:"is_draft"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	PublishedAt *time.Time `json:"published_at"`
	Pinned      bool       `json:"pinned"`
	PinOrder    int        `json:"pin_order"`
}

func (r postRequest) toInput(editor string) service.PostInput {
	return service.PostInput{
		Title:        r.Title,
		Slug:         r.Slug,
		Description:  r.Description,
		Content:      r.Content,
		Image:        r.Image,
		CategoryName: r.Category,
		Tags:         r.Tags,
		Password:     r.Password,
		Status:       r.Status,
		IsDraft:      r.IsDraft,
		ScheduledAt:  r.ScheduledAt,
		PublishedAt:  r.PublishedAt,
		Pinned:       r.Pinned,
		PinOrder:     r.PinOrder,
		Editor:       editor,
	}
}

// sessionEditor 返回当前会话中的操作者标识，用于版本快照归属。
func sessionEditor(c *gin.Context) string {
	session := sessions.Default(c)
	if username, ok := session.Get("username").(string); ok {
		return username
	}
	return ""
}

func toPostJSON(post *db.Post, includeContent bool) gin.H {
	tags := make([]string, 0, len(post.Tags))
	for _, tag := range post.Tags {
		tags = append(tags, tag.Name)
	}

	var category interface{}
	if post.Category != nil {
		category = post.Category.Name
	}

	payload := gin.H{
		"id":                 post.ID,
		"title":              post.Title,
		"slug":               post.Slug,
		"description":        post.Description,
		"image":              post.Image,
		"status":             post.Status,
		"pinned":             post.Pinned,
		"pin_order":          post.PinOrder,
		"published_at":       post.PublishedAt,
		"scheduled_at":       post.ScheduledAt,
		"created_at":         post.CreatedAt,
		"updated_at":         post.UpdatedAt,
		"category":           category,
		"tags":               tags,
		"has_password":       post.HasPassword(),
		"autosave_available": post.AutosaveAvailable(),
	}
	if post.DeletedAt.Valid {
		payload["deleted_at"] = post.DeletedAt.Time
	}
	if includeContent {
		payload["content"] = post.Content
	}
	return payload
}

func respondPostError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		respondError(c, http.StatusNotFound, "文章不存在")
	case errors.Is(err, service.ErrSlugTaken):
		respondError(c, http.StatusConflict, "Slug 已被占用")
	case errors.Is(err, service.ErrInvalidStatus):
		respondError(c, http.StatusBadRequest, "无效的文章状态")
	case errors.Is(err, service.ErrScheduleTimeRequired):
		respondError(c, http.StatusBadRequest, "定时发布需要指定发布时间")
	case errors.Is(err, service.ErrScheduleTimePast):
		respondError(c, http.StatusBadRequest, "定时发布时间必须晚于当前时间")
	case errors.Is(err, service.ErrPostNotDeleted):
		respondError(c, http.StatusBadRequest, "文章不在回收站中")
	case errors.Is(err, service.ErrRevisionNotFound):
		respondError(c, http.StatusNotFound, "历史版本不存在")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}

// ListPosts 返回后台文章列表，支持搜索、状态、分类、标签与回收站过滤。
func (a *API) ListPosts(c *gin.Context) {
	filter := service.PostFilter{
		Search:   c.Query("search"),
		Status:   strings.ToLower(strings.TrimSpace(c.Query("status"))),
		Category: c.Query("category"),
		Trash:    queryBool(c, "trash"),
		Page:     queryInt(c, "page", 1),
		PerPage:  queryInt(c, "per_page", 10),
	}
	if tag := strings.TrimSpace(c.Query("tag")); tag != "" {
		filter.TagNames = []string{tag}
	}

	result, err := a.posts.List(filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取文章列表失败")
		return
	}

	items := make([]gin.H, 0, len(result.Posts))
	for i := range result.Posts {
		items = append(items, toPostJSON(&result.Posts[i], false))
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":           items,
		"total":           result.Total,
		"total_pages":     result.TotalPages,
		"page":            result.Page,
		"per_page":        result.PerPage,
		"published_count": result.PublishedCount,
		"draft_count":     result.DraftCount,
		"scheduled_count": result.ScheduledCount,
	})
}

// GetPost 返回单篇文章的完整内容，供后台编辑使用。
func (a *API) GetPost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	post, err := a.posts.Get(id)
	if err != nil {
		respondPostError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": toPostJSON(post, true)})
}

// CreatePost 创建文章。
func (a *API) CreatePost(c *gin.Context) {
	var input postRequest
	if !bindJSON(c, &input, "请求格式错误") {
		return
	}

	post, err := a.posts.Create(input.toInput(sessionEditor(c)))
	if err != nil {
		respondPostError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "文章创建成功", "post": toPostJSON(post, true)})
}

// UpdatePost 更新文章。
func (a *API) UpdatePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	var input postRequest
	if !bindJSON(c, &input, "请求格式错误") {
		return
	}

	post, err := a.posts.Update(id, input.toInput(sessionEditor(c)))
	if err != nil {
		respondPostError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "文章更新成功", "post": toPostJSON(post, true)})
}

// DeletePost 将文章移入回收站。
func (a *API) DeletePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	if err := a.posts.Delete(id); err != nil {
		respondPostError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "文章已移入回收站"})
}

// RestorePost 从回收站恢复文章。
func (a *API) RestorePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	post, err := a.posts.Restore(id)
	if err != nil {
		respondPostError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "文章已恢复", "post": toPostJSON(post, false)})
}

// PurgePost 彻底删除回收站中的文章，不可恢复。
func (a *API) PurgePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	if err := a.posts.Purge(id); err != nil {
		respondPostError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "文章已彻底删除"})
}

// TogglePin 切换文章置顶状态。
func (a *API) TogglePin(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	post, err := a.posts.TogglePin(id)
	if err != nil {
		respondPostError(c, err)
		return
	}

	message := "已取消置顶"
	if post.Pinned {
		message = "已置顶"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "pinned": post.Pinned})
}

// SetPin 设置文章置顶状态与排序权重。
func (a *API) SetPin(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	var input struct {
		Pinned   bool `json:"pinned"`
		PinOrder int  `json:"pin_order"`
	}
	if !bindJSON(c, &input, "请求格式错误") {
		return
	}

	post, err := a.posts.SetPin(id, input.Pinned, input.PinOrder)
	if err != nil {
		respondPostError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pinned": post.Pinned, "pin_order": post.PinOrder})
}

// ScheduledLogs 返回文章的定时发布日志。
func (a *API) ScheduledLogs(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	logs, err := a.posts.ScheduledLogs(id, queryInt(c, "limit", 50))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取发布日志失败")
		return
	}

	items := make([]gin.H, 0, len(logs))
	for _, entry := range logs {
		items = append(items, gin.H{
			"id":           entry.ID,
			"post_id":      entry.PostID,
			"status":       entry.Status,
			"message":      entry.Message,
			"scheduled_at": entry.ScheduledAt,
			"created_at":   entry.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"logs": items})
}
