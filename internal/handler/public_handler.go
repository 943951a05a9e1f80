package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/fireflyblog/internal/cache"
	"github.com/fireflyblog/internal/db"
	"github.com/fireflyblog/internal/service"
	"github.com/gin-gonic/gin"
)

// PublicListPosts 返回对外可见的文章列表，只包含已发布的文章。
// 定时文章在后台任务翻转状态前对外不可见。
func (a *API) PublicListPosts(c *gin.Context) {
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 10)
	search := strings.TrimSpace(c.Query("search"))
	category := strings.TrimSpace(c.Query("category"))
	tag := strings.TrimSpace(c.Query("tag"))

	cacheKey := cache.Key(service.CacheKindPosts, "list",
		fmt.Sprintf("%d|%d|%s|%s|%s", page, perPage, search, category, tag))
	if a.store != nil {
		if cached, ok := a.store.Get(cacheKey); ok {
			c.JSON(http.StatusOK, cached.(gin.H))
			return
		}
	}

	filter := service.PostFilter{
		Search:   search,
		Status:   db.PostStatusPublished,
		Category: category,
		Page:     page,
		PerPage:  perPage,
	}
	if tag != "" {
		filter.TagNames = []string{tag}
	}

	result, err := a.posts.List(filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取文章列表失败")
		return
	}

	items := make([]gin.H, 0, len(result.Posts))
	for i := range result.Posts {
		post := &result.Posts[i]
		item := toPostJSON(post, false)
		delete(item, "autosave_available")
		items = append(items, item)
	}

	payload := gin.H{
		"posts":       items,
		"total":       result.Total,
		"total_pages": result.TotalPages,
		"page":        result.Page,
		"per_page":    result.PerPage,
	}
	if a.store != nil {
		a.store.Set(cacheKey, service.CacheKindPosts, payload)
	}
	c.JSON(http.StatusOK, payload)
}

// PublicGetPost 按 slug 返回已发布文章的详情。
// 带密码保护的文章只返回元信息，正文需要先通过密码校验。
func (a *API) PublicGetPost(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		respondError(c, http.StatusBadRequest, "无效的文章地址")
		return
	}

	cacheKey := cache.Key(service.CacheKindPosts, "detail", slug)
	if a.store != nil {
		if cached, ok := a.store.Get(cacheKey); ok {
			c.JSON(http.StatusOK, cached.(gin.H))
			return
		}
	}

	post, err := a.posts.GetBySlug(slug)
	if err != nil {
		respondPostError(c, err)
		return
	}
	if post.Status != db.PostStatusPublished {
		respondError(c, http.StatusNotFound, "文章不存在")
		return
	}

	if post.HasPassword() {
		payload := toPostJSON(post, false)
		delete(payload, "autosave_available")
		payload["locked"] = true
		c.JSON(http.StatusOK, gin.H{"post": payload})
		return
	}

	payload, err := publicPostPayload(post)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "渲染内容失败")
		return
	}
	response := gin.H{"post": payload}
	if a.store != nil {
		a.store.Set(cacheKey, service.CacheKindPosts, response)
	}
	c.JSON(http.StatusOK, response)
}

// VerifyPostPassword 校验密码保护文章的访问密码，通过后返回完整内容。
func (a *API) VerifyPostPassword(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		respondError(c, http.StatusBadRequest, "无效的文章地址")
		return
	}

	var input struct {
		Password string `json:"password"`
	}
	if !bindJSON(c, &input, "请求格式错误") {
		return
	}

	post, err := a.posts.GetBySlug(slug)
	if err != nil {
		respondPostError(c, err)
		return
	}
	if post.Status != db.PostStatusPublished {
		respondError(c, http.StatusNotFound, "文章不存在")
		return
	}

	ok, err := a.posts.VerifyPassword(post.ID, input.Password)
	if err != nil {
		respondPostError(c, err)
		return
	}
	if !ok {
		respondError(c, http.StatusForbidden, "密码错误")
		return
	}

	payload, err := publicPostPayload(post)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "渲染内容失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": payload})
}

// publicPostPayload 构造对外的文章详情，附带渲染后的 HTML。
func publicPostPayload(post *db.Post) (gin.H, error) {
	htmlContent, err := renderMarkdown(post.Content)
	if err != nil {
		return nil, err
	}

	payload := toPostJSON(post, true)
	delete(payload, "autosave_available")
	payload["content_html"] = htmlContent
	return payload, nil
}
