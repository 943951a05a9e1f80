package handler

import (
	"errors"
	"net/http"

	"github.com/fireflyblog/internal/service"
	"github.com/gin-gonic/gin"
)

// ListTags 返回标签及使用统计。
func (a *API) ListTags(c *gin.Context) {
	tags, err := a.taxonomy.ListTags()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取标签列表失败")
		return
	}

	items := make([]gin.H, 0, len(tags))
	for _, tag := range tags {
		items = append(items, gin.H{"id": tag.ID, "name": tag.Name, "count": tag.Count})
	}
	c.JSON(http.StatusOK, gin.H{"tags": items})
}

// ListCategories 返回分类及使用统计。
func (a *API) ListCategories(c *gin.Context) {
	categories, err := a.taxonomy.ListCategories()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取分类列表失败")
		return
	}

	items := make([]gin.H, 0, len(categories))
	for _, category := range categories {
		items = append(items, gin.H{"id": category.ID, "name": category.Name, "count": category.Count})
	}
	c.JSON(http.StatusOK, gin.H{"categories": items})
}

// DeleteTag 删除未使用的标签。
func (a *API) DeleteTag(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的标签ID")
		return
	}

	if err := a.taxonomy.DeleteTag(id); err != nil {
		switch {
		case errors.Is(err, service.ErrTagNotFound):
			respondError(c, http.StatusNotFound, "标签不存在")
		case errors.Is(err, service.ErrTagInUse):
			respondError(c, http.StatusConflict, "标签仍被文章使用，无法删除")
		default:
			respondError(c, http.StatusInternalServerError, "删除标签失败")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "标签已删除"})
}

// DeleteCategory 删除未使用的分类。
func (a *API) DeleteCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的分类ID")
		return
	}

	if err := a.taxonomy.DeleteCategory(id); err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryNotFound):
			respondError(c, http.StatusNotFound, "分类不存在")
		case errors.Is(err, service.ErrCategoryInUse):
			respondError(c, http.StatusConflict, "分类仍被文章使用，无法删除")
		default:
			respondError(c, http.StatusInternalServerError, "删除分类失败")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "分类已删除"})
}
