package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListRevisions 返回文章的版本快照列表。
func (a *API) ListRevisions(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	revisions, err := a.revisions.List(id, queryInt(c, "limit", 0))
	if err != nil {
		respondPostError(c, err)
		return
	}

	items := make([]gin.H, 0, len(revisions))
	for _, revision := range revisions {
		items = append(items, gin.H{
			"id":          revision.ID,
			"post_id":     revision.PostID,
			"title":       revision.Title,
			"slug":        revision.Slug,
			"description": revision.Description,
			"editor":      revision.Editor,
			"created_at":  revision.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"revisions": items})
}

// RestoreRevision 将文章回滚到指定版本。
func (a *API) RestoreRevision(c *gin.Context) {
	postID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}
	revisionID, err := parseUintParam(c, "revisionId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的版本ID")
		return
	}

	post, err := a.revisions.Restore(postID, revisionID, sessionEditor(c))
	if err != nil {
		respondPostError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "已回滚到历史版本", "post": toPostJSON(post, true)})
}

// DeleteRevision 删除一条版本快照。
func (a *API) DeleteRevision(c *gin.Context) {
	postID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}
	revisionID, err := parseUintParam(c, "revisionId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的版本ID")
		return
	}

	if err := a.revisions.Delete(postID, revisionID); err != nil {
		respondPostError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "版本已删除"})
}
