package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SaveAutosave 覆写文章的自动保存槽位。
func (a *API) SaveAutosave(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	var input struct {
		Data string `json:"data"`
	}
	if !bindJSON(c, &input, "请求格式错误") {
		return
	}

	savedAt, err := a.autosaves.Save(id, input.Data)
	if err != nil {
		respondPostError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"saved_at": savedAt})
}

// GetAutosave 读取文章的自动保存槽位。
func (a *API) GetAutosave(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	result, err := a.autosaves.Get(id)
	if err != nil {
		respondPostError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      result.Data,
		"saved_at":  result.SavedAt,
		"available": result.SavedAt != nil,
	})
}

// ClearAutosave 丢弃文章的自动保存槽位。
func (a *API) ClearAutosave(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	if err := a.autosaves.Clear(id); err != nil {
		respondPostError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "自动保存已清除"})
}
