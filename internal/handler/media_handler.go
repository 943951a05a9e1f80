package handler

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fireflyblog/internal/db"
	"github.com/fireflyblog/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	_ "golang.org/x/image/webp"
)

// UploadImage 处理图片上传：落盘、探测尺寸并登记到媒体库。
func (a *API) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传的图片", "success": 0})
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "只允许上传图片文件", "success": 0})
		return
	}

	if err := os.MkdirAll(a.uploadDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建上传目录失败", "success": 0})
		return
	}

	// 日期前缀加 UUID，避免原始文件名冲突或包含不安全字符
	ext := strings.ToLower(filepath.Ext(file.Filename))
	newFilename := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.New().String(), ext)
	filePath := filepath.Join(a.uploadDir, newFilename)

	if err := c.SaveUploadedFile(file, filePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败", "success": 0})
		return
	}

	width, height := probeImageSize(filePath)

	uploader := sessionUploader(c)
	fileURL := strings.TrimRight(a.uploadURL, "/") + "/" + newFilename
	media := db.MediaFile{
		Filename:     newFilename,
		OriginalName: file.Filename,
		MimeType:     contentType,
		Size:         file.Size,
		URL:          fileURL,
		Path:         newFilename,
		Width:        width,
		Height:       height,
		Uploader:     uploader,
	}
	if err := a.media.Create(&media); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "登记媒体文件失败", "success": 0})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": 1,
		"message": "上传成功",
		"data": gin.H{
			"id":       media.ID,
			"filePath": fileURL,
			"url":      fileURL,
			"width":    width,
			"height":   height,
		},
	})
}

// probeImageSize 读取图片尺寸，解码失败时返回零值。
func probeImageSize(path string) (int, int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func sessionUploader(c *gin.Context) string {
	session := sessions.Default(c)
	if username, ok := session.Get("username").(string); ok {
		return username
	}
	return ""
}

// ListMedia 返回媒体库列表。
func (a *API) ListMedia(c *gin.Context) {
	result, err := a.media.List(c.Query("search"), queryInt(c, "page", 1), queryInt(c, "per_page", 20))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取媒体列表失败")
		return
	}

	items := make([]gin.H, 0, len(result.Items))
	for _, media := range result.Items {
		items = append(items, gin.H{
			"id":            media.ID,
			"filename":      media.Filename,
			"original_name": media.OriginalName,
			"mime_type":     media.MimeType,
			"size":          media.Size,
			"url":           media.URL,
			"path":          media.Path,
			"width":         media.Width,
			"height":        media.Height,
			"uploader":      media.Uploader,
			"usage_count":   media.UsageCount,
			"created_at":    media.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"media":       items,
		"total":       result.Total,
		"total_pages": result.TotalPages,
		"page":        result.Page,
		"per_page":    result.PerPage,
	})
}

// DeleteMedia 删除媒体记录及磁盘文件；仍被引用的媒体拒绝删除。
func (a *API) DeleteMedia(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的媒体ID")
		return
	}

	media, err := a.media.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrMediaNotFound) {
			respondError(c, http.StatusNotFound, "媒体文件不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "操作失败")
		return
	}

	if err := a.media.Delete(id); err != nil {
		switch {
		case errors.Is(err, service.ErrMediaNotFound):
			respondError(c, http.StatusNotFound, "媒体文件不存在")
		case errors.Is(err, service.ErrMediaInUse):
			respondError(c, http.StatusConflict, "媒体文件仍被文章引用，无法删除")
		default:
			respondError(c, http.StatusInternalServerError, "删除媒体文件失败")
		}
		return
	}

	// 数据库记录已删除，磁盘清理失败只能留给人工处理
	_ = os.Remove(filepath.Join(a.uploadDir, media.Filename))

	c.JSON(http.StatusOK, gin.H{"message": "媒体文件已删除"})
}

// SyncPostMedia 手动触发单篇文章的媒体引用同步。
func (a *API) SyncPostMedia(c *gin.Context) {
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

	added, removed, err := a.media.SyncPostMedia(post.ID, post.Content, post.Image)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "同步媒体引用失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"added": added, "removed": removed})
}

// RebuildMedia 全量重建媒体引用关系与引用计数。
func (a *API) RebuildMedia(c *gin.Context) {
	result, err := a.media.RebuildAll()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "重建媒体引用失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "媒体引用已重建",
		"posts":   result.Posts,
		"media":   result.Media,
		"links":   result.Links,
	})
}
