package service

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/fireflyblog/internal/db"
)

// uploadURLPattern 匹配内容中的上传资源引用，支持绝对 URL、协议相对 URL 和相对路径。
var uploadURLPattern = regexp.MustCompile(`(?i)(?:https?:)?//[^\s"'<>]+/uploads/[^\s"'<>]+|/uploads/[^\s"'<>]+`)

// trailingLinkPunctuation 是 Markdown/HTML 链接常见的收尾符号。
const trailingLinkPunctuation = `).,;:]>"'`

// NormalizeUploadPath 将上传资源 URL 规范化为相对存储路径。
// 无法解析的引用返回空字符串，由调用方按条跳过。
func NormalizeUploadPath(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return ""
	}

	cleaned = strings.TrimRight(cleaned, trailingLinkPunctuation)
	if strings.HasPrefix(cleaned, "//") {
		cleaned = "https:" + cleaned
	}

	path := cleaned
	lowered := strings.ToLower(cleaned)
	if strings.HasPrefix(lowered, "http://") || strings.HasPrefix(lowered, "https://") {
		parsed, err := url.Parse(cleaned)
		if err != nil {
			return ""
		}
		path = parsed.Path
	}

	marker := strings.Index(path, "/uploads/")
	if marker < 0 {
		return ""
	}

	relative := strings.TrimLeft(path[marker+len("/uploads/"):], "/")
	if relative == "" {
		return ""
	}

	decoded, err := url.PathUnescape(relative)
	if err != nil {
		return ""
	}
	return decoded
}

// ExtractUploadPaths 从自由文本中提取去重后的上传资源路径集合。
func ExtractUploadPaths(text string) map[string]struct{} {
	paths := make(map[string]struct{})
	if text == "" {
		return paths
	}

	for _, match := range uploadURLPattern.FindAllString(text, -1) {
		if normalized := NormalizeUploadPath(match); normalized != "" {
			paths[normalized] = struct{}{}
		}
	}
	return paths
}

// CollectMediaPaths 汇总文章正文与封面引用的媒体路径，并标记使用场景。
// 正文引用标记为 content；封面路径仅在未出现于正文时标记为 cover。
func CollectMediaPaths(content, coverImage string) map[string]string {
	pathContext := make(map[string]string)
	for path := range ExtractUploadPaths(content) {
		pathContext[path] = db.MediaContextContent
	}

	if cover := NormalizeUploadPath(coverImage); cover != "" {
		if _, exists := pathContext[cover]; !exists {
			pathContext[cover] = db.MediaContextCover
		}
	}
	return pathContext
}
