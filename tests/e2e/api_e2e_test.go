package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fireflyblog/internal/cache"
	"github.com/fireflyblog/internal/db"
	"github.com/fireflyblog/internal/router"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// localClient 直接驱动 http.Handler，并用 cookiejar 维持会话。
type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(t *testing.T, handler http.Handler) *localClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("创建 cookiejar 失败: %v", err)
	}
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) do(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("序列化请求失败: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, "http://example.com"+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range c.jar.Cookies(req.URL) {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	c.jar.SetCookies(req.URL, resp.Cookies())

	payload := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &payload)
	}
	return resp, payload
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if err := gdb.AutoMigrate(
		&db.Admin{}, &db.Category{}, &db.Tag{}, &db.Post{}, &db.PostRevision{},
		&db.MediaFile{}, &db.PostMedia{}, &db.ScheduledPublishLog{}, &db.SiteSetting{},
	); err != nil {
		t.Fatalf("迁移测试数据库失败: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	if err := gdb.Create(&db.Admin{Username: "admin", Password: string(hashed)}).Error; err != nil {
		t.Fatalf("创建管理员失败: %v", err)
	}

	engine, _ := router.Setup(router.Options{
		DB:            gdb,
		Store:         cache.NewStore(time.Minute),
		SessionSecret: "test-secret",
		UploadDir:     t.TempDir(),
		UploadURLPath: "/uploads",
	})
	return engine
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	handler := newTestRouter(t)
	client := newLocalClient(t, handler)

	// 未登录访问后台接口应被拒绝
	resp, _ := client.do(t, http.MethodGet, "/admin/api/posts", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("未登录应返回 401，实际 %d", resp.StatusCode)
	}

	resp, _ = client.do(t, http.MethodPost, "/admin/login", map[string]string{
		"username": "admin", "password": "admin123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("登录失败: %d", resp.StatusCode)
	}

	// 创建一篇发布文章和一篇草稿
	resp, body := client.do(t, http.MethodPost, "/admin/api/posts", map[string]interface{}{
		"title":    "公开文章",
		"slug":     "public-post",
		"content":  "# 你好\n\n正文内容。",
		"status":   "published",
		"category": "技术",
		"tags":     []string{"Go"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("创建文章失败: %d %v", resp.StatusCode, body)
	}
	post := body["post"].(map[string]interface{})
	postID := uint(post["id"].(float64))

	resp, _ = client.do(t, http.MethodPost, "/admin/api/posts", map[string]interface{}{
		"title": "草稿", "slug": "draft-post", "status": "draft",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("创建草稿失败: %d", resp.StatusCode)
	}

	// 对外列表只包含已发布文章
	public := newLocalClient(t, handler)
	resp, body = public.do(t, http.MethodGet, "/api/posts", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("公开列表失败: %d", resp.StatusCode)
	}
	if total := body["total"].(float64); total != 1 {
		t.Fatalf("对外应只有 1 篇文章，实际 %v", total)
	}

	// 详情带渲染后的 HTML
	resp, body = public.do(t, http.MethodGet, "/api/posts/public-post", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("公开详情失败: %d", resp.StatusCode)
	}
	detail := body["post"].(map[string]interface{})
	if detail["content_html"] == nil || detail["content_html"].(string) == "" {
		t.Fatal("详情应包含 content_html")
	}

	// 草稿对外不可见
	resp, _ = public.do(t, http.MethodGet, "/api/posts/draft-post", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("草稿对外应 404，实际 %d", resp.StatusCode)
	}

	// 置顶
	resp, body = client.do(t, http.MethodPost, fmt.Sprintf("/admin/api/posts/%d/toggle-pin", postID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("切换置顶失败: %d", resp.StatusCode)
	}
	if body["message"].(string) != "已置顶" {
		t.Fatalf("置顶提示不符: %v", body["message"])
	}

	// 回收站流程
	resp, _ = client.do(t, http.MethodDelete, fmt.Sprintf("/admin/api/posts/%d", postID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("软删除失败: %d", resp.StatusCode)
	}
	resp, _ = public.do(t, http.MethodGet, "/api/posts/public-post", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("回收站文章对外应 404，实际 %d", resp.StatusCode)
	}
	resp, body = client.do(t, http.MethodGet, "/admin/api/posts?trash=1", nil)
	if resp.StatusCode != http.StatusOK || body["total"].(float64) != 1 {
		t.Fatalf("回收站列表不符: %d %v", resp.StatusCode, body["total"])
	}
	resp, _ = client.do(t, http.MethodPost, fmt.Sprintf("/admin/api/posts/%d/restore", postID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("恢复失败: %d", resp.StatusCode)
	}
	resp, _ = public.do(t, http.MethodGet, "/api/posts/public-post", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("恢复后对外应可见，实际 %d", resp.StatusCode)
	}
}

func TestPasswordProtectedPostOverHTTP(t *testing.T) {
	handler := newTestRouter(t)
	client := newLocalClient(t, handler)

	resp, _ := client.do(t, http.MethodPost, "/admin/login", map[string]string{
		"username": "admin", "password": "admin123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("登录失败: %d", resp.StatusCode)
	}

	resp, _ = client.do(t, http.MethodPost, "/admin/api/posts", map[string]interface{}{
		"title":    "加密文章",
		"slug":     "locked-post",
		"content":  "秘密内容",
		"status":   "published",
		"password": "open-sesame",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("创建文章失败: %d", resp.StatusCode)
	}

	public := newLocalClient(t, handler)

	resp, body := public.do(t, http.MethodGet, "/api/posts/locked-post", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("加密文章详情失败: %d", resp.StatusCode)
	}
	detail := body["post"].(map[string]interface{})
	if detail["locked"] != true {
		t.Fatal("加密文章应标记 locked")
	}
	if _, hasContent := detail["content"]; hasContent {
		t.Fatal("未验证前不应返回正文")
	}

	resp, _ = public.do(t, http.MethodPost, "/api/posts/locked-post/verify", map[string]string{
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("错误密码应 403，实际 %d", resp.StatusCode)
	}

	resp, body = public.do(t, http.MethodPost, "/api/posts/locked-post/verify", map[string]string{
		"password": "open-sesame",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("正确密码应通过: %d", resp.StatusCode)
	}
	detail = body["post"].(map[string]interface{})
	if detail["content"].(string) != "秘密内容" {
		t.Fatalf("验证后应返回正文，实际 %v", detail["content"])
	}
}
