package service

import (
	"errors"
	"testing"

	"github.com/fireflyblog/internal/db"
)

func TestSyncPostMediaAddAndRemove(t *testing.T) {
	gdb := newTestDB(t)
	posts := NewPostService(gdb)
	media := NewMediaService(gdb)

	a := createMedia(t, gdb, "a.png")
	b := createMedia(t, gdb, "b.png")

	post, err := posts.Create(PostInput{
		Title:   "图片文章",
		Slug:    "with-images",
		Content: "![a](/uploads/a.png) ![b](/uploads/b.png)",
	})
	if err != nil {
		t.Fatalf("创建文章失败: %v", err)
	}

	if got := mediaUsage(t, gdb, a.ID); got != 1 {
		t.Fatalf("a.png 引用数应为 1，实际 %d", got)
	}
	if got := mediaUsage(t, gdb, b.ID); got != 1 {
		t.Fatalf("b.png 引用数应为 1，实际 %d", got)
	}

	// 移除 b，保留 a
	if _, err := posts.Update(post.ID, PostInput{
		Title:   post.Title,
		Slug:    post.Slug,
		Content: "![a](/uploads/a.png)",
	}); err != nil {
		t.Fatalf("更新文章失败: %v", err)
	}

	if got := mediaUsage(t, gdb, a.ID); got != 1 {
		t.Fatalf("a.png 引用数应保持 1，实际 %d", got)
	}
	if got := mediaUsage(t, gdb, b.ID); got != 0 {
		t.Fatalf("b.png 引用数应归零，实际 %d", got)
	}

	added, removed, err := media.SyncPostMedia(post.ID, "![a](/uploads/a.png)", "")
	if err != nil {
		t.Fatalf("重复同步失败: %v", err)
	}
	if added != 0 || removed != 0 {
		t.Fatalf("内容未变时不应有增删，added=%d removed=%d", added, removed)
	}
}

func TestSyncPostMediaIgnoresUnknownPaths(t *testing.T) {
	gdb := newTestDB(t)
	posts := NewPostService(gdb)

	known := createMedia(t, gdb, "known.png")

	if _, err := posts.Create(PostInput{
		Title:   "库外引用",
		Slug:    "unknown-paths",
		Content: "![k](/uploads/known.png) ![u](/uploads/unknown.png)",
	}); err != nil {
		t.Fatalf("创建文章失败: %v", err)
	}

	var links []db.PostMedia
	if err := gdb.Find(&links).Error; err != nil {
		t.Fatalf("读取关联失败: %v", err)
	}
	if len(links) != 1 || links[0].MediaID != known.ID {
		t.Fatalf("只应记录库内媒体的引用: %+v", links)
	}
}

func TestMediaDeleteBlockedWhileInUse(t *testing.T) {
	gdb := newTestDB(t)
	posts := NewPostService(gdb)
	media := NewMediaService(gdb)

	file := createMedia(t, gdb, "pinned.png")
	post, err := posts.Create(PostInput{
		Title:   "引用中",
		Slug:    "in-use",
		Content: "![p](/uploads/pinned.png)",
	})
	if err != nil {
		t.Fatalf("创建文章失败: %v", err)
	}

	if err := media.Delete(file.ID); !errors.Is(err, ErrMediaInUse) {
		t.Fatalf("引用中的媒体应拒绝删除，实际 %v", err)
	}

	if _, err := posts.Update(post.ID, PostInput{
		Title: post.Title, Slug: post.Slug, Content: "没有图片了",
	}); err != nil {
		t.Fatalf("更新文章失败: %v", err)
	}

	if err := media.Delete(file.ID); err != nil {
		t.Fatalf("引用清空后删除应成功: %v", err)
	}
	if _, err := media.Get(file.ID); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("删除后应查不到媒体，实际 %v", err)
	}
}

func TestRebuildAllRepairsCountsAndKeepsTrashedPosts(t *testing.T) {
	gdb := newTestDB(t)
	posts := NewPostService(gdb)
	media := NewMediaService(gdb)

	file := createMedia(t, gdb, "shared.png")

	first, err := posts.Create(PostInput{
		Title: "第一篇", Slug: "first",
		Content: "![s](/uploads/shared.png)",
	})
	if err != nil {
		t.Fatalf("创建文章失败: %v", err)
	}
	if _, err := posts.Create(PostInput{
		Title: "第二篇", Slug: "second",
		Content: "![s](/uploads/shared.png)",
	}); err != nil {
		t.Fatalf("创建文章失败: %v", err)
	}

	// 第一篇进回收站，引用关系保留
	if err := posts.Delete(first.ID); err != nil {
		t.Fatalf("软删除失败: %v", err)
	}

	// 人为破坏引用数，重建必须修复
	if err := gdb.Model(&db.MediaFile{}).Where("id = ?", file.ID).
		Update("usage_count", 99).Error; err != nil {
		t.Fatalf("写入脏数据失败: %v", err)
	}

	result, err := media.RebuildAll()
	if err != nil {
		t.Fatalf("全量重建失败: %v", err)
	}
	if result.Posts != 2 {
		t.Fatalf("重建应扫描包含回收站在内的 2 篇文章，实际 %d", result.Posts)
	}
	if result.Links != 2 {
		t.Fatalf("重建应产生 2 条关联，实际 %d", result.Links)
	}
	if got := mediaUsage(t, gdb, file.ID); got != 2 {
		t.Fatalf("重建后引用数应为 2，实际 %d", got)
	}
}
