package service

import (
	"errors"
	"testing"
	"time"
)

func TestAutosaveSaveOverwritesSlot(t *testing.T) {
	gdb := newTestDB(t)
	posts := NewPostService(gdb)
	autosaves := NewAutosaveService(gdb)

	post, err := posts.Create(PostInput{Title: "草稿", Slug: "autosave"})
	if err != nil {
		t.Fatalf("创建文章失败: %v", err)
	}

	now := time.Now()
	autosaves.SetNow(func() time.Time { return now })

	if _, err := autosaves.Save(post.ID, "第一次"); err != nil {
		t.Fatalf("自动保存失败: %v", err)
	}
	savedAt, err := autosaves.Save(post.ID, "第二次")
	if err != nil {
		t.Fatalf("自动保存失败: %v", err)
	}
	if !savedAt.Equal(now) {
		t.Fatalf("保存时间应来自注入的时钟: %v", savedAt)
	}

	slot, err := autosaves.Get(post.ID)
	if err != nil {
		t.Fatalf("读取自动保存失败: %v", err)
	}
	if slot.Data != "第二次" {
		t.Fatalf("槽位应只保留最新内容，实际 %q", slot.Data)
	}
	if slot.SavedAt == nil {
		t.Fatal("保存时间不应为空")
	}

	var revisionCount int64
	gdb.Table("post_revisions").Where("content = ?", "第二次").Count(&revisionCount)
	if revisionCount != 0 {
		t.Fatal("自动保存不应产生版本快照")
	}
}

func TestAutosaveClear(t *testing.T) {
	gdb := newTestDB(t)
	posts := NewPostService(gdb)
	autosaves := NewAutosaveService(gdb)

	post, err := posts.Create(PostInput{Title: "草稿", Slug: "autosave-clear"})
	if err != nil {
		t.Fatalf("创建文章失败: %v", err)
	}

	if _, err := autosaves.Save(post.ID, "临时内容"); err != nil {
		t.Fatalf("自动保存失败: %v", err)
	}
	if err := autosaves.Clear(post.ID); err != nil {
		t.Fatalf("清除自动保存失败: %v", err)
	}

	slot, err := autosaves.Get(post.ID)
	if err != nil {
		t.Fatalf("读取自动保存失败: %v", err)
	}
	if slot.Data != "" || slot.SavedAt != nil {
		t.Fatalf("清除后槽位应为空: %+v", slot)
	}
}

func TestAutosaveMissingPost(t *testing.T) {
	gdb := newTestDB(t)
	autosaves := NewAutosaveService(gdb)

	if _, err := autosaves.Save(42, "x"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("不存在的文章应返回 ErrPostNotFound，实际 %v", err)
	}
	if _, err := autosaves.Get(42); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("不存在的文章应返回 ErrPostNotFound，实际 %v", err)
	}
	if err := autosaves.Clear(42); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("不存在的文章应返回 ErrPostNotFound，实际 %v", err)
	}
}
