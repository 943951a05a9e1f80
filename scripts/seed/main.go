package main

import (
	"fmt"
	"log"
	"time"

	"github.com/fireflyblog/internal/config"
	"github.com/fireflyblog/internal/db"
	"github.com/fireflyblog/internal/service"
)

// 测试数据生成器
func main() {
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	if err := db.EnsureAdmin("admin", "admin123"); err != nil {
		log.Fatal("创建管理员失败:", err)
	}

	createTestPosts()

	fmt.Println("测试数据生成完成！")
	fmt.Println("管理员: admin (密码: admin123)")
}

func createTestPosts() {
	var count int64
	db.DB.Model(&db.Post{}).Count(&count)
	if count > 0 {
		fmt.Println("文章已存在，跳过创建")
		return
	}

	posts := service.NewPostService(db.DB)

	samples := []service.PostInput{
		{
			Title:        "用 Go 重写博客后台",
			Slug:         "rewrite-blog-backend-in-go",
			Description:  "记录一次后端重写的全过程",
			Content:      "# 用 Go 重写博客后台\n\n从数据模型到发布流程的完整笔记。",
			CategoryName: "技术",
			Tags:         []string{"Go", "Web开发"},
			Status:       db.PostStatusPublished,
			Pinned:       true,
		},
		{
			Title:        "周末的一次远足",
			Slug:         "weekend-hiking",
			Description:  "山里的雾气和一壶热茶",
			Content:      "走了十二公里，值得。",
			CategoryName: "生活",
			Tags:         []string{"生活"},
			Status:       db.PostStatusPublished,
		},
		{
			Title:       "还没写完的草稿",
			Slug:        "unfinished-draft",
			Content:     "先存个开头。",
			Status:      db.PostStatusDraft,
			Tags:        []string{"思考"},
		},
	}

	for _, input := range samples {
		if _, err := posts.Create(input); err != nil {
			log.Printf("创建文章 %s 失败: %v", input.Slug, err)
		}
	}

	scheduledAt := time.Now().Add(24 * time.Hour)
	if _, err := posts.Create(service.PostInput{
		Title:       "明天见",
		Slug:        "see-you-tomorrow",
		Content:     "这篇文章会在明天自动发布。",
		Status:      db.PostStatusScheduled,
		ScheduledAt: &scheduledAt,
	}); err != nil {
		log.Printf("创建定时文章失败: %v", err)
	}

	fmt.Println("✅ 测试文章创建完成")
}
