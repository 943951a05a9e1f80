package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/fireflyblog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 为每个测试创建独立的内存数据库。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:service-test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}

	if err := gdb.AutoMigrate(
		&db.Admin{},
		&db.Category{},
		&db.Tag{},
		&db.Post{},
		&db.PostRevision{},
		&db.MediaFile{},
		&db.PostMedia{},
		&db.ScheduledPublishLog{},
		&db.SiteSetting{},
	); err != nil {
		t.Fatalf("迁移测试数据库失败: %v", err)
	}
	return gdb
}

func createMedia(t *testing.T, gdb *gorm.DB, path string) *db.MediaFile {
	t.Helper()
	media := db.MediaFile{
		Filename:     path,
		OriginalName: path,
		MimeType:     "image/png",
		Size:         1024,
		URL:          "/uploads/" + path,
		Path:         path,
	}
	if err := gdb.Create(&media).Error; err != nil {
		t.Fatalf("创建媒体记录失败: %v", err)
	}
	return &media
}

func mediaUsage(t *testing.T, gdb *gorm.DB, id uint) int {
	t.Helper()
	var media db.MediaFile
	if err := gdb.First(&media, id).Error; err != nil {
		t.Fatalf("读取媒体记录失败: %v", err)
	}
	return media.UsageCount
}
