package db

import (
	"time"

	"gorm.io/gorm"
)

// 定时发布结果状态
const (
	SchedulePublishSuccess = "success"
	SchedulePublishFailed  = "failed"
)

// ScheduledPublishLog 是定时发布的只追加审计日志，正常流程不更新不删除。
type ScheduledPublishLog struct {
	gorm.Model
	PostID      uint   `gorm:"index;not null"`
	Status      string `gorm:"size:20;not null"`
	Message     string `gorm:"type:text"`
	ScheduledAt *time.Time
}

// TableName 指定自定义表名。
func (ScheduledPublishLog) TableName() string {
	return "scheduled_publish_logs"
}
