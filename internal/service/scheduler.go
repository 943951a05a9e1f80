package service

import (
	"context"
	"log"
	"time"
)

// minSweepInterval 防止把扫描间隔配置成忙等。
const minSweepInterval = time.Second

// ScheduledPublishWorker 周期性触发定时发布扫描的后台循环。
// 扫描本身是幂等的，进程重启后到期未发的文章会在首轮被补发。
type ScheduledPublishWorker struct {
	posts    *PostService
	interval time.Duration
	done     chan struct{}
}

// NewScheduledPublishWorker creates a worker sweeping at the given interval.
func NewScheduledPublishWorker(posts *PostService, interval time.Duration) *ScheduledPublishWorker {
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	return &ScheduledPublishWorker{
		posts:    posts,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start 启动后台循环。启动时立即执行一次扫描，之后按固定间隔触发，
// 直到 ctx 被取消。
func (w *ScheduledPublishWorker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)

		w.sweep()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.sweep()
			}
		}
	}()
}

// Wait 阻塞直到后台循环退出，用于优雅停机时等待收尾。
func (w *ScheduledPublishWorker) Wait() {
	<-w.done
}

// sweep 执行一轮扫描。单轮的 panic 和错误只记录日志，不中断循环。
func (w *ScheduledPublishWorker) sweep() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduled publish: sweep panic recovered: %v", r)
		}
	}()

	published, err := w.posts.PublishDueScheduled()
	if err != nil {
		log.Printf("scheduled publish: sweep failed: %v", err)
		return
	}
	if published > 0 {
		log.Printf("scheduled publish: published %d post(s)", published)
	}
}
