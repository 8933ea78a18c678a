package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"listhub_v1_202608/internal/repository"
	"listhub_v1_202608/internal/staging"
)

// ==================== 草稿清理任务 ====================

// CleanupTask 定期清理超过保留期的未提交草稿及其暂存数据
type CleanupTask struct {
	drafts    repository.ListingDraftRepository
	stager    *staging.Stager
	retention time.Duration
	spec      string
	cron      *cron.Cron
	log       *zap.Logger
}

// NewCleanupTask 创建清理任务
// retention 为草稿保留期，默认 30 天；spec 为 cron 表达式，默认每小时
func NewCleanupTask(
	drafts repository.ListingDraftRepository,
	stager *staging.Stager,
	retention time.Duration,
	log *zap.Logger,
) *CleanupTask {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CleanupTask{
		drafts:    drafts,
		stager:    stager,
		retention: retention,
		spec:      "@hourly",
		cron:      cron.New(),
		log:       log,
	}
}

// Start 启动定时清理
func (t *CleanupTask) Start() {
	_, err := t.cron.AddFunc(t.spec, func() {
		t.RunOnce(context.Background())
	})
	if err != nil {
		t.log.Error("注册清理任务失败", zap.Error(err))
		return
	}
	t.cron.Start()
	t.log.Info("草稿清理任务已启动", zap.Duration("retention", t.retention))
}

// Stop 停止任务
func (t *CleanupTask) Stop() {
	t.cron.Stop()
	t.log.Info("草稿清理任务已停止")
}

// RunOnce 执行一轮清理
func (t *CleanupTask) RunOnce(ctx context.Context) {
	before := time.Now().Add(-t.retention)

	// 先清暂存再删记录，避免留下孤儿暂存键
	stale, err := t.drafts.FindStale(ctx, before)
	if err != nil {
		t.log.Error("查找过期草稿失败", zap.Error(err))
		return
	}
	for _, d := range stale {
		if err := t.stager.Clear(ctx, d.Kind, d.Token); err != nil {
			t.log.Warn("清除过期草稿暂存失败", zap.String("token", d.Token), zap.Error(err))
		}
	}

	deleted, err := t.drafts.DeleteStale(ctx, before)
	if err != nil {
		t.log.Error("删除过期草稿失败", zap.Error(err))
		return
	}
	if deleted > 0 {
		t.log.Info("已清理过期草稿", zap.Int64("count", deleted))
	}
}
