// Package scheduler 周期任务
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	apploan "github.com/xiebiao/library/internal/application/loan"
)

// OverdueScanner 执行一次逾期扫描
type OverdueScanner interface {
	Execute(ctx context.Context) (*apploan.ScanOverdueResult, error)
}

// OverdueScanScheduler 按cron表达式定时扫描逾期借阅
type OverdueScanScheduler struct {
	scanner  OverdueScanner
	schedule string
	timeout  time.Duration

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.Mutex
	isRunning bool
}

// NewOverdueScanScheduler schedule为5段cron表达式(分 时 日 月 周)或@every 1h这类描述符
func NewOverdueScanScheduler(scanner OverdueScanner, schedule string) *OverdueScanScheduler {
	return &OverdueScanScheduler{
		scanner:  scanner,
		schedule: schedule,
		timeout:  time.Minute,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor))),
	}
}

// Start 注册任务并启动, ctx取消时停止
func (s *OverdueScanScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() { s.RunNow(ctx) })
	if err != nil {
		return fmt.Errorf("无效的cron表达式%q: %w", s.schedule, err)
	}
	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	zap.L().Info("逾期扫描任务已启动",
		zap.String("schedule", s.schedule),
		zap.Time("next_run", s.cron.Entry(entryID).Next),
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop 停止调度并等待正在执行的扫描结束
func (s *OverdueScanScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	s.isRunning = false
	zap.L().Info("逾期扫描任务已停止")
}

// IsRunning 调度是否在运行
func (s *OverdueScanScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunNow 立即执行一次扫描, 失败只记日志
func (s *OverdueScanScheduler) RunNow(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.scanner.Execute(ctx)
	if err != nil {
		zap.L().Error("逾期扫描失败", zap.Error(err))
		return
	}
	zap.L().Info("逾期扫描完成",
		zap.Int("overdue", result.Overdue),
		zap.Duration("elapsed", time.Since(start)),
	)
}
