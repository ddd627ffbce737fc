package loan

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/application/event"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/mq"
	"github.com/xiebiao/library/pkg/tracing"
)

// ScanOverdueUseCase 逾期扫描, 由定时任务调用
// 更新逾期数量指标, 并为每条逾期记录发布loan.overdue事件
type ScanOverdueUseCase struct {
	loanRepo  loan.Repository
	publisher mq.EventPublisher
	now       Clock
}

// NewScanOverdueUseCase 创建逾期扫描用例
func NewScanOverdueUseCase(loanRepo loan.Repository, publisher mq.EventPublisher) *ScanOverdueUseCase {
	return &ScanOverdueUseCase{
		loanRepo:  loanRepo,
		publisher: publisher,
		now:       systemClock,
	}
}

// WithClock 替换时钟
func (uc *ScanOverdueUseCase) WithClock(now Clock) *ScanOverdueUseCase {
	uc.now = now
	return uc
}

// ScanOverdueResult 扫描结果
type ScanOverdueResult struct {
	Overdue int `json:"overdue"`
}

// Execute 执行一次扫描
func (uc *ScanOverdueUseCase) Execute(ctx context.Context) (result *ScanOverdueResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "loan.ScanOverdue")
	defer func() { tracing.EndSpan(span, err) }()

	now := uc.now()
	overdue, err := uc.loanRepo.ListOverdue(ctx, now)
	if err != nil {
		return nil, err
	}

	metrics.SetOverdueLoans(len(overdue))

	for _, d := range overdue {
		fee := loan.ComputeLateFee(d.DueAt, now)
		event.Publish(ctx, uc.publisher, event.LoanOverdue, event.LoanOverduePayload{
			RecordID:    d.ID,
			PatronID:    d.PatronID,
			BookID:      d.BookID,
			Title:       d.Title,
			DueAt:       d.DueAt,
			DaysOverdue: fee.DaysOverdue,
			LateFee:     fee.FeeString(),
		})
	}

	zap.L().Info("逾期扫描完成", zap.Int("overdue", len(overdue)))
	return &ScanOverdueResult{Overdue: len(overdue)}, nil
}
