package loan

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/pkg/tracing"
)

// CalculateLateFeeUseCase 查询某读者某本在借图书当前的滞纳金
// 只读, 可重复调用
type CalculateLateFeeUseCase struct {
	bookRepo book.Repository
	loanRepo loan.Repository
	now      Clock
}

// NewCalculateLateFeeUseCase 创建滞纳金查询用例
func NewCalculateLateFeeUseCase(bookRepo book.Repository, loanRepo loan.Repository) *CalculateLateFeeUseCase {
	return &CalculateLateFeeUseCase{
		bookRepo: bookRepo,
		loanRepo: loanRepo,
		now:      systemClock,
	}
}

// WithClock 替换时钟
func (uc *CalculateLateFeeUseCase) WithClock(now Clock) *CalculateLateFeeUseCase {
	uc.now = now
	return uc
}

// LateFeeRequest 查询请求
type LateFeeRequest struct {
	PatronID string
	BookID   uint
}

// LateFeeResponse 查询结果
type LateFeeResponse struct {
	PatronID    string `json:"patron_id"`
	BookID      uint   `json:"book_id"`
	Title       string `json:"title"`
	DueDate     string `json:"due_date"`
	FeeAmount   string `json:"fee_amount"`
	DaysOverdue int    `json:"days_overdue"`
	Message     string `json:"message"`
}

// Execute 读者无效、图书不存在、未借阅都返回对应错误
func (uc *CalculateLateFeeUseCase) Execute(ctx context.Context, req LateFeeRequest) (resp *LateFeeResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "loan.CalculateLateFee",
		attribute.String("patron.id", req.PatronID),
		attribute.Int64("book.id", int64(req.BookID)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	if err := loan.ValidatePatronID(req.PatronID); err != nil {
		return nil, err
	}

	b, err := uc.bookRepo.FindByID(ctx, req.BookID)
	if err != nil {
		return nil, err
	}

	record, err := uc.loanRepo.FindOpen(ctx, req.PatronID, b.ID)
	if err != nil {
		return nil, err
	}

	fee := loan.ComputeLateFee(record.DueAt, uc.now())
	message := fee.Message
	if !fee.IsZero() {
		message = fmt.Sprintf(`Late fee for "%s" calculated successfully.`, b.Title)
	}

	return &LateFeeResponse{
		PatronID:    req.PatronID,
		BookID:      b.ID,
		Title:       b.Title,
		DueDate:     record.DueAt.Format(DateLayout),
		FeeAmount:   fee.FeeString(),
		DaysOverdue: fee.DaysOverdue,
		Message:     message,
	}, nil
}
