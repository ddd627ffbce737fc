package loan

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/application/event"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/mq"
	"github.com/xiebiao/library/pkg/tracing"
)

// ReturnBookUseCase 还书用例
// 关闭最早的在借记录并把可借数 +1, 两次写入在同一个事务里;
// 滞纳金按归还时刻计算, 只用于告知, 不在这里收费
type ReturnBookUseCase struct {
	bookRepo  book.Repository
	loanRepo  loan.Repository
	txManager *mysql.TxManager
	publisher mq.EventPublisher
	now       Clock
}

// NewReturnBookUseCase 创建还书用例
func NewReturnBookUseCase(
	bookRepo book.Repository,
	loanRepo loan.Repository,
	txManager *mysql.TxManager,
	publisher mq.EventPublisher,
) *ReturnBookUseCase {
	return &ReturnBookUseCase{
		bookRepo:  bookRepo,
		loanRepo:  loanRepo,
		txManager: txManager,
		publisher: publisher,
		now:       systemClock,
	}
}

// WithClock 替换时钟
func (uc *ReturnBookUseCase) WithClock(now Clock) *ReturnBookUseCase {
	uc.now = now
	return uc
}

// ReturnBookRequest 还书请求
type ReturnBookRequest struct {
	PatronID string
	BookID   uint
}

// ReturnBookResponse 还书响应
type ReturnBookResponse struct {
	RecordID    uint   `json:"record_id"`
	PatronID    string `json:"patron_id"`
	BookID      uint   `json:"book_id"`
	Title       string `json:"title"`
	ReturnDate  string `json:"return_date"`
	DaysOverdue int    `json:"days_overdue"`
	LateFee     string `json:"late_fee"`
	Message     string `json:"message"`
}

// Execute 执行还书
func (uc *ReturnBookUseCase) Execute(ctx context.Context, req ReturnBookRequest) (resp *ReturnBookResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "loan.Return",
		attribute.String("patron.id", req.PatronID),
		attribute.Int64("book.id", int64(req.BookID)),
	)
	defer func() {
		metrics.RecordLoan("return", outcome(err))
		tracing.EndSpan(span, err)
	}()

	if err := loan.ValidatePatronID(req.PatronID); err != nil {
		return nil, err
	}

	var (
		b      *book.Book
		record *loan.BorrowRecord
	)
	returnedAt := uc.now()
	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		b, err = uc.bookRepo.LockByID(txCtx, req.BookID)
		if err != nil {
			return err
		}

		record, err = uc.loanRepo.UpdateReturnDate(txCtx, req.PatronID, b.ID, returnedAt)
		if err != nil {
			return err
		}

		return uc.bookRepo.UpdateAvailability(txCtx, b.ID, 1)
	})
	if err != nil {
		if apperrors.IsServerError(err) {
			zap.L().Error("还书失败",
				zap.String("patron_id", req.PatronID),
				zap.Uint("book_id", req.BookID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	fee := loan.FeeForRecord(record, returnedAt)

	zap.L().Info("还书成功",
		zap.Uint("record_id", record.ID),
		zap.String("patron_id", record.PatronID),
		zap.Uint("book_id", record.BookID),
		zap.String("late_fee", fee.FeeString()),
	)

	event.Publish(ctx, uc.publisher, event.LoanReturned, event.LoanReturnedPayload{
		RecordID:   record.ID,
		PatronID:   record.PatronID,
		BookID:     record.BookID,
		Title:      b.Title,
		ReturnedAt: returnedAt,
		LateFee:    fee.FeeString(),
	})

	returnDate := returnedAt.Format(DateLayout)
	return &ReturnBookResponse{
		RecordID:    record.ID,
		PatronID:    record.PatronID,
		BookID:      record.BookID,
		Title:       b.Title,
		ReturnDate:  returnDate,
		DaysOverdue: fee.DaysOverdue,
		LateFee:     fee.FeeString(),
		Message: fmt.Sprintf(`Successfully returned "%s". Return Date: %s. Late fee owed: $%s.`,
			b.Title, returnDate, fee.FeeString()),
	}, nil
}
