package loan

import (
	"context"
	"fmt"
	"time"

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

// BorrowBookUseCase 借书用例
//
// 借阅记录和可借数量两次写入必须一起成功或一起失败:
//  1. SELECT ... FOR UPDATE 锁定图书行
//  2. 检查可借数、重复借阅、借阅上限
//  3. 创建借阅记录
//  4. 可借数 -1 (带边界条件的原子UPDATE)
//  5. COMMIT, 之后再发布事件
type BorrowBookUseCase struct {
	bookRepo  book.Repository
	loanRepo  loan.Repository
	txManager *mysql.TxManager
	publisher mq.EventPublisher
	now       Clock
}

// NewBorrowBookUseCase 创建借书用例
func NewBorrowBookUseCase(
	bookRepo book.Repository,
	loanRepo loan.Repository,
	txManager *mysql.TxManager,
	publisher mq.EventPublisher,
) *BorrowBookUseCase {
	return &BorrowBookUseCase{
		bookRepo:  bookRepo,
		loanRepo:  loanRepo,
		txManager: txManager,
		publisher: publisher,
		now:       systemClock,
	}
}

// WithClock 替换时钟
func (uc *BorrowBookUseCase) WithClock(now Clock) *BorrowBookUseCase {
	uc.now = now
	return uc
}

// BorrowBookRequest 借书请求
type BorrowBookRequest struct {
	PatronID string
	BookID   uint
}

// BorrowBookResponse 借书响应
type BorrowBookResponse struct {
	RecordID   uint   `json:"record_id"`
	PatronID   string `json:"patron_id"`
	BookID     uint   `json:"book_id"`
	Title      string `json:"title"`
	BorrowedAt string `json:"borrowed_at"`
	DueDate    string `json:"due_date"`
	Message    string `json:"message"`
}

// Execute 执行借书
func (uc *BorrowBookUseCase) Execute(ctx context.Context, req BorrowBookRequest) (resp *BorrowBookResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "loan.Borrow",
		attribute.String("patron.id", req.PatronID),
		attribute.Int64("book.id", int64(req.BookID)),
	)
	defer func() {
		metrics.RecordLoan("borrow", outcome(err))
		tracing.EndSpan(span, err)
	}()

	if err := loan.ValidatePatronID(req.PatronID); err != nil {
		return nil, err
	}

	var (
		b      *book.Book
		record *loan.BorrowRecord
	)
	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		b, err = uc.bookRepo.LockByID(txCtx, req.BookID)
		if err != nil {
			return err
		}

		alreadyBorrowed, err := uc.hasOpenRecord(txCtx, req.PatronID, b.ID)
		if err != nil {
			return err
		}

		openCount, err := uc.loanRepo.CountOpen(txCtx, req.PatronID)
		if err != nil {
			return err
		}

		if err := loan.EnsureCanBorrow(b, alreadyBorrowed, openCount); err != nil {
			return err
		}

		record = loan.NewBorrowRecord(req.PatronID, b.ID, uc.now())
		if err := uc.loanRepo.Create(txCtx, record); err != nil {
			return err
		}

		return uc.bookRepo.UpdateAvailability(txCtx, b.ID, -1)
	})
	if err != nil {
		if apperrors.IsServerError(err) {
			zap.L().Error("借书失败",
				zap.String("patron_id", req.PatronID),
				zap.Uint("book_id", req.BookID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	zap.L().Info("借书成功",
		zap.Uint("record_id", record.ID),
		zap.String("patron_id", record.PatronID),
		zap.Uint("book_id", record.BookID),
	)

	event.Publish(ctx, uc.publisher, event.LoanBorrowed, event.LoanBorrowedPayload{
		RecordID: record.ID,
		PatronID: record.PatronID,
		BookID:   record.BookID,
		Title:    b.Title,
		DueAt:    record.DueAt,
	})

	dueDate := record.DueAt.Format(DateLayout)
	return &BorrowBookResponse{
		RecordID:   record.ID,
		PatronID:   record.PatronID,
		BookID:     record.BookID,
		Title:      b.Title,
		BorrowedAt: record.BorrowedAt.Format(time.RFC3339),
		DueDate:    dueDate,
		Message:    fmt.Sprintf(`Successfully borrowed "%s". Due date: %s.`, b.Title, dueDate),
	}, nil
}

func (uc *BorrowBookUseCase) hasOpenRecord(ctx context.Context, patronID string, bookID uint) (bool, error) {
	_, err := uc.loanRepo.FindOpen(ctx, patronID, bookID)
	switch {
	case err == nil:
		return true, nil
	case apperrors.HasCode(err, apperrors.ErrCodeNotBorrowed):
		return false, nil
	default:
		return false, err
	}
}
