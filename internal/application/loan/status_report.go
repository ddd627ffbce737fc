package loan

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/pkg/tracing"
)

// PatronReportUseCase 读者状态报表
// 纯聚合查询, 不修改任何数据; 未知读者返回空报表而不是错误
type PatronReportUseCase struct {
	loanRepo loan.Repository
	now      Clock
}

// NewPatronReportUseCase 创建报表用例
func NewPatronReportUseCase(loanRepo loan.Repository) *PatronReportUseCase {
	return &PatronReportUseCase{
		loanRepo: loanRepo,
		now:      systemClock,
	}
}

// WithClock 替换时钟
func (uc *PatronReportUseCase) WithClock(now Clock) *PatronReportUseCase {
	uc.now = now
	return uc
}

// BorrowedBook 在借图书, 滞纳金实时计算
type BorrowedBook struct {
	RecordID   uint   `json:"record_id"`
	BookID     uint   `json:"book_id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	BorrowDate string `json:"borrow_date"`
	DueDate    string `json:"due_date"`
	IsOverdue  bool   `json:"is_overdue"`
	LateFee    string `json:"late_fee"`
}

// HistoryEntry 借阅历史(在借+已还)
type HistoryEntry struct {
	RecordID   uint    `json:"record_id"`
	BookID     uint    `json:"book_id"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	BorrowDate string  `json:"borrow_date"`
	DueDate    string  `json:"due_date"`
	ReturnDate *string `json:"return_date"`
	IsReturned bool    `json:"is_returned"`
}

// PatronReport 读者状态报表
type PatronReport struct {
	PatronID           string         `json:"patron_id"`
	BorrowedBooks      []BorrowedBook `json:"borrowed_books"`
	TotalLateFees      string         `json:"total_late_fees"`
	BooksBorrowedCount int            `json:"books_borrowed_count"`
	BorrowingHistory   []HistoryEntry `json:"borrowing_history"`
}

// Execute 生成报表
func (uc *PatronReportUseCase) Execute(ctx context.Context, patronID string) (report *PatronReport, err error) {
	ctx, span := tracing.StartSpan(ctx, "loan.PatronReport", attribute.String("patron.id", patronID))
	defer func() { tracing.EndSpan(span, err) }()

	now := uc.now()

	open, err := uc.loanRepo.ListOpenByPatron(ctx, patronID, now)
	if err != nil {
		return nil, err
	}

	history, err := uc.loanRepo.ListHistory(ctx, patronID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	borrowed := make([]BorrowedBook, len(open))
	for i, d := range open {
		fee := loan.ComputeLateFee(d.DueAt, now)
		total = total.Add(fee.Fee)
		borrowed[i] = BorrowedBook{
			RecordID:   d.ID,
			BookID:     d.BookID,
			Title:      d.Title,
			Author:     d.Author,
			BorrowDate: d.BorrowedAt.Format(DateLayout),
			DueDate:    d.DueAt.Format(DateLayout),
			IsOverdue:  d.IsOverdue,
			LateFee:    fee.FeeString(),
		}
	}

	entries := make([]HistoryEntry, len(history))
	for i, d := range history {
		entry := HistoryEntry{
			RecordID:   d.ID,
			BookID:     d.BookID,
			Title:      d.Title,
			Author:     d.Author,
			BorrowDate: d.BorrowedAt.Format(DateLayout),
			DueDate:    d.DueAt.Format(DateLayout),
			IsReturned: d.ReturnedAt != nil,
		}
		if d.ReturnedAt != nil {
			returned := d.ReturnedAt.Format(DateLayout)
			entry.ReturnDate = &returned
		}
		entries[i] = entry
	}

	return &PatronReport{
		PatronID:           patronID,
		BorrowedBooks:      borrowed,
		TotalLateFees:      total.StringFixed(2),
		BooksBorrowedCount: len(open),
		BorrowingHistory:   entries,
	}, nil
}
