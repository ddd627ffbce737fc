package loan

import (
	"context"
	"time"
)

// Repository 借阅记录仓储接口
// 实现必须通过ctx参与调用方开启的事务
type Repository interface {
	// Create 新增借阅记录
	Create(ctx context.Context, record *BorrowRecord) error

	// FindByID 不存在返回ErrLoanNotFound
	FindByID(ctx context.Context, id uint) (*BorrowRecord, error)

	// FindOpen 读者对该书最早的在借记录, 没有返回ErrNotBorrowed
	FindOpen(ctx context.Context, patronID string, bookID uint) (*BorrowRecord, error)

	// FindLatestReturned 读者对该书最近一次已还记录, 没有返回ErrLoanNotFound
	FindLatestReturned(ctx context.Context, patronID string, bookID uint) (*BorrowRecord, error)

	// UpdateReturnDate 关闭读者对该书最早的在借记录, 返回被关闭的记录
	// 没有在借记录返回ErrNotBorrowed
	UpdateReturnDate(ctx context.Context, patronID string, bookID uint, returnedAt time.Time) (*BorrowRecord, error)

	// ListOpenByPatron 读者在借记录(带图书信息和逾期标记), 按借阅时间升序
	ListOpenByPatron(ctx context.Context, patronID string, now time.Time) ([]*LoanDetail, error)

	// ListHistory 读者全部借阅记录(在借+已还), 按借阅时间升序
	ListHistory(ctx context.Context, patronID string) ([]*LoanDetail, error)

	// CountOpen 读者在借记录数
	CountOpen(ctx context.Context, patronID string) (int64, error)

	// ListOverdue 全馆在now时刻已逾期的在借记录
	ListOverdue(ctx context.Context, now time.Time) ([]*LoanDetail, error)
}
