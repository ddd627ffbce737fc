package loan

import (
	"github.com/xiebiao/library/internal/domain/book"
)

// EnsureCanBorrow 借阅资格检查, 顺序决定返回哪条提示:
// 无可借副本 → 重复借阅 → 超出上限
func EnsureCanBorrow(b *book.Book, alreadyBorrowed bool, openCount int64) error {
	if !b.IsAvailable() {
		return book.ErrUnavailable
	}
	if alreadyBorrowed {
		return ErrDuplicateBorrow
	}
	if openCount >= MaxOpenLoans {
		return ErrLimitExceeded
	}
	return nil
}
