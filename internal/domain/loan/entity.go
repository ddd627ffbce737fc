package loan

import (
	"time"
)

// 借阅规则
const (
	// LoanPeriod 固定借期14天
	LoanPeriod = 14 * 24 * time.Hour

	// MaxOpenLoans 每位读者同时在借上限
	MaxOpenLoans = 5
)

// State 某读者与某本书之间的借阅状态
//
//	NONE --borrow--> OPEN --return--> CLOSED
//
// CLOSED是单条记录的终态, 再次借阅会创建新记录重新进入OPEN
type State int

const (
	StateNone   State = 0
	StateOpen   State = 1
	StateClosed State = 2
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// BorrowRecord 借阅记录(聚合根)
// 借阅时创建, 只在归还时修改一次(写入ReturnedAt), 从不删除
type BorrowRecord struct {
	ID         uint
	PatronID   string
	BookID     uint // 引用图书, 不拥有
	BorrowedAt time.Time
	DueAt      time.Time
	ReturnedAt *time.Time // nil表示在借
	CreatedAt  time.Time
}

// NewBorrowRecord 创建借阅记录, 到期时间 = 借阅时间 + 14天
func NewBorrowRecord(patronID string, bookID uint, borrowedAt time.Time) *BorrowRecord {
	return &BorrowRecord{
		PatronID:   patronID,
		BookID:     bookID,
		BorrowedAt: borrowedAt,
		DueAt:      borrowedAt.Add(LoanPeriod),
		CreatedAt:  borrowedAt,
	}
}

// State 记录当前状态
func (r *BorrowRecord) State() State {
	if r == nil {
		return StateNone
	}
	if r.ReturnedAt == nil {
		return StateOpen
	}
	return StateClosed
}

// IsOpen 是否在借
func (r *BorrowRecord) IsOpen() bool {
	return r.State() == StateOpen
}

// Close 归还, 只允许从OPEN转到CLOSED一次
func (r *BorrowRecord) Close(at time.Time) error {
	if r.State() != StateOpen {
		return ErrAlreadyReturned
	}
	returned := at
	r.ReturnedAt = &returned
	return nil
}

// IsOverdue 在now时刻是否已逾期(在借且超过到期时间)
func (r *BorrowRecord) IsOverdue(now time.Time) bool {
	return r.IsOpen() && now.After(r.DueAt)
}

// FeeAt 计算滞纳金的参考时刻: 在借用now, 已还用归还时间
func (r *BorrowRecord) FeeAt(now time.Time) time.Time {
	if r.ReturnedAt != nil {
		return *r.ReturnedAt
	}
	return now
}

// LoanDetail 借阅记录连同图书信息(报表、逾期扫描使用)
type LoanDetail struct {
	BorrowRecord
	Title     string
	Author    string
	IsOverdue bool
}
