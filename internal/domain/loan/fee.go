package loan

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// 滞纳金费率: 前7天每天0.50, 之后每天1.00, 封顶15.00
const FirstTierDays = 7

var (
	FirstTierRate  = decimal.RequireFromString("0.50")
	SecondTierRate = decimal.RequireFromString("1.00")
	MaxLateFee     = decimal.RequireFromString("15.00")
)

const MsgNotOverdue = "Book is not overdue."

// LateFeeResult 滞纳金计算结果, 按需计算不落库
type LateFeeResult struct {
	Fee         decimal.Decimal
	DaysOverdue int
	Message     string
}

// IsZero 无需缴费
func (r LateFeeResult) IsZero() bool {
	return r.Fee.IsZero()
}

// FeeString 两位小数的金额文本
func (r LateFeeResult) FeeString() string {
	return r.Fee.StringFixed(2)
}

// DaysOverdue 逾期整天数, 向下取整且不为负
func DaysOverdue(due, now time.Time) int {
	elapsed := now.Sub(due)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}

// ComputeLateFee 纯函数: 只依赖到期时间和当前时间, 可重复调用
// 金额按decimal计算, 四舍五入(远离零)保留两位
func ComputeLateFee(due, now time.Time) LateFeeResult {
	days := DaysOverdue(due, now)
	if days <= 0 {
		return LateFeeResult{
			Fee:         decimal.Zero,
			DaysOverdue: 0,
			Message:     MsgNotOverdue,
		}
	}

	firstTier := days
	if firstTier > FirstTierDays {
		firstTier = FirstTierDays
	}
	secondTier := days - FirstTierDays
	if secondTier < 0 {
		secondTier = 0
	}

	fee := FirstTierRate.Mul(decimal.NewFromInt(int64(firstTier))).
		Add(SecondTierRate.Mul(decimal.NewFromInt(int64(secondTier))))
	if fee.GreaterThan(MaxLateFee) {
		fee = MaxLateFee
	}

	return LateFeeResult{
		Fee:         fee.Round(2),
		DaysOverdue: days,
		Message:     fmt.Sprintf("Book is %d day(s) overdue.", days),
	}
}

// FeeForRecord 按记录计算: 没有记录返回0并提示未借阅, 已还记录按归还时刻计算
func FeeForRecord(r *BorrowRecord, now time.Time) LateFeeResult {
	if r == nil {
		return LateFeeResult{Fee: decimal.Zero, Message: ErrNotBorrowed.Message}
	}
	return ComputeLateFee(r.DueAt, r.FeeAt(now))
}
