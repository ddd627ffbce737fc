package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus 滞纳金支付状态
type PaymentStatus int

const (
	PaymentStatusPaid              PaymentStatus = 1 // 已支付
	PaymentStatusPartiallyRefunded PaymentStatus = 2 // 部分退款
	PaymentStatusRefunded          PaymentStatus = 3 // 已全额退款
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentStatusPaid:
		return "paid"
	case PaymentStatusPartiallyRefunded:
		return "partially_refunded"
	case PaymentStatusRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// LateFeePayment 一笔已成功扣款的滞纳金(支付台账)
// 交易本身归网关所有, 这里只记录扣款结果和累计退款, 用于计算还欠多少
type LateFeePayment struct {
	ID             uint
	TransactionID  string // 网关交易号
	PatronID       string
	BookID         uint
	BorrowRecordID uint
	Amount         decimal.Decimal
	RefundedAmount decimal.Decimal
	Status         PaymentStatus
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewLateFeePayment 记录一笔成功扣款
func NewLateFeePayment(transactionID, patronID string, bookID, recordID uint, amount decimal.Decimal, description string) *LateFeePayment {
	now := time.Now()
	return &LateFeePayment{
		TransactionID:  transactionID,
		PatronID:       patronID,
		BookID:         bookID,
		BorrowRecordID: recordID,
		Amount:         amount,
		RefundedAmount: decimal.Zero,
		Status:         PaymentStatusPaid,
		Description:    description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Refundable 剩余可退金额
func (p *LateFeePayment) Refundable() decimal.Decimal {
	return p.Amount.Sub(p.RefundedAmount)
}

// NetPaid 扣除退款后的实缴金额
func (p *LateFeePayment) NetPaid() decimal.Decimal {
	return p.Refundable()
}

// ApplyRefund 记入一笔退款
func (p *LateFeePayment) ApplyRefund(amount decimal.Decimal) error {
	if amount.GreaterThan(p.Refundable()) {
		return ErrRefundExceedsPaid
	}
	p.RefundedAmount = p.RefundedAmount.Add(amount)
	if p.Refundable().IsZero() {
		p.Status = PaymentStatusRefunded
	} else {
		p.Status = PaymentStatusPartiallyRefunded
	}
	p.UpdatedAt = time.Now()
	return nil
}

// SumNetPaid 多笔支付的实缴合计
func SumNetPaid(payments []*LateFeePayment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.NetPaid())
	}
	return total
}
