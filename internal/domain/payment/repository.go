package payment

import (
	"context"
)

// Repository 滞纳金支付台账
type Repository interface {
	Create(ctx context.Context, p *LateFeePayment) error

	// FindByTransactionID 不存在返回ErrPaymentNotFound
	FindByTransactionID(ctx context.Context, transactionID string) (*LateFeePayment, error)

	// ListByRecord 某条借阅记录的全部支付
	ListByRecord(ctx context.Context, recordID uint) ([]*LateFeePayment, error)

	// Update 保存退款进度
	Update(ctx context.Context, p *LateFeePayment) error
}
