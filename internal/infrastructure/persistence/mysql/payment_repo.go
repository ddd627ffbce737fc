package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/payment"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// paymentRepository 滞纳金支付台账仓储
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付台账仓储
func NewPaymentRepository(db *gorm.DB) payment.Repository {
	return &paymentRepository{db: db}
}

// Create 记录一笔成功扣款
func (r *paymentRepository) Create(ctx context.Context, p *payment.LateFeePayment) error {
	model := toPaymentModel(p)
	if err := r.getDB(ctx).Create(model).Error; err != nil {
		return apperrors.WithCode(apperrors.ErrCodeStorage, err, payment.MsgRecordPaymentStorageError)
	}

	p.ID = model.ID
	p.CreatedAt = model.CreatedAt
	p.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByTransactionID 根据网关交易号查找
func (r *paymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*payment.LateFeePayment, error) {
	var model LateFeePaymentModel
	err := r.getDB(ctx).Where("transaction_id = ?", transactionID).First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, apperrors.WithCode(apperrors.ErrCodeStorage, err, payment.MsgRecordPaymentStorageError)
	}
	return toPaymentEntity(&model), nil
}

// ListByRecord 某条借阅记录的全部支付, 按支付顺序
func (r *paymentRepository) ListByRecord(ctx context.Context, recordID uint) ([]*payment.LateFeePayment, error) {
	var models []LateFeePaymentModel
	err := r.getDB(ctx).Where("borrow_record_id = ?", recordID).Order("id ASC").Find(&models).Error
	if err != nil {
		return nil, apperrors.WithCode(apperrors.ErrCodeStorage, err, payment.MsgRecordPaymentStorageError)
	}

	payments := make([]*payment.LateFeePayment, len(models))
	for i := range models {
		payments[i] = toPaymentEntity(&models[i])
	}
	return payments, nil
}

// Update 保存退款进度
func (r *paymentRepository) Update(ctx context.Context, p *payment.LateFeePayment) error {
	result := r.getDB(ctx).Model(&LateFeePaymentModel{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"refunded_amount": p.RefundedAmount,
			"status":          int8(p.Status),
			"updated_at":      p.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return apperrors.WithCode(apperrors.ErrCodeStorage, result.Error, payment.MsgRecordPaymentStorageError)
	}
	if result.RowsAffected == 0 {
		return payment.ErrPaymentNotFound
	}
	return nil
}

func (r *paymentRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

func toPaymentModel(p *payment.LateFeePayment) *LateFeePaymentModel {
	return &LateFeePaymentModel{
		ID:             p.ID,
		TransactionID:  p.TransactionID,
		PatronID:       p.PatronID,
		BookID:         p.BookID,
		BorrowRecordID: p.BorrowRecordID,
		Amount:         p.Amount,
		RefundedAmount: p.RefundedAmount,
		Status:         int8(p.Status),
		Description:    p.Description,
	}
}

func toPaymentEntity(model *LateFeePaymentModel) *payment.LateFeePayment {
	return &payment.LateFeePayment{
		ID:             model.ID,
		TransactionID:  model.TransactionID,
		PatronID:       model.PatronID,
		BookID:         model.BookID,
		BorrowRecordID: model.BorrowRecordID,
		Amount:         model.Amount,
		RefundedAmount: model.RefundedAmount,
		Status:         payment.PaymentStatus(model.Status),
		Description:    model.Description,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}
