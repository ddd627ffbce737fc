package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/application/event"
	"github.com/xiebiao/library/internal/domain/payment"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/mq"
	"github.com/xiebiao/library/pkg/tracing"
)

// RefundLateFeeUseCase 滞纳金退款
//
// 校验顺序: 金额(>0 且 <=15.00) → 交易号形态 → 台账剩余可退金额
// 台账没有的交易号交给网关判定, 网关不认识即为无效交易号
type RefundLateFeeUseCase struct {
	paymentRepo payment.Repository
	gateway     payment.Gateway
	publisher   mq.EventPublisher
}

// NewRefundLateFeeUseCase 创建退款用例
func NewRefundLateFeeUseCase(paymentRepo payment.Repository, gateway payment.Gateway, publisher mq.EventPublisher) *RefundLateFeeUseCase {
	return &RefundLateFeeUseCase{
		paymentRepo: paymentRepo,
		gateway:     gateway,
		publisher:   publisher,
	}
}

// RefundLateFeeRequest 退款请求
type RefundLateFeeRequest struct {
	TransactionID string
	Amount        decimal.Decimal
}

// RefundLateFeeResponse 退款结果, Message为网关原文
type RefundLateFeeResponse struct {
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Message       string `json:"message"`
}

// Execute 执行退款
func (uc *RefundLateFeeUseCase) Execute(ctx context.Context, req RefundLateFeeRequest) (resp *RefundLateFeeResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "payment.RefundLateFee",
		attribute.String("payment.transaction_id", req.TransactionID),
	)
	defer func() { tracing.EndSpan(span, err) }()

	if err := payment.ValidateRefundAmount(req.Amount); err != nil {
		return nil, err
	}
	if !payment.IsPlausibleTransactionID(req.TransactionID) {
		return nil, payment.ErrInvalidTransaction
	}

	ledger, err := uc.paymentRepo.FindByTransactionID(ctx, req.TransactionID)
	switch {
	case err == nil:
		if req.Amount.GreaterThan(ledger.Refundable()) {
			return nil, payment.ErrRefundExceedsPaid
		}
	case apperrors.HasCode(err, apperrors.ErrCodePaymentNotFound):
		ledger = nil
	default:
		return nil, err
	}

	res, err := uc.gateway.RefundPayment(ctx, req.TransactionID, req.Amount)
	if err != nil {
		if errors.Is(err, payment.ErrUnknownTransaction) {
			return nil, payment.ErrInvalidTransaction
		}
		zap.L().Warn("退款调用网关失败",
			zap.String("transaction_id", req.TransactionID),
			zap.Error(err),
		)
		return nil, payment.NewProcessingError(err)
	}
	if !res.Success {
		return nil, payment.NewRefundFailedError(res.Message)
	}

	payload := event.LateFeeRefundedPayload{
		TransactionID: req.TransactionID,
		Amount:        req.Amount.StringFixed(2),
	}
	if ledger != nil {
		payload.PatronID = ledger.PatronID
		uc.reconcile(ctx, ledger, req.Amount)
	}

	metrics.AddLateFeesRefunded(req.Amount.InexactFloat64())
	event.Publish(ctx, uc.publisher, event.LateFeeRefunded, payload)

	return &RefundLateFeeResponse{
		TransactionID: req.TransactionID,
		Amount:        req.Amount.StringFixed(2),
		Message:       res.Message,
	}, nil
}

// reconcile 退款已在网关成功, 台账更新失败只能记日志等待对账
func (uc *RefundLateFeeUseCase) reconcile(ctx context.Context, ledger *payment.LateFeePayment, amount decimal.Decimal) {
	if err := ledger.ApplyRefund(amount); err != nil {
		zap.L().Error("台账退款金额异常", zap.String("transaction_id", ledger.TransactionID), zap.Error(err))
		return
	}
	if err := uc.paymentRepo.Update(ctx, ledger); err != nil {
		zap.L().Error("台账更新失败, 需要人工对账",
			zap.String("transaction_id", ledger.TransactionID),
			zap.String("amount", amount.StringFixed(2)),
			zap.Error(err),
		)
	}
}
