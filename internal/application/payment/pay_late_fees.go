package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/application/event"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/domain/payment"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/mq"
	"github.com/xiebiao/library/pkg/saga"
	"github.com/xiebiao/library/pkg/tracing"
)

const (
	payLateFeeSaga = "pay-late-fee"
	stepCharge     = "charge"
	stepRecord     = "record-payment"
)

// PayLateFeesUseCase 缴纳滞纳金
//
// 收费对象: 读者对该书最早的在借记录; 没有在借记录时取最近一次已还记录(按归还时刻计费)
// 应缴金额 = 滞纳金 - 该记录已实缴金额
//
// Saga:
//  1. charge: 网关扣款, 补偿为网关退款
//  2. record-payment: 写支付台账
//
// 写台账失败时退款并返回StorageError
type PayLateFeesUseCase struct {
	bookRepo    book.Repository
	loanRepo    loan.Repository
	paymentRepo payment.Repository
	gateway     payment.Gateway
	publisher   mq.EventPublisher
	timeout     time.Duration
	now         func() time.Time
}

// NewPayLateFeesUseCase 创建缴费用例, timeout为整个saga的超时
func NewPayLateFeesUseCase(
	bookRepo book.Repository,
	loanRepo loan.Repository,
	paymentRepo payment.Repository,
	gateway payment.Gateway,
	publisher mq.EventPublisher,
	timeout time.Duration,
) *PayLateFeesUseCase {
	return &PayLateFeesUseCase{
		bookRepo:    bookRepo,
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		publisher:   publisher,
		timeout:     timeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock 替换时钟
func (uc *PayLateFeesUseCase) WithClock(now func() time.Time) *PayLateFeesUseCase {
	uc.now = now
	return uc
}

// PayLateFeesRequest 缴费请求
type PayLateFeesRequest struct {
	PatronID string
	BookID   uint
}

// PayLateFeesResponse 缴费结果
type PayLateFeesResponse struct {
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Message       string `json:"message"`
}

// Execute 执行缴费
// 网关的任何故障都转换为PaymentProcessingError返回
func (uc *PayLateFeesUseCase) Execute(ctx context.Context, req PayLateFeesRequest) (resp *PayLateFeesResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "payment.PayLateFees",
		attribute.String("patron.id", req.PatronID),
		attribute.Int64("book.id", int64(req.BookID)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	if err := loan.ValidatePatronID(req.PatronID); err != nil {
		return nil, err
	}

	b, err := uc.bookRepo.FindByID(ctx, req.BookID)
	if err != nil {
		return nil, err
	}

	record, err := uc.chargeableRecord(ctx, req.PatronID, b.ID)
	if err != nil {
		return nil, err
	}

	amount, err := uc.outstanding(ctx, record)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, payment.ErrNoFeeOwed
	}

	description := payment.Description(b.Title)

	var (
		charge *payment.ChargeResult
		paid   *payment.LateFeePayment
	)
	s := saga.NewSaga(payLateFeeSaga, uc.timeout)
	s.AddStep(stepCharge,
		func(ctx context.Context) error {
			res, err := uc.gateway.ProcessPayment(ctx, req.PatronID, amount, description)
			if err != nil {
				return payment.NewProcessingError(err)
			}
			if !res.Success {
				return payment.NewDeclinedError(res.Message)
			}
			charge = res
			return nil
		},
		func(ctx context.Context) error {
			res, err := uc.gateway.RefundPayment(ctx, charge.TransactionID, amount)
			if err != nil {
				return err
			}
			if !res.Success {
				return apperrors.New(apperrors.ErrCodePaymentProcessing, res.Message)
			}
			return nil
		},
	)
	s.AddStep(stepRecord,
		func(ctx context.Context) error {
			paid = payment.NewLateFeePayment(charge.TransactionID, req.PatronID, b.ID, record.ID, amount, description)
			return uc.paymentRepo.Create(ctx, paid)
		},
		nil,
	)

	start := time.Now()
	err = s.Execute(ctx)
	if err != nil {
		stepErr, ok := saga.AsStepError(err)
		compensated := ok && stepErr.Index > 0
		metrics.RecordSaga(payLateFeeSaga, start, err, compensated && stepErr.Compensated())
		return nil, uc.failure(req, charge, stepErr, err)
	}
	metrics.RecordSaga(payLateFeeSaga, start, nil, false)
	metrics.AddLateFeesCollected(amount.InexactFloat64())

	zap.L().Info("滞纳金缴纳成功",
		zap.String("transaction_id", paid.TransactionID),
		zap.String("patron_id", req.PatronID),
		zap.Uint("book_id", b.ID),
		zap.String("amount", amount.StringFixed(2)),
	)

	event.Publish(ctx, uc.publisher, event.LateFeePaid, event.LateFeePaidPayload{
		TransactionID: paid.TransactionID,
		PatronID:      req.PatronID,
		BookID:        b.ID,
		Amount:        amount.StringFixed(2),
	})

	return &PayLateFeesResponse{
		TransactionID: charge.TransactionID,
		Amount:        amount.StringFixed(2),
		Message:       "Payment successful! " + charge.Message,
	}, nil
}

// chargeableRecord 最早的在借记录, 没有则取最近已还记录; 都没有说明无需缴费
func (uc *PayLateFeesUseCase) chargeableRecord(ctx context.Context, patronID string, bookID uint) (*loan.BorrowRecord, error) {
	record, err := uc.loanRepo.FindOpen(ctx, patronID, bookID)
	if err == nil {
		return record, nil
	}
	if !apperrors.HasCode(err, apperrors.ErrCodeNotBorrowed) {
		return nil, err
	}

	record, err = uc.loanRepo.FindLatestReturned(ctx, patronID, bookID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeLoanNotFound) {
			return nil, payment.ErrNoFeeOwed
		}
		return nil, err
	}
	return record, nil
}

// outstanding 应缴 = 滞纳金 - 已实缴
func (uc *PayLateFeesUseCase) outstanding(ctx context.Context, record *loan.BorrowRecord) (decimal.Decimal, error) {
	fee := loan.FeeForRecord(record, uc.now())
	if fee.IsZero() {
		return decimal.Zero, nil
	}

	payments, err := uc.paymentRepo.ListByRecord(ctx, record.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return fee.Fee.Sub(payment.SumNetPaid(payments)), nil
}

func (uc *PayLateFeesUseCase) failure(req PayLateFeesRequest, charge *payment.ChargeResult, stepErr *saga.StepError, err error) error {
	if stepErr == nil {
		return payment.NewProcessingError(err)
	}

	fields := []zap.Field{
		zap.String("patron_id", req.PatronID),
		zap.Uint("book_id", req.BookID),
		zap.String("step", stepErr.Step),
		zap.Error(stepErr.Err),
	}
	if charge != nil {
		fields = append(fields, zap.String("transaction_id", charge.TransactionID))
	}

	switch {
	case stepErr.Step == stepRecord && !stepErr.Compensated():
		zap.L().Error("台账写入失败且退款失败, 需要人工对账", fields...)
	case stepErr.Step == stepRecord:
		zap.L().Error("台账写入失败, 扣款已退回", fields...)
	case apperrors.HasCode(stepErr.Err, apperrors.ErrCodePaymentDeclined):
		zap.L().Info("滞纳金扣款被拒绝", fields...)
	default:
		zap.L().Warn("滞纳金扣款失败", fields...)
	}

	if apperrors.IsAppError(stepErr.Err) {
		return stepErr.Err
	}
	// saga整体超时
	return payment.NewProcessingError(stepErr.Err)
}
