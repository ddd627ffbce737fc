package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/domain/payment"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/mq"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) ProcessPayment(ctx context.Context, patronID string, amount decimal.Decimal, description string) (*payment.ChargeResult, error) {
	args := m.Called(ctx, patronID, amount, description)
	res, _ := args.Get(0).(*payment.ChargeResult)
	return res, args.Error(1)
}

func (m *mockGateway) RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (*payment.RefundResult, error) {
	args := m.Called(ctx, transactionID, amount)
	res, _ := args.Get(0).(*payment.RefundResult)
	return res, args.Error(1)
}

func amountEq(s string) interface{} {
	want := decimal.RequireFromString(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

// failingPaymentRepo 台账写入失败
type failingPaymentRepo struct {
	payment.Repository
}

func (failingPaymentRepo) Create(context.Context, *payment.LateFeePayment) error {
	return apperrors.WithCode(apperrors.ErrCodeStorage, errors.New("disk full"), payment.MsgRecordPaymentStorageError)
}

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	books    book.Repository
	loans    loan.Repository
	payments payment.Repository
	gateway  *mockGateway
	book     *book.Book
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := mysql.NewInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{
		books:    mysql.NewBookRepository(db),
		loans:    mysql.NewLoanRepository(db),
		payments: mysql.NewPaymentRepository(db),
		gateway:  new(mockGateway),
	}
	f.book = book.NewBook("Dune", "Frank Herbert", "9780441172719", 2)
	require.NoError(t, f.books.Create(context.Background(), f.book))
	return f
}

// borrowDaysAgo 直接写一条在借记录
func (f *fixture) borrowDaysAgo(t *testing.T, patronID string, days int) *loan.BorrowRecord {
	t.Helper()
	r := loan.NewBorrowRecord(patronID, f.book.ID, now.Add(-time.Duration(days)*24*time.Hour))
	require.NoError(t, f.loans.Create(context.Background(), r))
	return r
}

func (f *fixture) payUseCase(repo payment.Repository, gw payment.Gateway) *PayLateFeesUseCase {
	return NewPayLateFeesUseCase(f.books, f.loans, repo, gw, mq.NopPublisher{}, 5*time.Second).
		WithClock(func() time.Time { return now })
}

func (f *fixture) guarded() payment.Gateway {
	return NewGuardedGateway(f.gateway, NewGatewayBreaker(circuitbreaker.Config{}))
}

func TestPayLateFees_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	record := f.borrowDaysAgo(t, "112233", 24) // 逾期10天, 6.50

	f.gateway.On("ProcessPayment", mock.Anything, "112233", amountEq("6.50"), "Late fees for 'Dune'").
		Return(&payment.ChargeResult{Success: true, TransactionID: "txn_123", Message: "Paid"}, nil).Once()

	resp, err := f.payUseCase(f.payments, f.guarded()).Execute(ctx, PayLateFeesRequest{PatronID: "112233", BookID: f.book.ID})
	require.NoError(t, err)
	assert.Equal(t, "txn_123", resp.TransactionID)
	assert.Equal(t, "6.50", resp.Amount)
	assert.Equal(t, "Payment successful! Paid", resp.Message)
	f.gateway.AssertExpectations(t)

	ledger, err := f.payments.FindByTransactionID(ctx, "txn_123")
	require.NoError(t, err)
	assert.Equal(t, record.ID, ledger.BorrowRecordID)
	assert.True(t, ledger.Amount.Equal(decimal.RequireFromString("6.5")))

	// 已全部缴清
	_, err = f.payUseCase(f.payments, f.guarded()).Execute(ctx, PayLateFeesRequest{PatronID: "112233", BookID: f.book.ID})
	assert.ErrorIs(t, err, payment.ErrNoFeeOwed)
	f.gateway.AssertNumberOfCalls(t, "ProcessPayment", 1)
}

func TestPayLateFees_NothingToCharge(t *testing.T) {
	ctx := context.Background()

	t.Run("读者证号无效, 不调用网关", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.payUseCase(f.payments, f.gateway).Execute(ctx, PayLateFeesRequest{PatronID: "xyz", BookID: f.book.ID})
		assert.ErrorIs(t, err, loan.ErrInvalidPatron)
		assert.Contains(t, apperrors.GetAppError(err).Message, "Invalid patron ID")
		f.gateway.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("未逾期", func(t *testing.T) {
		f := newFixture(t)
		f.borrowDaysAgo(t, "998877", 3)
		_, err := f.payUseCase(f.payments, f.gateway).Execute(ctx, PayLateFeesRequest{PatronID: "998877", BookID: f.book.ID})
		assert.ErrorIs(t, err, payment.ErrNoFeeOwed)
		assert.Equal(t, "No late fees to pay for this book.", apperrors.GetAppError(err).Message)
		f.gateway.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("从未借阅", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.payUseCase(f.payments, f.gateway).Execute(ctx, PayLateFeesRequest{PatronID: "998877", BookID: f.book.ID})
		assert.ErrorIs(t, err, payment.ErrNoFeeOwed)
	})

	t.Run("图书不存在", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.payUseCase(f.payments, f.gateway).Execute(ctx, PayLateFeesRequest{PatronID: "998877", BookID: 404})
		assert.ErrorIs(t, err, book.ErrBookNotFound)
	})
}

func TestPayLateFees_Declined(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.borrowDaysAgo(t, "223344", 28) // 逾期14天, 10.50

	f.gateway.On("ProcessPayment", mock.Anything, "223344", amountEq("10.50"), "Late fees for 'Dune'").
		Return(&payment.ChargeResult{Success: false, Message: "Declined"}, nil)

	resp, err := f.payUseCase(f.payments, f.guarded()).Execute(ctx, PayLateFeesRequest{PatronID: "223344", BookID: f.book.ID})
	assert.Nil(t, resp)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePaymentDeclined))
	assert.Equal(t, "Payment failed: Declined", apperrors.GetAppError(err).Message)

	list, err := f.payments.ListByRecord(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
	f.gateway.AssertNotCalled(t, "RefundPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestPayLateFees_GatewayFaults(t *testing.T) {
	ctx := context.Background()

	t.Run("网关返回错误", func(t *testing.T) {
		f := newFixture(t)
		f.borrowDaysAgo(t, "554433", 19)
		f.gateway.On("ProcessPayment", mock.Anything, "554433", amountEq("2.50"), mock.Anything).
			Return(nil, errors.New("Service Down")).Once()

		resp, err := f.payUseCase(f.payments, f.guarded()).Execute(ctx, PayLateFeesRequest{PatronID: "554433", BookID: f.book.ID})
		assert.Nil(t, resp)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePaymentProcessing))
		assert.Equal(t, "Payment processing error: Service Down", apperrors.GetAppError(err).Message)
		f.gateway.AssertNumberOfCalls(t, "ProcessPayment", 1)
	})

	t.Run("网关panic被兜住", func(t *testing.T) {
		f := newFixture(t)
		f.borrowDaysAgo(t, "554433", 19)
		f.gateway.On("ProcessPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { panic("nil map") })

		var err error
		assert.NotPanics(t, func() {
			_, err = f.payUseCase(f.payments, f.guarded()).Execute(ctx, PayLateFeesRequest{PatronID: "554433", BookID: f.book.ID})
		})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePaymentProcessing))
	})

	t.Run("熔断后不再调用网关", func(t *testing.T) {
		f := newFixture(t)
		f.borrowDaysAgo(t, "554433", 19)
		breaker := NewGatewayBreaker(circuitbreaker.Config{
			Timeout:     time.Minute,
			ReadyToTrip: func(c circuitbreaker.Counts) bool { return c.ConsecutiveFailures >= 1 },
		})
		gw := NewGuardedGateway(f.gateway, breaker)
		f.gateway.On("ProcessPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("timeout")).Once()

		uc := f.payUseCase(f.payments, gw)
		_, err := uc.Execute(ctx, PayLateFeesRequest{PatronID: "554433", BookID: f.book.ID})
		require.Error(t, err)
		assert.Equal(t, circuitbreaker.StateOpen, breaker.State())

		_, err = uc.Execute(ctx, PayLateFeesRequest{PatronID: "554433", BookID: f.book.ID})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePaymentProcessing))
		assert.ErrorIs(t, err, circuitbreaker.ErrOpenState)
		f.gateway.AssertNumberOfCalls(t, "ProcessPayment", 1)
	})
}

func TestPayLateFees_RecordFailureRefundsCharge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.borrowDaysAgo(t, "112233", 24)

	f.gateway.On("ProcessPayment", mock.Anything, "112233", amountEq("6.50"), mock.Anything).
		Return(&payment.ChargeResult{Success: true, TransactionID: "txn_999", Message: "Paid"}, nil)
	f.gateway.On("RefundPayment", mock.Anything, "txn_999", amountEq("6.50")).
		Return(&payment.RefundResult{Success: true, Message: "Refunded"}, nil).Once()

	_, err := f.payUseCase(failingPaymentRepo{f.payments}, f.guarded()).
		Execute(ctx, PayLateFeesRequest{PatronID: "112233", BookID: f.book.ID})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStorage))
	assert.Equal(t, payment.MsgRecordPaymentStorageError, apperrors.GetAppError(err).Message)
	f.gateway.AssertExpectations(t)
}

func TestPayLateFees_ReturnedRecordAndPartialRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.borrowDaysAgo(t, "112233", 30)
	// 逾期6天时归还: 3.00
	_, err := f.loans.UpdateReturnDate(ctx, "112233", f.book.ID, now.Add(-10*24*time.Hour))
	require.NoError(t, err)

	f.gateway.On("ProcessPayment", mock.Anything, "112233", amountEq("3.00"), mock.Anything).
		Return(&payment.ChargeResult{Success: true, TransactionID: "txn_a", Message: "ok"}, nil).Once()

	_, err = f.payUseCase(f.payments, f.guarded()).Execute(ctx, PayLateFeesRequest{PatronID: "112233", BookID: f.book.ID})
	require.NoError(t, err)

	// 退一部分后, 差额可以再次缴纳
	f.gateway.On("RefundPayment", mock.Anything, "txn_a", amountEq("1.00")).
		Return(&payment.RefundResult{Success: true, Message: "Refund processed"}, nil).Once()
	_, err = NewRefundLateFeeUseCase(f.payments, f.guarded(), mq.NopPublisher{}).
		Execute(ctx, RefundLateFeeRequest{TransactionID: "txn_a", Amount: decimal.RequireFromString("1.00")})
	require.NoError(t, err)

	f.gateway.On("ProcessPayment", mock.Anything, "112233", amountEq("1.00"), mock.Anything).
		Return(&payment.ChargeResult{Success: true, TransactionID: "txn_b", Message: "ok"}, nil).Once()
	resp, err := f.payUseCase(f.payments, f.guarded()).Execute(ctx, PayLateFeesRequest{PatronID: "112233", BookID: f.book.ID})
	require.NoError(t, err)
	assert.Equal(t, "1.00", resp.Amount)
	f.gateway.AssertExpectations(t)
}

func TestRefundLateFee_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := NewRefundLateFeeUseCase(f.payments, f.guarded(), mq.NopPublisher{})

	tests := []struct {
		name    string
		txn     string
		amount  string
		want    error
		message string
	}{
		{"金额为0", "txn_1", "0", payment.ErrRefundNotPositive, "Refund amount must be greater than 0."},
		{"金额为负", "txn_1", "-5", payment.ErrRefundNotPositive, "Refund amount must be greater than 0."},
		{"超过封顶", "txn_1", "15.01", payment.ErrRefundExceedsMax, "Refund amount exceeds maximum late fee."},
		{"交易号格式错误", "abc123", "5", payment.ErrInvalidTransaction, "Invalid transaction ID."},
		{"交易号为空", "", "5", payment.ErrInvalidTransaction, "Invalid transaction ID."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(ctx, RefundLateFeeRequest{TransactionID: tt.txn, Amount: decimal.RequireFromString(tt.amount)})
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.message, apperrors.GetAppError(err).Message)
		})
	}
	f.gateway.AssertNotCalled(t, "RefundPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefundLateFee_Gateway(t *testing.T) {
	ctx := context.Background()

	t.Run("台账外的交易交给网关, 成功原文返回", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("RefundPayment", mock.Anything, "txn_456", amountEq("6")).
			Return(&payment.RefundResult{Success: true, Message: "Refund processed"}, nil)

		resp, err := NewRefundLateFeeUseCase(f.payments, f.guarded(), mq.NopPublisher{}).
			Execute(ctx, RefundLateFeeRequest{TransactionID: "txn_456", Amount: decimal.NewFromInt(6)})
		require.NoError(t, err)
		assert.Equal(t, "Refund processed", resp.Message)
		assert.Equal(t, "6.00", resp.Amount)
	})

	t.Run("网关不认识交易号", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("RefundPayment", mock.Anything, "txn_unknown", mock.Anything).
			Return(nil, payment.ErrUnknownTransaction)

		_, err := NewRefundLateFeeUseCase(f.payments, f.guarded(), mq.NopPublisher{}).
			Execute(ctx, RefundLateFeeRequest{TransactionID: "txn_unknown", Amount: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, payment.ErrInvalidTransaction)
	})

	t.Run("网关拒绝, 文本原样返回", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("RefundPayment", mock.Anything, "txn_789", mock.Anything).
			Return(&payment.RefundResult{Success: false, Message: "Refund window closed"}, nil)

		_, err := NewRefundLateFeeUseCase(f.payments, f.guarded(), mq.NopPublisher{}).
			Execute(ctx, RefundLateFeeRequest{TransactionID: "txn_789", Amount: decimal.NewFromInt(1)})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePaymentDeclined))
		assert.Equal(t, "Refund window closed", apperrors.GetAppError(err).Message)
	})

	t.Run("网关故障", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("RefundPayment", mock.Anything, "txn_789", mock.Anything).
			Return(nil, errors.New("connection reset"))

		_, err := NewRefundLateFeeUseCase(f.payments, f.guarded(), mq.NopPublisher{}).
			Execute(ctx, RefundLateFeeRequest{TransactionID: "txn_789", Amount: decimal.NewFromInt(1)})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePaymentProcessing))
	})

	t.Run("超过台账剩余可退金额", func(t *testing.T) {
		f := newFixture(t)
		p := payment.NewLateFeePayment("txn_led", "112233", f.book.ID, 1, decimal.RequireFromString("3.50"), "Late fees for 'Dune'")
		require.NoError(t, f.payments.Create(ctx, p))

		uc := NewRefundLateFeeUseCase(f.payments, f.guarded(), mq.NopPublisher{})
		_, err := uc.Execute(ctx, RefundLateFeeRequest{TransactionID: "txn_led", Amount: decimal.RequireFromString("4.00")})
		assert.ErrorIs(t, err, payment.ErrRefundExceedsPaid)
		f.gateway.AssertNotCalled(t, "RefundPayment", mock.Anything, mock.Anything, mock.Anything)

		f.gateway.On("RefundPayment", mock.Anything, "txn_led", amountEq("3.50")).
			Return(&payment.RefundResult{Success: true, Message: "ok"}, nil)
		_, err = uc.Execute(ctx, RefundLateFeeRequest{TransactionID: "txn_led", Amount: decimal.RequireFromString("3.50")})
		require.NoError(t, err)

		ledger, err := f.payments.FindByTransactionID(ctx, "txn_led")
		require.NoError(t, err)
		assert.Equal(t, payment.PaymentStatusRefunded, ledger.Status)
	})
}

func TestBreakerSettings(t *testing.T) {
	cfg := BreakerSettings(config.BreakerConfig{MaxRequests: 2, Timeout: time.Second, FailureThreshold: 3})
	assert.Equal(t, uint32(2), cfg.MaxRequests)
	assert.False(t, cfg.ReadyToTrip(circuitbreaker.Counts{ConsecutiveFailures: 2}))
	assert.True(t, cfg.ReadyToTrip(circuitbreaker.Counts{ConsecutiveFailures: 3}))

	cfg = BreakerSettings(config.BreakerConfig{})
	assert.True(t, cfg.ReadyToTrip(circuitbreaker.Counts{ConsecutiveFailures: 5}))
}
