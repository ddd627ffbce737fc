// Package simulated 进程内模拟支付网关
// 本地开发、测试以及cmd/payment-gateway的后端都用它, 不涉及真实资金
package simulated

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/payment"
)

// 网关返回的文本
const (
	MsgChargeApproved   = "Payment of $%s processed successfully."
	MsgChargeDeclined   = "Card declined by issuer."
	MsgInvalidAmount    = "Invalid payment amount."
	MsgInvalidPatron    = "Patron ID is required."
	MsgRefundApproved   = "Refund of $%s processed successfully."
	MsgRefundOverCharge = "Refund amount exceeds remaining balance of $%s."
)

// charge 一笔扣款及其累计退款
type charge struct {
	patronID    string
	amount      decimal.Decimal
	refunded    decimal.Decimal
	description string
	createdAt   time.Time
}

// Gateway 模拟网关, 实现payment.Gateway
// 扣款按SuccessRate随机批准, 退款只认本网关发出的交易号
type Gateway struct {
	mu          sync.Mutex
	charges     map[string]*charge
	successRate float64
	random      func() float64
	now         func() time.Time
	logger      *zap.Logger
}

// Option 可选配置
type Option func(*Gateway)

// WithRandom 替换随机源(测试用)
func WithRandom(fn func() float64) Option {
	return func(g *Gateway) { g.random = fn }
}

// WithLogger 指定日志
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// New 创建模拟网关, successRate取值[0,1], 1表示全部批准
func New(successRate float64, opts ...Option) *Gateway {
	g := &Gateway{
		charges:     make(map[string]*charge),
		successRate: successRate,
		random:      rand.Float64,
		now:         time.Now,
		logger:      zap.L(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ProcessPayment 扣款
func (g *Gateway) ProcessPayment(ctx context.Context, patronID string, amount decimal.Decimal, description string) (*payment.ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if patronID == "" {
		return &payment.ChargeResult{Success: false, Message: MsgInvalidPatron}, nil
	}
	if !amount.IsPositive() {
		return &payment.ChargeResult{Success: false, Message: MsgInvalidAmount}, nil
	}

	if g.random() >= g.successRate {
		g.logger.Info("模拟网关拒绝扣款",
			zap.String("patron_id", patronID),
			zap.String("amount", amount.StringFixed(2)),
		)
		return &payment.ChargeResult{Success: false, Message: MsgChargeDeclined}, nil
	}

	txnID := payment.GenerateTransactionID()

	g.mu.Lock()
	g.charges[txnID] = &charge{
		patronID:    patronID,
		amount:      amount,
		refunded:    decimal.Zero,
		description: description,
		createdAt:   g.now(),
	}
	g.mu.Unlock()

	g.logger.Info("模拟网关扣款成功",
		zap.String("transaction_id", txnID),
		zap.String("patron_id", patronID),
		zap.String("amount", amount.StringFixed(2)),
	)

	return &payment.ChargeResult{
		Success:       true,
		TransactionID: txnID,
		Message:       fmt.Sprintf(MsgChargeApproved, amount.StringFixed(2)),
	}, nil
}

// RefundPayment 退款, 交易号不存在返回payment.ErrUnknownTransaction
func (g *Gateway) RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (*payment.RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.charges[transactionID]
	if !ok {
		return nil, payment.ErrUnknownTransaction
	}

	if !amount.IsPositive() {
		return &payment.RefundResult{Success: false, Message: MsgInvalidAmount}, nil
	}

	remaining := c.amount.Sub(c.refunded)
	if amount.GreaterThan(remaining) {
		return &payment.RefundResult{
			Success: false,
			Message: fmt.Sprintf(MsgRefundOverCharge, remaining.StringFixed(2)),
		}, nil
	}

	c.refunded = c.refunded.Add(amount)

	g.logger.Info("模拟网关退款成功",
		zap.String("transaction_id", transactionID),
		zap.String("amount", amount.StringFixed(2)),
	)

	return &payment.RefundResult{
		Success: true,
		Message: fmt.Sprintf(MsgRefundApproved, amount.StringFixed(2)),
	}, nil
}

// Refunded 某笔交易的累计退款, 交易不存在返回false
func (g *Gateway) Refunded(transactionID string) (decimal.Decimal, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.charges[transactionID]
	if !ok {
		return decimal.Zero, false
	}
	return c.refunded, true
}

var _ payment.Gateway = (*Gateway)(nil)
