package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/payment"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/pkg/circuitbreaker"
	"github.com/xiebiao/library/pkg/metrics"
)

// GuardedGateway 给任意网关加上熔断和panic兜底
// 网关的任何故障(返回error、panic、熔断)都以error返回, 不会越过这一层
type GuardedGateway struct {
	inner   payment.Gateway
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedGateway 包装网关
func NewGuardedGateway(inner payment.Gateway, breaker *circuitbreaker.CircuitBreaker) *GuardedGateway {
	return &GuardedGateway{inner: inner, breaker: breaker}
}

// NewGatewayBreaker 支付网关熔断器
// 未知交易号是业务拒绝, 不计为网关故障
func NewGatewayBreaker(cfg circuitbreaker.Config) *circuitbreaker.CircuitBreaker {
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, payment.ErrUnknownTransaction)
	}
	cb := circuitbreaker.NewCircuitBreaker("payment-gateway", cfg)
	cb.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		metrics.RecordBreakerState(name, int(to))
		zap.L().Warn("熔断器状态变化",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	return cb
}

// BreakerSettings 配置文件的熔断参数, 连续失败达到阈值即熔断
func BreakerSettings(cfg config.BreakerConfig) circuitbreaker.Config {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return circuitbreaker.Config{
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}
}

// ProcessPayment 扣款
func (g *GuardedGateway) ProcessPayment(ctx context.Context, patronID string, amount decimal.Decimal, description string) (*payment.ChargeResult, error) {
	var result *payment.ChargeResult
	err := g.call("charge", func() error {
		var err error
		result, err = g.inner.ProcessPayment(ctx, patronID, amount, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.New("payment gateway returned no result")
	}
	return result, nil
}

// RefundPayment 退款
func (g *GuardedGateway) RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (*payment.RefundResult, error) {
	var result *payment.RefundResult
	err := g.call("refund", func() error {
		var err error
		result, err = g.inner.RefundPayment(ctx, transactionID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.New("payment gateway returned no result")
	}
	return result, nil
}

func (g *GuardedGateway) call(operation string, fn func() error) error {
	err := g.breaker.Execute(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error("支付网关panic", zap.String("operation", operation), zap.Any("panic", r))
				err = fmt.Errorf("payment gateway panic: %v", r)
			}
		}()
		return fn()
	})

	switch {
	case err == nil:
		metrics.RecordGateway(operation, "success")
	case errors.Is(err, circuitbreaker.ErrOpenState):
		metrics.RecordGateway(operation, "rejected")
	default:
		metrics.RecordGateway(operation, "error")
	}
	return err
}

var _ payment.Gateway = (*GuardedGateway)(nil)
