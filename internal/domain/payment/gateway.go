package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnknownTransaction 网关不认识该交易号
var ErrUnknownTransaction = errors.New("unknown transaction")

// ChargeResult 扣款结果, Success为false表示被拒绝(不是故障)
type ChargeResult struct {
	Success       bool
	TransactionID string
	Message       string
}

// RefundResult 退款结果
type RefundResult struct {
	Success bool
	Message string
}

// Gateway 支付网关能力接口
// 返回error表示传输或服务故障; 业务拒绝通过Success=false表达
type Gateway interface {
	ProcessPayment(ctx context.Context, patronID string, amount decimal.Decimal, description string) (*ChargeResult, error)
	RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (*RefundResult, error)
}
