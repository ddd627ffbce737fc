package payment

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xiebiao/library/internal/domain/loan"
)

// TransactionIDPrefix 网关交易号前缀
const TransactionIDPrefix = "txn_"

// MaxRefundAmount 单笔退款上限, 与滞纳金封顶一致
var MaxRefundAmount = loan.MaxLateFee

// GenerateTransactionID 生成交易号
// 格式: txn_ + 32位十六进制
func GenerateTransactionID() string {
	return TransactionIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsPlausibleTransactionID 交易号形态检查, 真正是否存在由网关判定
func IsPlausibleTransactionID(id string) bool {
	return strings.HasPrefix(id, TransactionIDPrefix) && len(id) > len(TransactionIDPrefix)
}

// ValidateRefundAmount 0 < amount <= 15.00
func ValidateRefundAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrRefundNotPositive
	}
	if amount.GreaterThan(MaxRefundAmount) {
		return ErrRefundExceedsMax
	}
	return nil
}

// Description 扣款描述, 必须包含书名
func Description(title string) string {
	return "Late fees for '" + title + "'"
}
