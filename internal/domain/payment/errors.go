package payment

import (
	"fmt"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 支付领域错误定义
var (
	ErrNoFeeOwed          = apperrors.New(apperrors.ErrCodeNoFeeOwed, "No late fees to pay for this book.")
	ErrInvalidTransaction = apperrors.New(apperrors.ErrCodeInvalidTransaction, "Invalid transaction ID.")
	ErrRefundNotPositive  = apperrors.New(apperrors.ErrCodeInvalidAmount, "Refund amount must be greater than 0.")
	ErrRefundExceedsMax   = apperrors.New(apperrors.ErrCodeInvalidAmount, "Refund amount exceeds maximum late fee.")
	ErrRefundExceedsPaid  = apperrors.New(apperrors.ErrCodeInvalidAmount, "Refund amount exceeds amount paid.")
	ErrPaymentNotFound    = apperrors.New(apperrors.ErrCodePaymentNotFound, "Payment not found.")
)

const MsgRecordPaymentStorageError = "Database error occurred while recording the payment."

// NewDeclinedError 网关拒绝扣款
func NewDeclinedError(gatewayMessage string) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodePaymentDeclined, "Payment failed: "+gatewayMessage)
}

// NewRefundFailedError 网关拒绝退款, 文本原样透传
func NewRefundFailedError(gatewayMessage string) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodePaymentDeclined, gatewayMessage)
}

// NewProcessingError 网关故障(网络、服务异常、熔断)
func NewProcessingError(cause error) *apperrors.AppError {
	return apperrors.WithCode(apperrors.ErrCodePaymentProcessing, cause,
		fmt.Sprintf("Payment processing error: %v", cause))
}
