package dto

import "github.com/shopspring/decimal"

// PayLateFeesRequest 缴纳滞纳金
type PayLateFeesRequest struct {
	PatronID string `json:"patron_id" example:"123456"`
	BookID   uint   `json:"book_id" binding:"required" example:"1"`
}

// RefundRequest 滞纳金退款, amount可以是数字或字符串
type RefundRequest struct {
	TransactionID string          `json:"transaction_id" example:"txn_123456_1700000000"`
	Amount        decimal.Decimal `json:"amount" swaggertype:"string" example:"5.00"`
}
