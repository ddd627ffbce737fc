// Package event 流通事件的routing key、消息体和发布辅助函数
// 事件在事务提交之后尽力发布, 发布失败只记日志, 不影响业务结果
package event

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/mq"
	"github.com/xiebiao/library/pkg/tracing"
)

// Routing keys
const (
	LoanBorrowed    = "loan.borrowed"
	LoanReturned    = "loan.returned"
	LoanOverdue     = "loan.overdue"
	LateFeePaid     = "payment.late_fee_paid"
	LateFeeRefunded = "payment.late_fee_refunded"
)

// AllRoutingKeys 通知服务订阅的全部事件
var AllRoutingKeys = []string{"loan.*", "payment.*"}

// LoanBorrowedPayload 借出
type LoanBorrowedPayload struct {
	RecordID uint      `json:"record_id"`
	PatronID string    `json:"patron_id"`
	BookID   uint      `json:"book_id"`
	Title    string    `json:"title"`
	DueAt    time.Time `json:"due_at"`
}

// LoanReturnedPayload 归还, LateFee为两位小数文本
type LoanReturnedPayload struct {
	RecordID   uint      `json:"record_id"`
	PatronID   string    `json:"patron_id"`
	BookID     uint      `json:"book_id"`
	Title      string    `json:"title"`
	ReturnedAt time.Time `json:"returned_at"`
	LateFee    string    `json:"late_fee"`
}

// LoanOverduePayload 逾期扫描发现的在借记录
type LoanOverduePayload struct {
	RecordID    uint      `json:"record_id"`
	PatronID    string    `json:"patron_id"`
	BookID      uint      `json:"book_id"`
	Title       string    `json:"title"`
	DueAt       time.Time `json:"due_at"`
	DaysOverdue int       `json:"days_overdue"`
	LateFee     string    `json:"late_fee"`
}

// LateFeePaidPayload 滞纳金扣款成功
type LateFeePaidPayload struct {
	TransactionID string `json:"transaction_id"`
	PatronID      string `json:"patron_id"`
	BookID        uint   `json:"book_id"`
	Amount        string `json:"amount"`
}

// LateFeeRefundedPayload 退款成功
type LateFeeRefundedPayload struct {
	TransactionID string `json:"transaction_id"`
	PatronID      string `json:"patron_id,omitempty"` // 台账没有记录时为空
	Amount        string `json:"amount"`
}

// Publish 尽力发布
func Publish(ctx context.Context, publisher mq.EventPublisher, routingKey string, payload interface{}) {
	if publisher == nil {
		return
	}

	err := publisher.Publish(ctx, routingKey, payload)
	metrics.RecordPublish(routingKey, err)
	if err != nil {
		zap.L().Warn("事件发布失败",
			zap.String("routing_key", routingKey),
			zap.String("trace_id", tracing.ExtractTraceID(ctx)),
			zap.Error(err),
		)
	}
}
