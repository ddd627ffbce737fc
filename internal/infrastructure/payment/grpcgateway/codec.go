// Package grpcgateway 通过gRPC访问支付网关
//
// 服务 library.payment.v1.PaymentGateway 没有生成代码, 请求和响应都是
// google.protobuf.Struct, 字段名见下方常量; 金额用两位小数的字符串传输
package grpcgateway

import (
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "library.payment.v1.PaymentGateway"

	methodProcessPayment = "/" + ServiceName + "/ProcessPayment"
	methodRefundPayment  = "/" + ServiceName + "/RefundPayment"

	// ErrorInfo.Reason: 网关不认识该交易号
	ReasonUnknownTransaction = "UNKNOWN_TRANSACTION"
	ErrorDomain              = "library.payment.v1"
)

// 消息字段
const (
	fieldPatronID      = "patron_id"
	fieldAmount        = "amount"
	fieldDescription   = "description"
	fieldTransactionID = "transaction_id"
	fieldSuccess       = "success"
	fieldMessage       = "message"
)

func newStruct(fields map[string]interface{}) (*structpb.Struct, error) {
	return structpb.NewStruct(fields)
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func boolField(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func amountField(s *structpb.Struct) (decimal.Decimal, error) {
	return decimal.NewFromString(stringField(s, fieldAmount))
}

func formatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
