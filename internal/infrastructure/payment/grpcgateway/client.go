package grpcgateway

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xiebiao/library/internal/domain/payment"
)

// Client 支付网关gRPC客户端, 实现payment.Gateway
// 一个进程只建一个连接, 所有请求复用
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	owned   bool
}

// Dial 连接网关, 不阻塞等待连接建立
func Dial(addr string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.Dial(addr, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "连接支付网关失败: %s", addr)
	}

	zap.L().Info("支付网关客户端已创建", zap.String("addr", addr))

	client := NewClient(conn, timeout)
	client.owned = true
	return client, nil
}

// NewClient 使用已有连接, Close不会关闭它
func NewClient(conn *grpc.ClientConn, timeout time.Duration) *Client {
	return &Client{conn: conn, timeout: timeout}
}

// Close 关闭Dial创建的连接
func (c *Client) Close() error {
	if c.owned && c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// ProcessPayment 扣款
func (c *Client) ProcessPayment(ctx context.Context, patronID string, amount decimal.Decimal, description string) (*payment.ChargeResult, error) {
	req, err := newStruct(map[string]interface{}{
		fieldPatronID:    patronID,
		fieldAmount:      formatAmount(amount),
		fieldDescription: description,
	})
	if err != nil {
		return nil, errors.Wrap(err, "构造扣款请求失败")
	}

	reply, err := c.invoke(ctx, methodProcessPayment, req)
	if err != nil {
		return nil, err
	}

	return &payment.ChargeResult{
		Success:       boolField(reply, fieldSuccess),
		TransactionID: stringField(reply, fieldTransactionID),
		Message:       stringField(reply, fieldMessage),
	}, nil
}

// RefundPayment 退款, 网关不认识交易号时返回payment.ErrUnknownTransaction
func (c *Client) RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (*payment.RefundResult, error) {
	req, err := newStruct(map[string]interface{}{
		fieldTransactionID: transactionID,
		fieldAmount:        formatAmount(amount),
	})
	if err != nil {
		return nil, errors.Wrap(err, "构造退款请求失败")
	}

	reply, err := c.invoke(ctx, methodRefundPayment, req)
	if err != nil {
		return nil, err
	}

	return &payment.RefundResult{
		Success: boolField(reply, fieldSuccess),
		Message: stringField(reply, fieldMessage),
	}, nil
}

func (c *Client) invoke(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reply := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, req, reply); err != nil {
		if isUnknownTransaction(err) {
			return nil, payment.ErrUnknownTransaction
		}
		return nil, errors.Wrapf(err, "调用%s失败", method)
	}
	return reply, nil
}

// isUnknownTransaction NotFound且带UNKNOWN_TRANSACTION的ErrorInfo
func isUnknownTransaction(err error) bool {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.NotFound {
		return false
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetReason() == ReasonUnknownTransaction {
			return true
		}
	}
	return false
}

var _ payment.Gateway = (*Client)(nil)
