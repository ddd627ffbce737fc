package grpcgateway

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xiebiao/library/internal/domain/payment"
)

// GatewayServer 服务端接口, 供ServiceDesc做类型检查
type GatewayServer interface {
	ProcessPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RefundPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// Server 把任意payment.Gateway暴露为gRPC服务
type Server struct {
	backend payment.Gateway
	logger  *zap.Logger
}

// NewServer 创建服务端
func NewServer(backend payment.Gateway, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.L()
	}
	return &Server{backend: backend, logger: logger}
}

// Register 注册到grpc.Server
func Register(s *grpc.Server, srv GatewayServer) {
	s.RegisterService(&serviceDesc, srv)
}

// ProcessPayment 扣款
func (s *Server) ProcessPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	amount, err := amountField(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid amount %q", stringField(req, fieldAmount))
	}

	res, err := s.backend.ProcessPayment(ctx, stringField(req, fieldPatronID), amount, stringField(req, fieldDescription))
	if err != nil {
		return nil, s.toStatus("ProcessPayment", err)
	}

	return newStruct(map[string]interface{}{
		fieldSuccess:       res.Success,
		fieldTransactionID: res.TransactionID,
		fieldMessage:       res.Message,
	})
}

// RefundPayment 退款
func (s *Server) RefundPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	amount, err := amountField(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid amount %q", stringField(req, fieldAmount))
	}

	res, err := s.backend.RefundPayment(ctx, stringField(req, fieldTransactionID), amount)
	if err != nil {
		return nil, s.toStatus("RefundPayment", err)
	}

	return newStruct(map[string]interface{}{
		fieldSuccess: res.Success,
		fieldMessage: res.Message,
	})
}

func (s *Server) toStatus(method string, err error) error {
	if errors.Is(err, payment.ErrUnknownTransaction) {
		st, detailErr := status.New(codes.NotFound, "unknown transaction").WithDetails(&errdetails.ErrorInfo{
			Reason: ReasonUnknownTransaction,
			Domain: ErrorDomain,
		})
		if detailErr != nil {
			return status.Error(codes.NotFound, "unknown transaction")
		}
		return st.Err()
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}

	s.logger.Error("支付网关后端失败", zap.String("method", method), zap.Error(err))
	return status.Error(codes.Internal, err.Error())
}

func processPaymentHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayServer).ProcessPayment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodProcessPayment}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(GatewayServer).ProcessPayment(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func refundPaymentHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayServer).RefundPayment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRefundPayment}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(GatewayServer).RefundPayment(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProcessPayment", Handler: processPaymentHandler},
		{MethodName: "RefundPayment", Handler: refundPaymentHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "library/payment/v1/gateway.proto",
}
