// payment-gateway 独立运行的模拟支付网关, 通过gRPC提供扣款和退款
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/payment/grpcgateway"
	"github.com/xiebiao/library/internal/infrastructure/payment/simulated"
	"github.com/xiebiao/library/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zlog := logger.Must(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	}).Named("payment-gateway")
	zap.ReplaceGlobals(zlog)
	defer func() { _ = zlog.Sync() }()

	lis, err := net.Listen("tcp", cfg.Payment.Addr)
	if err != nil {
		zlog.Fatal("监听失败", zap.String("addr", cfg.Payment.Addr), zap.Error(err))
	}

	backend := simulated.New(cfg.Payment.SuccessRate, simulated.WithLogger(zlog))

	s := grpc.NewServer()
	grpcgateway.Register(s, grpcgateway.NewServer(backend, zlog))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(grpcgateway.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)
	reflection.Register(s)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		zlog.Info("收到退出信号, 停止gRPC服务")
		healthServer.Shutdown()
		s.GracefulStop()
	}()

	zlog.Info("支付网关启动",
		zap.String("addr", lis.Addr().String()),
		zap.Float64("success_rate", cfg.Payment.SuccessRate),
	)
	if err := s.Serve(lis); err != nil {
		zlog.Fatal("gRPC服务异常退出", zap.Error(err))
	}
}
