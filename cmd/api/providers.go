package main

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apploan "github.com/xiebiao/library/internal/application/loan"
	apppayment "github.com/xiebiao/library/internal/application/payment"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/domain/payment"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/payment/grpcgateway"
	"github.com/xiebiao/library/internal/infrastructure/payment/simulated"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/mq"
)

// sessionStore 登录、登出和认证中间件共用的会话存储
type sessionStore interface {
	SaveSession(ctx context.Context, librarianID uint, data map[string]interface{}, ttl time.Duration) error
	DeleteSession(ctx context.Context, librarianID uint) error
	AddToBlacklist(ctx context.Context, token string, ttl time.Duration) error
	IsInBlacklist(ctx context.Context, token string) (bool, error)
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire, cfg.JWT.RefreshTokenExpire)
}

// provideSessionStore Redis不可用时退回进程内存储, 只适合单实例
func provideSessionStore(cfg *config.Config) (sessionStore, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg)
	if err != nil {
		if cfg.Server.Mode == "release" {
			zap.L().Fatal("Redis不可用", zap.Error(err))
		}
		zap.L().Warn("Redis不可用, 使用进程内会话存储", zap.Error(err))
		return redis.NewMemorySessionStore(), func() {}
	}
	return redis.NewSessionStore(client), func() { closeRedis(client) }
}

func closeRedis(client *goredis.Client) {
	if err := client.Close(); err != nil {
		zap.L().Warn("关闭Redis连接失败", zap.Error(err))
	}
}

func provideAuthMiddleware(manager *jwt.Manager, store sessionStore) *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(manager, store)
}

// providePublisher mq未启用或连接失败时丢弃事件
func providePublisher(cfg *config.Config) (mq.EventPublisher, func()) {
	if !cfg.MQ.Enabled {
		return mq.NopPublisher{}, func() {}
	}
	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, "topic")
	if err != nil {
		zap.L().Warn("RabbitMQ不可用, 事件将被丢弃", zap.Error(err))
		return mq.NopPublisher{}, func() {}
	}
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			zap.L().Warn("关闭RabbitMQ连接失败", zap.Error(err))
		}
	}
}

// provideGateway 按payment.mode选择网关, 统一加熔断
func provideGateway(cfg *config.Config) (payment.Gateway, func(), error) {
	var (
		inner   payment.Gateway
		cleanup = func() {}
	)
	switch cfg.Payment.Mode {
	case config.PaymentModeGRPC:
		client, err := grpcgateway.Dial(cfg.Payment.Addr, cfg.Payment.Timeout)
		if err != nil {
			return nil, nil, err
		}
		inner = client
		cleanup = func() { _ = client.Close() }
		zap.L().Info("使用gRPC支付网关", zap.String("addr", cfg.Payment.Addr))
	default:
		inner = simulated.New(cfg.Payment.SuccessRate, simulated.WithLogger(zap.L()))
		zap.L().Info("使用模拟支付网关", zap.Float64("success_rate", cfg.Payment.SuccessRate))
	}

	breaker := apppayment.NewGatewayBreaker(apppayment.BreakerSettings(cfg.Payment.Breaker))
	return apppayment.NewGuardedGateway(inner, breaker), cleanup, nil
}

func providePayLateFeesUseCase(
	cfg *config.Config,
	bookRepo book.Repository,
	loanRepo loan.Repository,
	paymentRepo payment.Repository,
	gateway payment.Gateway,
	publisher mq.EventPublisher,
) *apppayment.PayLateFeesUseCase {
	// saga超时覆盖扣款和可能的退款补偿
	return apppayment.NewPayLateFeesUseCase(bookRepo, loanRepo, paymentRepo, gateway, publisher, 3*cfg.Payment.Timeout)
}

func provideScanOverdueUseCase(loanRepo loan.Repository, publisher mq.EventPublisher) *apploan.ScanOverdueUseCase {
	return apploan.NewScanOverdueUseCase(loanRepo, publisher)
}

func provideDB(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := mysql.NewDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}, nil
}
