// @title           图书馆借阅管理API
// @version         1.0
// @description     馆藏检索、借还、滞纳金缴费与退款
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Bearer {access_token}
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbook "github.com/xiebiao/library/internal/application/book"
	applibrarian "github.com/xiebiao/library/internal/application/librarian"
	apploan "github.com/xiebiao/library/internal/application/loan"
	apppayment "github.com/xiebiao/library/internal/application/payment"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/librarian"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/scheduler"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/router"
	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

// app 组装好的服务
type app struct {
	engine  *gin.Engine
	scanner *apploan.ScanOverdueUseCase
	cleanup func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zlog, err := logger.New(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	zap.ReplaceGlobals(zlog)
	defer func() { _ = zlog.Sync() }()

	zlog.Info("配置加载成功",
		zap.Int("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("database", cfg.Database.Describe()),
		zap.String("payment", cfg.Payment.Mode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(ctx, tracing.Options{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
		})
		if err != nil {
			zlog.Warn("初始化链路追踪失败, 继续运行", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(shutdownCtx)
			}()
		}
	}
	if cfg.Metrics.Enabled {
		metrics.InitMetrics()
	}

	a, err := buildApp(cfg)
	if err != nil {
		zlog.Fatal("初始化服务失败", zap.Error(err))
	}
	defer a.cleanup()

	if cfg.Scheduler.Enabled {
		s := scheduler.NewOverdueScanScheduler(a.scanner, cfg.Scheduler.OverdueScan)
		if err := s.Start(ctx); err != nil {
			zlog.Fatal("启动逾期扫描失败", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zlog.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("服务异常退出", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("收到退出信号, 开始优雅关闭")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("关闭HTTP服务失败", zap.Error(err))
	}
}

// buildApp 手动依赖注入, 与wire.go的InitializeApp保持同一条依赖链
// Repository ← Service ← UseCase ← Handler ← Router
func buildApp(cfg *config.Config) (*app, error) {
	db, closeDB, err := provideDB(cfg)
	if err != nil {
		return nil, err
	}
	sessions, closeSessions := provideSessionStore(cfg)
	publisher, closePublisher := providePublisher(cfg)
	gateway, closeGateway, err := provideGateway(cfg)
	if err != nil {
		closePublisher()
		closeSessions()
		closeDB()
		return nil, err
	}
	cleanup := func() {
		closeGateway()
		closePublisher()
		closeSessions()
		closeDB()
	}

	// 基础设施层
	bookRepo := mysql.NewBookRepository(db)
	loanRepo := mysql.NewLoanRepository(db)
	paymentRepo := mysql.NewPaymentRepository(db)
	librarianRepo := mysql.NewLibrarianRepository(db)
	txManager := mysql.NewTxManager(db)
	jwtManager := provideJWTManager(cfg)

	// 领域层
	bookService := book.NewService(bookRepo)
	librarianService := librarian.NewService(librarianRepo)

	// 接口层
	bookHandler := handler.NewBookHandler(
		appbook.NewAddBookUseCase(bookService),
		appbook.NewListBooksUseCase(bookService),
		appbook.NewGetBookUseCase(bookService),
		appbook.NewSearchBooksUseCase(bookService),
	)
	loanHandler := handler.NewLoanHandler(
		apploan.NewBorrowBookUseCase(bookRepo, loanRepo, txManager, publisher),
		apploan.NewReturnBookUseCase(bookRepo, loanRepo, txManager, publisher),
		apploan.NewCalculateLateFeeUseCase(bookRepo, loanRepo),
		apploan.NewPatronReportUseCase(loanRepo),
	)
	paymentHandler := handler.NewPaymentHandler(
		providePayLateFeesUseCase(cfg, bookRepo, loanRepo, paymentRepo, gateway, publisher),
		apppayment.NewRefundLateFeeUseCase(paymentRepo, gateway, publisher),
	)
	librarianHandler := handler.NewLibrarianHandler(
		applibrarian.NewRegisterUseCase(librarianService),
		applibrarian.NewLoginUseCase(librarianService, jwtManager, sessions),
		applibrarian.NewLogoutUseCase(jwtManager, sessions),
		applibrarian.NewRefreshUseCase(jwtManager),
	)

	engine := router.NewRouter(cfg, bookHandler, loanHandler, paymentHandler, librarianHandler,
		provideAuthMiddleware(jwtManager, sessions))

	return &app{
		engine:  engine,
		scanner: provideScanOverdueUseCase(loanRepo, publisher),
		cleanup: cleanup,
	}, nil
}
