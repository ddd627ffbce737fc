//go:build wireinject
// +build wireinject

// Wire依赖注入配置
// 运行 `wire gen ./cmd/api` 生成wire_gen.go, 与main.go中的buildApp等价

package main

import (
	"github.com/google/wire"

	appbook "github.com/xiebiao/library/internal/application/book"
	applibrarian "github.com/xiebiao/library/internal/application/librarian"
	apploan "github.com/xiebiao/library/internal/application/loan"
	apppayment "github.com/xiebiao/library/internal/application/payment"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/librarian"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/router"
)

// infrastructureSet 数据库、会话、消息、支付网关
var infrastructureSet = wire.NewSet(
	provideDB,
	provideSessionStore,
	providePublisher,
	provideGateway,
	provideJWTManager,
	wire.Bind(new(applibrarian.SessionStore), new(sessionStore)),
)

// repositorySet 仓储
var repositorySet = wire.NewSet(
	mysql.NewBookRepository,
	mysql.NewLoanRepository,
	mysql.NewPaymentRepository,
	mysql.NewLibrarianRepository,
	mysql.NewTxManager,
)

// domainSet 领域服务
var domainSet = wire.NewSet(
	book.NewService,
	librarian.NewService,
)

// applicationSet 用例
var applicationSet = wire.NewSet(
	appbook.NewAddBookUseCase,
	appbook.NewListBooksUseCase,
	appbook.NewGetBookUseCase,
	appbook.NewSearchBooksUseCase,
	apploan.NewBorrowBookUseCase,
	apploan.NewReturnBookUseCase,
	apploan.NewCalculateLateFeeUseCase,
	apploan.NewPatronReportUseCase,
	provideScanOverdueUseCase,
	providePayLateFeesUseCase,
	apppayment.NewRefundLateFeeUseCase,
	applibrarian.NewRegisterUseCase,
	applibrarian.NewLoginUseCase,
	applibrarian.NewLogoutUseCase,
	applibrarian.NewRefreshUseCase,
)

// interfaceSet Handler、中间件、路由
var interfaceSet = wire.NewSet(
	handler.NewBookHandler,
	handler.NewLoanHandler,
	handler.NewPaymentHandler,
	handler.NewLibrarianHandler,
	provideAuthMiddleware,
	router.NewRouter,
)

// InitializeApp Wire注入器
func InitializeApp(cfg *config.Config) (*app, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		interfaceSet,
		wire.Struct(new(app), "engine", "scanner"),
	)
	return nil, nil, nil
}
