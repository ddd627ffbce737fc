// Package router 组装gin引擎和全部路由
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/xiebiao/library/docs"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/response"
	"github.com/xiebiao/library/pkg/tracing"
)

// NewRouter 创建gin引擎
// 查询类接口公开, 入库、借还、缴费、退款需要馆员登录
func NewRouter(
	cfg *config.Config,
	bookHandler *handler.BookHandler,
	loanHandler *handler.LoanHandler,
	paymentHandler *handler.PaymentHandler,
	librarianHandler *handler.LibrarianHandler,
	auth *middleware.AuthMiddleware,
) *gin.Engine {
	switch cfg.Server.Mode {
	case gin.ReleaseMode:
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())
	if cfg.Tracing.Enabled {
		r.Use(tracing.GinMiddleware())
	}
	r.Use(middleware.Logger())
	if cfg.CORS.Enabled {
		r.Use(middleware.CORS(cfg.CORS))
	}
	if cfg.Metrics.Enabled {
		r.Use(metrics.GinMiddleware())
		r.GET(cfg.Metrics.Path, metrics.Handler())
	}

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong", "status": "healthy"})
	})
	if cfg.Server.Mode != gin.ReleaseMode {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	{
		librarians := v1.Group("/librarians")
		{
			librarians.POST("/register", librarianHandler.Register)
			librarians.POST("/login", librarianHandler.Login)
			librarians.POST("/refresh", librarianHandler.Refresh)
			librarians.POST("/logout", auth.RequireAuth(), librarianHandler.Logout)
		}

		books := v1.Group("/books")
		{
			books.GET("", bookHandler.ListBooks)
			books.GET("/search", bookHandler.SearchBooks)
			books.GET("/:id", bookHandler.GetBook)
			books.POST("", auth.RequireAuth(), bookHandler.AddBook)
		}

		loans := v1.Group("/loans")
		{
			loans.GET("/fee", loanHandler.LateFee)
			loans.POST("/borrow", auth.RequireAuth(), loanHandler.Borrow)
			loans.POST("/return", auth.RequireAuth(), loanHandler.Return)
		}

		v1.GET("/patrons/:patron_id/report", loanHandler.PatronReport)

		payments := v1.Group("/payments")
		payments.Use(auth.RequireAuth())
		{
			payments.POST("/late-fees", paymentHandler.PayLateFees)
			payments.POST("/refunds", paymentHandler.Refund)
		}
	}

	return r
}
