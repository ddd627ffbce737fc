package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apppayment "github.com/xiebiao/library/internal/application/payment"
	"github.com/xiebiao/library/internal/domain/payment"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/payment/grpcgateway"
	"github.com/xiebiao/library/internal/infrastructure/payment/simulated"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/mq"
)

// cli 命令共享的依赖, 在PersistentPreRunE中按需初始化
type cli struct {
	configPath string
	asJSON     bool

	cfg       *config.Config
	db        *gorm.DB
	gateway   payment.Gateway
	publisher mq.EventPublisher
	closers   []func()
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "librarian",
		Short:         "图书馆流通管理命令行",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			c.close()
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "配置文件路径")
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "以JSON输出结果")

	root.AddCommand(
		newAddBookCmd(c),
		newBooksCmd(c),
		newSearchCmd(c),
		newBorrowCmd(c),
		newReturnCmd(c),
		newFeeCmd(c),
		newReportCmd(c),
		newPayCmd(c),
		newRefundCmd(c),
		newStaffCmd(c),
	)
	return root
}

// init 加载配置并连接数据库; 已注入的依赖不会被覆盖
func (c *cli) init() error {
	if c.cfg == nil {
		cfg, err := config.LoadFrom(c.configPath)
		if err != nil {
			return err
		}
		c.cfg = cfg
	}

	// 命令行只输出警告以上的日志, 避免干扰结果
	zlog, err := logger.New(logger.Options{Level: "warn", Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(zlog)

	if c.db == nil {
		db, err := mysql.NewDB(c.cfg)
		if err != nil {
			return err
		}
		c.db = db
		c.closers = append(c.closers, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})
	}
	if c.publisher == nil {
		c.publisher = mq.NopPublisher{}
	}
	return nil
}

// paymentGateway 只有缴费和退款命令需要连接网关
func (c *cli) paymentGateway() (payment.Gateway, error) {
	if c.gateway != nil {
		return c.gateway, nil
	}

	var inner payment.Gateway
	switch c.cfg.Payment.Mode {
	case config.PaymentModeGRPC:
		client, err := grpcgateway.Dial(c.cfg.Payment.Addr, c.cfg.Payment.Timeout)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { _ = client.Close() })
		inner = client
	default:
		inner = simulated.New(c.cfg.Payment.SuccessRate)
	}

	breaker := apppayment.NewGatewayBreaker(apppayment.BreakerSettings(c.cfg.Payment.Breaker))
	c.gateway = apppayment.NewGuardedGateway(inner, breaker)
	return c.gateway, nil
}

func (c *cli) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// failure 业务错误只展示文案, 其余错误带上错误码
func failure(err error) error {
	appErr := apperrors.GetAppError(err)
	if apperrors.IsServerError(appErr) {
		return fmt.Errorf("[%d] %s", appErr.Code, appErr.Message)
	}
	return fmt.Errorf("%s", appErr.Message)
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
