// notifier 消费流通事件, 生成读者通知
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/application/event"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/mq"
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
	}).Named("notifier")
	zap.ReplaceGlobals(zlog)
	defer func() { _ = zlog.Sync() }()

	metrics.InitMetrics()

	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, "topic", cfg.MQ.Queue, event.AllRoutingKeys)
	if err != nil {
		zlog.Fatal("创建消费者失败", zap.Error(err))
	}
	defer func() { _ = consumer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := consumer.Consume(ctx, newHandler(consumer.Queue(), zlog)); err != nil {
		zlog.Fatal("消费中断", zap.Error(err))
	}
}

// newHandler 渲染通知并投递; 投递渠道接入前写日志
func newHandler(queue string, zlog *zap.Logger) mq.Handler {
	return func(ctx context.Context, env *mq.Envelope) error {
		n, err := renderNotice(env)
		if errors.Is(err, errUnknownEvent) {
			zlog.Debug("忽略未知事件", zap.String("type", env.Type))
			metrics.RecordConsume(queue, nil)
			return nil
		}
		metrics.RecordConsume(queue, err)
		if err != nil {
			return err
		}

		zlog.Info("读者通知",
			zap.String("event_id", env.ID),
			zap.String("type", env.Type),
			zap.String("patron_id", n.PatronID),
			zap.String("text", n.Text),
		)
		return nil
	}
}
