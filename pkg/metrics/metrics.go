// Package metrics 图书馆服务的Prometheus指标
//
// 命名规范: Counter以_total结尾, Histogram以单位结尾, 标签只用有限取值(不用patron_id)
//
//	metrics.InitMetrics()
//	r.Use(metrics.GinMiddleware())
//	r.GET("/metrics", metrics.Handler())
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var initOnce sync.Once

var (
	// HTTP

	HTTPRequestsTotal      *prometheus.CounterVec   // method, path, status
	HTTPRequestDuration    *prometheus.HistogramVec // method, path
	HTTPRequestsInProgress prometheus.Gauge

	// 借还

	// LoanOperationsTotal operation(borrow/return), result(success/失败原因)
	LoanOperationsTotal *prometheus.CounterVec

	// OverdueLoans 最近一次逾期扫描得到的逾期数量
	OverdueLoans prometheus.Gauge

	// 滞纳金

	LateFeesCollected prometheus.Counter // 实收金额(元)
	LateFeesRefunded  prometheus.Counter // 退款金额(元)

	// PaymentGatewayRequests operation(charge/refund), result(success/declined/error/rejected)
	PaymentGatewayRequests *prometheus.CounterVec

	// 熔断器 0=CLOSED, 1=OPEN, 2=HALF_OPEN
	CircuitBreakerState *prometheus.GaugeVec

	// Saga

	SagaExecutionsTotal    *prometheus.CounterVec // saga, result
	SagaCompensationsTotal *prometheus.CounterVec // saga
	SagaExecutionDuration  *prometheus.HistogramVec

	// 消息队列

	MessagesPublishedTotal *prometheus.CounterVec // routing_key, result
	MessagesConsumedTotal  *prometheus.CounterVec // queue, result
)

// InitMetrics 注册全部指标到默认Registry, 重复调用无副作用
func InitMetrics() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP请求总数",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP请求耗时(秒)",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
	}, []string{"method", "path"})

	HTTPRequestsInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_progress",
		Help: "正在处理的HTTP请求数",
	})

	LoanOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_loan_operations_total",
		Help: "借阅/归还操作总数",
	}, []string{"operation", "result"})

	OverdueLoans = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "library_overdue_loans",
		Help: "当前逾期未还的借阅数",
	})

	LateFeesCollected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_late_fees_collected_total",
		Help: "已收取的滞纳金(元)",
	})

	LateFeesRefunded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_late_fees_refunded_total",
		Help: "已退还的滞纳金(元)",
	})

	PaymentGatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_payment_gateway_requests_total",
		Help: "支付网关调用总数",
	}, []string{"operation", "result"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "熔断器状态(0=CLOSED, 1=OPEN, 2=HALF_OPEN)",
	}, []string{"name"})

	SagaExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saga_executions_total",
		Help: "Saga执行总数",
	}, []string{"saga", "result"})

	SagaCompensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saga_compensations_total",
		Help: "Saga补偿执行总数",
	}, []string{"saga"})

	SagaExecutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "saga_execution_duration_seconds",
		Help:    "Saga执行耗时(秒)",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"saga"})

	MessagesPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_published_total",
		Help: "消息发布总数",
	}, []string{"routing_key", "result"})

	MessagesConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_consumed_total",
		Help: "消息消费总数",
	}, []string{"queue", "result"})
}

// RecordLoan 记录一次借还结果
func RecordLoan(operation, result string) {
	InitMetrics()
	LoanOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordGateway 记录一次网关调用
func RecordGateway(operation, result string) {
	InitMetrics()
	PaymentGatewayRequests.WithLabelValues(operation, result).Inc()
}

// RecordBreakerState 熔断器状态变化回调里调用
func RecordBreakerState(name string, state int) {
	InitMetrics()
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordSaga 记录一次Saga执行
func RecordSaga(name string, start time.Time, err error, compensated bool) {
	InitMetrics()
	result := "success"
	if err != nil {
		result = "failure"
	}
	SagaExecutionsTotal.WithLabelValues(name, result).Inc()
	SagaExecutionDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if compensated {
		SagaCompensationsTotal.WithLabelValues(name).Inc()
	}
}

// SetOverdueLoans 逾期扫描结果
func SetOverdueLoans(n int) {
	InitMetrics()
	OverdueLoans.Set(float64(n))
}

// AddLateFeesCollected 累加实收滞纳金
func AddLateFeesCollected(amount float64) {
	InitMetrics()
	LateFeesCollected.Add(amount)
}

// AddLateFeesRefunded 累加退款
func AddLateFeesRefunded(amount float64) {
	InitMetrics()
	LateFeesRefunded.Add(amount)
}

// RecordPublish 记录一次消息发布
func RecordPublish(routingKey string, err error) {
	InitMetrics()
	MessagesPublishedTotal.WithLabelValues(routingKey, resultLabel(err)).Inc()
}

// RecordConsume 记录一次消息消费
func RecordConsume(queue string, err error) {
	InitMetrics()
	MessagesConsumedTotal.WithLabelValues(queue, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// GinMiddleware HTTP请求指标
// path使用路由模板(/api/v1/books/:id), 未匹配的路由记为unmatched, 避免标签基数爆炸
func GinMiddleware() gin.HandlerFunc {
	InitMetrics()
	return func(c *gin.Context) {
		start := time.Now()
		HTTPRequestsInProgress.Inc()
		defer HTTPRequestsInProgress.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler /metrics端点
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
