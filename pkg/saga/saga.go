// Package saga 按步骤执行、失败时逆序补偿的本地Saga
//
// 用于跨越外部系统的操作, 例如先在支付网关扣款, 再写支付台账;
// 写台账失败时调用网关退款, 把扣款补偿掉
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step Saga中的一个步骤
// Action和Compensate都必须可以安全重试
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error // 可为nil
}

// StepError 某个步骤执行失败
// Unwrap返回步骤本身的错误, 调用方可以用errors.Is/As判断失败原因
type StepError struct {
	Index int
	Step  string
	Err   error

	// CompensationErrors 补偿失败的步骤及原因, 非空时需要人工介入
	CompensationErrors map[string]error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("步骤[%d:%s]执行失败: %v", e.Index, e.Step, e.Err)
	if len(e.CompensationErrors) > 0 {
		msg += fmt.Sprintf(" (补偿失败%d个)", len(e.CompensationErrors))
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Compensated 所有已执行步骤是否都补偿成功
func (e *StepError) Compensated() bool {
	return len(e.CompensationErrors) == 0
}

// Saga 一次性使用, 不可并发执行
type Saga struct {
	name     string
	steps    []Step
	executed []Step
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSaga 创建Saga, timeout为整体超时(0表示不限制)
//
//	s := saga.NewSaga("pay-late-fee", 10*time.Second)
//	s.AddStep("charge", charge, refund)
//	s.AddStep("record", record, nil)
//	err := s.Execute(ctx)
func NewSaga(name string, timeout time.Duration) *Saga {
	return &Saga{
		name:    name,
		timeout: timeout,
		logger:  zap.L(),
	}
}

// WithLogger 指定日志
func (s *Saga) WithLogger(logger *zap.Logger) *Saga {
	s.logger = logger
	return s
}

// AddStep 添加步骤, 按添加顺序执行, 按逆序补偿
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) *Saga {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
	return s
}

// Execute 依次执行各步骤
// 某步失败(或整体超时)时逆序补偿已完成的步骤, 返回*StepError
// 补偿使用独立的context, 不受原请求取消和超时影响
func (s *Saga) Execute(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return s.fail(i, step.Name, fmt.Errorf("saga超时: %w", err))
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				return s.fail(i, step.Name, err)
			}
		}
		s.executed = append(s.executed, step)
	}

	return nil
}

func (s *Saga) fail(index int, name string, err error) error {
	s.logger.Warn("saga步骤失败, 开始补偿",
		zap.String("saga", s.name),
		zap.String("step", name),
		zap.Error(err),
	)

	stepErr := &StepError{Index: index, Step: name, Err: err}
	stepErr.CompensationErrors = s.compensate(context.Background())
	return stepErr
}

// compensate 逆序补偿, 单个补偿失败不影响其余补偿
func (s *Saga) compensate(ctx context.Context) map[string]error {
	var failures map[string]error

	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}

		if err := step.Compensate(ctx); err != nil {
			if failures == nil {
				failures = make(map[string]error)
			}
			failures[step.Name] = err
			s.logger.Error("saga补偿失败, 需要人工介入",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
		}
	}

	s.executed = nil
	return failures
}

// AsStepError 提取StepError
func AsStepError(err error) (*StepError, bool) {
	var stepErr *StepError
	ok := errors.As(err, &stepErr)
	return stepErr, ok
}
