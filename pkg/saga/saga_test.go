package saga

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func recorder(log *[]string, name string) func(context.Context) error {
	return func(context.Context) error {
		*log = append(*log, name)
		return nil
	}
}

func TestSaga_AllStepsSucceed(t *testing.T) {
	var log []string

	err := NewSaga("pay-late-fee", time.Second).
		AddStep("charge", recorder(&log, "charge"), recorder(&log, "refund")).
		AddStep("record", recorder(&log, "record"), nil).
		Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"charge", "record"}, log)
}

func TestSaga_FailureCompensatesInReverse(t *testing.T) {
	var log []string
	errDB := errors.New("disk full")

	err := NewSaga("pay-late-fee", time.Second).
		AddStep("reserve", recorder(&log, "reserve"), recorder(&log, "release")).
		AddStep("charge", recorder(&log, "charge"), recorder(&log, "refund")).
		AddStep("record", func(context.Context) error { return errDB }, recorder(&log, "never")).
		Execute(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, errDB)
	assert.Equal(t, []string{"reserve", "charge", "refund", "release"}, log)

	stepErr, ok := AsStepError(err)
	require.True(t, ok)
	assert.Equal(t, 2, stepErr.Index)
	assert.Equal(t, "record", stepErr.Step)
	assert.True(t, stepErr.Compensated())
}

func TestSaga_CompensationFailureIsReported(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	errRefund := errors.New("gateway unreachable")
	var log []string

	err := NewSaga("pay-late-fee", 0).
		WithLogger(zap.New(core)).
		AddStep("charge", recorder(&log, "charge"), func(context.Context) error { return errRefund }).
		AddStep("audit", recorder(&log, "audit"), recorder(&log, "unaudit")).
		AddStep("record", func(context.Context) error { return errors.New("boom") }, nil).
		Execute(context.Background())

	stepErr, ok := AsStepError(err)
	require.True(t, ok)
	assert.False(t, stepErr.Compensated())
	assert.ErrorIs(t, stepErr.CompensationErrors["charge"], errRefund)
	assert.Equal(t, []string{"charge", "audit", "unaudit"}, log, "补偿失败不影响其余补偿")
	assert.Equal(t, 1, logs.FilterMessage("saga补偿失败, 需要人工介入").Len())
}

func TestSaga_TimeoutStopsAndCompensates(t *testing.T) {
	var log []string

	err := NewSaga("slow", 20*time.Millisecond).
		AddStep("charge", func(ctx context.Context) error {
			log = append(log, "charge")
			<-ctx.Done()
			return nil
		}, recorder(&log, "refund")).
		AddStep("record", recorder(&log, "record"), nil).
		Execute(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"charge", "refund"}, log)
}

func TestSaga_CompensationIgnoresCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var compensateErr error

	err := NewSaga("cancel", 0).
		AddStep("charge", func(context.Context) error { return nil }, func(ctx context.Context) error {
			compensateErr = ctx.Err()
			return nil
		}).
		AddStep("record", func(context.Context) error {
			cancel()
			return errors.New("client went away")
		}, nil).
		Execute(ctx)

	require.Error(t, err)
	assert.NoError(t, compensateErr)
}
