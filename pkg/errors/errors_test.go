package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "[40402] Book not found.", New(ErrCodeBookNotFound, "Book not found.").Error())

	wrapped := WithCode(ErrCodeStorage, errors.New("disk full"), "Database error occurred.")
	assert.Equal(t, "[50001] Database error occurred.: disk full", wrapped.Error())
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	sentinel := New(ErrCodeNoFeeOwed, "No late fees to pay for this book.")
	other := WithCode(ErrCodeNoFeeOwed, errors.New("cause"), "different text")

	assert.True(t, errors.Is(other, sentinel))
	assert.False(t, errors.Is(ErrStorage, sentinel))
}

func TestGetAppError(t *testing.T) {
	t.Run("链上的AppError被取出", func(t *testing.T) {
		inner := New(ErrCodeLimitExceeded, "limit")
		err := fmt.Errorf("step failed: %w", inner)

		got := GetAppError(err)
		assert.Same(t, inner, got)
	})

	t.Run("普通错误包装成Internal", func(t *testing.T) {
		got := GetAppError(errors.New("boom"))
		assert.Equal(t, ErrCodeInternal, got.Code)
		assert.EqualError(t, got.Err, "boom")
	})
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(ErrCodeInvalidPatron, "bad patron"))

	assert.True(t, HasCode(err, ErrCodeInvalidPatron))
	assert.False(t, HasCode(err, ErrCodeNotBorrowed))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeInvalidPatron))
}

func TestIsServerError(t *testing.T) {
	assert.True(t, IsServerError(ErrStorage))
	assert.True(t, IsServerError(errors.New("unknown")))
	assert.False(t, IsServerError(ErrInvalidParams))
	assert.False(t, IsServerError(nil))
}
