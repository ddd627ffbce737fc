package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误
// Code给调用方判断错误类型, Message是可以直接展示给读者/馆员的文本,
// Err是内部原因, 只写日志, 不返回给客户端
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较, 使预定义错误和携带内部原因的同码错误可以用errors.Is匹配
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf 格式化创建AppError
func Newf(code int, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap 包装系统错误(数据库、网络), 隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// WithCode 用指定错误码包装底层错误
func WithCode(code int, err error, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// 规范:
// - 4xxxx: 调用方错误(参数错误、业务规则拒绝), 不自动重试
// - 5xxxx: 服务端错误(存储、外部服务), 调用方可以整体重试

const (
	// 系统级错误码(50000-50099)
	ErrCodeInternal          = 50000
	ErrCodeStorage           = 50001 // StorageError
	ErrCodeRedisError        = 50002
	ErrCodePaymentProcessing = 50003 // PaymentProcessingError

	// 认证授权(40100-40199)
	ErrCodeUnauthorized    = 40100
	ErrCodeInvalidToken    = 40101
	ErrCodeTokenExpired    = 40102
	ErrCodeInvalidPassword = 40103
	ErrCodeForbidden       = 40104

	// 资源不存在(40400-40499)
	ErrCodeNotFound          = 40400
	ErrCodeLibrarianNotFound = 40401
	ErrCodeBookNotFound      = 40402
	ErrCodeLoanNotFound      = 40403
	ErrCodePaymentNotFound   = 40404

	// 业务规则(40000-40099)
	ErrCodeBusinessError      = 40000
	ErrCodeEmailDuplicate     = 40003
	ErrCodeISBNDuplicate      = 40004
	ErrCodeWeakPassword       = 40005
	ErrCodeDuplicateEntry     = 40009
	ErrCodeUnavailable        = 40010
	ErrCodeDuplicateBorrow    = 40011
	ErrCodeLimitExceeded      = 40012
	ErrCodeNotBorrowed        = 40013
	ErrCodeNoFeeOwed          = 40014
	ErrCodeInvalidTransaction = 40015
	ErrCodeInvalidAmount      = 40016
	ErrCodePaymentDeclined    = 40017

	// 参数错误(40900-40999)
	ErrCodeInvalidParams = 40900 // ValidationError
	ErrCodeBindError     = 40901
	ErrCodeInvalidPatron = 40902
)

// =========================================
// 预定义错误
// =========================================

var (
	ErrInternal   = New(ErrCodeInternal, "Internal server error.")
	ErrStorage    = New(ErrCodeStorage, "Database error occurred.")
	ErrRedisError = New(ErrCodeRedisError, "Cache service error.")

	ErrUnauthorized    = New(ErrCodeUnauthorized, "Please log in first.")
	ErrInvalidToken    = New(ErrCodeInvalidToken, "Invalid token.")
	ErrTokenExpired    = New(ErrCodeTokenExpired, "Token has expired.")
	ErrTokenRevoked    = New(ErrCodeTokenExpired, "Token has been revoked, please log in again.")
	ErrInvalidPassword = New(ErrCodeInvalidPassword, "Incorrect email or password.")
	ErrForbidden       = New(ErrCodeForbidden, "Access denied.")

	ErrInvalidParams = New(ErrCodeInvalidParams, "Invalid parameters.")
	ErrBindError     = New(ErrCodeBindError, "Malformed request body.")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError(不是AppError则包装成Internal错误)
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "Internal server error.")
}

// HasCode 判断错误链上是否有指定错误码的AppError
func HasCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsServerError 5xxxx错误需要记录内部原因
func IsServerError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code >= 50000
	}
	return err != nil
}
