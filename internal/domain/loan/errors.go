package loan

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 借阅领域错误定义
var (
	ErrInvalidPatron   = apperrors.New(apperrors.ErrCodeInvalidPatron, "Invalid patron ID. Must be exactly 6 digits.")
	ErrDuplicateBorrow = apperrors.New(apperrors.ErrCodeDuplicateBorrow, "You have already borrowed a copy of this book.")
	ErrLimitExceeded   = apperrors.New(apperrors.ErrCodeLimitExceeded, "You have reached the maximum borrowing limit of 5 books.")
	ErrNotBorrowed     = apperrors.New(apperrors.ErrCodeNotBorrowed, "This book is currently not borrowed by you.")
	ErrAlreadyReturned = apperrors.New(apperrors.ErrCodeNotBorrowed, "This borrow record has already been returned.")
	ErrLoanNotFound    = apperrors.New(apperrors.ErrCodeLoanNotFound, "Borrow record not found.")
)

// 存储失败时返回给调用方的文本
const (
	MsgCreateRecordStorageError = "Database error occurred while creating borrow record."
	MsgUpdateRecordStorageError = "Database error occurred while updating borrow record."
	MsgLoadRecordStorageError   = "Database error occurred while loading borrow records."
)
