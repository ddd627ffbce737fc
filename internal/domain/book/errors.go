package book

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 图书领域错误定义
var (
	// ErrBookNotFound 图书不存在
	ErrBookNotFound = apperrors.New(apperrors.ErrCodeBookNotFound, "Book not found.")

	// ErrISBNDuplicate ISBN已存在
	ErrISBNDuplicate = apperrors.New(apperrors.ErrCodeISBNDuplicate, "A book with this ISBN already exists.")

	// ErrUnavailable 没有可借副本
	ErrUnavailable = apperrors.New(apperrors.ErrCodeUnavailable, "This book is currently not available.")

	// ErrAvailabilityOverflow 归还后可借数会超过总数
	ErrAvailabilityOverflow = apperrors.New(apperrors.ErrCodeStorage, "Available copies cannot exceed total copies.")

	// 添加图书的字段校验
	ErrTitleRequired      = apperrors.New(apperrors.ErrCodeInvalidParams, "Title is required.")
	ErrTitleTooLong       = apperrors.New(apperrors.ErrCodeInvalidParams, "Title must be less than 200 characters.")
	ErrAuthorRequired     = apperrors.New(apperrors.ErrCodeInvalidParams, "Author is required.")
	ErrAuthorTooLong      = apperrors.New(apperrors.ErrCodeInvalidParams, "Author must be less than 100 characters.")
	ErrISBNLength         = apperrors.New(apperrors.ErrCodeInvalidParams, "ISBN must be exactly 13 digits.")
	ErrISBNNotDigits      = apperrors.New(apperrors.ErrCodeInvalidParams, "ISBN should only contain digits")
	ErrInvalidTotalCopies = apperrors.New(apperrors.ErrCodeInvalidParams, "Total copies must be a positive integer.")
)

// 存储失败时返回给调用方的文本
const (
	MsgAddBookStorageError      = "Database error occurred while adding the book."
	MsgLoadBookStorageError     = "Database error occurred while loading the book."
	MsgAvailabilityStorageError = "Database error occurred while updating book availability."
)
