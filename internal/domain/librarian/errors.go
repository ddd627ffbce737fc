package librarian

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

var (
	ErrLibrarianNotFound = apperrors.New(apperrors.ErrCodeLibrarianNotFound, "Librarian not found.")
	ErrEmailDuplicate    = apperrors.New(apperrors.ErrCodeEmailDuplicate, "Email is already registered.")
	ErrInvalidEmail      = apperrors.New(apperrors.ErrCodeInvalidParams, "Email format is invalid.")
	ErrInvalidName       = apperrors.New(apperrors.ErrCodeInvalidParams, "Name must be 2-50 characters.")
	ErrWeakPassword      = apperrors.New(apperrors.ErrCodeWeakPassword, "Password must be 8-20 characters with letters and digits.")
)
