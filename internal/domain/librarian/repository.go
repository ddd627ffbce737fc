package librarian

import (
	"context"
)

// Repository 馆员仓储接口
type Repository interface {
	// Create 邮箱重复返回ErrEmailDuplicate
	Create(ctx context.Context, l *Librarian) error

	FindByID(ctx context.Context, id uint) (*Librarian, error)

	// FindByEmail 不存在返回ErrLibrarianNotFound
	FindByEmail(ctx context.Context, email string) (*Librarian, error)
}
