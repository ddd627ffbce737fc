package book

import (
	"context"
)

// Repository 图书仓储接口
// 实现必须通过ctx参与调用方开启的事务
type Repository interface {
	// Create 新增图书, ISBN重复返回ErrISBNDuplicate
	Create(ctx context.Context, book *Book) error

	// FindByID 不存在返回ErrBookNotFound
	FindByID(ctx context.Context, id uint) (*Book, error)

	// FindByISBN 不存在返回ErrBookNotFound
	FindByISBN(ctx context.Context, isbn string) (*Book, error)

	// ListAll 全部图书, 按ID升序(目录顺序)
	ListAll(ctx context.Context) ([]*Book, error)

	// List 分页查询, 按ID升序
	List(ctx context.Context, params ListParams) ([]*Book, int64, error)

	// LockByID 事务内悲观锁读取(SELECT ... FOR UPDATE)
	LockByID(ctx context.Context, id uint) (*Book, error)

	// UpdateAvailability 原子调整可借数量
	// 结果小于0返回ErrUnavailable, 超过总数返回ErrAvailabilityOverflow
	UpdateAvailability(ctx context.Context, id uint, delta int) error
}

// ListParams 分页参数
type ListParams struct {
	Page     int
	PageSize int
}

// Normalize 补齐分页默认值
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return p
}

// Offset 分页偏移量
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
