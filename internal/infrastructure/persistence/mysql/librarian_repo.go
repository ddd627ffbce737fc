package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/librarian"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// librarianRepository 馆员仓储实现
type librarianRepository struct {
	db *gorm.DB
}

// NewLibrarianRepository 创建馆员仓储
func NewLibrarianRepository(db *gorm.DB) librarian.Repository {
	return &librarianRepository{db: db}
}

// Create 创建馆员
func (r *librarianRepository) Create(ctx context.Context, l *librarian.Librarian) error {
	model := &LibrarianModel{
		Email:    l.Email,
		Password: l.Password,
		Name:     l.Name,
	}

	if err := r.getDB(ctx).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return librarian.ErrEmailDuplicate
		}
		return apperrors.WithCode(apperrors.ErrCodeStorage, err, "Database error occurred while creating librarian.")
	}

	l.ID = model.ID
	l.CreatedAt = model.CreatedAt
	l.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID 根据ID查找
func (r *librarianRepository) FindByID(ctx context.Context, id uint) (*librarian.Librarian, error) {
	var model LibrarianModel
	if err := r.getDB(ctx).First(&model, id).Error; err != nil {
		return nil, r.loadError(err)
	}
	return toLibrarianEntity(&model), nil
}

// FindByEmail 根据邮箱查找(登录)
func (r *librarianRepository) FindByEmail(ctx context.Context, email string) (*librarian.Librarian, error) {
	var model LibrarianModel
	if err := r.getDB(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		return nil, r.loadError(err)
	}
	return toLibrarianEntity(&model), nil
}

func (r *librarianRepository) loadError(err error) error {
	if isNotFound(err) {
		return librarian.ErrLibrarianNotFound
	}
	return apperrors.Wrap(err, "查询馆员失败")
}

func (r *librarianRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

func toLibrarianEntity(model *LibrarianModel) *librarian.Librarian {
	return &librarian.Librarian{
		ID:        model.ID,
		Email:     model.Email,
		Password:  model.Password,
		Name:      model.Name,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
