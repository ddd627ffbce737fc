package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/library/internal/domain/book"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// bookRepository 图书仓储实现
// 1. 实现domain/book/repository.go定义的接口
// 2. 负责领域实体与GORM模型之间的转换
// 3. 把数据库错误(ISBN重复、写入失败)转换为业务错误
type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository 创建图书仓储
func NewBookRepository(db *gorm.DB) book.Repository {
	return &bookRepository{db: db}
}

// Create 新增图书
func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	model := &BookModel{
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
	}

	if err := r.getDB(ctx).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return book.ErrISBNDuplicate
		}
		return apperrors.WithCode(apperrors.ErrCodeStorage, err, book.MsgAddBookStorageError)
	}

	// 回填自增ID
	b.ID = model.ID
	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID 根据ID查找图书
func (r *bookRepository) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	if err := r.getDB(ctx).First(&model, id).Error; err != nil {
		return nil, r.loadError(err)
	}
	return toBookEntity(&model), nil
}

// FindByISBN 根据ISBN查找图书
func (r *bookRepository) FindByISBN(ctx context.Context, isbn string) (*book.Book, error) {
	var model BookModel
	if err := r.getDB(ctx).Where("isbn = ?", isbn).First(&model).Error; err != nil {
		return nil, r.loadError(err)
	}
	return toBookEntity(&model), nil
}

// ListAll 全部图书, 目录顺序
func (r *bookRepository) ListAll(ctx context.Context) ([]*book.Book, error) {
	var models []BookModel
	if err := r.getDB(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, apperrors.WithCode(apperrors.ErrCodeStorage, err, book.MsgLoadBookStorageError)
	}
	return toBookEntities(models), nil
}

// List 分页查询
func (r *bookRepository) List(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	params = params.Normalize()

	var total int64
	query := r.getDB(ctx).Model(&BookModel{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WithCode(apperrors.ErrCodeStorage, err, book.MsgLoadBookStorageError)
	}

	var models []BookModel
	err := r.getDB(ctx).
		Order("id ASC").
		Limit(params.PageSize).
		Offset(params.Offset()).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.WithCode(apperrors.ErrCodeStorage, err, book.MsgLoadBookStorageError)
	}

	return toBookEntities(models), total, nil
}

// LockByID 悲观锁读取图书
// SELECT ... FOR UPDATE, 必须在TxManager.Transaction内调用才有意义
// SQLite方言会忽略FOR UPDATE, 单写连接本身已经串行
func (r *bookRepository) LockByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	err := r.getDB(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, id).Error
	if err != nil {
		return nil, r.loadError(err)
	}
	return toBookEntity(&model), nil
}

// UpdateAvailability 原子调整可借数量
// UPDATE books SET available_copies = available_copies + ?
// WHERE id = ? AND available_copies + ? >= 0 AND available_copies + ? <= total_copies
func (r *bookRepository) UpdateAvailability(ctx context.Context, id uint, delta int) error {
	db := r.getDB(ctx)
	result := db.Model(&BookModel{}).
		Where("id = ?", id).
		Where("available_copies + ? >= 0", delta).
		Where("available_copies + ? <= total_copies", delta).
		Updates(map[string]interface{}{
			"available_copies": gorm.Expr("available_copies + ?", delta),
			"updated_at":       time.Now().UTC(),
		})

	if result.Error != nil {
		return apperrors.WithCode(apperrors.ErrCodeStorage, result.Error, book.MsgAvailabilityStorageError)
	}

	if result.RowsAffected == 0 {
		// 图书不存在, 或者越界, 再查一次确定原因
		var model BookModel
		if err := db.First(&model, id).Error; err != nil {
			return r.loadError(err)
		}
		if delta < 0 {
			return book.ErrUnavailable
		}
		return book.ErrAvailabilityOverflow
	}

	return nil
}

func (r *bookRepository) loadError(err error) error {
	if isNotFound(err) {
		return book.ErrBookNotFound
	}
	return apperrors.WithCode(apperrors.ErrCodeStorage, err, book.MsgLoadBookStorageError)
}

// getDB 从context获取事务DB, 没有则使用默认DB
func (r *bookRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

// toBookEntity GORM模型 → 领域实体
func toBookEntity(model *BookModel) *book.Book {
	return &book.Book{
		ID:              model.ID,
		Title:           model.Title,
		Author:          model.Author,
		ISBN:            model.ISBN,
		TotalCopies:     model.TotalCopies,
		AvailableCopies: model.AvailableCopies,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toBookEntities(models []BookModel) []*book.Book {
	books := make([]*book.Book, len(models))
	for i := range models {
		books[i] = toBookEntity(&models[i])
	}
	return books
}
