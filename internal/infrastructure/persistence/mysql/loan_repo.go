package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/loan"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// loanRepository 借阅记录仓储实现
// 时间统一按UTC存储, 逾期判断在Go里完成, 不依赖各数据库的时间比较语义
type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository 创建借阅记录仓储
func NewLoanRepository(db *gorm.DB) loan.Repository {
	return &loanRepository{db: db}
}

// loanDetailRow 借阅记录JOIN图书的查询结果
type loanDetailRow struct {
	ID         uint
	PatronID   string
	BookID     uint
	BorrowedAt time.Time
	DueAt      time.Time
	ReturnedAt *time.Time
	CreatedAt  time.Time
	Title      string
	Author     string
}

const loanDetailColumns = "borrow_records.id, borrow_records.patron_id, borrow_records.book_id, " +
	"borrow_records.borrowed_at, borrow_records.due_at, borrow_records.returned_at, borrow_records.created_at, " +
	"books.title, books.author"

// Create 新增借阅记录
func (r *loanRepository) Create(ctx context.Context, record *loan.BorrowRecord) error {
	model := &BorrowRecordModel{
		PatronID:   record.PatronID,
		BookID:     record.BookID,
		BorrowedAt: record.BorrowedAt.UTC(),
		DueAt:      record.DueAt.UTC(),
		ReturnedAt: utcPtr(record.ReturnedAt),
	}

	if err := r.getDB(ctx).Create(model).Error; err != nil {
		return apperrors.WithCode(apperrors.ErrCodeStorage, err, loan.MsgCreateRecordStorageError)
	}

	record.ID = model.ID
	record.CreatedAt = model.CreatedAt
	return nil
}

// FindByID 根据ID查找借阅记录
func (r *loanRepository) FindByID(ctx context.Context, id uint) (*loan.BorrowRecord, error) {
	var model BorrowRecordModel
	if err := r.getDB(ctx).First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, loan.ErrLoanNotFound
		}
		return nil, r.loadError(err)
	}
	return toBorrowRecordEntity(&model), nil
}

// FindOpen 读者对该书最早的在借记录
func (r *loanRepository) FindOpen(ctx context.Context, patronID string, bookID uint) (*loan.BorrowRecord, error) {
	var model BorrowRecordModel
	err := r.getDB(ctx).
		Where("patron_id = ? AND book_id = ? AND returned_at IS NULL", patronID, bookID).
		Order("borrowed_at ASC, id ASC").
		First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, loan.ErrNotBorrowed
		}
		return nil, r.loadError(err)
	}
	return toBorrowRecordEntity(&model), nil
}

// FindLatestReturned 读者对该书最近一次已还记录
func (r *loanRepository) FindLatestReturned(ctx context.Context, patronID string, bookID uint) (*loan.BorrowRecord, error) {
	var model BorrowRecordModel
	err := r.getDB(ctx).
		Where("patron_id = ? AND book_id = ? AND returned_at IS NOT NULL", patronID, bookID).
		Order("returned_at DESC, id DESC").
		First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, loan.ErrLoanNotFound
		}
		return nil, r.loadError(err)
	}
	return toBorrowRecordEntity(&model), nil
}

// UpdateReturnDate 关闭最早的在借记录
// WHERE returned_at IS NULL 保证一条记录只会被关闭一次
func (r *loanRepository) UpdateReturnDate(ctx context.Context, patronID string, bookID uint, returnedAt time.Time) (*loan.BorrowRecord, error) {
	record, err := r.FindOpen(ctx, patronID, bookID)
	if err != nil {
		return nil, err
	}

	if err := record.Close(returnedAt.UTC()); err != nil {
		return nil, err
	}

	result := r.getDB(ctx).Model(&BorrowRecordModel{}).
		Where("id = ? AND returned_at IS NULL", record.ID).
		Update("returned_at", *record.ReturnedAt)
	if result.Error != nil {
		return nil, apperrors.WithCode(apperrors.ErrCodeStorage, result.Error, loan.MsgUpdateRecordStorageError)
	}
	if result.RowsAffected == 0 {
		// 查询和更新之间被其他请求归还了
		return nil, loan.ErrNotBorrowed
	}

	return record, nil
}

// ListOpenByPatron 读者在借记录
func (r *loanRepository) ListOpenByPatron(ctx context.Context, patronID string, now time.Time) ([]*loan.LoanDetail, error) {
	var rows []loanDetailRow
	err := r.detailQuery(ctx).
		Where("borrow_records.patron_id = ? AND borrow_records.returned_at IS NULL", patronID).
		Order("borrow_records.borrowed_at ASC, borrow_records.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, r.loadError(err)
	}
	return toLoanDetails(rows, now), nil
}

// ListHistory 读者全部借阅记录
func (r *loanRepository) ListHistory(ctx context.Context, patronID string) ([]*loan.LoanDetail, error) {
	var rows []loanDetailRow
	err := r.detailQuery(ctx).
		Where("borrow_records.patron_id = ?", patronID).
		Order("borrow_records.borrowed_at ASC, borrow_records.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, r.loadError(err)
	}
	// 历史记录只关心是否已还, 逾期标记按当前时间计算
	return toLoanDetails(rows, time.Now()), nil
}

// CountOpen 读者在借数量
func (r *loanRepository) CountOpen(ctx context.Context, patronID string) (int64, error) {
	var count int64
	err := r.getDB(ctx).Model(&BorrowRecordModel{}).
		Where("patron_id = ? AND returned_at IS NULL", patronID).
		Count(&count).Error
	if err != nil {
		return 0, r.loadError(err)
	}
	return count, nil
}

// ListOverdue 全馆已逾期的在借记录, 按到期时间升序
func (r *loanRepository) ListOverdue(ctx context.Context, now time.Time) ([]*loan.LoanDetail, error) {
	var rows []loanDetailRow
	err := r.detailQuery(ctx).
		Where("borrow_records.returned_at IS NULL").
		Order("borrow_records.due_at ASC, borrow_records.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, r.loadError(err)
	}

	overdue := make([]*loan.LoanDetail, 0, len(rows))
	for _, d := range toLoanDetails(rows, now) {
		if d.IsOverdue {
			overdue = append(overdue, d)
		}
	}
	return overdue, nil
}

func (r *loanRepository) detailQuery(ctx context.Context) *gorm.DB {
	return r.getDB(ctx).
		Table("borrow_records").
		Select(loanDetailColumns).
		Joins("JOIN books ON books.id = borrow_records.book_id")
}

func (r *loanRepository) loadError(err error) error {
	return apperrors.WithCode(apperrors.ErrCodeStorage, err, loan.MsgLoadRecordStorageError)
}

func (r *loanRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

func toBorrowRecordEntity(model *BorrowRecordModel) *loan.BorrowRecord {
	return &loan.BorrowRecord{
		ID:         model.ID,
		PatronID:   model.PatronID,
		BookID:     model.BookID,
		BorrowedAt: model.BorrowedAt,
		DueAt:      model.DueAt,
		ReturnedAt: model.ReturnedAt,
		CreatedAt:  model.CreatedAt,
	}
}

func toLoanDetails(rows []loanDetailRow, now time.Time) []*loan.LoanDetail {
	details := make([]*loan.LoanDetail, len(rows))
	for i, row := range rows {
		d := &loan.LoanDetail{
			BorrowRecord: loan.BorrowRecord{
				ID:         row.ID,
				PatronID:   row.PatronID,
				BookID:     row.BookID,
				BorrowedAt: row.BorrowedAt,
				DueAt:      row.DueAt,
				ReturnedAt: row.ReturnedAt,
				CreatedAt:  row.CreatedAt,
			},
			Title:  row.Title,
			Author: row.Author,
		}
		d.IsOverdue = d.BorrowRecord.IsOverdue(now)
		details[i] = d
	}
	return details
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
