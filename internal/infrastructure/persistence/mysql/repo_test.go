package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/librarian"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/domain/payment"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedBook(t *testing.T, repo book.Repository, isbn string, copies int) *book.Book {
	t.Helper()
	b := book.NewBook("Title "+isbn, "Author", isbn, copies)
	require.NoError(t, repo.Create(context.Background(), b))
	return b
}

func TestBookRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewBookRepository(newTestDB(t))

	b := seedBook(t, repo, "9780743273565", 3)
	assert.NotZero(t, b.ID)

	found, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, found.TotalCopies)
	assert.Equal(t, 3, found.AvailableCopies)

	byISBN, err := repo.FindByISBN(ctx, "9780743273565")
	require.NoError(t, err)
	assert.Equal(t, b.ID, byISBN.ID)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, book.ErrBookNotFound)

	err = repo.Create(ctx, book.NewBook("Dup", "Someone", "9780743273565", 1))
	assert.ErrorIs(t, err, book.ErrISBNDuplicate)
}

func TestBookRepository_ListOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewBookRepository(newTestDB(t))

	for _, isbn := range []string{"0000000000003", "0000000000001", "0000000000002"} {
		seedBook(t, repo, isbn, 1)
	}

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "0000000000003", all[0].ISBN, "按入库顺序")

	page, total, err := repo.List(ctx, book.ListParams{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "0000000000002", page[0].ISBN)
}

func TestBookRepository_UpdateAvailability(t *testing.T) {
	ctx := context.Background()
	repo := NewBookRepository(newTestDB(t))
	b := seedBook(t, repo, "9780451524935", 1)

	require.NoError(t, repo.UpdateAvailability(ctx, b.ID, -1))
	err := repo.UpdateAvailability(ctx, b.ID, -1)
	assert.ErrorIs(t, err, book.ErrUnavailable)

	require.NoError(t, repo.UpdateAvailability(ctx, b.ID, 1))
	err = repo.UpdateAvailability(ctx, b.ID, 1)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStorage), "超过总数")

	err = repo.UpdateAvailability(ctx, 404, -1)
	assert.ErrorIs(t, err, book.ErrBookNotFound)

	found, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.AvailableCopies)
}

func TestTxManager_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	books := NewBookRepository(db)
	loans := NewLoanRepository(db)
	tx := NewTxManager(db)
	b := seedBook(t, books, "9780451526342", 1)

	boom := errors.New("boom")
	err := tx.Transaction(ctx, func(ctx context.Context) error {
		locked, err := books.LockByID(ctx, b.ID)
		require.NoError(t, err)
		require.NoError(t, loans.Create(ctx, loan.NewBorrowRecord("123456", locked.ID, time.Now())))
		require.NoError(t, books.UpdateAvailability(ctx, locked.ID, -1))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	found, err := books.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.AvailableCopies, "回滚后可借数不变")

	count, err := loans.CountOpen(ctx, "123456")
	require.NoError(t, err)
	assert.Zero(t, count, "回滚后没有借阅记录")
}

func TestLoanRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	books := NewBookRepository(db)
	loans := NewLoanRepository(db)
	b := seedBook(t, books, "9780141439518", 2)

	borrowedAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	first := loan.NewBorrowRecord("123456", b.ID, borrowedAt)
	second := loan.NewBorrowRecord("123456", b.ID, borrowedAt.Add(time.Hour))
	require.NoError(t, loans.Create(ctx, first))
	require.NoError(t, loans.Create(ctx, second))

	open, err := loans.FindOpen(ctx, "123456", b.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, open.ID, "最早的在借记录")
	assert.True(t, open.DueAt.Equal(borrowedAt.Add(loan.LoanPeriod)))

	count, err := loans.CountOpen(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	returnedAt := borrowedAt.Add(20 * 24 * time.Hour)
	closed, err := loans.UpdateReturnDate(ctx, "123456", b.ID, returnedAt)
	require.NoError(t, err)
	assert.Equal(t, first.ID, closed.ID)
	require.NotNil(t, closed.ReturnedAt)

	latest, err := loans.FindLatestReturned(ctx, "123456", b.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)
	assert.True(t, latest.ReturnedAt.Equal(returnedAt))

	_, err = loans.UpdateReturnDate(ctx, "123456", b.ID, returnedAt)
	require.NoError(t, err, "第二条在借记录")

	_, err = loans.UpdateReturnDate(ctx, "123456", b.ID, returnedAt)
	assert.ErrorIs(t, err, loan.ErrNotBorrowed)

	_, err = loans.FindOpen(ctx, "654321", b.ID)
	assert.ErrorIs(t, err, loan.ErrNotBorrowed)

	_, err = loans.FindLatestReturned(ctx, "654321", b.ID)
	assert.ErrorIs(t, err, loan.ErrLoanNotFound)
}

func TestLoanRepository_Details(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	books := NewBookRepository(db)
	loans := NewLoanRepository(db)
	b1 := seedBook(t, books, "1111111111111", 1)
	b2 := seedBook(t, books, "2222222222222", 1)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	overdue := loan.NewBorrowRecord("123456", b1.ID, now.Add(-20*24*time.Hour))
	current := loan.NewBorrowRecord("123456", b2.ID, now.Add(-2*24*time.Hour))
	other := loan.NewBorrowRecord("999999", b2.ID, now.Add(-30*24*time.Hour))
	for _, r := range []*loan.BorrowRecord{overdue, current, other} {
		require.NoError(t, loans.Create(ctx, r))
	}

	open, err := loans.ListOpenByPatron(ctx, "123456", now)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "Title 1111111111111", open[0].Title)
	assert.True(t, open[0].IsOverdue)
	assert.False(t, open[1].IsOverdue)
	assert.Nil(t, open[0].ReturnedAt)

	_, err = loans.UpdateReturnDate(ctx, "123456", b2.ID, now)
	require.NoError(t, err)

	history, err := loans.ListHistory(ctx, "123456")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.NotNil(t, history[1].ReturnedAt)

	all, err := loans.ListOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "999999", all[0].PatronID, "到期早的在前")
	assert.Equal(t, "123456", all[1].PatronID)
}

func TestPaymentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(newTestDB(t))

	p := payment.NewLateFeePayment("txn_abc", "123456", 1, 7, decimal.RequireFromString("3.50"), "Late fees for 'Dune'")
	require.NoError(t, repo.Create(ctx, p))
	assert.NotZero(t, p.ID)

	found, err := repo.FindByTransactionID(ctx, "txn_abc")
	require.NoError(t, err)
	assert.True(t, found.Amount.Equal(decimal.RequireFromString("3.5")))
	assert.Equal(t, payment.PaymentStatusPaid, found.Status)

	require.NoError(t, found.ApplyRefund(decimal.RequireFromString("1.25")))
	require.NoError(t, repo.Update(ctx, found))

	list, err := repo.ListByRecord(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].RefundedAmount.Equal(decimal.RequireFromString("1.25")))
	assert.Equal(t, payment.PaymentStatusPartiallyRefunded, list[0].Status)
	assert.True(t, payment.SumNetPaid(list).Equal(decimal.RequireFromString("2.25")))

	_, err = repo.FindByTransactionID(ctx, "txn_missing")
	assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
}

func TestLibrarianRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewLibrarianRepository(newTestDB(t))

	l := librarian.NewLibrarian("desk@library.org", "hash", "Front Desk")
	require.NoError(t, repo.Create(ctx, l))

	found, err := repo.FindByEmail(ctx, "desk@library.org")
	require.NoError(t, err)
	assert.Equal(t, l.ID, found.ID)

	byID, err := repo.FindByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Front Desk", byID.Name)

	err = repo.Create(ctx, librarian.NewLibrarian("desk@library.org", "hash", "Other"))
	assert.ErrorIs(t, err, librarian.ErrEmailDuplicate)

	_, err = repo.FindByEmail(ctx, "nobody@library.org")
	assert.ErrorIs(t, err, librarian.ErrLibrarianNotFound)
}
