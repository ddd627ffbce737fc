package book

import (
	"context"
	"strings"
	"unicode/utf8"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

const (
	MaxTitleLength  = 200
	MaxAuthorLength = 100
	ISBNLength      = 13
)

// SearchType 检索类型
type SearchType string

const (
	SearchByTitle  SearchType = "title"
	SearchByAuthor SearchType = "author"
	SearchByISBN   SearchType = "isbn"
)

// Service 图书领域服务接口
type Service interface {
	// AddBook 校验字段后入库, 可借数等于总数
	AddBook(ctx context.Context, title, author, isbn string, totalCopies int) (*Book, error)

	// GetBookByID 根据ID获取图书
	GetBookByID(ctx context.Context, id uint) (*Book, error)

	// Search 在全部图书中过滤, 保持目录顺序
	// 空关键字或未知类型返回空结果, 不报错
	Search(ctx context.Context, term string, searchType SearchType) ([]*Book, error)

	// ListBooks 分页查询图书目录
	ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error)
}

type service struct {
	repo Repository
}

// NewService 创建图书领域服务
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// AddBook 添加图书
func (s *service) AddBook(ctx context.Context, title, author, isbn string, totalCopies int) (*Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)

	// 1. 字段校验(顺序决定返回哪条提示)
	if err := ValidateNewBook(title, author, isbn, totalCopies); err != nil {
		return nil, err
	}

	// 2. ISBN查重
	existing, err := s.repo.FindByISBN(ctx, isbn)
	if err != nil && !apperrors.HasCode(err, apperrors.ErrCodeBookNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrISBNDuplicate
	}

	// 3. 入库
	b := NewBook(title, author, isbn, totalCopies)
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

// GetBookByID 根据ID获取图书
func (s *service) GetBookByID(ctx context.Context, id uint) (*Book, error) {
	return s.repo.FindByID(ctx, id)
}

// Search 检索图书
func (s *service) Search(ctx context.Context, term string, searchType SearchType) ([]*Book, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []*Book{}, nil
	}

	var match func(b *Book) bool
	switch searchType {
	case SearchByTitle:
		match = func(b *Book) bool { return strings.Contains(strings.ToLower(b.Title), term) }
	case SearchByAuthor:
		match = func(b *Book) bool { return strings.Contains(strings.ToLower(b.Author), term) }
	case SearchByISBN:
		match = func(b *Book) bool { return b.ISBN == term }
	default:
		return []*Book{}, nil
	}

	books, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*Book, 0)
	for _, b := range books {
		if match(b) {
			results = append(results, b)
		}
	}
	return results, nil
}

// ListBooks 分页查询
func (s *service) ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error) {
	return s.repo.List(ctx, params.Normalize())
}

// =========================================
// 校验函数
// =========================================

// ValidateNewBook 新书字段校验, title/author应已去除首尾空白
func ValidateNewBook(title, author, isbn string, totalCopies int) error {
	if title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if author == "" {
		return ErrAuthorRequired
	}
	if utf8.RuneCountInString(author) > MaxAuthorLength {
		return ErrAuthorTooLong
	}
	if utf8.RuneCountInString(isbn) != ISBNLength {
		return ErrISBNLength
	}
	if !isDigits(isbn) {
		return ErrISBNNotDigits
	}
	if totalCopies <= 0 {
		return ErrInvalidTotalCopies
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
