package book

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/pkg/tracing"
)

// SearchBooksUseCase 图书检索
// 空关键字和未知类型返回空列表, 不是错误
type SearchBooksUseCase struct {
	bookService book.Service
}

// NewSearchBooksUseCase 创建检索用例
func NewSearchBooksUseCase(bookService book.Service) *SearchBooksUseCase {
	return &SearchBooksUseCase{bookService: bookService}
}

// SearchBooksRequest 检索请求
type SearchBooksRequest struct {
	Term string
	Type string // title | author | isbn
}

// SearchBooksResponse 检索结果, 保持目录顺序
type SearchBooksResponse struct {
	List  []BookItem `json:"list"`
	Total int        `json:"total"`
}

// Execute 执行检索
func (uc *SearchBooksUseCase) Execute(ctx context.Context, req SearchBooksRequest) (resp *SearchBooksResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "book.Search", attribute.String("search.type", req.Type))
	defer func() { tracing.EndSpan(span, err) }()

	books, err := uc.bookService.Search(ctx, req.Term, book.SearchType(req.Type))
	if err != nil {
		return nil, err
	}

	return &SearchBooksResponse{
		List:  toBookItems(books),
		Total: len(books),
	}, nil
}
