package book

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/pkg/tracing"
)

// AddBookUseCase 图书入库用例
// 字段校验、ISBN查重都由领域服务负责, 应用层只做编排和DTO转换
type AddBookUseCase struct {
	bookService book.Service
}

// NewAddBookUseCase 创建入库用例
func NewAddBookUseCase(bookService book.Service) *AddBookUseCase {
	return &AddBookUseCase{
		bookService: bookService,
	}
}

// AddBookRequest 入库请求
type AddBookRequest struct {
	Title       string
	Author      string
	ISBN        string
	TotalCopies int
}

// AddBookResponse 入库响应
type AddBookResponse struct {
	Book    BookItem `json:"book"`
	Message string   `json:"message"`
}

// Execute 执行入库
func (uc *AddBookUseCase) Execute(ctx context.Context, req AddBookRequest) (resp *AddBookResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "book.AddBook", attribute.String("book.isbn", req.ISBN))
	defer func() { tracing.EndSpan(span, err) }()

	b, err := uc.bookService.AddBook(ctx, req.Title, req.Author, req.ISBN, req.TotalCopies)
	if err != nil {
		return nil, err
	}

	zap.L().Info("图书入库",
		zap.Uint("book_id", b.ID),
		zap.String("isbn", b.ISBN),
		zap.Int("total_copies", b.TotalCopies),
	)

	return &AddBookResponse{
		Book:    toBookItem(b),
		Message: fmt.Sprintf(`Book "%s" has been successfully added to the catalog.`, b.Title),
	}, nil
}
