package librarian

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/librarian"
	"github.com/xiebiao/library/pkg/tracing"
)

// RegisterUseCase 馆员注册
type RegisterUseCase struct {
	librarianService librarian.Service
}

// NewRegisterUseCase 创建注册用例
func NewRegisterUseCase(librarianService librarian.Service) *RegisterUseCase {
	return &RegisterUseCase{librarianService: librarianService}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
}

// LibrarianInfo 馆员信息, 不含密码
type LibrarianInfo struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Execute 执行注册
func (uc *RegisterUseCase) Execute(ctx context.Context, req RegisterRequest) (resp *LibrarianInfo, err error) {
	ctx, span := tracing.StartSpan(ctx, "librarian.Register")
	defer func() { tracing.EndSpan(span, err) }()

	l, err := uc.librarianService.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return nil, err
	}

	zap.L().Info("馆员注册成功", zap.Uint("librarian_id", l.ID))
	return &LibrarianInfo{ID: l.ID, Email: l.Email, Name: l.Name}, nil
}
