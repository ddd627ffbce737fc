package librarian

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/librarian"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/tracing"
)

// SessionStore 会话存储, Redis和进程内两种实现
type SessionStore interface {
	SaveSession(ctx context.Context, librarianID uint, data map[string]interface{}, ttl time.Duration) error
	DeleteSession(ctx context.Context, librarianID uint) error
	AddToBlacklist(ctx context.Context, token string, ttl time.Duration) error
}

// LoginUseCase 馆员登录
// 1. 校验邮箱密码
// 2. 签发Token对
// 3. 保存会话, 有效期与Refresh Token一致
type LoginUseCase struct {
	librarianService librarian.Service
	jwtManager       *jwt.Manager
	sessionStore     SessionStore
	now              func() time.Time
}

// NewLoginUseCase 创建登录用例
func NewLoginUseCase(librarianService librarian.Service, jwtManager *jwt.Manager, sessionStore SessionStore) *LoginUseCase {
	return &LoginUseCase{
		librarianService: librarianService,
		jwtManager:       jwtManager,
		sessionStore:     sessionStore,
		now:              time.Now,
	}
}

// LoginRequest 登录请求, ClientIP由接口层填入
type LoginRequest struct {
	Email    string
	Password string
	ClientIP string
}

// LoginResponse 登录响应
type LoginResponse struct {
	Librarian    LibrarianInfo `json:"librarian"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
}

// Execute 执行登录
func (uc *LoginUseCase) Execute(ctx context.Context, req LoginRequest) (resp *LoginResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "librarian.Login")
	defer func() { tracing.EndSpan(span, err) }()

	l, err := uc.librarianService.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	pair, err := uc.jwtManager.GenerateToken(l.ID, l.Email, l.Name)
	if err != nil {
		return nil, err
	}

	session := map[string]interface{}{
		"librarian_id": l.ID,
		"email":        l.Email,
		"name":         l.Name,
		"login_at":     uc.now().Unix(),
		"ip":           req.ClientIP,
	}
	// 会话写失败不影响登录, Token本身可以独立校验
	if err := uc.sessionStore.SaveSession(ctx, l.ID, session, uc.jwtManager.RefreshTokenExpire()); err != nil {
		zap.L().Warn("保存会话失败", zap.Uint("librarian_id", l.ID), zap.Error(err))
	}

	return &LoginResponse{
		Librarian:    LibrarianInfo{ID: l.ID, Email: l.Email, Name: l.Name},
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// LogoutUseCase 馆员登出
type LogoutUseCase struct {
	jwtManager   *jwt.Manager
	sessionStore SessionStore
}

// NewLogoutUseCase 创建登出用例
func NewLogoutUseCase(jwtManager *jwt.Manager, sessionStore SessionStore) *LogoutUseCase {
	return &LogoutUseCase{jwtManager: jwtManager, sessionStore: sessionStore}
}

// Execute 删除会话, Access Token进黑名单直到自然过期
func (uc *LogoutUseCase) Execute(ctx context.Context, claims *jwt.Claims, accessToken string) error {
	if err := uc.sessionStore.DeleteSession(ctx, claims.LibrarianID); err != nil {
		return err
	}

	ttl := uc.jwtManager.RemainingTTL(claims)
	if ttl <= 0 {
		return nil
	}
	return uc.sessionStore.AddToBlacklist(ctx, accessToken, ttl)
}

// RefreshUseCase 用Refresh Token换取新的Access Token
type RefreshUseCase struct {
	jwtManager *jwt.Manager
}

// NewRefreshUseCase 创建刷新用例
func NewRefreshUseCase(jwtManager *jwt.Manager) *RefreshUseCase {
	return &RefreshUseCase{jwtManager: jwtManager}
}

// RefreshResponse 刷新结果
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Execute 执行刷新
func (uc *RefreshUseCase) Execute(refreshToken string) (*RefreshResponse, error) {
	token, err := uc.jwtManager.RefreshAccessToken(refreshToken)
	if err != nil {
		return nil, err
	}
	return &RefreshResponse{
		AccessToken: token,
		ExpiresIn:   int64(uc.jwtManager.AccessTokenExpire().Seconds()),
	}, nil
}
