package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/response"
)

const (
	ctxClaims      = "claims"
	ctxLibrarianID = "librarian_id"
	ctxAccessToken = "access_token"
)

// TokenParser 解析并校验Access Token
type TokenParser interface {
	ParseToken(token string) (*jwt.Claims, error)
}

// TokenBlacklist 已登出Token的黑名单
type TokenBlacklist interface {
	IsInBlacklist(ctx context.Context, token string) (bool, error)
}

// AuthMiddleware 馆员JWT认证
// 1. 从Authorization头提取Bearer Token
// 2. 校验签名和有效期
// 3. 检查黑名单
// 4. 把Claims写入gin.Context
type AuthMiddleware struct {
	tokens    TokenParser
	blacklist TokenBlacklist
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(tokens TokenParser, blacklist TokenBlacklist) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, blacklist: blacklist}
}

// RequireAuth 要求馆员登录
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Error(c, apperrors.ErrInvalidToken)
			c.Abort()
			return
		}
		token := parts[1]

		// 先验签, 伪造的Token不必访问Redis
		claims, err := m.tokens.ParseToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		revoked, err := m.blacklist.IsInBlacklist(c.Request.Context(), token)
		if err != nil {
			zap.L().Error("检查Token黑名单失败", zap.Uint("librarian_id", claims.LibrarianID), zap.Error(err))
			response.Error(c, err)
			c.Abort()
			return
		}
		if revoked {
			response.Error(c, apperrors.ErrTokenRevoked)
			c.Abort()
			return
		}

		c.Set(ctxClaims, claims)
		c.Set(ctxLibrarianID, claims.LibrarianID)
		c.Set(ctxAccessToken, token)
		c.Next()
	}
}

// GetLibrarianID 当前馆员ID, 未登录返回0
func GetLibrarianID(c *gin.Context) uint {
	if v, ok := c.Get(ctxLibrarianID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// GetAccessToken 当前请求的Access Token
func GetAccessToken(c *gin.Context) string {
	return c.GetString(ctxAccessToken)
}

// MustGetClaims 只能在RequireAuth之后的Handler中使用
func MustGetClaims(c *gin.Context) *jwt.Claims {
	v, ok := c.Get(ctxClaims)
	if !ok {
		panic("claims not found in context")
	}
	return v.(*jwt.Claims)
}
