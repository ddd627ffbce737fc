package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// SessionStore 馆员会话存储
// 1. 登录时写入会话, 登出时删除
// 2. 登出的Access Token进入黑名单, 直到自然过期
// 3. Key设计: session:{librarian_id}、blacklist:{token}
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore 创建会话存储
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(librarianID uint) string {
	return fmt.Sprintf("session:%d", librarianID)
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}

// SaveSession 保存会话, ttl与Refresh Token有效期一致
func (s *SessionStore) SaveSession(ctx context.Context, librarianID uint, data map[string]interface{}, ttl time.Duration) error {
	key := sessionKey(librarianID)

	// HSet + Expire放进同一个事务管道, 避免留下永不过期的会话
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, data)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return apperrors.WithCode(apperrors.ErrCodeRedisError, err, "保存会话失败")
	}
	return nil
}

// GetSession 获取会话, 不存在返回ErrUnauthorized
func (s *SessionStore) GetSession(ctx context.Context, librarianID uint) (map[string]string, error) {
	result, err := s.client.HGetAll(ctx, sessionKey(librarianID)).Result()
	if err != nil {
		return nil, apperrors.WithCode(apperrors.ErrCodeRedisError, err, "获取会话失败")
	}
	if len(result) == 0 {
		return nil, apperrors.ErrUnauthorized
	}
	return result, nil
}

// DeleteSession 删除会话(登出)
func (s *SessionStore) DeleteSession(ctx context.Context, librarianID uint) error {
	if err := s.client.Del(ctx, sessionKey(librarianID)).Err(); err != nil {
		return apperrors.WithCode(apperrors.ErrCodeRedisError, err, "删除会话失败")
	}
	return nil
}

// AddToBlacklist 将Token加入黑名单
func (s *SessionStore) AddToBlacklist(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, blacklistKey(token), "revoked", ttl).Err(); err != nil {
		return apperrors.WithCode(apperrors.ErrCodeRedisError, err, "添加Token到黑名单失败")
	}
	return nil
}

// IsInBlacklist 检查Token是否在黑名单中
func (s *SessionStore) IsInBlacklist(ctx context.Context, token string) (bool, error) {
	exists, err := s.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, apperrors.WithCode(apperrors.ErrCodeRedisError, err, "检查黑名单失败")
	}
	return exists > 0, nil
}
