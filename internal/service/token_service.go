package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
)

// TokenStore 令牌黑名单写入端（Redis 或进程内实现）
type TokenStore interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// TokenService 令牌吊销业务接口
type TokenService interface {
	// Revoke 将 jti 加入黑名单直到其原定过期时间
	Revoke(ctx context.Context, req *dto.RevokeTokenRequest, revokedBy string) (*dto.RevokeTokenResponse, error)
}

type tokenService struct {
	store  TokenStore
	now    func() time.Time
	logger *zap.Logger
}

// NewTokenService 创建 TokenService 实例；store 为 nil 时吊销返回 ErrRevocationUnavailable
func NewTokenService(store TokenStore, logger *zap.Logger) TokenService {
	return &tokenService{store: store, now: time.Now, logger: logger}
}

func (s *tokenService) Revoke(ctx context.Context, req *dto.RevokeTokenRequest, revokedBy string) (*dto.RevokeTokenResponse, error) {
	jti := strings.TrimSpace(req.JTI)
	if jti == "" {
		return nil, invalidf("jti is required")
	}
	if s.store == nil {
		return nil, ErrRevocationUnavailable
	}

	resp := &dto.RevokeTokenResponse{JTI: jti, ExpiresAt: req.ExpiresAt}
	ttl := req.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		// 已过期的令牌本就无法通过校验
		return resp, nil
	}

	if err := s.store.BlacklistToken(ctx, jti, ttl); err != nil {
		s.logger.Error("写入令牌黑名单失败", zap.String("jti", jti), zap.Error(err))
		return nil, persistence("blacklist token", err)
	}
	resp.Revoked = true
	s.logger.Info("令牌已吊销",
		zap.String("jti", jti),
		zap.String("revoked_by", revokedBy),
		zap.Duration("ttl", ttl),
	)
	return resp, nil
}
