package dto

import "time"

// ── 令牌吊销 DTO ──

// RevokeTokenRequest 吊销访问令牌；expires_at 取令牌自身的 exp，黑名单记录随之过期
type RevokeTokenRequest struct {
	JTI       string    `json:"jti"        binding:"required,max=128"`
	ExpiresAt time.Time `json:"expires_at" binding:"required"`
}

// RevokeTokenResponse 吊销结果；令牌已过期时 Revoked 为 false
type RevokeTokenResponse struct {
	JTI       string    `json:"jti"`
	Revoked   bool      `json:"revoked"`
	ExpiresAt time.Time `json:"expires_at"`
}
