// Package jwt 校验外部身份服务签发的访问令牌。
// 本服务不签发令牌，只解析并核对签名、过期时间与签发方。
package jwt

import (
	"errors"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/jobayadurrasid/Smart-Campus/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// Claims 访问令牌声明；Role 由签发方从人员表 role 列写入
type Claims struct {
	PersonID       string `json:"person_id"`
	Role           string `json:"role"`
	DepartmentCode string `json:"department_code"`
	jwtv5.RegisteredClaims
}

// Verifier JWT 校验器
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier 创建 JWT 校验器
func NewVerifier(cfg *config.AuthConfig) *Verifier {
	return &Verifier{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
	}
}

// ParseToken 解析并验证 Token
func (v *Verifier) ParseToken(tokenString string) (*Claims, error) {
	opts := []jwtv5.ParserOption{jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(v.issuer))
	}

	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.PersonID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
