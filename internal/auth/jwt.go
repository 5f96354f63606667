package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// JWTService JWT 令牌服务
type JWTService struct {
	secretKey   []byte
	issuer      string
	expiry      time.Duration
	redisClient *redis.Client // 可为 nil，此时不启用黑名单
}

// NewJWTService 创建 JWT 服务
func NewJWTService(secretKey, issuer string, expiryHours int, redisClient *redis.Client) *JWTService {
	if expiryHours <= 0 {
		expiryHours = 24
	}
	return &JWTService{
		secretKey:   []byte(secretKey),
		issuer:      issuer,
		expiry:      time.Duration(expiryHours) * time.Hour,
		redisClient: redisClient,
	}
}

// TokenClaims JWT 声明
type TokenClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// Token 签发结果
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"` // 秒
}

// GenerateToken 为用户签发访问令牌
func (s *JWTService) GenerateToken(userID uint) (*Token, error) {
	now := time.Now()
	claims := &TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return nil, fmt.Errorf("签名令牌失败: %w", err)
	}

	return &Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.expiry.Seconds()),
	}, nil
}

// ValidateToken 验证并解析 JWT 令牌
func (s *JWTService) ValidateToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	if s.IsTokenBlacklisted(ctx, tokenString) {
		return nil, fmt.Errorf("令牌已失效")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("无效的签名算法: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("解析令牌失败: %w", err)
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("无效的令牌")
}

// RevokeToken 注销令牌，加入 Redis 黑名单直到其自然过期
func (s *JWTService) RevokeToken(ctx context.Context, tokenString string) error {
	if s.redisClient == nil {
		return fmt.Errorf("未配置 Redis，无法注销令牌")
	}

	claims, err := s.ValidateToken(ctx, tokenString)
	if err != nil {
		return err
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}

	key := blacklistKey(tokenString)
	if err := s.redisClient.Set(ctx, key, "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("写入令牌黑名单失败: %w", err)
	}
	return nil
}

// IsTokenBlacklisted 检查令牌是否在黑名单中
func (s *JWTService) IsTokenBlacklisted(ctx context.Context, tokenString string) bool {
	if s.redisClient == nil {
		return false
	}
	n, err := s.redisClient.Exists(ctx, blacklistKey(tokenString)).Result()
	if err != nil {
		// Redis 不可用时放行，令牌本身仍有签名和过期校验
		return false
	}
	return n > 0
}

func blacklistKey(tokenString string) string {
	return "jwt:blacklist:" + tokenString
}

// ExtractTokenFromBearer 从 "Bearer xxx" 头中提取令牌
func ExtractTokenFromBearer(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) > len(prefix) && authHeader[:len(prefix)] == prefix {
		return authHeader[len(prefix):]
	}
	return ""
}
