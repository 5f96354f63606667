package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService("test-secret", "fashionchat", 1, nil)

	token, err := svc.GenerateToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token.AccessToken)
	require.Equal(t, "bearer", token.TokenType)
	require.EqualValues(t, 3600, token.ExpiresIn)

	claims, err := svc.ValidateToken(context.Background(), token.AccessToken)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims.UserID)
	require.Equal(t, "fashionchat", claims.Issuer)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer := NewJWTService("secret-a", "fashionchat", 1, nil)
	verifier := NewJWTService("secret-b", "fashionchat", 1, nil)

	token, err := issuer.GenerateToken(1)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(context.Background(), token.AccessToken)
	require.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", "fashionchat", 1, nil)

	_, err := svc.ValidateToken(context.Background(), "not-a-token")
	require.Error(t, err)
}

func TestExpiryDefault(t *testing.T) {
	svc := NewJWTService("test-secret", "fashionchat", 0, nil)
	require.Equal(t, 24*time.Hour, svc.expiry)
}

func TestRevokeWithoutRedis(t *testing.T) {
	svc := NewJWTService("test-secret", "fashionchat", 1, nil)
	token, err := svc.GenerateToken(1)
	require.NoError(t, err)

	// 无 Redis 时注销失败，但验证照常工作
	require.Error(t, svc.RevokeToken(context.Background(), token.AccessToken))
	require.False(t, svc.IsTokenBlacklisted(context.Background(), token.AccessToken))
}

func TestExtractTokenFromBearer(t *testing.T) {
	require.Equal(t, "abc.def.ghi", ExtractTokenFromBearer("Bearer abc.def.ghi"))
	require.Empty(t, ExtractTokenFromBearer("bearer abc"))
	require.Empty(t, ExtractTokenFromBearer("abc.def.ghi"))
	require.Empty(t, ExtractTokenFromBearer(""))
	require.Empty(t, ExtractTokenFromBearer("Bearer "))
}

func TestHashAndVerifyPassword(t *testing.T) {
	hashed, err := HashPassword("demo123")
	require.NoError(t, err)
	require.NotEqual(t, "demo123", hashed)

	require.True(t, VerifyPassword("demo123", hashed))
	require.False(t, VerifyPassword("wrong", hashed))
	require.False(t, VerifyPassword("demo123", "not-a-hash"))
}
