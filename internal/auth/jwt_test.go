package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, method jwt.SigningMethod, secret string, claims Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTService_RoundTrip(t *testing.T) {
	s := NewJWTService(Options{Secret: "secret", TTL: time.Hour, Issuer: "volunteer-api"})
	token, err := s.Generate(42, "ann@example.com", "admin")
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "ann@example.com", claims.Email)
	assert.Equal(t, "42", claims.Subject)
}

func TestJWTService_SubjectFallback(t *testing.T) {
	s := NewJWTService(Options{Secret: "secret"})
	token := sign(t, jwt.SigningMethodHS512, "secret", Claims{
		Role: "volunteer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "17",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(17), claims.UserID)
}

func TestJWTService_Rejects(t *testing.T) {
	s := NewJWTService(Options{Secret: "secret", Issuer: "volunteer-api"})
	valid := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{Issuer: "volunteer-api", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	}

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", sign(t, jwt.SigningMethodHS256, "other", Claims{UserID: 1, RegisteredClaims: valid()})},
		{"expired", sign(t, jwt.SigningMethodHS256, "secret", Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "volunteer-api", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}})},
		{"no expiry", sign(t, jwt.SigningMethodHS256, "secret", Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{Issuer: "volunteer-api"}})},
		{"wrong issuer", sign(t, jwt.SigningMethodHS256, "secret", Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "someone-else", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}})},
		{"no user", sign(t, jwt.SigningMethodHS256, "secret", Claims{RegisteredClaims: valid()})},
		{"garbage", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Validate(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTService_Leeway(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, "secret", Claims{UserID: 3, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-10 * time.Second)),
	}})

	_, err := NewJWTService(Options{Secret: "secret"}).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := NewJWTService(Options{Secret: "secret", Leeway: time.Minute}).Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)
}
