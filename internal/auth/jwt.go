package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Claims holds the claims of a backend-issued token. Older backend tokens carry the
// user id only in "sub".
type Claims struct {
	UserID int64  `json:"user_id,omitempty"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Options configures token checks.
type Options struct {
	Secret string
	// TTL is the lifetime of tokens minted by Generate.
	TTL time.Duration
	// Issuer, when set, must match the iss claim.
	Issuer string
	// Leeway tolerates clock skew between the backend and the console.
	Leeway time.Duration
}

// JWTService validates backend tokens. The console shares the backend's HMAC secret.
type JWTService struct {
	secret []byte
	opts   Options
	parser *jwt.Parser
}

// NewJWTService creates a JWT service.
func NewJWTService(opts Options) *JWTService {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(opts.Leeway),
		jwt.WithExpirationRequired(),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	return &JWTService{
		secret: []byte(opts.Secret),
		opts:   opts,
		parser: jwt.NewParser(parserOpts...),
	}
}

// Generate signs a short-lived token for the user. The worker uses it to call the
// backend on behalf of the user that requested an export.
func (s *JWTService) Generate(userID int64, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    s.opts.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate parses a token and returns its claims. A token that names no user is invalid.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == 0 && claims.Subject != "" {
		if id, err := strconv.ParseInt(claims.Subject, 10, 64); err == nil {
			claims.UserID = id
		}
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: no user", ErrInvalidToken)
	}
	return claims, nil
}
