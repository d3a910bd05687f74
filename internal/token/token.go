// Package token issues and verifies the service's JWT access and refresh
// tokens.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/theadityachoudhury/auth-service/internal/config"
	"github.com/theadityachoudhury/auth-service/internal/model"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrWrongTokenUse = errors.New("token used for the wrong purpose")
)

// Claims is the JWT payload for both token types.
type Claims struct {
	jwt.RegisteredClaims
	Email     string         `json:"email"`
	Role      model.UserRole `json:"role"`
	TokenType string         `json:"token_type"`
}

// Service signs and verifies tokens with the configured secret and
// algorithm.
type Service struct {
	cfg    config.JWTConfig
	method jwt.SigningMethod
}

// NewService returns a token service. The algorithm is validated at
// config load time, so an unknown method here is a programming error.
func NewService(cfg config.JWTConfig) (*Service, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", cfg.Algorithm)
	}
	return &Service{cfg: cfg, method: method}, nil
}

// IssueAccessToken returns a signed short-lived access token for u.
func (s *Service) IssueAccessToken(u *model.User) (string, error) {
	return s.issue(u, TypeAccess, s.cfg.AccessTokenTTL)
}

// IssueRefreshToken returns a signed long-lived refresh token for u.
func (s *Service) IssueRefreshToken(u *model.User) (string, error) {
	return s.issue(u, TypeRefresh, s.cfg.RefreshTokenTTL)
}

func (s *Service) issue(u *model.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:     u.Email,
		Role:      u.Role,
		TokenType: tokenType,
	}
	return jwt.NewWithClaims(s.method, claims).SignedString([]byte(s.cfg.Secret))
}

// Verify parses and validates a token and checks it is of the wanted
// type, so refresh tokens cannot be used as access tokens or vice versa.
func (s *Service) Verify(tokenString, wantType string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != s.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithIssuer(s.cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongTokenUse
	}
	return &claims, nil
}

// UserID extracts the numeric subject.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}
