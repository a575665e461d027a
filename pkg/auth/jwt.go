package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/carebook/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrRevokedToken = errors.New("session token revoked")
)

const issuer = "carebook"

// Claims carries the session identity inside the signed cookie.
type Claims struct {
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 session tokens. Revoked token ids
// are remembered until the token would have expired anyway.
type TokenManager struct {
	secret  []byte
	ttl     time.Duration
	revoked *cache.Cache
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: cache.New(ttl, 10*time.Minute),
	}
}

// TTL is the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

func (m *TokenManager) Issue(s *model.Session) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: s.Email,
		Name:  s.Name,
		Role:  s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    issuer,
			Subject:   s.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Parse verifies the token and returns the session it carries.
func (m *TokenManager) Parse(token string) (*model.Session, error) {
	claims, err := m.parseClaims(token)
	if err != nil {
		return nil, err
	}
	if _, revoked := m.revoked.Get(claims.ID); revoked {
		return nil, ErrRevokedToken
	}
	if !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return &model.Session{Email: claims.Email, Name: claims.Name, Role: claims.Role}, nil
}

// Revoke invalidates a still-valid token. Invalid tokens are ignored.
func (m *TokenManager) Revoke(token string) {
	claims, err := m.parseClaims(token)
	if err != nil {
		return
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return
	}
	m.revoked.Set(claims.ID, struct{}{}, ttl)
}

func (m *TokenManager) parseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
