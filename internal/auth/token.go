// Package auth выпускает и проверяет bearer-токены пользователей панели управления.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mmeshcher/ordersync/internal/model"
)

const issuer = "ordersync"

var (
	// ErrInvalidToken возвращается для токена с неверной подписью, форматом или истёкшим сроком.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked возвращается для токена, отозванного при выходе пользователя.
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Claims содержит утверждения токена доступа.
type Claims struct {
	jwt.RegisteredClaims
	UserID   uuid.UUID  `json:"user_id"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

// Token описывает выпущенный токен доступа.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// TokenManager выпускает, проверяет и отзывает токены доступа.
type TokenManager struct {
	secret    []byte
	ttl       time.Duration
	blacklist Blacklist
	now       func() time.Time
}

// NewTokenManager создаёт менеджер токенов. Пустой blacklist отключает отзыв.
func NewTokenManager(secret string, ttl time.Duration, blacklist Blacklist) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &TokenManager{
		secret:    []byte(secret),
		ttl:       ttl,
		blacklist: blacklist,
		now:       time.Now,
	}, nil
}

// Issue выпускает подписанный токен для пользователя.
func (m *TokenManager) Issue(u model.User) (Token, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	jti := uuid.NewString()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    issuer,
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	return Token{Value: signed, ID: jti, ExpiresAt: exp}, nil
}

// Parse проверяет подпись, срок действия и отзыв токена и возвращает его утверждения.
func (m *TokenManager) Parse(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.Role.IsValid() || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	if m.blacklist != nil {
		revoked, err := m.blacklist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// Revoke отзывает токен до окончания срока его действия.
func (m *TokenManager) Revoke(ctx context.Context, claims *Claims) error {
	if m.blacklist == nil || claims == nil || claims.ExpiresAt == nil {
		return nil
	}

	ttl := claims.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}

	if err := m.blacklist.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
