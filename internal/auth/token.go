// Package auth issues and verifies the stateless session tokens that
// gate every write operation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"newsroom/internal/domain"
)

var (
	// ErrTokenExpired indicates the token's lifetime has elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed indicates the token could not be decoded at all.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenInvalid indicates a bad signature, missing claims, or a
	// revoked token.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the token payload: the registered claim set plus the identity
// fields authorization decisions need.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// TokenService signs and verifies session tokens with a symmetric secret.
// Tokens are self-contained; no server-side session state exists. An
// optional Revoker adds early invalidation on logout.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	revoker Revoker
}

// NewTokenService builds a TokenService. revoker may be nil, in which
// case logout cannot invalidate tokens before expiry.
func NewTokenService(secret []byte, ttl time.Duration, revoker Revoker) *TokenService {
	return &TokenService{secret: secret, ttl: ttl, revoker: revoker}
}

// Issue signs a token for the given user, valid for the configured TTL.
func (s *TokenService) Issue(user *domain.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded identity.
func (s *TokenService) Verify(ctx context.Context, tokenString string) (domain.Identity, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return domain.Identity{}, err
	}

	role := domain.Role(claims.Role)
	if claims.UserID == "" || !role.Valid() {
		return domain.Identity{}, ErrTokenInvalid
	}

	if s.revoker != nil && claims.ID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return domain.Identity{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return domain.Identity{}, ErrTokenInvalid
		}
	}

	return domain.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     role,
	}, nil
}

// Revoke denylists the token's jti for its remaining lifetime. Without a
// configured Revoker this is a no-op: the token stays valid until expiry.
func (s *TokenService) Revoke(ctx context.Context, tokenString string) error {
	if s.revoker == nil {
		return nil
	}

	claims, err := s.parse(tokenString)
	if err != nil {
		// Expired or garbage tokens have nothing left to revoke.
		return nil
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, remaining)
}

func (s *TokenService) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenInvalid
		}
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
