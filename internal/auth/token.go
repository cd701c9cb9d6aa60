package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/staypay-jp/core/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Username      string `json:"username"`
	Role          string `json:"role"`
	WalletAddress string `json:"wallet"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies the HMAC-signed bearer tokens carrying
// the actor identity.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

func (m *TokenManager) Issue(id Identity) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Username:      id.Username,
		Role:          string(id.Role),
		WalletAddress: id.WalletAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) Verify(token string) (*Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Identity{
		UserID:        userID,
		Username:      claims.Username,
		Role:          model.Role(claims.Role),
		WalletAddress: claims.WalletAddress,
	}, nil
}
