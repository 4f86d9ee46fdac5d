package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pairbook/core/internal/infrastructure/config"
)

// ErrInvalidToken is returned when a pairing token fails validation.
var ErrInvalidToken = errors.New("invalid pairing token")

// PairingClaims are the claims carried by a pairing token: which user is
// speaking and which pairing they belong to.
type PairingClaims struct {
	UserID    string `json:"user_id"`
	PairingID string `json:"pairing_id"`
	jwt.RegisteredClaims
}

// TokenService issues and validates the signed bearer tokens that scope
// every API call to a pairing.
type TokenService struct {
	cfg config.AuthConfig
}

// NewTokenService creates a new token service.
func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{cfg: cfg}
}

// Issue signs a token binding the user to the pairing.
func (s *TokenService) Issue(userID, pairingID string) (string, error) {
	now := time.Now()
	claims := PairingClaims{
		UserID:    userID,
		PairingID: pairingID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ExpiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign pairing token: %w", err)
	}
	return signed, nil
}

// Validate parses a token and returns its claims.
func (s *TokenService) Validate(tokenString string) (*PairingClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &PairingClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*PairingClaims)
	if !ok || !token.Valid || claims.UserID == "" || claims.PairingID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
