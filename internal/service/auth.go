package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
)

const tokenTTL = 24 * time.Hour

var ErrEmptySecret = errors.New("jwt secret key is empty")

type AuthService interface {
	// GenerateToken signs a token whose subject is the player id.
	GenerateToken(playerID string) (string, error)
	// ParseToken returns the player id of a valid token.
	ParseToken(token string) (string, error)
	// NewGuest issues an identity for a player without an account.
	NewGuest() (playerID, token string, err error)
}

type authServiceImpl struct {
	secretKey []byte
	now       func() time.Time
}

func NewAuthService(secretKey string) (AuthService, error) {
	if secretKey == "" {
		return nil, ErrEmptySecret
	}

	return &authServiceImpl{
		secretKey: []byte(secretKey),
		now:       time.Now,
	}, nil
}

func (that *authServiceImpl) GenerateToken(playerID string) (string, error) {
	if playerID == "" {
		return "", apperror.ErrInvalidInput
	}

	now := that.now()
	claims := jwt.RegisteredClaims{
		Subject:   playerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(that.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (that *authServiceImpl) ParseToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return that.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(that.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperror.ErrNotAuthenticated, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", apperror.ErrNotAuthenticated)
	}

	return claims.Subject, nil
}

func (that *authServiceImpl) NewGuest() (string, string, error) {
	playerID := "guest-" + uuid.NewString()

	token, err := that.GenerateToken(playerID)
	if err != nil {
		return "", "", err
	}

	return playerID, token, nil
}
