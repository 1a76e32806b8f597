package auth

import (
	"context"
	"errors"

	"github.com/dgrijalva/jwt-go"
	"github.com/georgemunganga/shopfront-backend/internal/modules/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Service defines the interface for authentication-related business logic.
type Service interface {
	Login(ctx context.Context, email, password string) (*Token, error)
	ParseToken(tokenString string) (*Claims, error)
}

// Token is returned to the client after a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Claims are the JWT claims issued by this API. Subject holds the user id.
type Claims struct {
	Role user.Role `json:"role"`
	jwt.StandardClaims
}
