package user

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Service defines the interface for user-related business logic.
type Service interface {
	RegisterUser(ctx context.Context, req RegisterRequest) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
}

// RegisterRequest is the sign-up payload. New accounts are always customers.
// The email is trimmed and lower-cased before the tags are checked.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
