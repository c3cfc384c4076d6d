package auth

import (
	"context"
	"errors"
	"time"

	"github.com/transdovic/backoffice/internal/common"
	"github.com/transdovic/backoffice/internal/cryptox"
	"github.com/transdovic/backoffice/internal/server/models"
)

// AdminStore is the persistence surface the login flow needs.
type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
}

// Service authenticates backoffice operators.
type Service struct {
	admins        AdminStore
	secretKey     []byte
	tokenValidity time.Duration
}

func NewService(admins AdminStore, secretKey string, tokenValidity time.Duration) *Service {
	return &Service{
		admins:        admins,
		secretKey:     []byte(secretKey),
		tokenValidity: tokenValidity,
	}
}

// Login verifies the credentials and returns a signed token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	admin, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrUnauthorized
		}
		return "", err
	}

	if !cryptox.VerifyPassword([]byte(password), admin.Salt, admin.PasswordHash) {
		return "", common.ErrUnauthorized
	}

	return GenerateToken(admin.ID, s.secretKey, s.tokenValidity)
}

// Verify checks a bearer token and returns the admin id it belongs to.
func (s *Service) Verify(tokenString string) (string, error) {
	return GetAdminIDFromToken(tokenString, s.secretKey)
}
