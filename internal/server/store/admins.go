package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/transdovic/backoffice/internal/common"
	"github.com/transdovic/backoffice/internal/dbx"
	"github.com/transdovic/backoffice/internal/server/models"
)

// AdminRepository stores backoffice operator accounts.
type AdminRepository struct {
	db dbx.DBTX
}

func NewAdminRepository(db dbx.DBTX) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	query := `SELECT id, username, password_hash, salt FROM admins WHERE username = $1`

	admin := &models.Admin{}
	err := r.db.QueryRowContext(ctx, query, username).
		Scan(&admin.ID, &admin.Username, &admin.PasswordHash, &admin.Salt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return admin, nil
}

func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) (*models.Admin, error) {
	query := `INSERT INTO admins (username, password_hash, salt)
		VALUES ($1, $2, $3) RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		admin.Username, admin.PasswordHash, admin.Salt).Scan(&admin.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return admin, nil
}
