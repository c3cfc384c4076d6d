package store

import (
	"context"
	"fmt"

	"github.com/transdovic/backoffice/internal/dbx"
	"github.com/transdovic/backoffice/internal/server/models"
)

// DeviceTokenRepository stores push-notification registrations. Registering
// an already-known token refreshes its platform and timestamp.
type DeviceTokenRepository struct {
	db dbx.DBTX
}

func NewDeviceTokenRepository(db dbx.DBTX) *DeviceTokenRepository {
	return &DeviceTokenRepository{db: db}
}

func (r *DeviceTokenRepository) Register(ctx context.Context, token, platform string) (*models.DeviceToken, error) {
	query := `
		INSERT INTO device_tokens (token, platform)
		VALUES ($1, $2)
		ON CONFLICT (token)
		DO UPDATE SET platform = EXCLUDED.platform, registered_at = now()
		RETURNING id, token, platform, registered_at`

	dt := &models.DeviceToken{}
	err := r.db.QueryRowContext(ctx, query, token, platform).
		Scan(&dt.ID, &dt.Token, &dt.Platform, &dt.RegisteredAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return dt, nil
}

func (r *DeviceTokenRepository) List(ctx context.Context) ([]models.DeviceToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, token, platform, registered_at FROM device_tokens ORDER BY registered_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.DeviceToken
	for rows.Next() {
		var dt models.DeviceToken
		if err := rows.Scan(&dt.ID, &dt.Token, &dt.Platform, &dt.RegisteredAt); err != nil {
			return nil, err
		}
		result = append(result, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
