package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/transdovic/backoffice/internal/common"
	"github.com/transdovic/backoffice/internal/dbx"
	"github.com/transdovic/backoffice/internal/server/models"
)

// VehicleStore extends the vehicles gateway with a transactional delete:
// botiquin items carry a plain vehicle reference with no foreign key, so
// removing a vehicle must also release the items assigned to it.
type VehicleStore struct {
	*Table[models.Vehicle]
	db *sql.DB
}

func NewVehicleStore(db *sql.DB) *VehicleStore {
	return &VehicleStore{Table: VehicleTable(db), db: db}
}

// Delete removes the vehicle and clears its assignment from every
// botiquin item, atomically. A missing vehicle yields a RemoteError
// wrapping common.ErrNotFound and leaves the items untouched.
func (s *VehicleStore) Delete(ctx context.Context, id string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE botiquin_items SET vehicle_id = '' WHERE vehicle_id = $1`, id); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return common.ErrNotFound
		}
		return nil
	})
	if err != nil {
		var remote *common.RemoteError
		if errors.As(err, &remote) {
			return err
		}
		return s.remote("delete", err)
	}
	return nil
}
