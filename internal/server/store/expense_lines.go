package store

import (
	"context"
	"fmt"

	"github.com/transdovic/backoffice/internal/common"
	"github.com/transdovic/backoffice/internal/dbx"
	"github.com/transdovic/backoffice/internal/server/models"
)

// ExpenseLineRepository persists expense vouchers under their parent
// servicio. Lines are append-and-delete only, matching the draft workflow.
type ExpenseLineRepository struct {
	db dbx.DBTX
}

func NewExpenseLineRepository(db dbx.DBTX) *ExpenseLineRepository {
	return &ExpenseLineRepository{db: db}
}

// ListByServicio returns all lines of one servicio in insertion order.
func (r *ExpenseLineRepository) ListByServicio(ctx context.Context, servicioID string) ([]models.ExpenseLine, error) {
	query := `SELECT id, servicio_id, amount, document_number, voucher_url
		FROM expense_lines WHERE servicio_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, servicioID)
	if err != nil {
		return nil, common.NewRemoteError(fmt.Sprintf("select expense_lines: %v", err), err)
	}
	defer rows.Close()

	var result []models.ExpenseLine
	for rows.Next() {
		var l models.ExpenseLine
		if err := rows.Scan(&l.ID, &l.ServicioID, &l.Amount, &l.DocumentNumber, &l.VoucherURL); err != nil {
			return nil, common.NewRemoteError(fmt.Sprintf("select expense_lines: %v", err), err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewRemoteError(fmt.Sprintf("select expense_lines: %v", err), err)
	}
	return result, nil
}

// Insert persists one line and returns it with the store-assigned id.
func (r *ExpenseLineRepository) Insert(ctx context.Context, line models.ExpenseLine) (models.ExpenseLine, error) {
	query := `INSERT INTO expense_lines (servicio_id, amount, document_number, voucher_url)
		VALUES ($1, $2, $3, $4) RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		line.ServicioID, line.Amount, line.DocumentNumber, line.VoucherURL).Scan(&line.ID)
	if err != nil {
		return models.ExpenseLine{}, common.NewRemoteError(fmt.Sprintf("insert expense_lines: %v", err), err)
	}
	return line, nil
}

// Delete removes one line by id. Deleting an unknown id is not an error.
func (r *ExpenseLineRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM expense_lines WHERE id = $1`, id)
	if err != nil {
		return common.NewRemoteError(fmt.Sprintf("delete expense_lines: %v", err), err)
	}
	return nil
}
