package models

import "github.com/shopspring/decimal"

// ExpenseLine is one persisted expense voucher attached to a servicio.
type ExpenseLine struct {
	ID             string          `json:"id"`
	ServicioID     string          `json:"servicio_id"`
	Amount         decimal.Decimal `json:"amount"`
	DocumentNumber string          `json:"document_number"`
	VoucherURL     string          `json:"voucher_url,omitempty"`
}
