// Package models defines the persisted entity types managed by the
// Transdovic backoffice. Every entity carries a store-assigned uuid ID;
// a draft is the same struct with a zero-value ID.
package models

type User struct {
	ID            string `json:"id"`
	DNI           string `json:"dni"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Role          string `json:"role"`
	LicenseNumber string `json:"license_number"`
}
