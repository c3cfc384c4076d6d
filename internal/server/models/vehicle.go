package models

import "time"

type Vehicle struct {
	ID         string    `json:"id"`
	Plate      string    `json:"plate"`
	Brand      string    `json:"brand"`
	Model      string    `json:"model"`
	Year       int       `json:"year"`
	CapacityKg int       `json:"capacity_kg"`
	SoatExpiry time.Time `json:"soat_expiry"`
}
