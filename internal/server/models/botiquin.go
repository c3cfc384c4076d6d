package models

import "time"

// BotiquinItem is one item of a vehicle's medical kit inventory.
type BotiquinItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	ExpiryDate time.Time `json:"expiry_date"`
	VehicleID  string    `json:"vehicle_id"`
}
