package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Servicio is a freight service: one trip from an origin farm to a
// destination farm with an assigned vehicle and driver.
type Servicio struct {
	ID                string          `json:"id"`
	Date              time.Time       `json:"date"`
	OriginFarmID      string          `json:"origin_farm_id"`
	DestinationFarmID string          `json:"destination_farm_id"`
	VehicleID         string          `json:"vehicle_id"`
	DriverID          string          `json:"driver_id"`
	Status            string          `json:"status"`
	FreightAmount     decimal.Decimal `json:"freight_amount"`
}
