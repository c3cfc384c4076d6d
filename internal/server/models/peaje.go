package models

import "github.com/shopspring/decimal"

// Peaje is a toll point on a freight route.
type Peaje struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Cost      decimal.Decimal `json:"cost"`
	RouteName string          `json:"route_name"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
}
