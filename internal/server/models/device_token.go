package models

import "time"

// DeviceToken is a push-notification registration for one device.
type DeviceToken struct {
	ID           string    `json:"id"`
	Token        string    `json:"token"`
	Platform     string    `json:"platform"`
	RegisteredAt time.Time `json:"registered_at"`
}
