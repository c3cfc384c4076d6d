package models

// Admin is a backoffice operator account. PasswordHash and Salt are never
// serialized to the API.
type Admin struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash []byte `json:"-"`
	Salt         []byte `json:"-"`
}
