// Package auth issues and verifies the JWTs that guard the backoffice
// API, and checks admin credentials against the store.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/transdovic/backoffice/internal/common"
)

// Claims carries the standard registered claims plus the admin account id.
type Claims struct {
	jwt.RegisteredClaims
	AdminID string
}

// GenerateToken signs an HS256 token for adminID valid for
// validityDuration.
func GenerateToken(adminID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		AdminID: adminID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// GetAdminIDFromToken verifies tokenString and returns the admin id it
// was issued for. Any parse, signature or expiry failure maps onto
// common.ErrInvalidToken.
func GetAdminIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", common.ErrInvalidToken
	}
	if !token.Valid {
		return "", common.ErrInvalidToken
	}
	return claims.AdminID, nil
}
