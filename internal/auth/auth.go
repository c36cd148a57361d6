// Package auth resolves drivers and dispatchers from the credentials held in the
// synced collections. It only reads; nothing here writes back.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"haulr-dispatch/internal/models"
)

// ErrInvalidCredentials is returned when no active driver matches
var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	RoleDriver     = "driver"
	RoleDispatcher = "dispatcher"
)

// IsHashed reports whether a stored pin is a bcrypt hash rather than plain digits
func IsHashed(pin string) bool {
	return strings.HasPrefix(pin, "$2a$") || strings.HasPrefix(pin, "$2b$") || strings.HasPrefix(pin, "$2y$")
}

// HashPin returns the bcrypt hash of pin for storage
func HashPin(pin string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPin compares a submitted pin with the stored one
func CheckPin(stored, submitted string) bool {
	if stored == "" || submitted == "" {
		return false
	}
	if IsHashed(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(submitted)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}

// DriverByCredentials finds the active driver with username and pin. Usernames
// compare case-insensitively.
func DriverByCredentials(drivers []models.Driver, username, pin string) (models.Driver, error) {
	username = strings.TrimSpace(username)
	for _, d := range drivers {
		if !d.Active || !strings.EqualFold(d.Username, username) {
			continue
		}
		if CheckPin(d.Pin, pin) {
			return d, nil
		}
		break
	}
	return models.Driver{}, ErrInvalidCredentials
}

// DriverByQR finds the active driver whose badge carries token
func DriverByQR(drivers []models.Driver, token string) (models.Driver, error) {
	if token == "" {
		return models.Driver{}, ErrInvalidCredentials
	}
	for _, d := range drivers {
		if d.Active && d.QRToken != "" && subtle.ConstantTimeCompare([]byte(d.QRToken), []byte(token)) == 1 {
			return d, nil
		}
	}
	return models.Driver{}, ErrInvalidCredentials
}

// IsDispatcherQR reports whether token is the dispatcher login code
func IsDispatcherQR(settings *models.DispatcherSettings, token string) bool {
	if settings == nil || settings.QRToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(settings.QRToken), []byte(token)) == 1
}
