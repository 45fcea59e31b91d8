package cancel

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptySecret is returned when hashing an empty secret
var ErrEmptySecret = errors.New("secret can not be empty")

// HashSecret will generate a secret hash
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	h, err := bcrypt.GenerateFromPassword([]byte(secret), secretHashCost())
	return string(h), err
}

// RotateSecret replaces the account secret hash. Every confirmation token
// issued before the rotation stops validating.
func RotateSecret(account *Account, secret string) error {
	hash, err := HashSecret(secret)
	if err != nil {
		return err
	}
	account.SecretHash = hash
	return nil
}

// TrackLogin records a successful login. Like RotateSecret it invalidates
// outstanding cancellation links.
func TrackLogin(account *Account, at time.Time) {
	at = at.Truncate(time.Second)
	account.LastLoginAt = &at
}
