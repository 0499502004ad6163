package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrNotConfigured = errors.New("dashboard auth is not configured")

// Credentials holds the single fixed operator login. When PasswordHash is
// set it takes precedence over the plaintext Password.
type Credentials struct {
	Username     string
	Password     string
	PasswordHash string
}

func (c Credentials) Configured() bool {
	return c.Username != "" && (c.Password != "" || c.PasswordHash != "")
}

// Check reports whether the supplied username/password pair matches.
// Plaintext comparison is constant-time.
func (c Credentials) Check(username, password string) (bool, error) {
	if !c.Configured() {
		return false, ErrNotConfigured
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1

	if c.PasswordHash != "" {
		err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return userOK, nil
	}

	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	return userOK && passOK, nil
}
