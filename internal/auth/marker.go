package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CookieName is the http-only session marker that gates the dashboard.
const CookieName = "dashboard_auth"

type Marker struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"`
}

var (
	ErrInvalidMarker = errors.New("invalid auth marker")
	ErrExpiredMarker = errors.New("expired auth marker")
)

// IssueMarker signs a session marker for the given subject. The format is
// base64url(payload) + "." + base64url(hmac-sha256(payload)).
func IssueMarker(secret []byte, subject string, expiresAt time.Time) (string, error) {
	payloadBytes, err := json.Marshal(Marker{Sub: subject, Exp: expiresAt.Unix()})
	if err != nil {
		return "", fmt.Errorf("marshal marker: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	return payload + "." + sign(secret, payload), nil
}

func VerifyMarker(secret []byte, token string) (Marker, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return Marker{}, ErrInvalidMarker
	}
	payload := parts[0]
	signature := parts[1]

	expected := sign(secret, payload)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return Marker{}, ErrInvalidMarker
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Marker{}, ErrInvalidMarker
	}

	var marker Marker
	if err := json.Unmarshal(decoded, &marker); err != nil {
		return Marker{}, ErrInvalidMarker
	}
	if marker.Sub == "" || marker.Exp == 0 {
		return Marker{}, ErrInvalidMarker
	}
	if time.Now().Unix() >= marker.Exp {
		return Marker{}, ErrExpiredMarker
	}
	return marker, nil
}

func sign(secret []byte, payload string) string {
	sum := hmac.New(sha256.New, secret)
	_, _ = sum.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(sum.Sum(nil))
}
