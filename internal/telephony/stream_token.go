package telephony

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// DefaultStreamTokenTTL bounds how long a stream URL stays usable.
const DefaultStreamTokenTTL = 3 * time.Minute

var (
	ErrInvalidStreamToken = errors.New("invalid stream token")
	ErrExpiredStreamToken = errors.New("expired stream token")
)

func signStream(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// NewStreamToken binds a media stream connection to callSid until expires.
// The token has the form callSid|expiryMillis|signature.
func NewStreamToken(secret, callSid string, expires time.Time) string {
	payload := callSid + "|" + strconv.FormatInt(expires.UnixMilli(), 10)
	return payload + "|" + signStream(secret, payload)
}

// VerifyStreamToken checks a token and returns the call it was issued for.
func VerifyStreamToken(secret, token string, now time.Time) (string, error) {
	parts := strings.SplitN(token, "|", 3)
	if len(parts) != 3 || parts[0] == "" {
		return "", ErrInvalidStreamToken
	}
	expiresMs, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", ErrInvalidStreamToken
	}
	expected := signStream(secret, parts[0]+"|"+parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return "", ErrInvalidStreamToken
	}
	if now.UnixMilli() > expiresMs {
		return "", ErrExpiredStreamToken
	}
	return parts[0], nil
}
