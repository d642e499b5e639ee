// Package webhook verifies and normalizes Meta Graph webhook deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the HMAC of the raw request body
const SignatureHeader = "X-Hub-Signature-256"

const signaturePrefix = "sha256="

var (
	ErrSecretNotConfigured = errors.New("webhook secret not configured")
	ErrMissingSignature    = errors.New("missing signature header")
	ErrMalformedSignature  = errors.New("malformed signature header")
	ErrSignatureMismatch   = errors.New("signature mismatch")
)

// VerifySignature checks header against HMAC-SHA256(secret, body).
// It fails closed: an empty secret never verifies.
func VerifySignature(secret string, body []byte, header string) error {
	if secret == "" {
		return ErrSecretNotConfigured
	}
	if header == "" {
		return ErrMissingSignature
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return ErrMalformedSignature
	}

	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil || len(got) != sha256.Size {
		return ErrMalformedSignature
	}

	if !hmac.Equal(got, Sign(secret, body)) {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign returns the raw HMAC-SHA256 of body
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// SignatureHeaderValue formats the header value for body, as the platform sends it
func SignatureHeaderValue(secret string, body []byte) string {
	return signaturePrefix + hex.EncodeToString(Sign(secret, body))
}

// IsAuthError reports whether err should be answered with 401 rather than 403
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingSignature) || errors.Is(err, ErrMalformedSignature)
}

// Handshake validates a subscription verification request and returns the
// challenge to echo back
func Handshake(verifyToken, mode, token, challenge string) (string, bool) {
	if verifyToken == "" || mode != "subscribe" {
		return "", false
	}
	if !hmac.Equal([]byte(token), []byte(verifyToken)) {
		return "", false
	}
	return challenge, true
}
