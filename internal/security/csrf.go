package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	csrfTokenLength = 64
	csrfHalf        = csrfTokenLength / 2
)

// csrfMAC is the leading 32 hex characters of HMAC-SHA256(secret, nonce)
func csrfMAC(nonce, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))[:csrfHalf]
}

// GenerateCSRFToken issues a token of a random hex nonce followed by its MAC
func GenerateCSRFToken(secret string) (string, error) {
	nonce := make([]byte, csrfHalf/2)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate csrf nonce: %w", err)
	}
	n := hex.EncodeToString(nonce)
	return n + csrfMAC(n, secret), nil
}

// ValidateCSRFToken checks a 64 hex character token against secret. The MAC
// half is compared in constant time. Malformed input is invalid.
func ValidateCSRFToken(token, secret string) (valid bool) {
	defer func() {
		if recover() != nil {
			valid = false
		}
	}()

	if len(token) != csrfTokenLength || secret == "" {
		return false
	}
	if _, err := hex.DecodeString(token); err != nil {
		return false
	}

	nonce, given := token[:csrfHalf], token[csrfHalf:]
	expected := csrfMAC(nonce, secret)
	return hmac.Equal([]byte(given), []byte(expected))
}
