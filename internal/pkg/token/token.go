package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewPublicToken generates the 32-character hex token printed into a QR code.
// It is the only identifier guests ever see, so it must not be guessable.
func NewPublicToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate public token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
