package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateOpaqueToken returns a random hex string of byteLength random
// bytes. Used for invite tokens and temporary credentials.
func GenerateOpaqueToken(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
