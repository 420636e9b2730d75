// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

const randomCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateRandomString returns length alphanumeric characters from
// crypto/rand.
func GenerateRandomString(length int) (string, error) {
	b := make([]byte, length)
	limit := big.NewInt(int64(len(randomCharset)))

	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = randomCharset[n.Int64()]
	}

	return string(b), nil
}

// HashString is the hex SHA-256 of input.
func HashString(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
