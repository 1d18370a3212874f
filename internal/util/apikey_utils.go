package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/vitoflow/metering-api/internal/domain/apikey"
)

func generateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func generateRandomString(length int) (string, error) {
	byteLength := (length*3 + 3) / 4
	b, err := generateRandomBytes(byteLength)
	if err != nil {
		return "", err
	}

	str := base64.URLEncoding.EncodeToString(b)
	str = strings.ReplaceAll(str, "-", "")
	str = strings.ReplaceAll(str, "_", "")
	if len(str) > length {
		return str[:length], nil
	}

	return str, nil
}

// GenerateAPIKey mints a key of the form "vito_{scope}_{random}". The
// scope segment is informational (it shows up in the visible prefix); the
// authoritative scope set lives on the key row.
func GenerateAPIKey(scope string) (fullKey string, prefix string, keyHash string, err error) {
	secret, err := generateRandomString(apikey.KeySecretLength)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate key secret: %w", err)
	}

	fullKey = fmt.Sprintf(apikey.KeyFormat, scope, secret)
	prefix = DeriveKeyPrefix(fullKey)
	keyHash = HashAPIKey(fullKey)

	return fullKey, prefix, keyHash, nil
}

// DeriveKeyPrefix returns the non-secret lookup prefix: the first
// KeyPrefixLength characters of the full key.
func DeriveKeyPrefix(fullKey string) string {
	if len(fullKey) <= apikey.KeyPrefixLength {
		return fullKey
	}
	return fullKey[:apikey.KeyPrefixLength]
}

// HashAPIKey returns the hex SHA-256 digest stored in place of the key.
func HashAPIKey(fullKey string) string {
	hashBytes := sha256.Sum256([]byte(fullKey))
	return fmt.Sprintf("%x", hashBytes)
}

// ValidKeyFormat rejects obviously malformed keys before any lookup:
// minimum length, "vito_" marker, and at least scope and secret segments.
func ValidKeyFormat(fullKey string) bool {
	if len(fullKey) < apikey.MinKeyLength {
		return false
	}
	if !strings.HasPrefix(fullKey, "vito_") {
		return false
	}
	return strings.Count(fullKey, "_") >= 2
}
