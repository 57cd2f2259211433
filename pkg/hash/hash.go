// Package hash signs and verifies message bodies with HMAC-SHA256.
package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ComputeHash returns the hex encoded HMAC-SHA256 of data under key, or ""
// when key is empty.
//
// Example:
//
//	body := []byte(`{"temperature":21.5}`)
//	req.Header.Set("HashSHA256", hash.ComputeHash(body, key))
func ComputeHash(data []byte, key string) string {
	if key == "" {
		return ""
	}
	h := hmac.New(sha256.New, []byte(key))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ValidateHash reports whether receivedHash signs data under key. Any hash is
// accepted when key is empty; a missing hash never is.
func ValidateHash(data []byte, key string, receivedHash string) bool {
	if key == "" {
		return true
	}
	if receivedHash == "" {
		return false
	}
	return hmac.Equal([]byte(ComputeHash(data, key)), []byte(receivedHash))
}
