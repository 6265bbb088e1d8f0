package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func Sha256(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// URLKey is the cache key of a source URL; surrounding whitespace is not significant.
func URLKey(url string) string {
	return Sha256(strings.TrimSpace(url))
}
