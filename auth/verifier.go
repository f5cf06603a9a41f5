package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// DeriveKey returns the HMAC key for login assertions, the SHA-256 digest of the bot credential.
func DeriveKey(secret []byte) []byte {
	sum := sha256.Sum256(secret)
	return sum[:]
}

// CheckString builds the canonical payload: "key=value" lines sorted by key and joined with "\n".
func CheckString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}
	return strings.Join(lines, "\n")
}

// Sign returns the lowercase hex HMAC-SHA256 of the check string for fields.
func Sign(fields map[string]string, secret []byte) string {
	mac := hmac.New(sha256.New, DeriveKey(secret))
	mac.Write([]byte(CheckString(fields)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether providedHash is the signature of fields under secret.
// It fails closed: an empty hash never verifies.
func Verify(fields map[string]string, providedHash string, secret []byte) bool {
	if providedHash == "" {
		return false
	}
	expected := Sign(fields, secret)
	return hmac.Equal([]byte(expected), []byte(providedHash))
}
