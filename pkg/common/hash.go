package common

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Sha256Hex is the unsalted digest used by legacy account rows.
func Sha256Hex(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// IsLegacyHash reports whether hash is a bare SHA-256 hex digest.
func IsLegacyHash(hash string) bool {
	if len(hash) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

// CheckPassword compares a password against a bcrypt or legacy SHA-256 hash.
func CheckPassword(hash, password string) bool {
	if IsLegacyHash(hash) {
		return subtle.ConstantTimeCompare([]byte(strings.ToLower(hash)), []byte(Sha256Hex(password))) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
