package service

import (
	"crypto/rand"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// passwordSymbols the fixed punctuation set accepted by the strength policy.
const passwordSymbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// temporaryPasswordAlphabet characters drawn for generated temporary passwords.
// Deliberately a subset of passwordSymbols so every generated password passes
// the strength policy.
const temporaryPasswordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%"

// DefaultTemporaryPasswordLength length of admin-issued temporary passwords.
const DefaultTemporaryPasswordLength = 12

// ValidatePasswordStrength checks the password policy: minimum 8 characters with
// at least one uppercase letter, one lowercase letter, one digit and one symbol.
// Returns ok plus a human-readable reason on failure.
func ValidatePasswordStrength(password string) (bool, string) {
	if len(password) < 8 {
		return false, "password must be at least 8 characters long"
	}

	var upper, lower, digit, symbol bool
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= '0' && c <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, c):
			symbol = true
		}
	}

	switch {
	case !upper:
		return false, "password must contain at least one uppercase letter"
	case !lower:
		return false, "password must contain at least one lowercase letter"
	case !digit:
		return false, "password must contain at least one digit"
	case !symbol:
		return false, "password must contain at least one special character"
	}
	return true, ""
}

// GenerateTemporaryPassword draws length characters uniformly from the temporary
// password alphabet using crypto/rand. The result is regenerated until it passes
// the strength policy, so callers can hand it out unchecked.
func GenerateTemporaryPassword(length int) (string, error) {
	if length <= 0 {
		length = DefaultTemporaryPasswordLength
	}
	max := big.NewInt(int64(len(temporaryPasswordAlphabet)))
	for {
		var b strings.Builder
		b.Grow(length)
		for i := 0; i < length; i++ {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", err
			}
			b.WriteByte(temporaryPasswordAlphabet[n.Int64()])
		}
		pw := b.String()
		if ok, _ := ValidatePasswordStrength(pw); ok {
			return pw, nil
		}
		// Uniform draw can miss a character class; retry is cheap and unbiased.
	}
}

// HashPassword bcrypt-hashes a plaintext secret for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext secret matches the stored hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
