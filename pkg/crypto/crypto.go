package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt digest of the supplied password.
func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword reports whether the plaintext candidate matches the stored digest.
func VerifyPassword(digest, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// GenerateToken returns a random URL-safe token of the requested byte length.
func GenerateToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NumericCode returns a fixed-width numeric code with the given number of
// digits. Each of the 10^digits values is equally likely; leading zeros are
// preserved, so the result must be compared as a string.
func NumericCode(digits int) (string, error) {
	if digits <= 0 {
		return "", fmt.Errorf("crypto: code length must be positive, got %d", digits)
	}

	bound := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", fmt.Errorf("crypto: generate code: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}
