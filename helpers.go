package oneblog

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultPasswordIterations matches the work factor werkzeug uses for pbkdf2:sha256
	DefaultPasswordIterations = 600000

	passwordSaltLength = 16
	passwordHashMethod = "pbkdf2:sha256"
	saltChars          = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// PasswordIterations is the PBKDF2 iteration count used for new hashes.
// Existing hashes keep the count they were created with.
var PasswordIterations = DefaultPasswordIterations

// GeneratePasswordHash hashes password with a random salt.
// The result has the form "pbkdf2:sha256:<iterations>$<salt>$<hex digest>".
func GeneratePasswordHash(password string) (string, error) {
	salt, err := generateSalt(passwordSaltLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	digest := pbkdf2.Key([]byte(password), []byte(salt), PasswordIterations, sha256.Size, sha256.New)
	return fmt.Sprintf("%s:%d$%s$%s", passwordHashMethod, PasswordIterations, salt, hex.EncodeToString(digest)), nil
}

// CheckPasswordHash reports whether password matches an encoded hash from
// GeneratePasswordHash. Empty or malformed hashes never match.
func CheckPasswordHash(encoded, password string) bool {
	method, salt, digestHex, ok := splitPasswordHash(encoded)
	if !ok {
		return false
	}
	parts := strings.Split(method, ":")
	if len(parts) != 3 || parts[0] != "pbkdf2" || parts[1] != "sha256" {
		return false
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return false
	}
	expected, err := hex.DecodeString(digestHex)
	if err != nil || len(expected) == 0 {
		return false
	}
	actual := pbkdf2.Key([]byte(password), []byte(salt), iterations, len(expected), sha256.New)
	return hmac.Equal(actual, expected)
}

func splitPasswordHash(encoded string) (method, salt, digest string, ok bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

func generateSalt(n int) (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(saltChars)))
	for range n {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(saltChars[idx.Int64()])
	}
	return sb.String(), nil
}
