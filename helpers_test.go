package oneblog_test

import (
	"os"
	"strings"
	"testing"

	oa "github.com/panyam/oneblog"
)

func TestMain(m *testing.M) {
	// full strength hashing makes every registration take a noticeable fraction of a second
	oa.PasswordIterations = 1000
	os.Exit(m.Run())
}

func TestPasswordHash(t *testing.T) {
	hash, err := oa.GeneratePasswordHash("password123")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if !strings.HasPrefix(hash, "pbkdf2:sha256:1000$") {
		t.Errorf("Unexpected hash encoding: %s", hash)
	}
	if strings.Contains(hash, "password123") {
		t.Error("Hash must not contain the plain text password")
	}
	if !oa.CheckPasswordHash(hash, "password123") {
		t.Error("Expected password to verify")
	}
	if oa.CheckPasswordHash(hash, "password124") {
		t.Error("Expected wrong password to fail")
	}

	other, _ := oa.GeneratePasswordHash("password123")
	if other == hash {
		t.Error("Expected different salts to give different hashes")
	}
}

func TestCheckPasswordHashRejectsMalformed(t *testing.T) {
	for _, hash := range []string{
		"",
		"password123",
		"pbkdf2:sha256:1000$salt",
		"pbkdf2:sha1:1000$salt$abcd",
		"pbkdf2:sha256:zero$salt$abcd",
		"pbkdf2:sha256:1000$salt$not-hex",
		"pbkdf2:sha256:-5$salt$abcd",
	} {
		if oa.CheckPasswordHash(hash, "password123") {
			t.Errorf("Expected %q not to verify", hash)
		}
	}
}

// Same encoding werkzeug's generate_password_hash produces, so existing hashes keep verifying.
func TestCheckPasswordHashKnownVector(t *testing.T) {
	hash := "pbkdf2:sha256:1000$abcdefghijklmnop$c6a5a2d018318b69cd438412fd505718c5c15ef312286b2f0d5082de96968666"
	if !oa.CheckPasswordHash(hash, "secret") {
		t.Error("Expected known vector to verify")
	}
}
