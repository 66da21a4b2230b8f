package auth

import (
	"testing"
	"time"
)

var testSecret = []byte("test-secret-key")

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(testSecret, "sid-1", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ValidateToken(testSecret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.SessionID != "sid-1" {
		t.Errorf("expected sid 'sid-1', got %q", claims.SessionID)
	}
}

func TestGenerateTokenEmptySession(t *testing.T) {
	if _, err := GenerateToken(testSecret, "", time.Hour); err == nil {
		t.Error("expected error for empty session id")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _ := GenerateToken([]byte("secret1"), "sid", time.Hour)

	if _, err := ValidateToken([]byte("secret2"), token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	if _, err := ValidateToken(testSecret, "not-a-token"); err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	token, _ := GenerateToken(testSecret, "sid", time.Nanosecond)
	time.Sleep(1100 * time.Millisecond)

	if _, err := ValidateToken(testSecret, token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestTokenDefaultExpiry(t *testing.T) {
	token, _ := GenerateToken(testSecret, "sid", 0)
	claims, err := ValidateToken(testSecret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	expectedExpiry := time.Now().Add(DefaultSessionTTL)
	diff := expectedExpiry.Sub(claims.ExpiresAt.Time)
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}
