package auth

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKeysDistinct(t *testing.T) {
	keys, err := DeriveKeys([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("DeriveKeys: %v", err)
	}

	if bytes.Equal(keys.Cookie, keys.Seal[:]) {
		t.Error("cookie and seal keys must differ")
	}
	if bytes.Equal(keys.FlashHash, keys.FlashBlock) {
		t.Error("flash keys must differ")
	}

	again, _ := DeriveKeys([]byte("0123456789abcdef0123456789abcdef"))
	if !bytes.Equal(keys.Cookie, again.Cookie) {
		t.Error("derivation must be deterministic")
	}
}

func TestDeriveKeysShortSecret(t *testing.T) {
	if _, err := DeriveKeys([]byte("short")); err == nil {
		t.Error("expected error for short master secret")
	}
}

func TestSealRoundTrip(t *testing.T) {
	keys, _ := DeriveKeys([]byte("0123456789abcdef0123456789abcdef"))
	s := NewSealer(keys.Seal)

	sealed, err := s.Seal([]byte("api-token"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("api-token")) {
		t.Error("sealed value contains plaintext")
	}

	plain, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(plain) != "api-token" {
		t.Errorf("expected 'api-token', got %q", plain)
	}
}

func TestOpenTampered(t *testing.T) {
	keys, _ := DeriveKeys([]byte("0123456789abcdef0123456789abcdef"))
	s := NewSealer(keys.Seal)

	sealed, _ := s.Seal([]byte("api-token"))
	sealed[len(sealed)-1] ^= 0xff

	if _, err := s.Open(sealed); !errors.Is(err, ErrUnseal) {
		t.Errorf("expected ErrUnseal, got %v", err)
	}
	if _, err := s.Open([]byte("tiny")); !errors.Is(err, ErrUnseal) {
		t.Errorf("expected ErrUnseal for short input, got %v", err)
	}
}

func TestOpenWrongKey(t *testing.T) {
	k1, _ := DeriveKeys([]byte("0123456789abcdef0123456789abcdef"))
	k2, _ := DeriveKeys([]byte("fedcba9876543210fedcba9876543210"))

	sealed, _ := NewSealer(k1.Seal).Seal([]byte("api-token"))
	if _, err := NewSealer(k2.Seal).Open(sealed); err == nil {
		t.Error("expected error opening with a different key")
	}
}
