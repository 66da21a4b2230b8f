package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Keys are the purpose-bound keys derived from the process master secret.
type Keys struct {
	// Cookie signs the browser session JWT.
	Cookie []byte
	// Seal encrypts API tokens at rest.
	Seal [32]byte
	// FlashHash and FlashBlock authenticate and encrypt the flash cookie.
	FlashHash  []byte
	FlashBlock []byte
}

// DeriveKeys expands the master secret into independent keys with HKDF-SHA256.
func DeriveKeys(master []byte) (*Keys, error) {
	if len(master) < 16 {
		return nil, errors.New("master secret too short")
	}

	k := &Keys{}
	var err error
	if k.Cookie, err = expand(master, "lostfound session cookie", 32); err != nil {
		return nil, err
	}
	seal, err := expand(master, "lostfound token seal", 32)
	if err != nil {
		return nil, err
	}
	copy(k.Seal[:], seal)
	if k.FlashHash, err = expand(master, "lostfound flash hash", 32); err != nil {
		return nil, err
	}
	if k.FlashBlock, err = expand(master, "lostfound flash block", 32); err != nil {
		return nil, err
	}
	return k, nil
}

func expand(master []byte, info string, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), out); err != nil {
		return nil, fmt.Errorf("deriving %s key: %w", info, err)
	}
	return out, nil
}
