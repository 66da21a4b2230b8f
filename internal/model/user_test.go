package model

import (
	"errors"
	"testing"
)

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		user     *User
		expected bool
	}{
		{&User{Role: RoleAdmin}, true},
		{&User{Role: RoleUser}, false},
		{&User{Role: ""}, false},
		{&User{Role: "Admin"}, false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := tt.user.IsAdmin(); got != tt.expected {
			t.Errorf("IsAdmin(%+v) = %v, want %v", tt.user, got, tt.expected)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrPasswordTooShort) {
			t.Errorf("ValidatePassword(%q) error = %v, want ErrPasswordTooShort", tt.password, err)
		}
	}
}
