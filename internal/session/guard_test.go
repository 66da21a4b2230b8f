package session

import (
	"testing"

	"github.com/erazemk/lostfound/internal/model"
)

func TestDecide(t *testing.T) {
	user := &model.User{ID: 1, Role: model.RoleUser}
	admin := &model.User{ID: 2, Role: model.RoleAdmin}

	tests := []struct {
		name      string
		session   *Session
		adminOnly bool
		want      Decision
	}{
		{"nil session", nil, false, RedirectLogin},
		{"loading", &Session{state: StateLoading}, false, Loading},
		{"loading admin page", &Session{state: StateLoading}, true, Loading},
		{"anonymous", &Session{state: StateUnauthenticated}, false, RedirectLogin},
		{"user", &Session{state: StateAuthenticated, user: user}, false, Allow},
		{"user on admin page", &Session{state: StateAuthenticated, user: user}, true, Forbidden},
		{"admin on admin page", &Session{state: StateAuthenticated, user: admin}, true, Allow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.session, tt.adminOnly); got != tt.want {
				t.Errorf("Decide() = %s, want %s", got, tt.want)
			}
		})
	}
}
