package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/erazemk/lostfound/internal/model"
)

// Credentials are the login form values.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration are the register form values.
type Registration struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// AuthResult is what login and register hand back. User may be nil when the
// backend only returned a token.
type AuthResult struct {
	User  *model.User
	Token string
}

// AuthService wraps the /auth endpoints. It keeps no state of its own.
type AuthService struct {
	Client *Client
}

// Login posts credentials to /auth/login.
func (s *AuthService) Login(ctx context.Context, c Credentials) (*AuthResult, error) {
	env, err := s.Client.Do(ctx, &Request{Method: http.MethodPost, Path: "/auth/login", JSON: c})
	if err != nil {
		return nil, err
	}
	return authResult(env)
}

// Register posts a new account to /auth/register.
func (s *AuthService) Register(ctx context.Context, r Registration) (*AuthResult, error) {
	env, err := s.Client.Do(ctx, &Request{Method: http.MethodPost, Path: "/auth/register", JSON: r})
	if err != nil {
		return nil, err
	}
	return authResult(env)
}

// CurrentUser fetches the profile belonging to token.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	env, err := s.Client.Do(ctx, &Request{Method: http.MethodGet, Path: "/auth/me", Token: token})
	if err != nil {
		return nil, err
	}
	if u, err := decodeUser(env.User); err == nil {
		return u, nil
	}
	u, err := decodeUser(env.Data)
	if err != nil {
		return nil, &Error{Kind: KindDecode, Status: env.Status, Message: "no user in response", Err: err}
	}
	return u, nil
}

// Logout invalidates token on the backend.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	_, err := s.Client.Do(ctx, &Request{Method: http.MethodPost, Path: "/auth/logout", Token: token})
	return err
}

func authResult(env *Envelope) (*AuthResult, error) {
	res := &AuthResult{Token: env.BearerToken()}
	if u, err := decodeUser(env.User); err == nil {
		res.User = u
	} else if u, err := decodeUser(env.Data); err == nil {
		res.User = u
	}
	if res.Token == "" && res.User == nil {
		return nil, &Error{Kind: KindDecode, Status: env.Status, Err: fmt.Errorf("response carries neither token nor user")}
	}
	return res, nil
}
