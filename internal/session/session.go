// Package session holds the authentication state of one browser session for
// the duration of a request.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/erazemk/lostfound/internal/apiclient"
	"github.com/erazemk/lostfound/internal/model"
)

var (
	// ErrPasswordMismatch is returned by Register before any backend call.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrNoToken means the backend accepted the credentials but issued no token.
	ErrNoToken = errors.New("backend issued no token")
)

// TokenStore persists API tokens by browser session id. Get returns "" when
// there is no token.
type TokenStore interface {
	Get(ctx context.Context, sessionID string) (string, error)
	Put(ctx context.Context, sessionID, token string) error
	Delete(ctx context.Context, sessionID string) error
}

// Authenticator is the subset of the auth API a session needs.
type Authenticator interface {
	Login(ctx context.Context, c apiclient.Credentials) (*apiclient.AuthResult, error)
	Register(ctx context.Context, r apiclient.Registration) (*apiclient.AuthResult, error)
	CurrentUser(ctx context.Context, token string) (*model.User, error)
	Logout(ctx context.Context, token string) error
}

// State is where a session is in its lifecycle.
type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Manager creates sessions. It is built once at startup and shared.
type Manager struct {
	Tokens TokenStore
	Auth   Authenticator
	// NewID allocates browser session ids. Defaults to random UUIDs.
	NewID func() string
}

// New returns a session for the given browser session id ("" for none).
// The session starts in StateLoading until Init runs.
func (m *Manager) New(sessionID string) *Session {
	return &Session{m: m, id: sessionID, state: StateLoading}
}

func (m *Manager) newID() string {
	if m.NewID != nil {
		return m.NewID()
	}
	return uuid.NewString()
}

// Session is the authentication context of one request. It is not safe for
// concurrent use.
type Session struct {
	m           *Manager
	id          string
	state       State
	user        *model.User
	token       string
	initialized bool
}

// Init resolves the stored token into a user. Without a session id or a
// stored token no backend call is made. A token the backend does not accept
// is deleted. Only the first call does any work.
func (s *Session) Init(ctx context.Context) error {
	if s.initialized {
		return nil
	}
	s.initialized = true

	if s.id == "" {
		s.reset()
		return nil
	}

	token, err := s.m.Tokens.Get(ctx, s.id)
	if err != nil {
		s.reset()
		return fmt.Errorf("loading session token: %w", err)
	}
	if token == "" {
		s.reset()
		return nil
	}

	user, err := s.m.Auth.CurrentUser(ctx, token)
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Msg("stored token rejected, clearing")
		s.reset()
		if derr := s.m.Tokens.Delete(ctx, s.id); derr != nil {
			return fmt.Errorf("clearing session token: %w", derr)
		}
		return nil
	}

	s.token = token
	s.user = user
	s.state = StateAuthenticated
	return nil
}

// Login authenticates with the backend and stores the issued token. On
// failure the session is left as it was.
func (s *Session) Login(ctx context.Context, email, password string) error {
	res, err := s.m.Auth.Login(ctx, apiclient.Credentials{Email: email, Password: password})
	if err != nil {
		return err
	}
	return s.establish(ctx, res)
}

// Register creates an account and signs it in. Mismatched or too short
// passwords are rejected locally.
func (s *Session) Register(ctx context.Context, name, email, password, confirmation string) error {
	if password != confirmation {
		return ErrPasswordMismatch
	}
	if err := model.ValidatePassword(password); err != nil {
		return err
	}
	res, err := s.m.Auth.Register(ctx, apiclient.Registration{
		Name:                 name,
		Email:                email,
		Password:             password,
		PasswordConfirmation: confirmation,
	})
	if err != nil {
		return err
	}
	return s.establish(ctx, res)
}

func (s *Session) establish(ctx context.Context, res *apiclient.AuthResult) error {
	if res.Token == "" {
		return ErrNoToken
	}

	user := res.User
	if user == nil {
		u, err := s.m.Auth.CurrentUser(ctx, res.Token)
		if err != nil {
			return err
		}
		user = u
	}

	id := s.id
	if id == "" {
		id = s.m.newID()
	}
	if err := s.m.Tokens.Put(ctx, id, res.Token); err != nil {
		return fmt.Errorf("storing session token: %w", err)
	}

	s.id = id
	s.token = res.Token
	s.user = user
	s.state = StateAuthenticated
	s.initialized = true
	return nil
}

// Logout tells the backend, forgets the token and resets the session. The
// backend call is best effort.
func (s *Session) Logout(ctx context.Context) {
	log := zerolog.Ctx(ctx)
	if s.token != "" {
		if err := s.m.Auth.Logout(ctx, s.token); err != nil {
			log.Warn().Err(err).Msg("backend logout failed")
		}
	}
	if s.id != "" {
		if err := s.m.Tokens.Delete(ctx, s.id); err != nil {
			log.Error().Err(err).Msg("deleting session token")
		}
	}
	s.reset()
	s.initialized = true
}

// Invalidate forgets a token the backend no longer accepts. The stored token
// is deleted and the session becomes unauthenticated; no backend call is made.
func (s *Session) Invalidate(ctx context.Context) {
	if s == nil {
		return
	}
	if s.id != "" {
		if err := s.m.Tokens.Delete(ctx, s.id); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("deleting rejected session token")
		}
	}
	s.reset()
	s.initialized = true
}

func (s *Session) reset() {
	s.user = nil
	s.token = ""
	s.state = StateUnauthenticated
}

// IsAuthenticated reports whether a user is held.
func (s *Session) IsAuthenticated() bool { return s != nil && s.user != nil }

// User returns the signed-in user or nil.
func (s *Session) User() *model.User {
	if s == nil {
		return nil
	}
	return s.user
}

// Token returns the API bearer token or "".
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return s.token
}

// ID returns the browser session id, which Login may have just allocated.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// State returns the lifecycle state.
func (s *Session) State() State {
	if s == nil {
		return StateUnauthenticated
	}
	return s.state
}

type contextKey struct{}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request's session, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
