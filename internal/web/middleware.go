package web

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/erazemk/lostfound/internal/apiclient"
	"github.com/erazemk/lostfound/internal/auth"
	"github.com/erazemk/lostfound/internal/session"
)

const (
	sessionCookie   = "lf_session"
	csrfSessionName = "lf_csrf"
	flashSession    = "lf_flash"
	csrfField       = "csrf_token"
	requestIDHeader = "X-Request-Id"
)

type webContextKey string

const csrfKey webContextKey = "csrf"

// RequestID assigns every request an id, honouring an inbound X-Request-Id,
// and attaches a request-scoped logger to the context.
func (s *Server) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		logger := s.log.With().Str("request_id", id).Logger()
		ctx := logger.WithContext(r.Context())
		ctx = apiclient.WithRequestID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging logs every request with method, path, status and latency. The
// level follows the status class.
func (s *Server) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log := zerolog.Ctx(r.Context())
		event := log.Info()
		switch {
		case rec.status >= 500:
			event = log.Error()
		case rec.status >= 400:
			event = log.Warn()
		case strings.HasPrefix(r.URL.Path, "/static/"):
			event = log.Debug()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("latency", time.Since(start)).
			Msg("http request")
	})
}

// Recovery turns a panicking handler into a 500 response.
func (s *Server) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				zerolog.Ctx(r.Context()).Error().
					Interface("error", v).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CSRF issues a per-browser token and rejects POSTs that do not echo it.
// POST bodies are size-limited and parsed here.
func (s *Server) CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := s.cookies.Get(r, csrfSessionName)
		token, _ := sess.Values["token"].(string)
		if token == "" {
			token = randomToken()
			sess.Values["token"] = token
			if err := sess.Save(r, w); err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("saving csrf cookie")
			}
		}
		ctx := context.WithValue(r.Context(), csrfKey, token)
		r = r.WithContext(ctx)

		if r.Method == http.MethodPost {
			r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)
			var err error
			if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
				err = r.ParseMultipartForm(s.maxUpload + 1<<20)
			} else {
				err = r.ParseForm()
			}
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					s.renderError(w, r, http.StatusRequestEntityTooLarge, "The upload is too large.")
					return
				}
				s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
				return
			}
			if !hmac.Equal([]byte(r.PostFormValue(csrfField)), []byte(token)) {
				zerolog.Ctx(ctx).Warn().Msg("csrf token mismatch")
				s.renderError(w, r, http.StatusForbidden, "Your form expired. Please reload the page and try again.")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func csrfToken(ctx context.Context) string {
	t, _ := ctx.Value(csrfKey).(string)
	return t
}

func randomToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// flash queues a message for the next rendered page. kind is "success" or "error".
func (s *Server) flash(w http.ResponseWriter, r *http.Request, kind, msg string) {
	sess, _ := s.cookies.Get(r, flashSession)
	sess.AddFlash(msg, kind)
	if err := sess.Save(r, w); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("saving flash cookie")
	}
}

func (s *Server) takeFlashes(w http.ResponseWriter, r *http.Request) (success, failure string) {
	sess, err := s.cookies.Get(r, flashSession)
	if err != nil || sess.IsNew {
		return "", ""
	}
	ok := sess.Flashes("success")
	bad := sess.Flashes("error")
	if len(ok) == 0 && len(bad) == 0 {
		return "", ""
	}
	if err := sess.Save(r, w); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("clearing flash cookie")
	}
	return joinFlashes(ok), joinFlashes(bad)
}

func joinFlashes(v []any) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		if s, ok := x.(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// LoadSession resolves the lf_session cookie into a session and runs its
// initialization once for the request.
func (s *Server) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
			claims, err := auth.ValidateToken(s.cookieSecret, c.Value)
			if err != nil {
				s.clearSessionCookie(w)
			} else {
				sid = claims.SessionID
			}
		}

		sess := s.Sessions.New(sid)
		if err := sess.Init(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("session init failed")
		}
		if u := sess.User(); u != nil {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Int64("user_id", u.ID)
			})
		}

		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}

// RequireAuth allows only signed-in users.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return s.guard(next, false)
}

// RequireAdmin allows only admins.
func (s *Server) RequireAdmin(next http.Handler) http.Handler {
	return s.guard(next, true)
}

func (s *Server) guard(next http.Handler, adminOnly bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch session.Decide(session.FromContext(r.Context()), adminOnly) {
		case session.Allow:
			next.ServeHTTP(w, r)
		case session.Loading:
			w.Header().Set("Retry-After", "1")
			s.Templates.RenderStatus(w, r, http.StatusServiceUnavailable, "loading.html", "layout", s.page(w, r, "Loading"))
		case session.RedirectLogin:
			redirectLogin(w, r)
		case session.Forbidden:
			s.renderError(w, r, http.StatusForbidden, "Access denied. Admins only.")
		}
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sid string) error {
	token, err := auth.GenerateToken(s.cookieSecret, sid, s.sessionTTL)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// clearSessionCookie clears the session cookie with consistent attributes.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
