package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"github.com/erazemk/lostfound/internal/apiclient"
	"github.com/erazemk/lostfound/internal/auth"
	"github.com/erazemk/lostfound/internal/latest"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/session"
)

// Check is a named readiness probe reported by /healthz.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Options are the dependencies of the web frontend.
type Options struct {
	Sessions     *session.Manager
	Items        *apiclient.ItemService
	Keys         *auth.Keys
	SessionTTL   time.Duration
	SecureCookie bool
	// MaxUpload bounds the accepted image size in bytes.
	MaxUpload    int64
	MaxDimension int
	Checks       []Check
	Logger       zerolog.Logger
}

// Server holds all dependencies for page handlers.
type Server struct {
	Templates *Templates
	Sessions  *session.Manager
	Items     *apiclient.ItemService
	Tracker   *latest.Tracker

	cookieSecret []byte
	cookies      *sessions.CookieStore
	sessionTTL   time.Duration
	secureCookie bool
	maxUpload    int64
	maxDimension int
	checks       []Check
	log          zerolog.Logger
}

func newServer(opts Options) (*Server, error) {
	if opts.Sessions == nil || opts.Items == nil || opts.Keys == nil {
		return nil, errors.New("web: sessions, items and keys are required")
	}
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = auth.DefaultSessionTTL
	}
	maxUpload := opts.MaxUpload
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}

	cookies := sessions.NewCookieStore(opts.Keys.FlashHash, opts.Keys.FlashBlock)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}

	return &Server{
		Templates:    templates,
		Sessions:     opts.Sessions,
		Items:        opts.Items,
		Tracker:      latest.New(),
		cookieSecret: opts.Keys.Cookie,
		cookies:      cookies,
		sessionTTL:   ttl,
		secureCookie: opts.SecureCookie,
		maxUpload:    maxUpload,
		maxDimension: opts.MaxDimension,
		checks:       opts.Checks,
		log:          opts.Logger,
	}, nil
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	User    *model.User
	CSRF    string
	Path    string
	Success string
	Error   string
	// Fields lists validation messages from the backend or the form.
	Fields []string
}

// page builds the base page data for r and consumes pending flash messages.
func (s *Server) page(w http.ResponseWriter, r *http.Request, title string) PageData {
	pd := PageData{
		Title: title,
		User:  session.FromContext(r.Context()).User(),
		CSRF:  csrfToken(r.Context()),
		Path:  r.URL.Path,
	}
	pd.Success, pd.Error = s.takeFlashes(w, r)
	return pd
}

// setError fills the error slot from an API or local error.
func (pd *PageData) setError(err error, fallback string) {
	var fe model.FieldErrors
	var apiErr *apiclient.Error
	switch {
	case errors.As(err, &fe):
		pd.Error = "Please correct the highlighted fields."
		for _, k := range []string{"title", "type", "location", "description", "status"} {
			if msg, ok := fe[k]; ok {
				pd.Fields = append(pd.Fields, msg)
			}
		}
	case errors.As(err, &apiErr):
		pd.Error = apiclient.Message(err, fallback)
		if apiErr.Message != "" {
			pd.Fields = apiErr.FieldMessages()
		}
	default:
		pd.Error = fallback
	}
}

// renderError renders the generic error page.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	pd := s.page(w, r, http.StatusText(status))
	pd.Error = msg
	s.Templates.RenderStatus(w, r, status, "error.html", "layout", &struct {
		PageData
		Status int
	}{PageData: pd, Status: status})
}

// renderAPIError maps a failed API call to a page: 404 to not found, 401 to
// a login redirect, everything else to an error page.
func (s *Server) renderAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch apiclient.KindOf(err) {
	case apiclient.KindNotFound:
		s.renderError(w, r, http.StatusNotFound, "Item not found.")
	case apiclient.KindUnauthorized:
		s.unauthorized(w, r)
	case apiclient.KindForbidden:
		s.renderError(w, r, http.StatusForbidden, apiclient.Message(err, fallback))
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(fallback)
		s.renderError(w, r, http.StatusBadGateway, apiclient.Message(err, fallback))
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", mux.Vars(r)["id"])
	}
	return id, nil
}

func pageParam(r *http.Request) int {
	p, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || p < 1 {
		return 1
	}
	return p
}

func itemURL(id int64) string {
	return "/items/" + strconv.FormatInt(id, 10)
}

// safeNext returns next if it is a same-site relative path, "/" otherwise.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}

// forgetSession drops a token the backend rejected and clears the cookie.
func (s *Server) forgetSession(w http.ResponseWriter, r *http.Request) {
	zerolog.Ctx(r.Context()).Info().Msg("api rejected session token, signing out")
	session.FromContext(r.Context()).Invalidate(r.Context())
	s.clearSessionCookie(w)
}

// unauthorized handles a 401 from the backend on a page that needs a user.
func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request) {
	s.forgetSession(w, r)
	redirectLogin(w, r)
}

func redirectLogin(w http.ResponseWriter, r *http.Request) {
	target := "/login"
	if r.Method == http.MethodGet {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
