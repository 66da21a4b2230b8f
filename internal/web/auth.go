package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/session"
)

type authForm struct {
	PageData
	Name  string
	Email string
	Next  string
}

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if session.FromContext(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	s.Templates.Render(w, r, "login.html", &authForm{PageData: s.page(w, r, "Login"), Next: next})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	form := &authForm{
		PageData: s.page(w, r, "Login"),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Next:     safeNext(r.PostFormValue("next")),
	}
	password := r.PostFormValue("password")

	if form.Email == "" || password == "" {
		form.Error = "Please enter your email and password."
		s.Templates.RenderStatus(w, r, http.StatusUnprocessableEntity, "login.html", "layout", form)
		return
	}

	if err := sess.Login(r.Context(), form.Email, password); err != nil {
		zerolog.Ctx(r.Context()).Info().Err(err).Msg("login failed")
		form.setError(err, "An error occurred during login.")
		s.Templates.RenderStatus(w, r, http.StatusUnauthorized, "login.html", "layout", form)
		return
	}

	if err := s.setSessionCookie(w, sess.ID()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("issuing session cookie")
		form.Error = "An error occurred during login."
		s.Templates.RenderStatus(w, r, http.StatusInternalServerError, "login.html", "layout", form)
		return
	}

	zerolog.Ctx(r.Context()).Info().Int64("user_id", sess.User().ID).Msg("user logged in")
	http.Redirect(w, r, form.Next, http.StatusSeeOther)
}

// RegisterPage handles GET /register.
func (s *Server) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.Templates.Render(w, r, "register.html", &authForm{PageData: s.page(w, r, "Register")})
}

// RegisterSubmit handles POST /register.
func (s *Server) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	form := &authForm{
		PageData: s.page(w, r, "Register"),
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
	}

	err := sess.Register(r.Context(), form.Name, form.Email,
		r.PostFormValue("password"), r.PostFormValue("password_confirmation"))
	switch {
	case errors.Is(err, session.ErrPasswordMismatch):
		form.Error = "Passwords do not match"
	case errors.Is(err, model.ErrPasswordTooShort):
		form.Error = "Password must be at least 8 characters long"
	case err != nil:
		form.setError(err, "An error occurred during registration")
	}
	if err != nil {
		s.Templates.RenderStatus(w, r, http.StatusUnprocessableEntity, "register.html", "layout", form)
		return
	}

	if err := s.setSessionCookie(w, sess.ID()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("issuing session cookie")
		form.Error = "An error occurred during registration"
		s.Templates.RenderStatus(w, r, http.StatusInternalServerError, "register.html", "layout", form)
		return
	}

	zerolog.Ctx(r.Context()).Info().Int64("user_id", sess.User().ID).Msg("user registered")
	s.flash(w, r, "success", "Welcome, "+sess.User().Name+"!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	session.FromContext(r.Context()).Logout(r.Context())
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
