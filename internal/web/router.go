// Package web serves the Lost & Found pages. Every page fetches from the REST
// API on request and every mutation ends in a redirect.
package web

import (
	"net/http"

	"github.com/gorilla/mux"

	webembed "github.com/erazemk/lostfound/web"
)

// NewRouter creates the web frontend handler with all routes and middleware.
func NewRouter(opts Options) (http.Handler, error) {
	s, err := newServer(opts)
	if err != nil {
		return nil, err
	}
	return s.Handler(), nil
}

// Handler returns the routed handler wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	root := mux.NewRouter()

	// Static assets and health skip session loading.
	root.PathPrefix("/static/").Handler(http.StripPrefix("/static/", staticHandler()))
	root.HandleFunc("/healthz", s.Health).Methods(http.MethodGet)

	pages := root.PathPrefix("/").Subrouter()
	pages.Use(s.CSRF, s.LoadSession)

	// Public routes.
	pages.HandleFunc("/", s.HomePage).Methods(http.MethodGet)
	pages.HandleFunc("/login", s.LoginPage).Methods(http.MethodGet)
	pages.HandleFunc("/login", s.LoginSubmit).Methods(http.MethodPost)
	pages.HandleFunc("/register", s.RegisterPage).Methods(http.MethodGet)
	pages.HandleFunc("/register", s.RegisterSubmit).Methods(http.MethodPost)
	pages.HandleFunc("/logout", s.Logout).Methods(http.MethodPost)
	pages.HandleFunc("/items", s.ItemsPage).Methods(http.MethodGet)
	pages.HandleFunc("/items/results", s.ItemResults).Methods(http.MethodGet)

	// Authenticated routes. /items/new is registered before /items/{id}.
	authed := func(h http.HandlerFunc) http.Handler { return s.RequireAuth(h) }
	pages.Handle("/items/new", authed(s.ItemNewPage)).Methods(http.MethodGet)
	pages.Handle("/items/new", authed(s.ItemCreateSubmit)).Methods(http.MethodPost)
	pages.HandleFunc("/items/{id:[0-9]+}", s.ItemDetailPage).Methods(http.MethodGet)
	pages.Handle("/items/{id:[0-9]+}/edit", authed(s.ItemEditPage)).Methods(http.MethodGet)
	pages.Handle("/items/{id:[0-9]+}/edit", authed(s.ItemUpdateSubmit)).Methods(http.MethodPost)
	pages.Handle("/items/{id:[0-9]+}/delete", authed(s.ItemDeletePage)).Methods(http.MethodGet)
	pages.Handle("/items/{id:[0-9]+}/delete", authed(s.ItemDeleteSubmit)).Methods(http.MethodPost)
	pages.Handle("/my-items", authed(s.MyItemsPage)).Methods(http.MethodGet)

	// Admin routes.
	admin := pages.PathPrefix("/admin").Subrouter()
	admin.Use(s.RequireAdmin)
	admin.HandleFunc("", s.AdminPage).Methods(http.MethodGet)
	admin.HandleFunc("/verification", s.AdminVerificationPage).Methods(http.MethodGet)
	admin.HandleFunc("/verification/{id:[0-9]+}/verify", s.VerifySubmit).Methods(http.MethodPost)
	admin.HandleFunc("/verification/{id:[0-9]+}/reject", s.RejectPage).Methods(http.MethodGet)
	admin.HandleFunc("/verification/{id:[0-9]+}/reject", s.RejectSubmit).Methods(http.MethodPost)

	root.NotFoundHandler = s.CSRF(s.LoadSession(http.HandlerFunc(s.notFound)))

	return s.RequestID(s.Logging(s.Recovery(root)))
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "Page not found.")
}

func staticHandler() http.Handler {
	files := http.FileServer(http.FS(webembed.StaticFS()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}
