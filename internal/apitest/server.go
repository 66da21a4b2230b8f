// Package apitest provides an in-process fake of the Lost & Found REST API
// for tests. It records every call so tests can assert call counts.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/erazemk/lostfound/internal/model"
)

// PerPage is the page size of paginated listings.
const PerPage = 10

type account struct {
	user     model.User
	password string
}

// Server is a fake API. URL() + "/api" is the base URL for apiclient.New.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	accounts     map[string]*account // by email
	tokens       map[string]int64
	items        map[int64]*model.Item
	nextUserID   int64
	nextItemID   int64
	nextToken    int
	calls        map[string]int
	contentTypes map[string]string
	failures     map[string]int
}

// New starts a fake API that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts:     make(map[string]*account),
		tokens:       make(map[string]int64),
		items:        make(map[int64]*model.Item),
		calls:        make(map[string]int),
		contentTypes: make(map[string]string),
		failures:     make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root to hand to apiclient.New.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.record)

	api.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", s.me).Methods(http.MethodGet)
	api.HandleFunc("/auth/logout", s.logout).Methods(http.MethodPost)
	api.HandleFunc("/items", s.listItems).Methods(http.MethodGet)
	api.HandleFunc("/items", s.createItem).Methods(http.MethodPost)
	api.HandleFunc("/items/{id:[0-9]+}", s.getItem).Methods(http.MethodGet)
	api.HandleFunc("/items/{id:[0-9]+}", s.updateItem).Methods(http.MethodPut)
	api.HandleFunc("/items/{id:[0-9]+}", s.deleteItem).Methods(http.MethodDelete)
	api.HandleFunc("/my-items", s.myItems).Methods(http.MethodGet)
	api.HandleFunc("/admin/items-for-verification", s.pending).Methods(http.MethodGet)
	api.HandleFunc("/admin/verify-item/{id:[0-9]+}", s.verify).Methods(http.MethodPost)
	return r
}

// record counts calls by "METHOD /template", e.g. "DELETE /items/{id}", and
// applies any failure registered with Fail.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := callKey(r)
		s.mu.Lock()
		s.calls[key]++
		s.contentTypes[key] = r.Header.Get("Content-Type")
		status := s.failures[key]
		s.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]any{"success": false, "message": "forced failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callKey(r *http.Request) string {
	tpl, err := mux.CurrentRoute(r).GetPathTemplate()
	if err != nil {
		tpl = r.URL.Path
	}
	tpl = strings.TrimPrefix(tpl, "/api")
	tpl = strings.ReplaceAll(tpl, "{id:[0-9]+}", "{id}")
	return r.Method + " " + tpl
}

// Calls returns how many times the route was hit, e.g. Calls("DELETE /items/{id}").
func (s *Server) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

// TotalCalls returns the number of calls across all routes.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// ContentType returns the Content-Type of the last call to the route.
func (s *Server) ContentType(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contentTypes[key]
}

// Fail makes every following call to the route answer with status.
func (s *Server) Fail(key string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[key] = status
}

// AddUser creates an account and returns it.
func (s *Server) AddUser(name, email, password, role string) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(name, email, password, role)
}

func (s *Server) addUserLocked(name, email, password, role string) model.User {
	if role == "" {
		role = model.RoleUser
	}
	s.nextUserID++
	u := model.User{ID: s.nextUserID, Name: name, Email: email, Role: role}
	s.accounts[strings.ToLower(email)] = &account{user: u, password: password}
	return u
}

// TokenFor issues a fresh bearer token for an existing account.
func (s *Server) TokenFor(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		panic("apitest: unknown account " + email)
	}
	return s.issueLocked(a.user.ID)
}

func (s *Server) issueLocked(userID int64) string {
	s.nextToken++
	tok := fmt.Sprintf("tok-%d-%d", userID, s.nextToken)
	s.tokens[tok] = userID
	return tok
}

// AddItem stores an item. Zero ID, timestamps and statuses are filled in.
func (s *Server) AddItem(it model.Item) model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addItemLocked(it)
}

func (s *Server) addItemLocked(it model.Item) model.Item {
	if it.ID == 0 {
		s.nextItemID++
		it.ID = s.nextItemID
	} else if it.ID > s.nextItemID {
		s.nextItemID = it.ID
	}
	now := time.Now().UTC().Truncate(time.Second)
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now.Add(time.Duration(it.ID) * time.Second)
	}
	it.UpdatedAt = it.CreatedAt
	if it.Status == "" {
		it.Status = model.ItemStatusPending
	}
	if it.VerificationStatus == "" {
		it.VerificationStatus = model.VerificationPending
	}
	if it.UserID == 0 {
		it.UserID = it.User.ID
	}
	if it.User.ID == 0 {
		for _, a := range s.accounts {
			if a.user.ID == it.UserID {
				it.User = a.user
			}
		}
	}
	s.items[it.ID] = &it
	return it
}

// Item returns a copy of the stored item.
func (s *Server) Item(id int64) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return model.Item{}, false
	}
	return *it, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}

// caller resolves the bearer token. ok is false when the request is anonymous
// or the token is unknown.
func (s *Server) caller(r *http.Request) (model.User, bool) {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if tok == "" {
		return model.User{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[tok]
	if !ok {
		return model.User{}, false
	}
	for _, a := range s.accounts {
		if a.user.ID == id {
			return a.user, true
		}
	}
	return model.User{}, false
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// sorted returns items newest first.
func sorted(items []*model.Item) []model.Item {
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	out := make([]model.Item, len(items))
	for i, it := range items {
		out[i] = *it
	}
	return out
}

func paginate(items []model.Item, r *http.Request) map[string]any {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	last := (len(items) + PerPage - 1) / PerPage
	if last < 1 {
		last = 1
	}
	start := min((page-1)*PerPage, len(items))
	end := min(start+PerPage, len(items))
	return map[string]any{
		"data":         items[start:end],
		"total":        len(items),
		"current_page": page,
		"last_page":    last,
	}
}
