package web

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/erazemk/lostfound/internal/model"
)

func TestLoginFlow(t *testing.T) {
	env := setupTestServer(t)
	env.api.AddUser("Ana", "ana@example.com", "password123", model.RoleUser)
	b := env.browser(t)

	resp, _ := b.get("/my-items")
	expectRedirect(t, resp, "/login?next=%2Fmy-items")

	resp, _ = b.post("/login", url.Values{
		"email":    {"ana@example.com"},
		"password": {"password123"},
		"next":     {"/my-items"},
	})
	expectRedirect(t, resp, "/my-items")

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			found = true
			if !c.HttpOnly {
				t.Error("session cookie should be HttpOnly")
			}
		}
	}
	if !found {
		t.Fatal("expected session cookie after login")
	}

	resp, body := b.get("/my-items")
	expectStatus(t, resp, http.StatusOK)
	if !strings.Contains(body, "Hello, Ana") {
		t.Error("expected greeting for the signed-in user")
	}

	// Signed-in users skip the login form.
	resp, _ = b.get("/login")
	expectRedirect(t, resp, "/")

	resp, _ = b.post("/logout", nil)
	expectRedirect(t, resp, "/")
	if n := env.api.Calls("POST /auth/logout"); n != 1 {
		t.Errorf("expected 1 logout call, got %d", n)
	}

	resp, _ = b.get("/my-items")
	expectRedirect(t, resp, "/login?next=%2Fmy-items")
}

func TestLoginRejectsExternalNext(t *testing.T) {
	env := setupTestServer(t)
	env.api.AddUser("Ana", "ana@example.com", "password123", model.RoleUser)
	b := env.browser(t)

	resp, _ := b.post("/login", url.Values{
		"email":    {"ana@example.com"},
		"password": {"password123"},
		"next":     {"//evil.example.com/"},
	})
	expectRedirect(t, resp, "/")
}

func TestLoginWrongPassword(t *testing.T) {
	env := setupTestServer(t)
	env.api.AddUser("Ana", "ana@example.com", "password123", model.RoleUser)
	b := env.browser(t)

	resp, body := b.post("/login", url.Values{"email": {"ana@example.com"}, "password": {"wrong-password"}})
	expectStatus(t, resp, http.StatusUnauthorized)
	if !strings.Contains(body, "Invalid credentials") {
		t.Errorf("expected backend message, got: %s", body)
	}
	if !strings.Contains(body, `value="ana@example.com"`) {
		t.Error("expected email to be kept in the form")
	}
}

func TestLoginMissingFields(t *testing.T) {
	env := setupTestServer(t)
	b := env.browser(t)

	resp, _ := b.post("/login", url.Values{"email": {"ana@example.com"}})
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	if n := env.api.TotalCalls(); n != 0 {
		t.Errorf("expected no api calls, got %d", n)
	}
}

func TestRegisterPasswordMismatch(t *testing.T) {
	env := setupTestServer(t)
	b := env.browser(t)

	resp, body := b.post("/register", url.Values{
		"name":                  {"Bo"},
		"email":                 {"bo@example.com"},
		"password":              {"password123"},
		"password_confirmation": {"password124"},
	})
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	if !strings.Contains(body, "Passwords do not match") {
		t.Errorf("expected mismatch message, got: %s", body)
	}
	if n := env.api.TotalCalls(); n != 0 {
		t.Errorf("expected no api calls, got %d", n)
	}
}

func TestRegisterShortPassword(t *testing.T) {
	env := setupTestServer(t)
	b := env.browser(t)

	resp, body := b.post("/register", url.Values{
		"name":                  {"Bo"},
		"email":                 {"bo@example.com"},
		"password":              {"short"},
		"password_confirmation": {"short"},
	})
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	if !strings.Contains(body, "Password must be at least 8 characters long") {
		t.Errorf("expected length message, got: %s", body)
	}
	if n := env.api.TotalCalls(); n != 0 {
		t.Errorf("expected no api calls, got %d", n)
	}
}

func TestRegisterSuccess(t *testing.T) {
	env := setupTestServer(t)
	b := env.browser(t)

	resp, _ := b.post("/register", url.Values{
		"name":                  {"Bo"},
		"email":                 {"bo@example.com"},
		"password":              {"password123"},
		"password_confirmation": {"password123"},
	})
	expectRedirect(t, resp, "/")

	resp, body := b.get("/")
	expectStatus(t, resp, http.StatusOK)
	if !strings.Contains(body, "Welcome, Bo!") {
		t.Error("expected welcome flash")
	}
	if !strings.Contains(body, "Hello, Bo") {
		t.Error("expected to be signed in after registering")
	}

	// Flashes are shown once.
	_, body = b.get("/")
	if strings.Contains(body, "Welcome, Bo!") {
		t.Error("flash shown twice")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := setupTestServer(t)
	env.api.AddUser("Ana", "ana@example.com", "password123", model.RoleUser)
	b := env.browser(t)

	resp, body := b.post("/register", url.Values{
		"name":                  {"Ana"},
		"email":                 {"ana@example.com"},
		"password":              {"password123"},
		"password_confirmation": {"password123"},
	})
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	if !strings.Contains(body, "The email has already been taken.") {
		t.Errorf("expected field error, got: %s", body)
	}
}

func TestTamperedSessionCookieIsIgnored(t *testing.T) {
	env := setupTestServer(t)
	b := env.browser(t)

	u, _ := url.Parse(b.base)
	b.client.Jar.SetCookies(u, []*http.Cookie{{Name: sessionCookie, Value: "not-a-jwt", Path: "/"}})

	resp, body := b.get("/")
	expectStatus(t, resp, http.StatusOK)
	if strings.Contains(body, "Hello,") {
		t.Error("tampered cookie should not sign anyone in")
	}
	if n := env.api.Calls("GET /auth/me"); n != 0 {
		t.Errorf("expected no /auth/me call, got %d", n)
	}
}

func TestRejectedTokenSignsOut(t *testing.T) {
	env := setupTestServer(t)
	env.api.AddUser("Ana", "ana@example.com", "password123", model.RoleUser)
	b := env.browser(t)
	b.login("ana@example.com", "password123")

	env.api.Fail("GET /my-items", http.StatusUnauthorized)
	resp, _ := b.get("/my-items")
	expectRedirect(t, resp, "/login?next=%2Fmy-items")

	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected the session cookie to be cleared")
	}

	// The login form is shown instead of bouncing back to next.
	resp, body := b.get("/login?next=%2Fmy-items")
	expectStatus(t, resp, http.StatusOK)
	if strings.Contains(body, "Hello, Ana") {
		t.Error("expected a signed-out page")
	}

	me := env.api.Calls("GET /auth/me")
	resp, _ = b.get("/my-items")
	expectRedirect(t, resp, "/login?next=%2Fmy-items")
	if n := env.api.Calls("GET /auth/me") - me; n != 0 {
		t.Errorf("expected no /auth/me calls for a dropped session, got %d", n)
	}
}
