package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/session"
)

func setupAdmin(t *testing.T) (*testEnv, *browser, model.User) {
	t.Helper()
	env := setupTestServer(t)
	env.api.AddUser("Root", "admin@example.com", "password123", model.RoleAdmin)
	owner := env.api.AddUser("Ana", "ana@example.com", "password123", model.RoleUser)
	b := env.browser(t)
	b.login("admin@example.com", "password123")
	return env, b, owner
}

func TestAdminRequiresAdmin(t *testing.T) {
	env := setupTestServer(t)
	env.api.AddUser("Ana", "ana@example.com", "password123", model.RoleUser)

	anon := env.browser(t)
	resp, _ := anon.get("/admin")
	expectRedirect(t, resp, "/login?next=%2Fadmin")

	b := env.browser(t)
	b.login("ana@example.com", "password123")
	for _, path := range []string{"/admin", "/admin/verification", "/admin/verification/1/reject"} {
		resp, body := b.get(path)
		expectStatus(t, resp, http.StatusForbidden)
		if !strings.Contains(body, "Access denied. Admins only.") {
			t.Errorf("%s: expected access denied message", path)
		}
	}

	resp, _ = b.post("/admin/verification/1/verify", nil)
	expectStatus(t, resp, http.StatusForbidden)
	if n := env.api.Calls("POST /admin/verify-item/{id}"); n != 0 {
		t.Errorf("expected no verify call, got %d", n)
	}
}

func TestGuardLoadingState(t *testing.T) {
	env := setupTestServer(t)
	called := false
	h := env.server.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/my-items", nil)
	req = req.WithContext(session.WithSession(req.Context(), env.server.Sessions.New("pending-sid")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if called {
		t.Error("handler ran before the session was initialized")
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Error("expected Retry-After header")
	}
	if !strings.Contains(rec.Body.String(), "Loading") {
		t.Error("expected loading page")
	}
}

func TestAdminRejectedTokenSignsOut(t *testing.T) {
	for _, tt := range []struct {
		path, route string
	}{
		{"/admin", "GET /items"},
		{"/admin/verification", "GET /admin/items-for-verification"},
	} {
		t.Run(tt.path, func(t *testing.T) {
			env, b, _ := setupAdmin(t)
			env.api.Fail(tt.route, http.StatusUnauthorized)

			resp, _ := b.get(tt.path)
			expectRedirect(t, resp, "/login?next="+url.QueryEscape(tt.path))

			resp, _ = b.get("/login")
			expectStatus(t, resp, http.StatusOK)
		})
	}
}

func TestAdminStats(t *testing.T) {
	env, b, owner := setupAdmin(t)
	for i, status := range []string{
		model.VerificationPending, model.VerificationPending, model.VerificationPending,
		model.VerificationVerified, model.VerificationRejected,
	} {
		env.api.AddItem(model.Item{
			Title: fmt.Sprintf("Item %d", i), Description: "d", Type: model.ItemTypeLost,
			Location: "Hall", User: owner, VerificationStatus: status,
		})
	}

	resp, body := b.get("/admin")
	expectStatus(t, resp, http.StatusOK)
	for _, want := range []string{
		`<span class="stat-value">5</span><span class="muted">Total Items</span>`,
		`<span class="stat-value">3</span><span class="muted">Pending Verification</span>`,
		`<span class="stat-value">1</span><span class="muted">Verified</span>`,
		`<span class="stat-value">1</span><span class="muted">Rejected</span>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q", want)
		}
	}
	if !strings.Contains(body, "Item 4") {
		t.Error("expected recent items")
	}
}

func TestVerifyItem(t *testing.T) {
	env, b, owner := setupAdmin(t)
	lost, _ := seedItems(env, owner)

	resp, body := b.get("/admin/verification")
	expectStatus(t, resp, http.StatusOK)
	if !strings.Contains(body, "Black wallet") || !strings.Contains(body, "Blue umbrella") {
		t.Error("expected pending items")
	}

	resp, _ = b.post(fmt.Sprintf("/admin/verification/%d/verify", lost.ID), url.Values{
		"notes": {"  Matches the description  "},
		"page":  {"1"},
	})
	expectRedirect(t, resp, "/admin/verification")

	got, _ := env.api.Item(lost.ID)
	if got.VerificationStatus != model.VerificationVerified {
		t.Errorf("expected verified, got %q", got.VerificationStatus)
	}
	if got.VerificationNotes != "Matches the description" {
		t.Errorf("expected trimmed notes, got %q", got.VerificationNotes)
	}

	_, body = b.get("/admin/verification")
	if !strings.Contains(body, "Item verified successfully!") {
		t.Error("expected success flash")
	}
	if strings.Contains(body, "Black wallet") {
		t.Error("verified item still listed as pending")
	}
}

func TestRejectItem(t *testing.T) {
	env, b, owner := setupAdmin(t)
	_, found := seedItems(env, owner)
	path := fmt.Sprintf("/admin/verification/%d/reject", found.ID)

	resp, body := b.get(path + "?page=2&notes=Duplicate")
	expectStatus(t, resp, http.StatusOK)
	if !strings.Contains(body, `name="page" value="2"`) || !strings.Contains(body, ">Duplicate</textarea>") {
		t.Error("expected page and notes to be carried into the form")
	}

	resp, _ = b.post(path, url.Values{"notes": {"Duplicate report"}, "page": {"2"}})
	expectRedirect(t, resp, "/admin/verification?page=2")

	got, _ := env.api.Item(found.ID)
	if got.VerificationStatus != model.VerificationRejected || got.VerificationNotes != "Duplicate report" {
		t.Errorf("unexpected verification: %q %q", got.VerificationStatus, got.VerificationNotes)
	}
}

func TestVerifyFailureFlashesError(t *testing.T) {
	env, b, owner := setupAdmin(t)
	lost, _ := seedItems(env, owner)
	env.api.Fail("POST /admin/verify-item/{id}", http.StatusInternalServerError)

	resp, _ := b.post(fmt.Sprintf("/admin/verification/%d/verify", lost.ID), url.Values{"page": {"1"}})
	expectRedirect(t, resp, "/admin/verification")

	got, _ := env.api.Item(lost.ID)
	if got.VerificationStatus != model.VerificationPending {
		t.Errorf("expected item to stay pending, got %q", got.VerificationStatus)
	}
	_, body := b.get("/admin/verification")
	if !strings.Contains(body, "alert-error") {
		t.Error("expected an error flash")
	}
}
