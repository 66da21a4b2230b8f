package web

import (
	"testing"

	"github.com/erazemk/lostfound/internal/model"
)

func TestStatusClass(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{model.ItemStatusPending, "badge-pending"},
		{model.ItemStatusClaimed, "badge-claimed"},
		{model.ItemStatusResolved, "badge-ok"},
		{model.VerificationPending, "badge-pending"},
		{model.VerificationVerified, "badge-ok"},
		{model.VerificationRejected, "badge-rejected"},
		{"", "badge-ok"},
	}
	for _, tt := range tests {
		if got := statusClass(tt.status); got != tt.want {
			t.Errorf("statusClass(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestPageHref(t *testing.T) {
	tests := []struct {
		base, query string
		page        int
		want        string
	}{
		{"/items", "", 1, "/items"},
		{"/items", "", 3, "/items?page=3"},
		{"/items", "type=lost", 1, "/items?type=lost"},
		{"/items", "type=lost", 2, "/items?type=lost&page=2"},
	}
	for _, tt := range tests {
		if got := pageHref(tt.base, tt.query, tt.page); got != tt.want {
			t.Errorf("pageHref(%q, %q, %d) = %q, want %q", tt.base, tt.query, tt.page, got, tt.want)
		}
	}
}

func TestLoadTemplates(t *testing.T) {
	ts, err := LoadTemplates()
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	for _, page := range pages {
		if _, ok := ts.templates[page]; !ok {
			t.Errorf("page %s not loaded", page)
		}
	}
}
