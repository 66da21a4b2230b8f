package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/erazemk/lostfound/internal/apiclient"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/session"
)

const (
	recentItems         = 5
	verificationPerPage = 10
)

// AdminPage handles GET /admin.
func (s *Server) AdminPage(w http.ResponseWriter, r *http.Request) {
	data := &struct {
		PageData
		Stats  model.Stats
		Recent []model.Item
	}{PageData: s.page(w, r, "Admin Panel")}

	page, err := s.Items.All(r.Context(), session.FromContext(r.Context()).Token())
	if apiclient.IsUnauthorized(err) {
		s.unauthorized(w, r)
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load items for admin panel")
		data.setError(err, "Error loading items")
	} else {
		data.Stats = model.ComputeStats(page.Items)
		data.Recent = page.Items[:min(recentItems, len(page.Items))]
	}
	s.Templates.Render(w, r, "admin.html", data)
}

type verificationList struct {
	PageData
	Items []model.Item
	Page  int
	Last  int
}

// AdminVerificationPage handles GET /admin/verification.
func (s *Server) AdminVerificationPage(w http.ResponseWriter, r *http.Request) {
	data := &verificationList{PageData: s.page(w, r, "Admin Verification Panel"), Page: 1, Last: 1}

	page, err := s.Items.PendingVerification(r.Context(), session.FromContext(r.Context()).Token(), pageParam(r))
	if apiclient.IsUnauthorized(err) {
		s.unauthorized(w, r)
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load items for verification")
		data.setError(err, "Error fetching items")
	} else {
		data.Items = page.Items
		data.Page = page.CurrentPage
		data.Last = page.LastPage
		if byTotal := (page.Total + verificationPerPage - 1) / verificationPerPage; byTotal > data.Last {
			data.Last = byTotal
		}
	}
	s.Templates.Render(w, r, "admin_verification.html", data)
}

func verificationReturn(r *http.Request) string {
	if p, err := strconv.Atoi(r.PostFormValue("page")); err == nil && p > 1 {
		return "/admin/verification?page=" + strconv.Itoa(p)
	}
	return "/admin/verification"
}

// decide submits an admin decision and flashes the outcome.
func (s *Server) decide(w http.ResponseWriter, r *http.Request, status string) {
	id, err := pathID(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid item id.")
		return
	}

	v := model.Verification{Status: status, Notes: strings.TrimSpace(r.PostFormValue("notes"))}
	err = s.Items.Verify(r.Context(), session.FromContext(r.Context()).Token(), id, v)

	verb := "verify"
	if status == model.VerificationRejected {
		verb = "reject"
	}
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			s.unauthorized(w, r)
			return
		}
		zerolog.Ctx(r.Context()).Warn().Err(err).Int64("item_id", id).Str("decision", status).Msg("verification failed")
		s.flash(w, r, "error", apiclient.Message(err, "Failed to "+verb+" item"))
	} else {
		zerolog.Ctx(r.Context()).Info().Int64("item_id", id).Str("decision", status).Msg("item verification recorded")
		s.flash(w, r, "success", "Item "+status+" successfully!")
	}
	http.Redirect(w, r, verificationReturn(r), http.StatusSeeOther)
}

// VerifySubmit handles POST /admin/verification/{id}/verify.
func (s *Server) VerifySubmit(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, model.VerificationVerified)
}

// RejectPage handles GET /admin/verification/{id}/reject, the confirmation step.
func (s *Server) RejectPage(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadItem(w, r)
	if !ok {
		return
	}
	s.Templates.Render(w, r, "admin_reject.html", &struct {
		PageData
		Item  *model.Item
		Notes string
		Page  int
	}{
		PageData: s.page(w, r, "Reject Item"),
		Item:     item,
		Notes:    r.URL.Query().Get("notes"),
		Page:     pageParam(r),
	})
}

// RejectSubmit handles POST /admin/verification/{id}/reject.
func (s *Server) RejectSubmit(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, model.VerificationRejected)
}
