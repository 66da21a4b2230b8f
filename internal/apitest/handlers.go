package apitest

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/lostfound/internal/model"
)

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	a, ok := s.accounts[strings.ToLower(req.Email)]
	if !ok || a.password != req.Password {
		s.mu.Unlock()
		fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	tok := s.issueLocked(a.user.ID)
	u := a.user
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Login successful", "token": tok, "user": u})
}

// register answers with access_token rather than token, like some backends do.
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name                 string `json:"name"`
		Email                string `json:"email"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	errs := map[string][]string{}
	if strings.TrimSpace(req.Name) == "" {
		errs["name"] = append(errs["name"], "The name field is required.")
	}
	if !strings.Contains(req.Email, "@") {
		errs["email"] = append(errs["email"], "The email must be a valid email address.")
	}
	if len(req.Password) < model.MinPasswordLength {
		errs["password"] = append(errs["password"], "The password must be at least 8 characters.")
	}
	if req.Password != req.PasswordConfirmation {
		errs["password"] = append(errs["password"], "The password confirmation does not match.")
	}

	s.mu.Lock()
	if _, taken := s.accounts[strings.ToLower(req.Email)]; taken {
		errs["email"] = append(errs["email"], "The email has already been taken.")
	}
	if len(errs) > 0 {
		s.mu.Unlock()
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "The given data was invalid.", "errors": errs})
		return
	}
	u := s.addUserLocked(req.Name, req.Email, req.Password, model.RoleUser)
	tok := s.issueLocked(u.ID)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "access_token": tok, "user": u})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, ok := s.caller(r)
	if !ok {
		fail(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.tokens, tok)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ, loc, search := q.Get("type"), strings.ToLower(q.Get("location")), strings.ToLower(q.Get("search"))

	s.mu.Lock()
	var matched []*model.Item
	for _, it := range s.items {
		if typ != "" && it.Type != typ {
			continue
		}
		if loc != "" && !strings.Contains(strings.ToLower(it.Location), loc) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(it.Title), search) &&
			!strings.Contains(strings.ToLower(it.Description), search) {
			continue
		}
		matched = append(matched, it)
	}
	items := sorted(matched)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": paginate(items, r)})
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	it, ok := s.Item(pathID(r))
	if !ok {
		fail(w, http.StatusNotFound, "Item not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": it})
}

// itemForm reads either a JSON or a multipart body.
type itemForm struct {
	fields      model.ItemFields
	hasImage    bool
	removeImage bool
}

func readItemForm(r *http.Request) (itemForm, error) {
	var f itemForm
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			return f, err
		}
		f.fields = model.ItemFields{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			Type:        r.FormValue("type"),
			Location:    r.FormValue("location"),
			Status:      r.FormValue("status"),
			ContactInfo: r.FormValue("contact_info"),
		}
		f.removeImage = r.FormValue("remove_image") == "1"
		if file, _, err := r.FormFile("image"); err == nil {
			data, _ := io.ReadAll(file)
			file.Close()
			f.hasImage = len(data) > 0
		}
		return f, nil
	}

	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Type        string `json:"type"`
		Location    string `json:"location"`
		Status      string `json:"status"`
		ContactInfo string `json:"contact_info"`
		RemoveImage bool   `json:"remove_image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return f, err
	}
	f.fields = model.ItemFields{
		Title:       body.Title,
		Description: body.Description,
		Type:        body.Type,
		Location:    body.Location,
		Status:      body.Status,
		ContactInfo: body.ContactInfo,
	}
	f.removeImage = body.RemoveImage
	return f, nil
}

func validationFailed(w http.ResponseWriter, err error) {
	errs := map[string][]string{}
	if fe, ok := err.(model.FieldErrors); ok {
		for k, v := range fe {
			errs[k] = []string{v}
		}
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "The given data was invalid.", "errors": errs})
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	u, ok := s.caller(r)
	if !ok {
		fail(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}
	f, err := readItemForm(r)
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := f.fields.Validate(); err != nil {
		validationFailed(w, err)
		return
	}

	it := model.Item{
		UserID:      u.ID,
		User:        u,
		Title:       f.fields.Title,
		Description: f.fields.Description,
		Type:        f.fields.Type,
		Location:    f.fields.Location,
		Status:      f.fields.Status,
		ContactInfo: f.fields.ContactInfo,
	}
	s.mu.Lock()
	it = s.addItemLocked(it)
	if f.hasImage {
		s.items[it.ID].ImageURL = "/storage/items/" + time.Now().Format("150405") + ".jpg"
		it = *s.items[it.ID]
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Item created", "data": it})
}

// owned loads an item the caller may modify, writing the error response otherwise.
func (s *Server) owned(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	u, ok := s.caller(r)
	if !ok {
		fail(w, http.StatusUnauthorized, "Unauthenticated.")
		return nil, false
	}
	s.mu.Lock()
	it, ok := s.items[pathID(r)]
	s.mu.Unlock()
	if !ok {
		fail(w, http.StatusNotFound, "Item not found")
		return nil, false
	}
	if !it.CanModify(&u) {
		fail(w, http.StatusForbidden, "You are not allowed to modify this item")
		return nil, false
	}
	return it, true
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	it, ok := s.owned(w, r)
	if !ok {
		return
	}
	f, err := readItemForm(r)
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := f.fields.Validate(); err != nil {
		validationFailed(w, err)
		return
	}

	s.mu.Lock()
	it.Title = f.fields.Title
	it.Description = f.fields.Description
	it.Type = f.fields.Type
	it.Location = f.fields.Location
	it.ContactInfo = f.fields.ContactInfo
	if f.fields.Status != "" {
		it.Status = f.fields.Status
	}
	switch {
	case f.hasImage:
		it.ImageURL = "/storage/items/" + time.Now().Format("150405") + ".jpg"
	case f.removeImage:
		it.ImageURL = ""
	}
	it.UpdatedAt = time.Now().UTC()
	out := *it
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Item updated", "data": out})
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	it, ok := s.owned(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.items, it.ID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Item deleted"})
}

// myItems answers with a bare array in data.
func (s *Server) myItems(w http.ResponseWriter, r *http.Request) {
	u, ok := s.caller(r)
	if !ok {
		fail(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}
	s.mu.Lock()
	var mine []*model.Item
	for _, it := range s.items {
		if it.UserID == u.ID {
			mine = append(mine, it)
		}
	}
	items := sorted(mine)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": items})
}

func (s *Server) admin(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	u, ok := s.caller(r)
	if !ok {
		fail(w, http.StatusUnauthorized, "Unauthenticated.")
		return u, false
	}
	if !u.IsAdmin() {
		fail(w, http.StatusForbidden, "Admin access required")
		return u, false
	}
	return u, true
}

func (s *Server) pending(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.admin(w, r); !ok {
		return
	}
	s.mu.Lock()
	var pending []*model.Item
	for _, it := range s.items {
		if it.VerificationStatus == model.VerificationPending {
			pending = append(pending, it)
		}
	}
	items := sorted(pending)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": paginate(items, r)})
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	u, ok := s.admin(w, r)
	if !ok {
		return
	}
	var v model.Verification
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "The given data was invalid.",
			"errors":  map[string][]string{"verification_status": {err.Error()}},
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	it, found := s.items[pathID(r)]
	if !found {
		fail(w, http.StatusNotFound, "Item not found")
		return
	}
	now := time.Now().UTC()
	verifier := u
	it.VerificationStatus = v.Status
	it.VerificationNotes = v.Notes
	it.VerifiedBy = &u.ID
	it.VerifiedAt = &now
	it.Verifier = &verifier
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Item " + v.Status, "data": *it})
}
