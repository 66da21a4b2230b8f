package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/erazemk/lostfound/internal/apiclient"
	"github.com/erazemk/lostfound/internal/imaging"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/session"
)

// HomePage handles GET /.
func (s *Server) HomePage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, r, "home.html", s.page(w, r, "Lost & Found"))
}

type itemList struct {
	PageData
	Filter apiclient.Filter
	Items  []model.Item
	Total  int
	Page   int
	Last   int
	// Query is the filter query string without page, for pagination links.
	Query string
}

func filterFromQuery(r *http.Request) apiclient.Filter {
	q := r.URL.Query()
	f := apiclient.Filter{
		Location: q.Get("location"),
		Search:   q.Get("search"),
		Page:     pageParam(r),
	}
	if t := q.Get("type"); t == model.ItemTypeLost || t == model.ItemTypeFound {
		f.Type = t
	}
	return f
}

// filterQuery renders a filter as a query string without the page.
type filterQuery apiclient.Filter

func (f filterQuery) String() string {
	q := url.Values{}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	if f.Location != "" {
		q.Set("location", f.Location)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q.Encode()
}

// trackerKey identifies the browser for latest-request-wins bookkeeping.
func trackerKey(r *http.Request) string {
	if id := session.FromContext(r.Context()).ID(); id != "" {
		return "sid:" + id
	}
	if t := csrfToken(r.Context()); t != "" {
		return "csrf:" + t
	}
	return ""
}

// loadItemList fetches the list for r. ok is false when a response has
// already been written. Tracked fetches answer 204 when a newer fetch from
// the same browser superseded them; full page loads are never tracked.
func (s *Server) loadItemList(w http.ResponseWriter, r *http.Request, tracked bool) (*itemList, bool) {
	f := filterFromQuery(r)
	key := ""
	if tracked {
		key = trackerKey(r)
	}
	ctx, ticket := s.Tracker.Begin(r.Context(), key)
	defer ticket.Done()

	sess := session.FromContext(r.Context())
	page, err := s.Items.List(ctx, sess.Token(), f)
	if apiclient.IsUnauthorized(err) && sess.Token() != "" {
		// The list is public: drop the rejected token and fetch anonymously.
		s.forgetSession(w, r)
		page, err = s.Items.List(ctx, "", f)
	}
	if !ticket.Current() {
		zerolog.Ctx(r.Context()).Debug().Msg("item list superseded")
		w.WriteHeader(http.StatusNoContent)
		return nil, false
	}

	data := &itemList{
		PageData: s.page(w, r, "Items"),
		Filter:   f,
		Page:     1,
		Last:     1,
		Query:    filterQuery(f).String(),
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list items")
		data.setError(err, "Error fetching items")
		return data, true
	}
	data.Items = page.Items
	data.Total = page.Total
	data.Page = page.CurrentPage
	data.Last = page.LastPage
	return data, true
}

// ItemsPage handles GET /items.
func (s *Server) ItemsPage(w http.ResponseWriter, r *http.Request) {
	data, ok := s.loadItemList(w, r, false)
	if !ok {
		return
	}
	s.Templates.Render(w, r, "items.html", data)
}

// ItemResults handles GET /items/results, the list fragment used for live filtering.
func (s *Server) ItemResults(w http.ResponseWriter, r *http.Request) {
	data, ok := s.loadItemList(w, r, true)
	if !ok {
		return
	}
	s.Templates.RenderStatus(w, r, http.StatusOK, "items.html", "item_list", data)
}

type itemPage struct {
	PageData
	Item      *model.Item
	CanModify bool
}

// loadItem fetches the item named in the path. ok is false when a response
// has already been written.
func (s *Server) loadItem(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	id, err := pathID(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid item id.")
		return nil, false
	}
	item, err := s.Items.Get(r.Context(), session.FromContext(r.Context()).Token(), id)
	if err != nil {
		s.renderAPIError(w, r, err, "An error occurred while fetching the item")
		return nil, false
	}
	return item, true
}

// loadOwnedItem is loadItem plus the owner-or-admin check.
func (s *Server) loadOwnedItem(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	item, ok := s.loadItem(w, r)
	if !ok {
		return nil, false
	}
	if !item.CanModify(session.FromContext(r.Context()).User()) {
		s.renderError(w, r, http.StatusForbidden, "You can only change your own items.")
		return nil, false
	}
	return item, true
}

// ItemDetailPage handles GET /items/{id}.
func (s *Server) ItemDetailPage(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadItem(w, r)
	if !ok {
		return
	}
	user := session.FromContext(r.Context()).User()
	s.Templates.Render(w, r, "item_detail.html", &itemPage{
		PageData:  s.page(w, r, item.Title),
		Item:      item,
		CanModify: item.CanModify(user),
	})
}

type itemForm struct {
	PageData
	Item   *model.Item
	Form   model.ItemFields
	Edit   bool
	Action string
}

// readItemInput reads the item form, including an optional image.
func (s *Server) readItemInput(r *http.Request, edit bool) (apiclient.ItemInput, error) {
	in := apiclient.ItemInput{ItemFields: model.ItemFields{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Type:        r.PostFormValue("type"),
		Location:    r.PostFormValue("location"),
		ContactInfo: r.PostFormValue("contact_info"),
	}}
	if edit {
		in.Status = r.PostFormValue("status")
		in.RemoveImage = r.PostFormValue("remove_image") == "1"
	}
	if err := in.ItemFields.Validate(); err != nil {
		return in, err
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return in, nil
	}
	if err != nil {
		return in, fmt.Errorf("reading image: %w", err)
	}
	defer file.Close()
	if header.Size == 0 {
		return in, nil
	}
	if header.Size > s.maxUpload {
		return in, errImageTooLarge
	}

	up, err := imaging.Prepare(file, header.Filename, s.maxDimension)
	if err != nil {
		return in, err
	}
	in.Image = up
	in.RemoveImage = false
	return in, nil
}

var errImageTooLarge = errors.New("image too large")

func (s *Server) formError(pd *PageData, err error) {
	switch {
	case errors.Is(err, imaging.ErrUnsupported):
		pd.Error = "Please upload a JPEG, PNG, GIF or WebP image."
	case errors.Is(err, errImageTooLarge):
		pd.Error = fmt.Sprintf("Images can be at most %d MB.", s.maxUpload>>20)
	default:
		pd.setError(err, "An error occurred while saving the item")
	}
}

// ItemNewPage handles GET /items/new.
func (s *Server) ItemNewPage(w http.ResponseWriter, r *http.Request) {
	fields := model.ItemFields{Type: model.ItemTypeLost}
	if t := r.URL.Query().Get("type"); t == model.ItemTypeFound {
		fields.Type = t
	}
	s.Templates.Render(w, r, "item_form.html", &itemForm{
		PageData: s.page(w, r, "Report an Item"),
		Form:     fields,
		Action:   "/items/new",
	})
}

// ItemCreateSubmit handles POST /items/new.
func (s *Server) ItemCreateSubmit(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	in, err := s.readItemInput(r, false)
	if err == nil {
		var item *model.Item
		item, err = s.Items.Create(r.Context(), sess.Token(), in)
		if err == nil {
			zerolog.Ctx(r.Context()).Info().Int64("item_id", item.ID).Str("type", in.Type).Msg("item created")
			s.flash(w, r, "success", "Item reported successfully.")
			http.Redirect(w, r, "/my-items", http.StatusSeeOther)
			return
		}
		if apiclient.IsUnauthorized(err) {
			s.unauthorized(w, r)
			return
		}
	}

	form := &itemForm{
		PageData: s.page(w, r, "Report an Item"),
		Form:     in.ItemFields,
		Action:   "/items/new",
	}
	s.formError(&form.PageData, err)
	s.Templates.RenderStatus(w, r, http.StatusUnprocessableEntity, "item_form.html", "layout", form)
}

// ItemEditPage handles GET /items/{id}/edit.
func (s *Server) ItemEditPage(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadOwnedItem(w, r)
	if !ok {
		return
	}
	s.Templates.Render(w, r, "item_form.html", &itemForm{
		PageData: s.page(w, r, "Edit Item"),
		Item:     item,
		Form: model.ItemFields{
			Title:       item.Title,
			Description: item.Description,
			Type:        item.Type,
			Location:    item.Location,
			Status:      item.Status,
			ContactInfo: item.ContactInfo,
		},
		Edit:   true,
		Action: itemURL(item.ID) + "/edit",
	})
}

// ItemUpdateSubmit handles POST /items/{id}/edit.
func (s *Server) ItemUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadOwnedItem(w, r)
	if !ok {
		return
	}
	sess := session.FromContext(r.Context())

	in, err := s.readItemInput(r, true)
	if err == nil {
		_, err = s.Items.Update(r.Context(), sess.Token(), item.ID, in)
		if err == nil {
			zerolog.Ctx(r.Context()).Info().Int64("item_id", item.ID).Str("status", in.Status).Msg("item updated")
			s.flash(w, r, "success", "Item updated successfully.")
			http.Redirect(w, r, itemURL(item.ID), http.StatusSeeOther)
			return
		}
		if apiclient.IsUnauthorized(err) {
			s.unauthorized(w, r)
			return
		}
	}

	form := &itemForm{
		PageData: s.page(w, r, "Edit Item"),
		Item:     item,
		Form:     in.ItemFields,
		Edit:     true,
		Action:   itemURL(item.ID) + "/edit",
	}
	s.formError(&form.PageData, err)
	s.Templates.RenderStatus(w, r, http.StatusUnprocessableEntity, "item_form.html", "layout", form)
}

// ItemDeletePage handles GET /items/{id}/delete, the confirmation step.
func (s *Server) ItemDeletePage(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadOwnedItem(w, r)
	if !ok {
		return
	}
	s.Templates.Render(w, r, "item_delete.html", &itemPage{
		PageData:  s.page(w, r, "Delete Item"),
		Item:      item,
		CanModify: true,
	})
}

// ItemDeleteSubmit handles POST /items/{id}/delete. Only confirm=yes deletes,
// with exactly one backend call; any other answer returns to the item.
func (s *Server) ItemDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid item id.")
		return
	}
	if r.PostFormValue("confirm") != "yes" {
		http.Redirect(w, r, itemURL(id), http.StatusSeeOther)
		return
	}

	sess := session.FromContext(r.Context())
	if err := s.Items.Delete(r.Context(), sess.Token(), id); err != nil {
		if apiclient.IsUnauthorized(err) {
			s.unauthorized(w, r)
			return
		}
		zerolog.Ctx(r.Context()).Warn().Err(err).Int64("item_id", id).Msg("failed to delete item")
		s.flash(w, r, "error", apiclient.Message(err, "An error occurred while deleting the item"))
		http.Redirect(w, r, itemURL(id), http.StatusSeeOther)
		return
	}

	zerolog.Ctx(r.Context()).Info().Int64("item_id", id).Msg("item deleted")
	s.flash(w, r, "success", "Item deleted.")
	http.Redirect(w, r, "/my-items", http.StatusSeeOther)
}

// MyItemsPage handles GET /my-items.
func (s *Server) MyItemsPage(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	data := &struct {
		PageData
		Items []model.Item
	}{PageData: s.page(w, r, "My Items")}

	page, err := s.Items.Mine(r.Context(), sess.Token())
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			s.unauthorized(w, r)
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list own items")
		data.setError(err, "Error fetching your items")
	} else {
		data.Items = page.Items
	}
	s.Templates.Render(w, r, "my_items.html", data)
}
