package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/erazemk/lostfound/internal/imaging"
	"github.com/erazemk/lostfound/internal/model"
)

// Filter narrows an item listing. Empty fields are not sent.
type Filter struct {
	Type     string
	Location string
	Search   string
	Page     int
}

func (f Filter) query() url.Values {
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
	if f.Page > 1 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	return q
}

// ItemInput is the body of a create or update call.
type ItemInput struct {
	model.ItemFields
	// Image, when set, switches the request to multipart.
	Image *imaging.Upload
	// RemoveImage asks the backend to drop the current image (update only).
	RemoveImage bool
}

func (in ItemInput) jsonBody() map[string]any {
	body := map[string]any{
		"title":        in.Title,
		"description":  in.Description,
		"type":         in.Type,
		"location":     in.Location,
		"contact_info": in.ContactInfo,
	}
	if in.Status != "" {
		body["status"] = in.Status
	}
	if in.RemoveImage {
		body["remove_image"] = true
	}
	return body
}

func (in ItemInput) multipart() *Multipart {
	m := &Multipart{}
	m.Add("title", in.Title)
	m.Add("description", in.Description)
	m.Add("type", in.Type)
	m.Add("location", in.Location)
	m.Add("contact_info", in.ContactInfo)
	if in.Status != "" {
		m.Add("status", in.Status)
	}
	if in.RemoveImage {
		m.Add("remove_image", "1")
	}
	m.File = &FilePart{
		Field:    "image",
		Filename: in.Image.Filename,
		MIME:     in.Image.MIME,
		Data:     in.Image.Data,
	}
	return m
}

func (in ItemInput) request(method, path, token string) *Request {
	r := &Request{Method: method, Path: path, Token: token}
	if in.Image != nil {
		r.Form = in.multipart()
	} else {
		r.JSON = in.jsonBody()
	}
	return r
}

// ItemService wraps the item and admin endpoints.
type ItemService struct {
	Client *Client
}

func itemPath(id int64) string {
	return "/items/" + strconv.FormatInt(id, 10)
}

// List returns one page of items matching f.
func (s *ItemService) List(ctx context.Context, token string, f Filter) (*ItemPage, error) {
	return s.page(ctx, &Request{Method: http.MethodGet, Path: "/items", Query: f.query(), Token: token})
}

// Get returns a single item.
func (s *ItemService) Get(ctx context.Context, token string, id int64) (*model.Item, error) {
	env, err := s.Client.Do(ctx, &Request{Method: http.MethodGet, Path: itemPath(id), Token: token})
	if err != nil {
		return nil, err
	}
	return item(env)
}

// Create reports a new item.
func (s *ItemService) Create(ctx context.Context, token string, in ItemInput) (*model.Item, error) {
	env, err := s.Client.Do(ctx, in.request(http.MethodPost, "/items", token))
	if err != nil {
		return nil, err
	}
	return itemOrEmpty(env)
}

// Update replaces the editable fields of an item.
func (s *ItemService) Update(ctx context.Context, token string, id int64, in ItemInput) (*model.Item, error) {
	env, err := s.Client.Do(ctx, in.request(http.MethodPut, itemPath(id), token))
	if err != nil {
		return nil, err
	}
	return itemOrEmpty(env)
}

// Delete removes an item.
func (s *ItemService) Delete(ctx context.Context, token string, id int64) error {
	_, err := s.Client.Do(ctx, &Request{Method: http.MethodDelete, Path: itemPath(id), Token: token})
	return err
}

// Mine lists the caller's own reports.
func (s *ItemService) Mine(ctx context.Context, token string) (*ItemPage, error) {
	return s.page(ctx, &Request{Method: http.MethodGet, Path: "/my-items", Token: token})
}

// All lists every item. The backend returns unverified items only to admins.
func (s *ItemService) All(ctx context.Context, token string) (*ItemPage, error) {
	return s.page(ctx, &Request{Method: http.MethodGet, Path: "/items", Token: token})
}

// PendingVerification lists items awaiting an admin decision.
func (s *ItemService) PendingVerification(ctx context.Context, token string, page int) (*ItemPage, error) {
	q := url.Values{}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return s.page(ctx, &Request{Method: http.MethodGet, Path: "/admin/items-for-verification", Query: q, Token: token})
}

// Verify records an admin decision on an item.
func (s *ItemService) Verify(ctx context.Context, token string, id int64, v model.Verification) error {
	if err := v.Validate(); err != nil {
		return &Error{Kind: KindValidation, Message: err.Error()}
	}
	_, err := s.Client.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/admin/verify-item/" + strconv.FormatInt(id, 10),
		Token:  token,
		JSON:   v,
	})
	return err
}

func (s *ItemService) page(ctx context.Context, r *Request) (*ItemPage, error) {
	env, err := s.Client.Do(ctx, r)
	if err != nil {
		return nil, err
	}
	p, err := decodeItemPage(env.Data)
	if err != nil {
		return nil, &Error{Kind: KindDecode, Status: env.Status, Err: err}
	}
	return p, nil
}

func item(env *Envelope) (*model.Item, error) {
	it, err := decodeItem(env.Data)
	if err != nil {
		return nil, &Error{Kind: KindDecode, Status: env.Status, Err: err}
	}
	return it, nil
}

// itemOrEmpty tolerates mutation responses that carry no item.
func itemOrEmpty(env *Envelope) (*model.Item, error) {
	if env.Data == nil {
		return &model.Item{}, nil
	}
	return item(env)
}
