package apiclient

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/erazemk/lostfound/internal/model"
)

// Envelope is the success variant of an API call: the common response
// wrapper used by every endpoint.
type Envelope struct {
	Status      int            `mapstructure:"-"`
	Success     *bool          `mapstructure:"success"`
	Message     string         `mapstructure:"message"`
	Data        any            `mapstructure:"data"`
	User        map[string]any `mapstructure:"user"`
	Token       string         `mapstructure:"token"`
	AccessToken string         `mapstructure:"access_token"`
	Errors      any            `mapstructure:"errors"`
}

// FieldErrors normalizes the errors member, which backends send either as
// {"field": ["msg", ...]} or {"field": "msg"} or a plain list.
func (e *Envelope) FieldErrors() map[string][]string {
	out := map[string][]string{}
	switch v := e.Errors.(type) {
	case map[string]any:
		for field, msgs := range v {
			switch m := msgs.(type) {
			case string:
				out[field] = append(out[field], m)
			case []any:
				for _, x := range m {
					if s, ok := x.(string); ok {
						out[field] = append(out[field], s)
					}
				}
			}
		}
	case []any:
		for _, x := range v {
			if s, ok := x.(string); ok {
				out[""] = append(out[""], s)
			}
		}
	case string:
		if v != "" {
			out[""] = []string{v}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// BearerToken returns the issued token. Backends disagree on the field name,
// so token wins over access_token, and both are also looked up inside data.
func (e *Envelope) BearerToken() string {
	if e.Token != "" {
		return e.Token
	}
	if e.AccessToken != "" {
		return e.AccessToken
	}
	if m, ok := e.Data.(map[string]any); ok {
		for _, k := range []string{"token", "access_token"} {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// timeHook decodes API timestamps. Empty strings decode to the zero time.
func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", s)
}

// decode maps loosely typed JSON (map[string]any, []any) into target.
func decode(input any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       timeHook,
		WeaklyTypedInput: true,
		Result:           target,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func decodeEnvelope(raw map[string]any, status int) (*Envelope, error) {
	env := &Envelope{}
	if err := decode(raw, env); err != nil {
		return nil, err
	}
	env.Status = status
	return env, nil
}

// ItemPage is one page of an item listing.
type ItemPage struct {
	Items       []model.Item
	Total       int
	CurrentPage int
	LastPage    int
}

type paginated struct {
	Data        []map[string]any `mapstructure:"data"`
	Total       int              `mapstructure:"total"`
	CurrentPage int              `mapstructure:"current_page"`
	LastPage    int              `mapstructure:"last_page"`
}

// decodeItemPage accepts a bare array or a paginator object.
func decodeItemPage(data any) (*ItemPage, error) {
	page := &ItemPage{CurrentPage: 1, LastPage: 1}

	switch v := data.(type) {
	case nil:
		return page, nil
	case []any:
		if err := decode(v, &page.Items); err != nil {
			return nil, fmt.Errorf("decoding items: %w", err)
		}
		page.Total = len(page.Items)
		return page, nil
	case map[string]any:
		var p paginated
		if err := decode(v, &p); err != nil {
			return nil, fmt.Errorf("decoding item page: %w", err)
		}
		page.Items = make([]model.Item, 0, len(p.Data))
		for _, raw := range p.Data {
			var it model.Item
			if err := decode(raw, &it); err != nil {
				return nil, fmt.Errorf("decoding item: %w", err)
			}
			page.Items = append(page.Items, it)
		}
		page.Total = p.Total
		if page.Total == 0 {
			page.Total = len(page.Items)
		}
		if p.CurrentPage > 0 {
			page.CurrentPage = p.CurrentPage
		}
		if p.LastPage > 0 {
			page.LastPage = p.LastPage
		}
		return page, nil
	default:
		return nil, fmt.Errorf("unexpected item list payload %T", data)
	}
}

func decodeItem(data any) (*model.Item, error) {
	m, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected item payload %T", data)
	}
	// Some endpoints wrap the item once more.
	if inner, ok := m["item"].(map[string]any); ok {
		m = inner
	}
	var it model.Item
	if err := decode(m, &it); err != nil {
		return nil, fmt.Errorf("decoding item: %w", err)
	}
	return &it, nil
}

func decodeUser(data any) (*model.User, error) {
	m, ok := data.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, fmt.Errorf("unexpected user payload %T", data)
	}
	if inner, ok := m["user"].(map[string]any); ok {
		m = inner
	}
	var u model.User
	if err := decode(m, &u); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	if u.ID == 0 && u.Email == "" {
		return nil, fmt.Errorf("user payload without id or email")
	}
	return &u, nil
}
