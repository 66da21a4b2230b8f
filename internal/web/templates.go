package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/erazemk/lostfound/internal/model"
	webembed "github.com/erazemk/lostfound/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
		"upper": strings.ToUpper,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
		"datePtr": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
		"typeClass": func(typ string) string {
			if typ == model.ItemTypeLost {
				return "badge-lost"
			}
			return "badge-found"
		},
		"statusClass": statusClass,
		"canModify": func(it model.Item, u *model.User) bool {
			return it.CanModify(u)
		},
		"add": func(a, b int) int { return a + b },
		"pages": func(last int) []int {
			out := make([]int, 0, last)
			for i := 1; i <= last; i++ {
				out = append(out, i)
			}
			return out
		},
		"pager": func(base, query string, page, last int) pager {
			return pager{Base: base, Query: query, Page: page, Last: last}
		},
		"pageHref": pageHref,
		"types":    func() []string { return model.ItemTypes },
		"statuses": func() []string { return model.ItemStatuses },
	}
}

// statusClass picks the badge style for an item or verification status.
// Item and verification statuses share the "pending" value.
func statusClass(status string) string {
	switch status {
	case model.ItemStatusPending:
		return "badge-pending"
	case model.ItemStatusClaimed:
		return "badge-claimed"
	case model.VerificationRejected:
		return "badge-rejected"
	default:
		return "badge-ok"
	}
}

type pager struct {
	Base  string
	Query string
	Page  int
	Last  int
}

// pageHref builds a pagination link. The first page omits the page parameter.
func pageHref(base, query string, page int) string {
	var params []string
	if query != "" {
		params = append(params, query)
	}
	if page > 1 {
		params = append(params, "page="+strconv.Itoa(page))
	}
	if len(params) == 0 {
		return base
	}
	return base + "?" + strings.Join(params, "&")
}

var pages = []string{
	"home.html",
	"login.html",
	"register.html",
	"items.html",
	"item_detail.html",
	"item_form.html",
	"item_delete.html",
	"my_items.html",
	"admin.html",
	"admin_verification.html",
	"admin_reject.html",
	"loading.html",
	"error.html",
}

// LoadTemplates parses all page templates with the layout and shared partials.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}
	partialBytes, err := fs.ReadFile(tfs, "partials.html")
	if err != nil {
		return nil, fmt.Errorf("reading partials template: %w", err)
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		for _, src := range []struct {
			name string
			body []byte
		}{
			{"layout", layoutBytes},
			{"partials", partialBytes},
			{page, pageBytes},
		} {
			if tmpl, err = tmpl.Parse(string(src.body)); err != nil {
				return nil, fmt.Errorf("parsing %s for %s: %w", src.name, page, err)
			}
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a page with status 200.
func (ts *Templates) Render(w http.ResponseWriter, r *http.Request, name string, data any) {
	ts.RenderStatus(w, r, http.StatusOK, name, "layout", data)
}

// RenderStatus executes the named template of a page and writes it with the
// given status. Output is buffered so a template error never produces half
// a page.
func (ts *Templates) RenderStatus(w http.ResponseWriter, r *http.Request, status int, page, name string, data any) {
	tmpl, ok := ts.templates[page]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("template", page).Msg("failed to render template")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("writing response")
	}
}
