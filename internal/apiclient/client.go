// Package apiclient talks to the Lost & Found REST API. Every call returns
// either a decoded success value or an *Error describing what went wrong.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 10 << 20

// DefaultTimeout applies when New is given a non-positive timeout.
const DefaultTimeout = 15 * time.Second

// Client sends requests to the REST API.
type Client struct {
	BaseURL   *url.URL
	HTTP      *http.Client
	UserAgent string
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:8000/api.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url must be http or https, got %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:   u,
		HTTP:      &http.Client{Timeout: timeout},
		UserAgent: "lostfound-web",
	}, nil
}

// Request describes one API call. At most one of JSON and Form is set.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Token is the bearer token; empty for anonymous calls.
	Token string
	JSON  any
	Form  *Multipart
}

// Multipart is a multipart/form-data body with ordered fields and at most one file.
type Multipart struct {
	Fields [][2]string
	File   *FilePart
}

// Add appends a form field.
func (m *Multipart) Add(name, value string) {
	m.Fields = append(m.Fields, [2]string{name, value})
}

// FilePart is a file attached to a multipart body.
type FilePart struct {
	Field    string
	Filename string
	MIME     string
	Data     []byte
}

type requestIDKey struct{}

// WithRequestID returns a context whose outbound API calls carry the given
// request id in X-Request-Id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Do performs the request and decodes the response envelope.
func (c *Client) Do(ctx context.Context, r *Request) (*Envelope, error) {
	start := time.Now()
	req, err := c.newHTTPRequest(ctx, r)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "building request", Err: err}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Status: resp.StatusCode, Err: err}
	}

	zerolog.Ctx(ctx).Debug().
		Str("method", r.Method).
		Str("path", r.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api call")

	return parseResponse(resp.StatusCode, body)
}

func (c *Client) newHTTPRequest(ctx context.Context, r *Request) (*http.Request, error) {
	u := c.BaseURL.JoinPath(r.Path)
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case r.Form != nil:
		buf, ct, err := encodeMultipart(r.Form)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case r.JSON != nil:
		data, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, fmt.Errorf("encoding json body: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if id := requestIDFrom(ctx); id != "" {
		req.Header.Set("X-Request-Id", id)
	}
	return req, nil
}

func encodeMultipart(m *Multipart) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, f := range m.Fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", f[0], err)
		}
	}
	if m.File != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, m.File.Field, m.File.Filename))
		mime := m.File.MIME
		if mime == "" {
			mime = "application/octet-stream"
		}
		h.Set("Content-Type", mime)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("creating file part: %w", err)
		}
		if _, err := part.Write(m.File.Data); err != nil {
			return nil, "", fmt.Errorf("writing file part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

// parseResponse turns a status and body into the success or failure variant.
func parseResponse(status int, body []byte) (*Envelope, error) {
	ok := status >= 200 && status < 300

	if len(bytes.TrimSpace(body)) == 0 {
		if ok {
			return &Envelope{Status: status}, nil
		}
		return nil, &Error{Kind: kindForStatus(status), Status: status, Message: http.StatusText(status)}
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		if ok {
			return nil, &Error{Kind: KindDecode, Status: status, Err: err}
		}
		return nil, &Error{Kind: kindForStatus(status), Status: status, Message: http.StatusText(status)}
	}

	obj, isObj := raw.(map[string]any)
	if !isObj {
		if ok {
			return &Envelope{Status: status, Data: raw}, nil
		}
		return nil, &Error{Kind: kindForStatus(status), Status: status, Message: http.StatusText(status)}
	}

	env, err := decodeEnvelope(obj, status)
	if err != nil {
		return nil, &Error{Kind: KindDecode, Status: status, Err: err}
	}

	fields := env.FieldErrors()
	if !ok {
		kind := kindForStatus(status)
		if fields != nil && kind == KindRejected {
			kind = KindValidation
		}
		return nil, &Error{Kind: kind, Status: status, Message: env.Message, Fields: fields}
	}
	if env.Success != nil && !*env.Success {
		kind := KindRejected
		if fields != nil {
			kind = KindValidation
		}
		return nil, &Error{Kind: kind, Status: status, Message: env.Message, Fields: fields}
	}
	return env, nil
}

// IsCanceled reports whether err came from a cancelled or timed out context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
