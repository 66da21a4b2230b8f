package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failed API call.
type Kind int

// Failure kinds.
const (
	KindNetwork Kind = iota + 1
	KindDecode
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindServer
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Error is the failure variant of every API call.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	// Fields holds per-field validation messages from a 422 response.
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("api ")
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// FieldMessages flattens validation messages in a stable order.
func (e *Error) FieldMessages() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		out = append(out, e.Fields[k]...)
	}
	return out
}

// kindForStatus maps an HTTP status to a failure kind. 2xx maps to KindRejected,
// which is how a success:false envelope is reported.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		return KindValidation
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindRejected
	default:
		return KindRejected
	}
}

// KindOf returns the kind of an API error, or 0 if err is not one.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// IsUnauthorized reports whether err means the token is missing or invalid.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// IsNotFound reports whether the backend answered 404.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// Message turns err into text suitable for showing to the user. The backend
// message is preferred; network and decode failures use fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return fallback
	}
	switch apiErr.Kind {
	case KindNetwork:
		return "Could not reach the server. Please try again."
	case KindDecode:
		return fallback
	case KindUnauthorized:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "Your session has expired. Please log in again."
	case KindForbidden:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "You are not allowed to do that."
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	if msgs := apiErr.FieldMessages(); len(msgs) > 0 {
		return strings.Join(msgs, " ")
	}
	return fallback
}
