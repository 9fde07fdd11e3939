package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrSessionExpired is returned when a 401 could not be recovered by
// refreshing the access token. Stored credentials are cleared by then.
var ErrSessionExpired = errors.New("api: session expired")

type Kind int

const (
	KindNetwork Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrorDetail is one entry of a problem response's errors list.
type ErrorDetail struct {
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// Error is a failed API call. Server errors carry the decoded problem body.
type Error struct {
	Kind    Kind
	Method  string
	Path    string
	Status  int
	Title   string
	Detail  string
	Details []ErrorDetail
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindNetwork:
		return fmt.Sprintf("api: %s %s: %v", e.Method, e.Path, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("api: %s %s: %d %s", e.Method, e.Path, e.Status, e.Detail)
	default:
		return fmt.Sprintf("api: %s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
}

func (e *Error) Unwrap() error { return e.Err }

// FieldErrors maps field names to validation messages. Locations such as
// "body.title" are reported as "title".
func (e *Error) FieldErrors() map[string]string {
	out := make(map[string]string, len(e.Details))
	for _, d := range e.Details {
		field := strings.TrimPrefix(d.Location, "body.")
		if field == "" || field == "body" {
			field = "_"
		}
		if prev, ok := out[field]; ok {
			out[field] = prev + "; " + d.Message
			continue
		}
		out[field] = d.Message
	}
	return out
}

// UserMessage is the text to show for this error.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindNetwork:
		return "Network error. Check your connection and try again."
	case KindUnauthorized:
		if e.Detail != "" {
			return e.Detail
		}
		return "Authentication failed."
	case KindForbidden:
		return "You do not have permission to do that."
	case KindNotFound:
		return "Not found."
	case KindServer:
		return "The server failed to handle the request. Try again later."
	default:
		if e.Detail != "" {
			return e.Detail
		}
		return e.Title
	}
}

// UserMessage returns the user-visible text for any error returned by Client.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrSessionExpired) {
		return "Your session has expired. Please log in again."
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The request timed out. Try again."
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return err.Error()
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindServer
	}
}
