package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrUnauthorized is returned when the server rejects the session's
// credential. By the time a caller sees it the credential has already been
// evicted from the store; the only recovery is a fresh login.
var ErrUnauthorized = errors.New("session credential rejected")

// Error is a normalized server-side failure: the HTTP status plus whatever
// human-readable detail could be extracted from the response body.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Detail, e.Status)
}

// Detail returns the server-provided message from err if it carries one,
// or the empty string.
func Detail(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

// errorFromResponse collapses the server's loosely shaped error bodies into
// a single *Error. FastAPI-style servers put the message under "detail",
// sometimes as a string, sometimes as a validation structure.
func errorFromResponse(resp *http.Response) *Error {
	apiErr := &Error{Status: resp.StatusCode, Detail: http.StatusText(resp.StatusCode)}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return apiErr
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
		apiErr.Detail = s
		return apiErr
	}
	// Structured detail (e.g. a validation error list): keep it verbatim so
	// the caller has something to display.
	apiErr.Detail = string(payload.Detail)
	return apiErr
}
