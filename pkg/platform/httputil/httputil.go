// Package httputil provides shared JSON response and request-decoding helpers
// for HTTP handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	tgerrors "trustgate/pkg/errors"
)

// Validatable is implemented by request types that validate and parse their
// own payload after decoding.
type Validatable interface {
	Validate() error
}

// errorResponse is the uniform error envelope returned by every endpoint.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error onto the HTTP error envelope. Internal
// errors omit the description so infrastructure detail never leaks to
// callers.
func WriteError(w http.ResponseWriter, err error) {
	code := tgerrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}

	if code != tgerrors.CodeInternal {
		var domainErr *tgerrors.Error
		if errors.As(err, &domainErr) {
			resp.ErrorDescription = domainErr.Message
		}
	}

	WriteJSON(w, tgerrors.ToHTTPStatus(code), resp)
}

// DecodeAndPrepare decodes the request body into T and runs its validation.
// On failure it writes the error response and returns ok=false; handlers
// just return.
func DecodeAndPrepare[T any, PT interface {
	Validatable
	*T
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		logger.WarnContext(ctx, "invalid request body",
			"request_id", requestID,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		WriteError(w, tgerrors.New(tgerrors.CodeValidation, "invalid request body"))
		return nil, false
	}
	if err := PT(req).Validate(); err != nil {
		logger.WarnContext(ctx, "request validation failed",
			"request_id", requestID,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
