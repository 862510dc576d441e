package web

// errors.go is the single place where errors become HTTP responses.
//
// Handlers never pick status codes for business failures themselves:
//  1. Handler receives an error from the business layer or serializer
//  2. Calls respondError(w, r, err)
//  3. The error is classified (calendar.StatusOf / calendar.CodeOf,
//     serializer errors always 500)
//  4. Business failures are logged at warn, server failures at error,
//     both with request and user id
//  5. The client gets {message, code} as JSON, or an error partial for HTMX

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/calsrv/internal/calendar"
	"github.com/JonMunkholm/calsrv/internal/logging"
	"github.com/JonMunkholm/calsrv/internal/serializer"
	"github.com/JonMunkholm/calsrv/internal/web/templates"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

const (
	msgInternal      = "An unexpected error occurred. Please try again."
	msgSerialization = "The response could not be generated."
)

// errUnauthenticated is returned when no user reached a handler.
var errUnauthenticated = calendar.NewBusinessError(http.StatusUnauthorized, "AUTH001", "authentication required", nil)

// classify returns the status, support code and client-safe message for err.
func classify(err error) (int, string, string) {
	if serializer.IsError(err) {
		return http.StatusInternalServerError, serializer.Code, msgSerialization
	}

	status := calendar.StatusOf(err)
	code := calendar.CodeOf(err)
	if status >= http.StatusInternalServerError && !errors.Is(err, calendar.ErrTooManyImports) {
		return status, code, msgInternal
	}

	var be *calendar.BusinessError
	if errors.As(err, &be) {
		return status, code, be.Message
	}
	return status, code, err.Error()
}

// respondError logs err and writes the matching error response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"code", code,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
	} else {
		logger.Warn("business error", attrs...)
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := templates.ErrorAlert(message, code).Render(r.Context(), w); err != nil {
			logger.Error("render error partial", "error", err)
		}
		return
	}

	writeJSONStatus(w, status, ErrorResponse{Message: message, Code: code})
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON with status.
// Encoding errors are logged since headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
