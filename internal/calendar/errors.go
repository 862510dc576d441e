package calendar

// errors.go defines the failure taxonomy of the business layer.
//
// Every error returned to a transport is either a sentinel (ErrNotFound,
// ErrPermissionDenied, ErrTooManyImports) or a *BusinessError carrying the
// HTTP status and a message safe to show to users. Transports classify with
// errors.Is / errors.As and never parse messages.
//
// Error codes for support reference:
//
//	CAL001 - Calendar not found
//	OBJ001 - Object not found
//	PERM001 - Read access denied
//	PERM002 - Create access denied
//	REQ001 - Invalid request parameters
//	IMP001 - Too many concurrent imports
//	IMP002 - Import file could not be read
//	SER001 - Response could not be serialized
//	AUTH001 - Authentication required
//	AUTH002 - Invalid API key
//	RATE001 - Rate limit exceeded
//	ERR000 - Unexpected error

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound marks a missing calendar or object.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied marks a missing capability on a calendar.
	ErrPermissionDenied = errors.New("permission denied")
)

// BusinessError is a domain failure with a status code and user-facing message.
type BusinessError struct {
	Status  int    // HTTP status to answer with
	Code    string // Support reference code
	Message string // Safe to show to users
	Err     error  // Underlying cause, if any
}

func (e *BusinessError) Error() string {
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError returns a BusinessError with status and message.
func NewBusinessError(status int, code, message string, cause error) *BusinessError {
	return &BusinessError{Status: status, Code: code, Message: message, Err: cause}
}

// CalendarNotFound reports that calendar id does not exist for the user.
func CalendarNotFound(id int64) error {
	return NewBusinessError(http.StatusNotFound, "CAL001",
		fmt.Sprintf("calendar %d not found", id), ErrNotFound)
}

// ObjectNotFound reports that objectURI does not exist in the calendar.
func ObjectNotFound(objectURI string, t ObjectType) error {
	return NewBusinessError(http.StatusNotFound, "OBJ001",
		fmt.Sprintf("%s %q not found", t, objectURI), ErrNotFound)
}

// Forbidden reports a missing capability on a calendar.
func Forbidden(cal *Calendar, want Permissions) error {
	code := "PERM001"
	if want.Has(PermCreate) {
		code = "PERM002"
	}
	return NewBusinessError(http.StatusForbidden, code,
		fmt.Sprintf("%s access to calendar %d denied", want, cal.ID), ErrPermissionDenied)
}

// InvalidRequest reports a malformed request parameter.
func InvalidRequest(format string, args ...any) error {
	return NewBusinessError(http.StatusBadRequest, "REQ001", fmt.Sprintf(format, args...), nil)
}

// Require returns a Forbidden error unless cal grants want.
func Require(cal *Calendar, want Permissions) error {
	if cal.Allows(want) {
		return nil
	}
	return Forbidden(cal, want)
}

// StatusOf returns the HTTP status carried by err.
// Unclassified errors map to 500.
func StatusOf(err error) int {
	var be *BusinessError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &be) && be.Status != 0:
		return be.Status
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrTooManyImports):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf returns the support code for err, "ERR000" when unknown.
func CodeOf(err error) string {
	var be *BusinessError
	switch {
	case errors.As(err, &be) && be.Code != "":
		return be.Code
	case errors.Is(err, ErrTooManyImports):
		return "IMP001"
	case errors.Is(err, ErrNotFound):
		return "OBJ001"
	case errors.Is(err, ErrPermissionDenied):
		return "PERM001"
	default:
		return "ERR000"
	}
}
