package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusAndCode(t *testing.T) {
	cal := &Calendar{ID: 3}

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"nil", nil, http.StatusOK, "ERR000"},
		{"calendar not found", CalendarNotFound(3), http.StatusNotFound, "CAL001"},
		{"object not found", ObjectNotFound("a.ics", TypeEvent), http.StatusNotFound, "OBJ001"},
		{"read denied", Forbidden(cal, PermRead), http.StatusForbidden, "PERM001"},
		{"create denied", Forbidden(cal, PermCreate), http.StatusForbidden, "PERM002"},
		{"invalid request", InvalidRequest("bad %s", "limit"), http.StatusBadRequest, "REQ001"},
		{"busy", ErrTooManyImports, http.StatusServiceUnavailable, "IMP001"},
		{"wrapped busy", fmt.Errorf("import: %w", ErrTooManyImports), http.StatusServiceUnavailable, "IMP001"},
		{"bare sentinel", ErrPermissionDenied, http.StatusForbidden, "PERM001"},
		{"wrapped business", fmt.Errorf("handler: %w", CalendarNotFound(1)), http.StatusNotFound, "CAL001"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "ERR000"},
		{"cancelled", context.Canceled, http.StatusInternalServerError, "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.status {
				t.Errorf("StatusOf = %d, want %d", got, tt.status)
			}
			if got := CodeOf(tt.err); got != tt.code {
				t.Errorf("CodeOf = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestBusinessError_MessageAndUnwrap(t *testing.T) {
	err := ObjectNotFound("missing.ics", TypeTodo)

	if got := err.Error(); got != `todo "missing.ics" not found` {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("ObjectNotFound should wrap ErrNotFound")
	}

	var be *BusinessError
	if !errors.As(err, &be) || be.Status != http.StatusNotFound {
		t.Errorf("errors.As = %+v", be)
	}
}

func TestRequire(t *testing.T) {
	cal := &Calendar{ID: 9, Permissions: PermRead}

	if err := Require(cal, PermRead); err != nil {
		t.Errorf("Require(read) = %v", err)
	}

	err := Require(cal, PermCreate)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Require(create) = %v, want ErrPermissionDenied", err)
	}
	if got := err.Error(); got != "create access to calendar 9 denied" {
		t.Errorf("message = %q", got)
	}
}
