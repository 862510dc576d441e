package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/calsrv/internal/calendar"
	"github.com/go-chi/chi/v5"
)

// requestTarget returns the calendar id from the URL and the
// authenticated user from the request context.
func requestTarget(r *http.Request) (int64, string, error) {
	userID := calendar.UserIDFromContext(r.Context())
	if userID == "" {
		return 0, "", errUnauthenticated
	}

	raw := chi.URLParam(r, "calendarID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", calendar.InvalidRequest("invalid calendar id %q", raw)
	}
	return id, userID, nil
}
