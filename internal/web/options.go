package web

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/calsrv/internal/calendar"
)

// listLimits bounds the page size a request may ask for.
type listLimits struct {
	Default int
	Max     int
}

// listRequest holds the validated query options of a listing.
type listRequest struct {
	Page   calendar.Page
	Period calendar.Period

	// InPeriod is set when start or end was given.
	InPeriod bool
}

// parseListRequest reads limit, offset, nolimit, start and end from q.
// A missing start or end defaults to the bounds of the month containing now.
func parseListRequest(q url.Values, limits listLimits, now time.Time) (listRequest, error) {
	req := listRequest{Page: calendar.Page{Limit: limits.Default}}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || (limits.Max > 0 && n > limits.Max) {
			return req, calendar.InvalidRequest("limit must be an integer between 1 and %d", limits.Max)
		}
		req.Page.Limit = n
	}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > math.MaxInt32 {
			return req, calendar.InvalidRequest("offset must be an integer between 0 and %d", math.MaxInt32)
		}
		req.Page.Offset = n
	}

	if v := q.Get("nolimit"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, calendar.InvalidRequest("nolimit must be true or false")
		}
		req.Page.NoLimit = b
	}

	month := calendar.MonthOf(now)
	req.Period = month

	if v := q.Get("start"); v != "" {
		t, err := parseDate(v, now.Location())
		if err != nil {
			return req, calendar.InvalidRequest("start must be YYYY-MM-DD or RFC 3339")
		}
		req.Period.Start = t
		req.InPeriod = true
	}
	if v := q.Get("end"); v != "" {
		t, err := parseDate(v, now.Location())
		if err != nil {
			return req, calendar.InvalidRequest("end must be YYYY-MM-DD or RFC 3339")
		}
		req.Period.End = t
		req.InPeriod = true
	}

	if !req.Period.Valid() {
		return req, calendar.InvalidRequest("end must be after start")
	}
	return req, nil
}

// parseDate accepts a calendar date (midnight in loc) or an RFC 3339 instant.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
