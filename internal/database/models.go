package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Calendar is a row of calendars joined with the caller's effective
// permissions.
type Calendar struct {
	ID          int64
	OwnerID     string
	DisplayName string
	Color       pgtype.Text
	Components  int32
	Ctag        int64
	Permissions int32
}

// CalendarObject is a row of calendar_objects.
type CalendarObject struct {
	ID           int64
	CalendarID   int64
	Uri          string
	ObjectType   int32
	Uid          string
	Summary      pgtype.Text
	Description  pgtype.Text
	Location     pgtype.Text
	Status       pgtype.Text
	StartAt      pgtype.Timestamptz
	EndAt        pgtype.Timestamptz
	AllDay       bool
	Rrule        pgtype.Text
	Etag         string
	LastModified time.Time
}

// ImportHistory is a row of import_history.
type ImportHistory struct {
	ID         pgtype.UUID
	CalendarID int64
	UserID     string
	FileName   string
	Imported   int32
	Errors     int32
	Duplicates int32
	ImportedAt time.Time
}
