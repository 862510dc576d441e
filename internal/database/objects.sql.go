package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const objectColumns = `id, calendar_id, uri, object_type, uid, summary, description, location,
       status, start_at, end_at, all_day, rrule, etag, last_modified`

func scanObject(row pgx.Row) (CalendarObject, error) {
	var i CalendarObject
	err := row.Scan(
		&i.ID,
		&i.CalendarID,
		&i.Uri,
		&i.ObjectType,
		&i.Uid,
		&i.Summary,
		&i.Description,
		&i.Location,
		&i.Status,
		&i.StartAt,
		&i.EndAt,
		&i.AllDay,
		&i.Rrule,
		&i.Etag,
		&i.LastModified,
	)
	return i, err
}

func collectObjects(rows pgx.Rows) ([]CalendarObject, error) {
	defer rows.Close()

	var items []CalendarObject
	for rows.Next() {
		i, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listObjectsByType = `
SELECT ` + objectColumns + `
FROM calendar_objects
WHERE calendar_id = $1 AND object_type = $2
ORDER BY start_at NULLS LAST, id
LIMIT $3 OFFSET $4
`

type ListObjectsByTypeParams struct {
	CalendarID int64
	ObjectType int32
	Limit      pgtype.Int4 // NULL means no limit
	Offset     pgtype.Int4
}

func (q *Queries) ListObjectsByType(ctx context.Context, arg ListObjectsByTypeParams) ([]CalendarObject, error) {
	rows, err := q.db.Query(ctx, listObjectsByType, arg.CalendarID, arg.ObjectType, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectObjects(rows)
}

// Candidates for a period: single objects overlapping [start, end) plus
// every recurring object that starts before end. Objects without a start
// (todos with only DUE) are placed at their end. Recurring candidates are
// filtered by the caller after expanding their rules.
const listObjectCandidatesInPeriod = `
SELECT ` + objectColumns + `
FROM calendar_objects
WHERE calendar_id = $1 AND object_type = $2
  AND (
        (rrule IS NULL AND COALESCE(start_at, end_at) < $4 AND COALESCE(end_at, start_at) >= $3)
     OR (rrule IS NOT NULL AND start_at < $4)
  )
ORDER BY COALESCE(start_at, end_at), id
`

type ListObjectCandidatesInPeriodParams struct {
	CalendarID  int64
	ObjectType  int32
	PeriodStart pgtype.Timestamptz
	PeriodEnd   pgtype.Timestamptz
}

func (q *Queries) ListObjectCandidatesInPeriod(ctx context.Context, arg ListObjectCandidatesInPeriodParams) ([]CalendarObject, error) {
	rows, err := q.db.Query(ctx, listObjectCandidatesInPeriod,
		arg.CalendarID, arg.ObjectType, arg.PeriodStart, arg.PeriodEnd)
	if err != nil {
		return nil, err
	}
	return collectObjects(rows)
}

const getObjectByType = `
SELECT ` + objectColumns + `
FROM calendar_objects
WHERE calendar_id = $1 AND uri = $2 AND object_type = $3
`

type GetObjectByTypeParams struct {
	CalendarID int64
	Uri        string
	ObjectType int32
}

// GetObjectByType returns pgx.ErrNoRows when no object matches.
func (q *Queries) GetObjectByType(ctx context.Context, arg GetObjectByTypeParams) (CalendarObject, error) {
	return scanObject(q.db.QueryRow(ctx, getObjectByType, arg.CalendarID, arg.Uri, arg.ObjectType))
}

const insertObject = `
INSERT INTO calendar_objects (
    calendar_id, uri, object_type, uid, summary, description, location,
    status, start_at, end_at, all_day, rrule, etag
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT ON CONSTRAINT calendar_objects_uid_unique DO NOTHING
`

type InsertObjectParams struct {
	CalendarID  int64
	Uri         string
	ObjectType  int32
	Uid         string
	Summary     pgtype.Text
	Description pgtype.Text
	Location    pgtype.Text
	Status      pgtype.Text
	StartAt     pgtype.Timestamptz
	EndAt       pgtype.Timestamptz
	AllDay      bool
	Rrule       pgtype.Text
	Etag        string
}

// InsertObject returns the number of rows written: 0 when an object with
// the same UID already exists in the calendar.
func (q *Queries) InsertObject(ctx context.Context, arg InsertObjectParams) (int64, error) {
	tag, err := q.db.Exec(ctx, insertObject,
		arg.CalendarID,
		arg.Uri,
		arg.ObjectType,
		arg.Uid,
		arg.Summary,
		arg.Description,
		arg.Location,
		arg.Status,
		arg.StartAt,
		arg.EndAt,
		arg.AllDay,
		arg.Rrule,
		arg.Etag,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
