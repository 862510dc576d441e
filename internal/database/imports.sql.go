package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertImportHistory = `
INSERT INTO import_history (id, calendar_id, user_id, file_name, imported, errors, duplicates)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type InsertImportHistoryParams struct {
	ID         pgtype.UUID
	CalendarID int64
	UserID     string
	FileName   string
	Imported   int32
	Errors     int32
	Duplicates int32
}

func (q *Queries) InsertImportHistory(ctx context.Context, arg InsertImportHistoryParams) error {
	_, err := q.db.Exec(ctx, insertImportHistory,
		arg.ID,
		arg.CalendarID,
		arg.UserID,
		arg.FileName,
		arg.Imported,
		arg.Errors,
		arg.Duplicates,
	)
	return err
}

const listImportHistory = `
SELECT id, calendar_id, user_id, file_name, imported, errors, duplicates, imported_at
FROM import_history
WHERE calendar_id = $1
ORDER BY imported_at DESC
LIMIT $2
`

type ListImportHistoryParams struct {
	CalendarID int64
	Limit      int32
}

func (q *Queries) ListImportHistory(ctx context.Context, arg ListImportHistoryParams) ([]ImportHistory, error) {
	rows, err := q.db.Query(ctx, listImportHistory, arg.CalendarID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ImportHistory
	for rows.Next() {
		var i ImportHistory
		if err := rows.Scan(
			&i.ID,
			&i.CalendarID,
			&i.UserID,
			&i.FileName,
			&i.Imported,
			&i.Errors,
			&i.Duplicates,
			&i.ImportedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const purgeImportHistory = `
DELETE FROM import_history WHERE imported_at < $1
`

// PurgeImportHistory deletes entries older than before and returns the count.
func (q *Queries) PurgeImportHistory(ctx context.Context, before time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, purgeImportHistory, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
