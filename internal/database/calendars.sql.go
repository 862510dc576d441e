package database

import "context"

const getCalendarForUser = `
SELECT c.id, c.owner_id, c.display_name, c.color, c.components, c.ctag,
       CASE WHEN c.owner_id = $2 THEN 31 ELSE COALESCE(s.permissions, 0) END AS permissions
FROM calendars c
LEFT JOIN calendar_shares s ON s.calendar_id = c.id AND s.user_id = $2
WHERE c.id = $1
  AND (c.owner_id = $2 OR s.user_id IS NOT NULL)
`

type GetCalendarForUserParams struct {
	ID     int64
	UserID string
}

// GetCalendarForUser returns the calendar if userID owns it or has a share.
// Returns pgx.ErrNoRows otherwise.
func (q *Queries) GetCalendarForUser(ctx context.Context, arg GetCalendarForUserParams) (Calendar, error) {
	row := q.db.QueryRow(ctx, getCalendarForUser, arg.ID, arg.UserID)
	var i Calendar
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.DisplayName,
		&i.Color,
		&i.Components,
		&i.Ctag,
		&i.Permissions,
	)
	return i, err
}

const bumpCalendarCtag = `
UPDATE calendars SET ctag = ctag + 1 WHERE id = $1
`

// BumpCalendarCtag advances the change tag after objects were written.
func (q *Queries) BumpCalendarCtag(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, bumpCalendarCtag, id)
	return err
}
