package calendar

import (
	"context"
	"fmt"
	"time"

	db "github.com/JonMunkholm/calsrv/internal/database"
	"github.com/google/uuid"
)

// ImportRecord is one past import as stored in the history.
type ImportRecord struct {
	ID         string    `json:"id"`
	CalendarID int64     `json:"calendarId"`
	UserID     string    `json:"userId"`
	FileName   string    `json:"file"`
	Imported   int       `json:"imported"`
	Errors     int       `json:"errors"`
	Duplicates int       `json:"duplicates"`
	ImportedAt time.Time `json:"importedAt"`
}

// DefaultHistoryLimit caps history listings when no limit is given.
const DefaultHistoryLimit = 50

// ImportHistory returns the most recent imports into cal, newest first.
// The user needs Read on cal.
func (s *Service) ImportHistory(ctx context.Context, cal *Calendar, limit int) ([]ImportRecord, error) {
	if err := Require(cal, PermRead); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.store.ListImportHistory(ctx, db.ListImportHistoryParams{
		CalendarID: cal.ID,
		Limit:      int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list import history: %w", err)
	}

	records := make([]ImportRecord, 0, len(rows))
	for _, r := range rows {
		rec := ImportRecord{
			CalendarID: r.CalendarID,
			UserID:     r.UserID,
			FileName:   r.FileName,
			Imported:   int(r.Imported),
			Errors:     int(r.Errors),
			Duplicates: int(r.Duplicates),
			ImportedAt: r.ImportedAt,
		}
		if r.ID.Valid {
			rec.ID = uuid.UUID(r.ID.Bytes).String()
		}
		records = append(records, rec)
	}
	return records, nil
}

// PurgeImportHistory deletes history entries older than retention.
func (s *Service) PurgeImportHistory(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.store.PurgeImportHistory(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge import history: %w", err)
	}
	return n, nil
}

// ImportsActive returns the number of imports currently running.
func (s *Service) ImportsActive() int {
	return s.imports.Active()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.imports.WaitForDrain(ctx)
}
