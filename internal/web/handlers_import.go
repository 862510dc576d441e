package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/calsrv/internal/calendar"
	"github.com/JonMunkholm/calsrv/internal/importresult"
	"github.com/JonMunkholm/calsrv/internal/logging"
	"github.com/JonMunkholm/calsrv/internal/web/templates"
)

// maxMessagesBody caps the body of an import-messages request.
const maxMessagesBody = 1 << 20

// importFileResult is one file of an import response.
type importFileResult struct {
	*calendar.ImportResult
	Message string `json:"message"`
}

// importRecordView is one history entry with its rendered message.
type importRecordView struct {
	calendar.ImportRecord
	Message string `json:"message"`
}

func (s *Server) describe(errs, duplicates int) string {
	return s.formatter.Describe(&importresult.Outcome{Errors: errs, Duplicates: duplicates})
}

// handleImport imports every uploaded "file" part into the calendar.
// Files are imported one after another; a permission or capacity failure
// aborts the request, per-component failures are reported per file.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	calendarID, userID, err := requestTarget(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	cal, err := s.backend.FindCalendar(r.Context(), calendarID, userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	// Checked before the body is read so large uploads fail fast.
	if err := calendar.Require(cal, calendar.PermCreate); err != nil {
		respondError(w, r, err)
		return
	}

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		respondError(w, r, calendar.NewBusinessError(http.StatusBadRequest, "IMP002",
			"file too large or invalid form", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		respondError(w, r, calendar.NewBusinessError(http.StatusBadRequest, "IMP002", "no file provided", nil))
		return
	}

	logger := logging.WithFields(r.Context(), "calendar_id", cal.ID, "files", len(headers))
	logger.Info("import requested")

	results := make([]importFileResult, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			respondError(w, r, calendar.NewBusinessError(http.StatusBadRequest, "IMP002",
				"file "+fh.Filename+" could not be read", err))
			return
		}

		res, err := s.backend.Import(r.Context(), cal, calendar.ImportFile{Name: fh.Filename, Data: f})
		f.Close()
		if err != nil {
			respondError(w, r, err)
			return
		}

		results = append(results, importFileResult{
			ImportResult: res,
			Message:      s.describe(res.Errors, res.Duplicates),
		})
	}

	if isHTMX(r) {
		rows := make([]templates.ImportRow, 0, len(results))
		for _, res := range results {
			rows = append(rows, templates.ImportRow{
				File:       res.FileName,
				Imported:   res.Imported,
				Errors:     res.Errors,
				Duplicates: res.Duplicates,
				Message:    res.Message,
				Error:      res.Error,
			})
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.ImportResults(rows).Render(r.Context(), w); err != nil {
			logger.Error("render import results", "error", err)
		}
		return
	}

	writeJSON(w, map[string]any{"results": results})
}

// handleImportHistory lists past imports into the calendar.
func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	calendarID, userID, err := requestTarget(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, r, calendar.InvalidRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}

	cal, err := s.backend.FindCalendar(r.Context(), calendarID, userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	records, err := s.backend.ImportHistory(r.Context(), cal, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	views := make([]importRecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, importRecordView{
			ImportRecord: rec,
			Message:      s.describe(rec.Errors, rec.Duplicates),
		})
	}
	writeJSON(w, map[string]any{"imports": views})
}

// handleImportMessages renders the status message for each raw outcome
// in a JSON array. Malformed entries render as "".
func (s *Server) handleImportMessages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMessagesBody)

	var outcomes []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&outcomes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, calendar.InvalidRequest("request body too large"))
			return
		}
		respondError(w, r, calendar.InvalidRequest("body must be a JSON array of import outcomes"))
		return
	}

	messages := make([]string, len(outcomes))
	for i, raw := range outcomes {
		messages[i] = s.formatter.DescribeRaw(raw)
	}
	writeJSON(w, map[string]any{"messages": messages})
}
