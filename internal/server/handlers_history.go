package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jonathan/climatewash/internal/history"
	"github.com/jonathan/climatewash/internal/report"
	"github.com/jonathan/climatewash/internal/types"
)

// HistoryListResponse is a newest-first page of recorded diagnoses
type HistoryListResponse struct {
	Entries []history.Entry `json:"entries"`
	Total   int             `json:"total"`
}

// handleListHistory lists diagnoses newest first, optionally filtered by ?type= and capped by ?limit=
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) error {
	entries := s.diagnoser.History().List()
	total := len(entries)

	if contentType := r.URL.Query().Get("type"); contentType != "" {
		filtered := make([]history.Entry, 0, len(entries))
		for _, e := range entries {
			if e.Type == types.ContentType(contentType) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return &ErrValidation{Field: "limit", Message: "must be a non-negative integer"}
		}
		if limit < len(entries) {
			entries = entries[:limit]
		}
	}

	s.jsonResponse(w, http.StatusOK, HistoryListResponse{Entries: entries, Total: total})
	return nil
}

func (s *Server) handleHistoryStats(w http.ResponseWriter, _ *http.Request) error {
	highRisk := s.diagnoser.Criteria().Table().HighestRisk().Label
	s.jsonResponse(w, http.StatusOK, s.diagnoser.History().Stats(highRisk))
	return nil
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) error {
	entry, err := s.entry(r)
	if err != nil {
		return err
	}
	s.jsonResponse(w, http.StatusOK, entry)
	return nil
}

func (s *Server) handleHistoryReport(w http.ResponseWriter, r *http.Request) error {
	entry, err := s.entry(r)
	if err != nil {
		return err
	}
	body, err := report.Markdown(entry.Result, entry.Timestamp)
	if err != nil {
		return err
	}
	attachment(w, "text/markdown; charset=utf-8", report.MarkdownFilename(entry.Timestamp))
	_, err = w.Write([]byte(body))
	return err
}

func (s *Server) handleHistoryJSON(w http.ResponseWriter, r *http.Request) error {
	entry, err := s.entry(r)
	if err != nil {
		return err
	}
	body, err := report.JSON(entry.Result)
	if err != nil {
		return err
	}
	attachment(w, "application/json", report.JSONFilename(entry.Timestamp))
	_, err = w.Write(body)
	return err
}

// ExportResponse reports a completed export of a recorded diagnosis
type ExportResponse struct {
	ID       uuid.UUID `json:"id"`
	Exported bool      `json:"exported"`
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) error {
	id, err := entryID(r)
	if err != nil {
		return err
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := s.diagnoser.ExportEntry(ctx, id); err != nil {
		return err
	}
	s.jsonResponse(w, http.StatusOK, ExportResponse{ID: id, Exported: true})
	return nil
}

func (s *Server) entry(r *http.Request) (history.Entry, error) {
	id, err := entryID(r)
	if err != nil {
		return history.Entry{}, err
	}
	return s.diagnoser.History().Get(id)
}

func entryID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: "id", Message: "must be a UUID"}
	}
	return id, nil
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}
