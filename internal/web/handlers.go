package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/flighthours/internal/core"
	"github.com/JonMunkholm/flighthours/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of a multipart form is buffered in memory.
const multipartMemory = 8 << 20

// multipartOverhead allows for form boundaries and headers around the file.
const multipartOverhead = 64 << 10

// handleImport imports an uploaded logbook export and returns the
// reconciliation against the previous import.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	fileName, text, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	ctx, cancel := context.WithTimeout(withRequestMetadata(r.Context(), r), s.cfg.Import.Timeout)
	defer cancel()

	result, err := s.service.Import(ctx, core.ImportRequest{
		FileName: fileName,
		Text:     text,
		Notes:    strings.TrimSpace(r.FormValue("notes")),
	})
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("HX-Trigger", "import-completed")
		w.WriteHeader(http.StatusCreated)
		templates.ImportResult(result).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// handlePreview analyzes an upload without saving it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	_, text, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	preview, err := s.service.PreviewImport(withRequestMetadata(r.Context(), r), text)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.Preview(preview).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// readUpload reads the multipart "file" field, bounded by the configured size.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, string, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return "", "", core.ErrFileTooLarge
		}
		return "", "", fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", errNoFile
	}
	defer file.Close()

	text, err := core.ReadLogbookText(file, maxSize)
	if err != nil {
		return "", "", err
	}
	return header.Filename, text, nil
}

// HistoryResponse is a page of import snapshots.
type HistoryResponse struct {
	Imports []core.ImportSnapshot `json:"imports"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

// handleHistory lists snapshots newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset := core.NormalizePage(
		parseIntParam(r, "limit", core.DefaultHistoryLimit),
		parseIntParam(r, "offset", 0),
	)

	snaps, err := s.service.History(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.History(snaps).Render(r.Context(), w)
		return
	}
	if snaps == nil {
		snaps = []core.ImportSnapshot{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Imports: snaps, Limit: limit, Offset: offset})
}

// handleLatest returns the most recent snapshot.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Latest(r.Context())
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if snap == nil {
		respondError(w, r, core.ErrNoImports, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// CertificationInfo describes one supported certification.
type CertificationInfo struct {
	Type         core.CertificationType         `json:"type"`
	Requirements []core.CertificationRequirement `json:"requirements"`
}

// handleCertifications lists supported certifications and their requirements.
func (s *Server) handleCertifications(w http.ResponseWriter, r *http.Request) {
	types := core.CertificationTypes()
	out := make([]CertificationInfo, 0, len(types))
	for _, cert := range types {
		reqs, err := core.Requirements(cert)
		if err != nil {
			respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		out = append(out, CertificationInfo{Type: cert, Requirements: reqs})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleProgress evaluates the latest snapshot against one certification.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	cert := core.CertificationType(strings.ToLower(chi.URLParam(r, "certType")))

	progress, err := s.service.Progress(r.Context(), cert)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.ProgressTable(progress).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status  string                   `json:"status"`
	Error   string                   `json:"error,omitempty"`
	Imports core.ImportLimiterStatus `json:"imports"`
}

// handleHealth reports liveness, store reachability and import slots.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Imports: s.service.Limiter().Status()}
	status := http.StatusOK

	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			resp.Status = "unavailable"
			resp.Error = core.MapError(err).Message
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

// parseIntParam parses a non-negative integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}
