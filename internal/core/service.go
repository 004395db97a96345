package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/flighthours/internal/logging"
	"github.com/google/uuid"
)

// ErrNoImports is returned when progress is requested before any import.
var ErrNoImports = errors.New("no imports yet")

// LogbookAnalysis is the in-memory result of parsing, classifying and
// aggregating one export. It is the single pipeline shared by every caller.
type LogbookAnalysis struct {
	Flights     []ClassifiedFlight
	Aircraft    []AircraftRecord
	Hours       AggregatedHours
	Summary     ImportSummary
	Diagnostics ParseDiagnostics
}

// AnalyzeLogbook runs parse, classify and aggregate over the export text.
// Nothing is returned unless every stage succeeds.
func AnalyzeLogbook(text string, now time.Time) (*LogbookAnalysis, error) {
	book, err := ParseLogbook(text)
	if err != nil {
		return nil, err
	}

	flights, unmatched := ClassifyFlights(book.Flights, ClassifyAircraft(book.Aircraft))
	hours := AggregateHours(flights, now)
	actual, sim := CountFlights(flights)

	diag := book.Diagnostics
	diag.UnmatchedAircraft = unmatched

	return &LogbookAnalysis{
		Flights:  flights,
		Aircraft: book.Aircraft,
		Hours:    hours,
		Summary: ImportSummary{
			FlightCount:          len(flights),
			ActualFlightCount:    actual,
			SimulatorFlightCount: sim,
			Hours:                hours,
		},
		Diagnostics: diag,
	}, nil
}

// ImportRequest is one logbook file to import.
type ImportRequest struct {
	FileName string
	Text     string
	Notes    string
}

// ImportResult is returned by a successful import.
type ImportResult struct {
	Snapshot       ImportSnapshot        `json:"snapshot"`
	Reconciliation ReconciliationMessage `json:"reconciliation"`
	Diagnostics    ParseDiagnostics      `json:"diagnostics"`
}

// CertificationProgress is the evaluation of the latest snapshot for one certificate.
type CertificationProgress struct {
	Certification CertificationType     `json:"certification"`
	SnapshotID    uuid.UUID             `json:"snapshot_id"`
	ImportedAt    time.Time             `json:"imported_at"`
	Requirements  []RequirementProgress `json:"requirements"`
	Completed     int                   `json:"completed"`
}

// Service runs imports against an ImportHistoryStore.
type Service struct {
	store   ImportHistoryStore
	limiter *ImportLimiter
	now     func() time.Time

	// commitMu serializes Latest, reconcile and Save so each import
	// reconciles against the snapshot committed before it.
	commitMu sync.Mutex
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock replaces time.Now as the source of the recency anchor and
// snapshot timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithLimiter sets the limiter bounding concurrent imports.
func WithLimiter(l *ImportLimiter) ServiceOption {
	return func(s *Service) { s.limiter = l }
}

// NewService creates a Service backed by store.
func NewService(store ImportHistoryStore, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = NewImportLimiter(DefaultMaxConcurrentImports, DefaultMaxWaitTime)
	}
	return s
}

// Limiter returns the import limiter, for status reporting and shutdown.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// Import analyzes req, reconciles it with the latest snapshot and saves the
// new snapshot. A parse failure leaves the history untouched.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	logger := logging.WithFields(ctx,
		"file", req.FileName,
		"client_ip", ClientIPFromContext(ctx),
		"user_agent", UserAgentFromContext(ctx),
	)

	if err := s.limiter.Acquire(ctx); err != nil {
		logger.Warn("import rejected", "error", err)
		return nil, err
	}
	defer s.limiter.Release()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	now := s.now()

	analysis, err := AnalyzeLogbook(req.Text, now)
	if err != nil {
		logger.Info("logbook rejected", "error", err)
		return nil, fmt.Errorf("parse logbook: %w", err)
	}
	if analysis.Diagnostics.HasWarnings() {
		logger.Warn("logbook parsed with warnings",
			"dropped_rows", analysis.Diagnostics.DroppedRows,
			"defaulted_rows", analysis.Diagnostics.RowsWithDefaultedFields,
			"missing_columns", strings.Join(analysis.Diagnostics.MissingColumns, ","),
			"unmatched_aircraft", strings.Join(analysis.Diagnostics.UnmatchedAircraft, ","),
			"unclosed_quote_lines", analysis.Diagnostics.UnclosedQuoteLines,
		)
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	previous, err := s.store.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}

	reconciliation := ReconcileImport(analysis.Summary, previous)

	snapshot := ImportSnapshot{
		ID:                   uuid.New(),
		ImportType:           ImportTypeForeFlight,
		FileName:             req.FileName,
		FlightCount:          analysis.Summary.FlightCount,
		ActualFlightCount:    analysis.Summary.ActualFlightCount,
		SimulatorFlightCount: analysis.Summary.SimulatorFlightCount,
		Hours:                analysis.Hours,
		Notes:                req.Notes,
		Timestamp:            now.UTC(),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	logger.Info("import completed",
		"import_id", snapshot.ID,
		"flights", snapshot.FlightCount,
		"total_hours", snapshot.Hours.Total.String(),
		"reconciliation", reconciliation.Kind,
		"duration", time.Since(start),
	)

	return &ImportResult{
		Snapshot:       snapshot,
		Reconciliation: reconciliation,
		Diagnostics:    analysis.Diagnostics,
	}, nil
}

// Latest returns the most recent snapshot, or nil if there is none.
func (s *Service) Latest(ctx context.Context) (*ImportSnapshot, error) {
	snap, err := s.store.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}
	return snap, nil
}

// History lists snapshots newest first.
func (s *Service) History(ctx context.Context, limit, offset int) ([]ImportSnapshot, error) {
	limit, offset = NormalizePage(limit, offset)
	snaps, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

// Progress evaluates the latest snapshot against cert.
func (s *Service) Progress(ctx context.Context, cert CertificationType) (*CertificationProgress, error) {
	if _, err := Requirements(cert); err != nil {
		return nil, err
	}

	snap, err := s.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrNoImports
	}

	reqs, err := EvaluateCertification(snap.Hours, cert)
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, r := range reqs {
		if r.IsComplete {
			completed++
		}
	}

	return &CertificationProgress{
		Certification: cert,
		SnapshotID:    snap.ID,
		ImportedAt:    snap.Timestamp,
		Requirements:  reqs,
		Completed:     completed,
	}, nil
}

// Evaluate scores hours against cert without touching the history.
func (s *Service) Evaluate(hours AggregatedHours, cert CertificationType) ([]RequirementProgress, error) {
	return EvaluateCertification(hours, cert)
}
