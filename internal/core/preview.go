package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/flighthours/internal/logging"
)

// maxFlightSamples caps the flights echoed back in a preview.
const maxFlightSamples = 10

// FlightPreview is one parsed flight shown in an import preview.
type FlightPreview struct {
	Line       int    `json:"line"`
	Date       string `json:"date"`
	AircraftID string `json:"aircraft_id"`
	Kind       string `json:"kind"`
	TotalTime  string `json:"total_time"`
}

// PreviewResponse is the read-only analysis of an export: what an import
// would store and how it would reconcile with the latest snapshot.
type PreviewResponse struct {
	Summary          ImportSummary         `json:"summary"`
	Reconciliation   ReconciliationMessage `json:"reconciliation"`
	Diagnostics      ParseDiagnostics      `json:"diagnostics"`
	FlightSamples    []FlightPreview       `json:"flight_samples"`
	ProcessingTimeMs int64                 `json:"processing_time_ms"`
}

// PreviewImport analyzes text exactly as Import would without saving.
func (s *Service) PreviewImport(ctx context.Context, text string) (*PreviewResponse, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()

	analysis, err := AnalyzeLogbook(text, s.now())
	if err != nil {
		return nil, fmt.Errorf("parse logbook: %w", err)
	}

	previous, err := s.store.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}

	samples := make([]FlightPreview, 0, min(len(analysis.Flights), maxFlightSamples))
	for _, f := range analysis.Flights {
		if len(samples) == maxFlightSamples {
			break
		}
		samples = append(samples, FlightPreview{
			Line:       f.Line,
			Date:       formatDate(f.Date),
			AircraftID: f.AircraftID,
			Kind:       f.Kind.String(),
			TotalTime:  f.TotalTime.String(),
		})
	}

	resp := &PreviewResponse{
		Summary:          analysis.Summary,
		Reconciliation:   ReconcileImport(analysis.Summary, previous),
		Diagnostics:      analysis.Diagnostics,
		FlightSamples:    samples,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}

	logging.WithFields(ctx, "flights", resp.Summary.FlightCount).Debug("import previewed",
		"reconciliation", resp.Reconciliation.Kind,
		"duration_ms", resp.ProcessingTimeMs,
	)
	return resp, nil
}
