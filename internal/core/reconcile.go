package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ReconciliationKind names the shape of a reconciliation message.
type ReconciliationKind string

const (
	ReconcileFirstImport ReconciliationKind = "first_import"
	ReconcileAdded       ReconciliationKind = "added"
	ReconcileRemoved     ReconciliationKind = "removed"
	ReconcileUnchanged   ReconciliationKind = "unchanged"
	ReconcileChanged     ReconciliationKind = "changed"
)

// ImportSummary is the part of an import that reconciliation compares.
type ImportSummary struct {
	FlightCount          int
	ActualFlightCount    int
	SimulatorFlightCount int
	Hours                AggregatedHours
}

// Summary returns the comparable part of a stored snapshot.
func (s ImportSnapshot) Summary() ImportSummary {
	return ImportSummary{
		FlightCount:          s.FlightCount,
		ActualFlightCount:    s.ActualFlightCount,
		SimulatorFlightCount: s.SimulatorFlightCount,
		Hours:                s.Hours,
	}
}

// CategoryDelta is the change in one hour category between imports.
type CategoryDelta struct {
	Key      string          `json:"key"`
	Previous decimal.Decimal `json:"previous"`
	Current  decimal.Decimal `json:"current"`
	Delta    decimal.Decimal `json:"delta"`
}

// ReconciliationMessage describes how an import differs from the one before it.
type ReconciliationMessage struct {
	Kind           ReconciliationKind `json:"kind"`
	FlightDelta    int                `json:"flight_delta"`
	HourDelta      decimal.Decimal    `json:"hour_delta"`
	ActualDelta    int                `json:"actual_delta"`
	SimulatorDelta int                `json:"simulator_delta"`
	CategoryDeltas []CategoryDelta    `json:"category_deltas,omitempty"`
	Text           string             `json:"text"`
}

// ReconcileImport compares next against the previous snapshot, which is nil
// on the first import.
func ReconcileImport(next ImportSummary, previous *ImportSnapshot) ReconciliationMessage {
	if previous == nil {
		return ReconciliationMessage{
			Kind:        ReconcileFirstImport,
			FlightDelta: next.FlightCount,
			HourDelta:   next.Hours.Total,
			Text: fmt.Sprintf("First import: %d flights (%d aircraft, %d simulator), %s total hours.",
				next.FlightCount, next.ActualFlightCount, next.SimulatorFlightCount, next.Hours.Total.String()),
		}
	}

	prev := previous.Summary()
	msg := ReconciliationMessage{
		FlightDelta:    next.FlightCount - prev.FlightCount,
		HourDelta:      next.Hours.Total.Sub(prev.Hours.Total),
		ActualDelta:    next.ActualFlightCount - prev.ActualFlightCount,
		SimulatorDelta: next.SimulatorFlightCount - prev.SimulatorFlightCount,
		CategoryDeltas: categoryDeltas(prev.Hours, next.Hours),
	}
	explained := msg.ActualDelta+msg.SimulatorDelta == msg.FlightDelta

	switch {
	case msg.FlightDelta > 0 && msg.ActualDelta >= 0 && msg.SimulatorDelta >= 0 && explained:
		msg.Kind = ReconcileAdded
		msg.Text = fmt.Sprintf("Added %d flights (%d aircraft, %d simulator), %s hours.",
			msg.FlightDelta, msg.ActualDelta, msg.SimulatorDelta, signed(msg.HourDelta))

	case msg.FlightDelta < 0 && msg.ActualDelta <= 0 && msg.SimulatorDelta <= 0 && explained:
		msg.Kind = ReconcileRemoved
		msg.Text = fmt.Sprintf("Removed %d flights (%d aircraft, %d simulator), %s hours.",
			-msg.FlightDelta, -msg.ActualDelta, -msg.SimulatorDelta, signed(msg.HourDelta))

	case msg.FlightDelta == 0 && !logbookChanged(msg.CategoryDeltas):
		msg.Kind = ReconcileUnchanged
		msg.Text = "Re-imported, no changes."
		if len(msg.CategoryDeltas) > 0 {
			msg.Text += " Recent training hours moved with the date."
		}

	default:
		msg.Kind = ReconcileChanged
		msg.Text = fmt.Sprintf("Flights changed by %+d (aircraft %+d, simulator %+d), total hours changed by %s.",
			msg.FlightDelta, msg.ActualDelta, msg.SimulatorDelta, signed(msg.HourDelta))
	}
	return msg
}

// dateWindowKeys are categories summed over a window that ends at the import
// date. They move between imports of the same logbook.
var dateWindowKeys = map[string]bool{
	"recent_instrument":    true,
	"recent_dual_airplane": true,
}

// logbookChanged reports whether any delta comes from the logbook itself
// rather than from the recency window moving.
func logbookChanged(deltas []CategoryDelta) bool {
	for _, d := range deltas {
		if !dateWindowKeys[d.Key] {
			return true
		}
	}
	return false
}

func categoryDeltas(prev, next AggregatedHours) []CategoryDelta {
	var out []CategoryDelta
	for _, key := range hourCategories {
		before, _ := HoursValue(prev, key)
		after, _ := HoursValue(next, key)
		if before.Equal(after) {
			continue
		}
		out = append(out, CategoryDelta{Key: key, Previous: before, Current: after, Delta: after.Sub(before)})
	}
	return out
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.String()
	}
	return "+" + d.String()
}
