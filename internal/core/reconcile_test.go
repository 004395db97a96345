package core

import (
	"strings"
	"testing"
)

func snapshotOf(flights, actual, sim int, total string) *ImportSnapshot {
	return &ImportSnapshot{
		FlightCount:          flights,
		ActualFlightCount:    actual,
		SimulatorFlightCount: sim,
		Hours:                AggregatedHours{Total: dec(total)},
	}
}

func summaryOf(flights, actual, sim int, total string) ImportSummary {
	return snapshotOf(flights, actual, sim, total).Summary()
}

func TestReconcileImport(t *testing.T) {
	tests := []struct {
		name          string
		next          ImportSummary
		previous      *ImportSnapshot
		wantKind      ReconciliationKind
		wantFlights   int
		wantHours     string
		wantTextParts []string
	}{
		{
			name:          "first import",
			next:          summaryOf(10, 8, 2, "20.0"),
			previous:      nil,
			wantKind:      ReconcileFirstImport,
			wantFlights:   10,
			wantHours:     "20",
			wantTextParts: []string{"First import", "10 flights", "8 aircraft", "2 simulator"},
		},
		{
			name:          "flights added",
			next:          summaryOf(13, 10, 3, "24.5"),
			previous:      snapshotOf(10, 8, 2, "20.0"),
			wantKind:      ReconcileAdded,
			wantFlights:   3,
			wantHours:     "4.5",
			wantTextParts: []string{"Added 3 flights", "2 aircraft", "1 simulator", "+4.5"},
		},
		{
			name:          "flights removed",
			next:          summaryOf(8, 7, 1, "17.3"),
			previous:      snapshotOf(10, 8, 2, "20.0"),
			wantKind:      ReconcileRemoved,
			wantFlights:   -2,
			wantHours:     "-2.7",
			wantTextParts: []string{"Removed 2 flights", "-2.7"},
		},
		{
			name:          "unchanged",
			next:          summaryOf(10, 8, 2, "20.0"),
			previous:      snapshotOf(10, 8, 2, "20"),
			wantKind:      ReconcileUnchanged,
			wantFlights:   0,
			wantHours:     "0",
			wantTextParts: []string{"no changes"},
		},
		{
			name:          "same count, edited hours",
			next:          summaryOf(10, 8, 2, "21.0"),
			previous:      snapshotOf(10, 8, 2, "20.0"),
			wantKind:      ReconcileChanged,
			wantFlights:   0,
			wantHours:     "1",
			wantTextParts: []string{"+0", "+1"},
		},
		{
			name:          "aircraft added but simulators removed",
			next:          summaryOf(11, 10, 1, "23.0"),
			previous:      snapshotOf(10, 8, 2, "20.0"),
			wantKind:      ReconcileChanged,
			wantFlights:   1,
			wantHours:     "3",
			wantTextParts: []string{"aircraft +2", "simulator -1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ReconcileImport(tt.next, tt.previous)

			if msg.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", msg.Kind, tt.wantKind)
			}
			if msg.FlightDelta != tt.wantFlights {
				t.Errorf("FlightDelta = %d, want %d", msg.FlightDelta, tt.wantFlights)
			}
			assertDecimal(t, "HourDelta", msg.HourDelta, tt.wantHours)
			for _, part := range tt.wantTextParts {
				if !strings.Contains(msg.Text, part) {
					t.Errorf("Text = %q, want it to contain %q", msg.Text, part)
				}
			}
		})
	}
}

func TestReconcileImport_CategoryDeltas(t *testing.T) {
	prev := &ImportSnapshot{
		FlightCount:       2,
		ActualFlightCount: 2,
		Hours:             AggregatedHours{Total: dec("3"), Night: dec("1")},
	}
	next := ImportSummary{
		FlightCount:       2,
		ActualFlightCount: 2,
		Hours:             AggregatedHours{Total: dec("3"), Night: dec("1.5"), IR250nmCrossCountryQualified: true},
	}

	msg := ReconcileImport(next, prev)
	if msg.Kind != ReconcileChanged {
		t.Errorf("Kind = %q, want %q", msg.Kind, ReconcileChanged)
	}
	if len(msg.CategoryDeltas) != 2 {
		t.Fatalf("CategoryDeltas = %+v, want night and ir_250nm_xc", msg.CategoryDeltas)
	}
	if msg.CategoryDeltas[0].Key != "night" {
		t.Errorf("CategoryDeltas[0].Key = %q, want night", msg.CategoryDeltas[0].Key)
	}
	assertDecimal(t, "night delta", msg.CategoryDeltas[0].Delta, "0.5")
	if msg.CategoryDeltas[1].Key != "ir_250nm_xc" {
		t.Errorf("CategoryDeltas[1].Key = %q, want ir_250nm_xc", msg.CategoryDeltas[1].Key)
	}
}

func TestReconcileImport_SameLogbookLater(t *testing.T) {
	text := loadSample(t)

	first, err := AnalyzeLogbook(text, testNow)
	if err != nil {
		t.Fatalf("AnalyzeLogbook() error = %v", err)
	}
	previous := &ImportSnapshot{
		FlightCount:          first.Summary.FlightCount,
		ActualFlightCount:    first.Summary.ActualFlightCount,
		SimulatorFlightCount: first.Summary.SimulatorFlightCount,
		Hours:                first.Hours,
	}

	later, err := AnalyzeLogbook(text, testNow.AddDate(0, 3, 0))
	if err != nil {
		t.Fatalf("AnalyzeLogbook() error = %v", err)
	}
	msg := ReconcileImport(later.Summary, previous)

	if msg.Kind != ReconcileUnchanged {
		t.Fatalf("Kind = %q, want %q (text %q)", msg.Kind, ReconcileUnchanged, msg.Text)
	}
	if !strings.HasPrefix(msg.Text, "Re-imported, no changes.") {
		t.Errorf("Text = %q", msg.Text)
	}
	keys := map[string]bool{}
	for _, d := range msg.CategoryDeltas {
		keys[d.Key] = true
	}
	if !keys["recent_instrument"] || !keys["recent_dual_airplane"] {
		t.Errorf("CategoryDeltas = %+v, want the recency categories reported", msg.CategoryDeltas)
	}
}

func TestReconcileImport_WindowAndLogbookChange(t *testing.T) {
	prev := &ImportSnapshot{
		FlightCount:       2,
		ActualFlightCount: 2,
		Hours:             AggregatedHours{Total: dec("3"), RecentInstrument: dec("1.5"), Night: dec("1")},
	}
	next := ImportSummary{
		FlightCount:       2,
		ActualFlightCount: 2,
		Hours:             AggregatedHours{Total: dec("3"), Night: dec("1.2")},
	}

	if msg := ReconcileImport(next, prev); msg.Kind != ReconcileChanged {
		t.Errorf("Kind = %q, want %q", msg.Kind, ReconcileChanged)
	}
}
