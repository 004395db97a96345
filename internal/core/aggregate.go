package core

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Distance thresholds in nautical miles.
var (
	longCrossCountryNM     = decimal.NewFromInt(50)
	ir250CrossCountryNM    = decimal.NewFromInt(250)
	soloLongCrossCountryNM = decimal.NewFromInt(300)
	trainingCrossCountryNM = decimal.NewFromInt(100)
)

var (
	// trainingCrossCountryHours is the minimum duration of the commercial
	// day and night training cross-countries.
	trainingCrossCountryHours = decimal.NewFromInt(2)
	// commercialSimulatorCap limits the simulator share of commercial
	// instrument training.
	commercialSimulatorCap = decimal.NewFromInt(5)
)

// IR250MinApproaches is the number of listed approaches, and of distinct
// approach types, a 250 nm instrument cross-country must show.
const IR250MinApproaches = 3

// Normalized approach types.
const (
	ApproachILS  = "ILS"
	ApproachLOC  = "LOC"
	ApproachVOR  = "VOR"
	ApproachRNAV = "RNAV"
	ApproachNDB  = "NDB"
)

// AggregateHours derives every hour category from the classified flights.
// now only anchors the instrument recency window; the function reads no clock.
func AggregateHours(flights []ClassifiedFlight, now time.Time) AggregatedHours {
	var h AggregatedHours
	windowStart := RecencyWindowStart(now)

	for _, f := range flights {
		h.Total = h.Total.Add(f.TotalTime)
		h.PIC = h.PIC.Add(f.PIC)
		h.CrossCountry = h.CrossCountry.Add(f.CrossCountry)
		h.DualReceived = h.DualReceived.Add(f.DualReceived)
		h.ComplexTime = h.ComplexTime.Add(f.ComplexTime)
		h.Night = h.Night.Add(f.Night)

		if f.IsSimulator() {
			simTime := f.SimulatedFlight
			if f.TotalTime.IsPositive() {
				simTime = f.TotalTime
			}
			h.SimulatorTime = h.SimulatorTime.Add(simTime)
			h.SimInstrumentTime = h.SimInstrumentTime.Add(f.SimulatedInstrument)
			h.InstrumentTotal = h.InstrumentTotal.Add(f.SimulatedInstrument)
			if f.IsBATD() {
				h.BATDTime = h.BATDTime.Add(simTime)
			}
			if f.DualReceived.IsPositive() && f.SimulatedInstrument.IsPositive() {
				h.InstrumentDualSimulator = h.InstrumentDualSimulator.Add(decimal.Min(f.DualReceived, f.SimulatedInstrument))
			}
		} else {
			h.ActualInstrument = h.ActualInstrument.Add(f.ActualInstrument)
			h.SimulatedInstrument = h.SimulatedInstrument.Add(f.SimulatedInstrument)
			h.InstrumentTotal = h.InstrumentTotal.Add(f.ActualInstrument).Add(f.SimulatedInstrument)
		}

		if f.PIC.IsPositive() && f.CrossCountry.IsPositive() {
			h.PICCrossCountry = h.PICCrossCountry.Add(decimal.Min(f.PIC, f.CrossCountry, f.TotalTime))
		}

		inWindow := !dateOnly(f.Date).Before(windowStart)

		if !f.IsSimulator() && f.DualReceived.IsPositive() &&
			(f.ActualInstrument.IsPositive() || f.SimulatedInstrument.IsPositive()) {
			dualInstrument := decimal.Min(f.DualReceived, f.ActualInstrument.Add(f.SimulatedInstrument), f.TotalTime)
			h.InstrumentDualInAirplane = h.InstrumentDualInAirplane.Add(dualInstrument)
			if inWindow {
				h.RecentInstrument = h.RecentInstrument.Add(dualInstrument)
			}
		}

		if !f.IsSimulator() && f.DualReceived.IsPositive() && inWindow {
			h.RecentDualInAirplane = h.RecentDualInAirplane.Add(decimal.Min(f.DualReceived, f.TotalTime))
		}
		if f.DualReceived.IsPositive() && f.CrossCountry.IsPositive() {
			h.DualCrossCountry = h.DualCrossCountry.Add(decimal.Min(f.DualReceived, f.CrossCountry, f.TotalTime))
		}
		if f.DualReceived.IsPositive() && f.ComplexTime.IsPositive() {
			h.ComplexDual = h.ComplexDual.Add(decimal.Min(f.DualReceived, f.ComplexTime, f.TotalTime))
		}

		if f.CrossCountry.IsPositive() {
			accumulateCrossCountry(&h, f)
		}
		if !f.IsSimulator() && f.CrossCountry.IsPositive() && f.DualReceived.IsPositive() &&
			f.DistanceNM.GreaterThanOrEqual(trainingCrossCountryNM) {
			accumulateTrainingCrossCountry(&h, f)
		}

		if !f.IsSimulator() && f.DistanceNM.GreaterThanOrEqual(ir250CrossCountryNM) {
			types := approachTypes(f.Approaches)
			if len(f.Approaches) >= IR250MinApproaches && len(types) >= IR250MinApproaches {
				h.IR250nmCrossCountryQualified = true
				h.Qualifying.IR250nmCrossCountry = append(h.Qualifying.IR250nmCrossCountry, QualifyingFlight{
					Date:          formatDate(f.Date),
					AircraftID:    f.AircraftID,
					DistanceNM:    f.DistanceNM,
					Duration:      f.TotalTime,
					ApproachCount: len(f.Approaches),
					ApproachTypes: types,
				})
			}
		}
	}

	h.CommercialInstrumentTraining = h.InstrumentDualInAirplane.Add(decimal.Min(h.InstrumentDualSimulator, commercialSimulatorCap))

	sortQualifying(h.Qualifying.IR250nmCrossCountry)
	sortQualifying(h.Qualifying.SoloLongCrossCountry)
	sortQualifying(h.Qualifying.TwoHourDayCrossCountry)
	sortQualifying(h.Qualifying.TwoHourNightCrossCountry)
	return h
}

// accumulateCrossCountry splits a cross-country flight into day or night time
// and tracks the long and solo-long qualifiers.
func accumulateCrossCountry(h *AggregatedHours, f ClassifiedFlight) {
	xc := decimal.Min(f.CrossCountry, f.TotalTime)

	if f.Night.IsPositive() {
		h.NightCrossCountry = h.NightCrossCountry.Add(decimal.Min(f.CrossCountry, f.Night, f.TotalTime))
	} else {
		h.DayCrossCountry = h.DayCrossCountry.Add(xc)
	}

	if f.DistanceNM.LessThan(longCrossCountryNM) {
		return
	}
	h.LongCrossCountry = h.LongCrossCountry.Add(xc)

	solo := f.PIC.Equal(f.TotalTime) && f.DualReceived.IsZero()
	if solo && f.DistanceNM.GreaterThanOrEqual(soloLongCrossCountryNM) {
		h.SoloLongCrossCountry = decimal.Max(h.SoloLongCrossCountry, xc)
		if xc.IsPositive() {
			h.Qualifying.SoloLongCrossCountry = append(h.Qualifying.SoloLongCrossCountry, QualifyingFlight{
				Date:       formatDate(f.Date),
				AircraftID: f.AircraftID,
				DistanceNM: f.DistanceNM,
				Duration:   xc,
			})
		}
	}
}

// accumulateTrainingCrossCountry records a dual cross-country of at least
// 100 nm that counts as the 2-hour day or night commercial training flight.
// A flight is a day flight when some of its time was not logged as night.
func accumulateTrainingCrossCountry(h *AggregatedHours, f ClassifiedFlight) {
	day := f.Night.IsZero() || f.TotalTime.GreaterThan(f.Night)
	if day && f.TotalTime.GreaterThanOrEqual(trainingCrossCountryHours) {
		h.TwoHourDayCrossCountry = true
		h.Qualifying.TwoHourDayCrossCountry = append(h.Qualifying.TwoHourDayCrossCountry, QualifyingFlight{
			Date:       formatDate(f.Date),
			AircraftID: f.AircraftID,
			DistanceNM: f.DistanceNM,
			Duration:   f.TotalTime,
		})
	}
	if f.Night.GreaterThanOrEqual(trainingCrossCountryHours) {
		h.TwoHourNightCrossCountry = true
		h.Qualifying.TwoHourNightCrossCountry = append(h.Qualifying.TwoHourNightCrossCountry, QualifyingFlight{
			Date:       formatDate(f.Date),
			AircraftID: f.AircraftID,
			DistanceNM: f.DistanceNM,
			Duration:   f.Night,
		})
	}
}

// RecencyWindowStart returns the first calendar date inside the trailing
// two-calendar-month window ending at now. The day of month is clamped when
// the earlier month is shorter (Apr 30 -> Feb 28).
func RecencyWindowStart(now time.Time) time.Time {
	y, m, d := now.Date()
	first := time.Date(y, m-2, 1, 0, 0, 0, 0, time.UTC)
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// NormalizeApproachType maps one logged approach to ILS, LOC, VOR, RNAV or NDB.
// Entries look like "1;RNAV (GPS) RWY 27;KPAO"; the type is the second field,
// or the whole entry when it has no separator. Unrecognised types return "".
func NormalizeApproachType(raw string) string {
	field := raw
	if parts := strings.Split(raw, ";"); len(parts) > 1 {
		field = parts[1]
	}
	u := strings.ToUpper(field)

	switch {
	case strings.Contains(u, ApproachILS):
		return ApproachILS
	case strings.Contains(u, ApproachLOC):
		return ApproachLOC
	case strings.Contains(u, ApproachVOR):
		return ApproachVOR
	case strings.Contains(u, ApproachRNAV), strings.Contains(u, "GPS"):
		return ApproachRNAV
	case strings.Contains(u, ApproachNDB):
		return ApproachNDB
	default:
		return ""
	}
}

// approachTypes returns the distinct normalized types, sorted.
func approachTypes(approaches []string) []string {
	seen := make(map[string]struct{}, len(approaches))
	var types []string
	for _, a := range approaches {
		t := NormalizeApproachType(a)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func sortQualifying(flights []QualifyingFlight) {
	sort.SliceStable(flights, func(i, j int) bool {
		return flights[i].Date < flights[j].Date
	})
}

// CountFlights splits flights into real-aircraft and simulator counts.
func CountFlights(flights []ClassifiedFlight) (actual, simulator int) {
	for _, f := range flights {
		if f.IsSimulator() {
			simulator++
		} else {
			actual++
		}
	}
	return actual, simulator
}
