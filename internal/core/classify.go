package core

import (
	"sort"
	"strings"
)

// Classifications maps a normalized aircraft ID to its kind.
type Classifications map[string]AircraftKind

// KindForEquipment classifies a raw equipment-type code.
// Anything that is not a known training device class is a real aircraft.
func KindForEquipment(code string) AircraftKind {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "batd":
		return KindBATD
	case "aatd":
		return KindAATD
	case "ftd":
		return KindFTD
	default:
		return KindRealAircraft
	}
}

// ClassifyAircraft builds the lookup table for one Aircraft Table.
// When an ID appears twice the last row wins, matching how the export is edited.
func ClassifyAircraft(records []AircraftRecord) Classifications {
	classes := make(Classifications, len(records))
	for _, r := range records {
		id := NormalizeAircraftID(r.AircraftID)
		if id == "" {
			continue
		}
		classes[id] = KindForEquipment(r.EquipmentType)
	}
	return classes
}

// Lookup returns the kind for an aircraft ID and whether it was listed.
func (c Classifications) Lookup(aircraftID string) (AircraftKind, bool) {
	kind, ok := c[NormalizeAircraftID(aircraftID)]
	return kind, ok
}

// ClassifyFlights tags every flight with its aircraft kind.
//
// Flights whose aircraft is missing from the Aircraft Table are treated as
// real aircraft; their IDs are returned, sorted and de-duplicated, so the
// caller can surface them.
func ClassifyFlights(flights []RawFlightRecord, classes Classifications) ([]ClassifiedFlight, []string) {
	out := make([]ClassifiedFlight, 0, len(flights))
	seen := make(map[string]struct{})
	var unmatched []string

	for _, f := range flights {
		kind, ok := classes.Lookup(f.AircraftID)
		if !ok {
			kind = KindRealAircraft
			if id := NormalizeAircraftID(f.AircraftID); id != "" {
				if _, dup := seen[id]; !dup {
					seen[id] = struct{}{}
					unmatched = append(unmatched, id)
				}
			}
		}
		out = append(out, ClassifiedFlight{RawFlightRecord: f, Kind: kind})
	}

	sort.Strings(unmatched)
	return out, unmatched
}
