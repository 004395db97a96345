package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// RawFlightRecord is one valid row of the Flights Table.
// Hour fields are never negative; absent or unparseable values are zero.
type RawFlightRecord struct {
	Date                time.Time
	AircraftID          string
	TotalTime           decimal.Decimal
	PIC                 decimal.Decimal
	CrossCountry        decimal.Decimal
	DualReceived        decimal.Decimal
	ActualInstrument    decimal.Decimal
	SimulatedInstrument decimal.Decimal
	SimulatedFlight     decimal.Decimal
	ComplexTime         decimal.Decimal
	Night               decimal.Decimal
	DistanceNM          decimal.Decimal
	Approaches          []string // Approach1..Approach6, empty cells omitted
	Line                int      // 1-based line in the source file
}

// AircraftRecord is one row of the Aircraft Table.
type AircraftRecord struct {
	AircraftID    string
	Make          string
	Model         string
	Year          string
	EquipmentType string
}

// AircraftKind distinguishes real aircraft from the simulator equipment classes.
type AircraftKind int

const (
	KindRealAircraft AircraftKind = iota
	KindBATD
	KindAATD
	KindFTD
)

// IsSimulator reports whether the kind is any training device.
func (k AircraftKind) IsSimulator() bool {
	return k == KindBATD || k == KindAATD || k == KindFTD
}

// IsBATD reports whether the kind is a basic aviation training device.
func (k AircraftKind) IsBATD() bool {
	return k == KindBATD
}

func (k AircraftKind) String() string {
	switch k {
	case KindBATD:
		return "BATD"
	case KindAATD:
		return "AATD"
	case KindFTD:
		return "FTD"
	default:
		return "Aircraft"
	}
}

// ClassifiedFlight is a flight row tagged with the kind of its aircraft.
type ClassifiedFlight struct {
	RawFlightRecord
	Kind AircraftKind
}

// IsSimulator reports whether the flight was logged in a training device.
func (f ClassifiedFlight) IsSimulator() bool { return f.Kind.IsSimulator() }

// IsBATD reports whether the flight was logged in a BATD.
func (f ClassifiedFlight) IsBATD() bool { return f.Kind.IsBATD() }

// Logbook is the parsed content of one export file.
type Logbook struct {
	Flights     []RawFlightRecord
	Aircraft    []AircraftRecord
	Diagnostics ParseDiagnostics
}

// ParseDiagnostics reports lenient-parsing decisions that did not fail the import.
type ParseDiagnostics struct {
	DroppedRows             int      `json:"dropped_rows"`
	RowsWithDefaultedFields int      `json:"rows_with_defaulted_fields"`
	MissingColumns          []string `json:"missing_columns,omitempty"`
	UnmatchedAircraft       []string `json:"unmatched_aircraft,omitempty"`
	// UnclosedQuoteLines are the lines of rows whose unterminated quote
	// swallowed the rows after them.
	UnclosedQuoteLines []int `json:"unclosed_quote_lines,omitempty"`
}

// HasWarnings reports whether any diagnostic is worth surfacing to the user.
func (d ParseDiagnostics) HasWarnings() bool {
	return d.DroppedRows > 0 || d.RowsWithDefaultedFields > 0 ||
		len(d.MissingColumns) > 0 || len(d.UnmatchedAircraft) > 0 ||
		len(d.UnclosedQuoteLines) > 0
}

// AggregatedHours holds every summed and derived hour category for one import.
// Values are produced once by AggregateHours and never modified afterwards.
type AggregatedHours struct {
	Total                    decimal.Decimal `json:"total"`
	PIC                      decimal.Decimal `json:"pic"`
	CrossCountry             decimal.Decimal `json:"cross_country"`
	DualReceived             decimal.Decimal `json:"dual_received"`
	ActualInstrument         decimal.Decimal `json:"actual_instrument"`
	SimulatedInstrument      decimal.Decimal `json:"simulated_instrument"`
	InstrumentTotal          decimal.Decimal `json:"instrument_total"`
	SimulatorTime            decimal.Decimal `json:"simulator_time"`
	SimInstrumentTime        decimal.Decimal `json:"sim_instrument_time"`
	BATDTime                 decimal.Decimal `json:"batd_time"`
	PICCrossCountry          decimal.Decimal `json:"pic_xc"`
	InstrumentDualInAirplane decimal.Decimal `json:"instrument_dual_airplane"`
	RecentInstrument         decimal.Decimal `json:"recent_instrument"`
	ComplexTime              decimal.Decimal `json:"complex"`
	Night                    decimal.Decimal `json:"night"`
	DayCrossCountry          decimal.Decimal `json:"day_xc"`
	NightCrossCountry        decimal.Decimal `json:"night_xc"`
	LongCrossCountry         decimal.Decimal `json:"long_xc"`
	SoloLongCrossCountry     decimal.Decimal `json:"solo_long_xc"`
	DualCrossCountry         decimal.Decimal `json:"dual_xc"`
	ComplexDual              decimal.Decimal `json:"complex_dual"`
	RecentDualInAirplane     decimal.Decimal `json:"recent_dual_airplane"`
	InstrumentDualSimulator  decimal.Decimal `json:"instrument_dual_simulator"`

	// CommercialInstrumentTraining is airplane instrument training plus at
	// most 5.0 hours of simulator instrument training.
	CommercialInstrumentTraining decimal.Decimal `json:"cpl_sim_instrument_training"`

	IR250nmCrossCountryQualified bool `json:"ir_250nm_xc"`
	TwoHourDayCrossCountry       bool `json:"cpl_2hr_day_xc"`
	TwoHourNightCrossCountry     bool `json:"cpl_2hr_night_xc"`

	Qualifying QualifyingFlights `json:"qualifying_flights"`
}

// QualifyingFlights lists the individual flights behind flight-count requirements.
type QualifyingFlights struct {
	IR250nmCrossCountry      []QualifyingFlight `json:"ir_250nm_xc,omitempty"`
	SoloLongCrossCountry     []QualifyingFlight `json:"solo_long_xc,omitempty"`
	TwoHourDayCrossCountry   []QualifyingFlight `json:"cpl_2hr_day_xc,omitempty"`
	TwoHourNightCrossCountry []QualifyingFlight `json:"cpl_2hr_night_xc,omitempty"`
}

// QualifyingFlight identifies one flight that satisfied a qualifying rule.
type QualifyingFlight struct {
	Date          string          `json:"date"`
	AircraftID    string          `json:"aircraft_id"`
	DistanceNM    decimal.Decimal `json:"distance_nm"`
	Duration      decimal.Decimal `json:"duration"`
	ApproachCount int             `json:"approach_count,omitempty"`
	ApproachTypes []string        `json:"approach_types,omitempty"`
}

// CertificationType selects a requirement table.
type CertificationType string

const (
	CertPrivate    CertificationType = "private"
	CertInstrument CertificationType = "instrument"
	CertCommercial CertificationType = "commercial"
	CertCFI        CertificationType = "cfi"
)

// Requirement units.
const (
	UnitHours  = "hours"
	UnitFlight = "flight"
)

// CertificationRequirement is one row of a requirement table.
type CertificationRequirement struct {
	Label     string          `json:"label"`
	Required  decimal.Decimal `json:"required"`
	Unit      string          `json:"unit"`
	HoursKey  string          `json:"hours_key"`
	IsSpecial bool            `json:"is_special"`
}

// RequirementProgress is the evaluated state of one requirement.
type RequirementProgress struct {
	Requirement CertificationRequirement `json:"requirement"`
	Current     decimal.Decimal          `json:"current"`
	Remaining   decimal.Decimal          `json:"remaining"`
	Percentage  decimal.Decimal          `json:"percentage"`
	IsComplete  bool                     `json:"is_complete"`
}

// ImportType identifies the source format of an import.
const ImportTypeForeFlight = "foreflight_csv"

// ImportSnapshot is the persisted result of one successful import.
// A new snapshot supersedes the previous one; snapshots are never updated.
type ImportSnapshot struct {
	ID                   uuid.UUID       `json:"id"`
	ImportType           string          `json:"import_type"`
	FileName             string          `json:"file_name"`
	FlightCount          int             `json:"flight_count"`
	ActualFlightCount    int             `json:"actual_flight_count"`
	SimulatorFlightCount int             `json:"simulator_flight_count"`
	Hours                AggregatedHours `json:"hours"`
	Notes                string          `json:"notes,omitempty"`
	Timestamp            time.Time       `json:"timestamp"`
}
