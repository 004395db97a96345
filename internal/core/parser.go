package core

// parser.go splits a ForeFlight logbook export into its Aircraft and Flights
// tables. The export is one CSV stream with a marker line, an optional
// Aircraft Table block and a Flights Table block, each preceded by a label
// row and followed (within a few rows) by its own header row.

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxHeaderSearchRows bounds how far past a section label the header row may sit.
const MaxHeaderSearchRows = 5

const (
	aircraftTableLabel = "Aircraft Table"
	flightsTableLabel  = "Flights Table"
	maxApproachColumns = 6
)

// Column aliases, matched case-insensitively. The first entry is the name
// reported in diagnostics.
var (
	colDate                = []string{"Date"}
	colAircraftID          = []string{"AircraftID"}
	colTotalTime           = []string{"TotalTime"}
	colPIC                 = []string{"PIC"}
	colCrossCountry        = []string{"CrossCountry"}
	colDualReceived        = []string{"DualReceived"}
	colActualInstrument    = []string{"ActualInstrument"}
	colSimulatedInstrument = []string{"SimulatedInstrument"}
	colSimulatedFlight     = []string{"SimulatedFlight"}
	colNight               = []string{"Night"}
	colDistance            = []string{"Distance"}
	colComplex             = []string{"[Hours]Complex", "Complex"}

	colMake          = []string{"Make"}
	colModel         = []string{"Model"}
	colYear          = []string{"Year"}
	colEquipmentType = []string{"equipType (FAA)", "EquipType", "EquipmentType"}
)

var flightColumns = [][]string{
	colDate, colAircraftID, colTotalTime, colPIC, colCrossCountry, colDualReceived,
	colActualInstrument, colSimulatedInstrument, colSimulatedFlight, colNight,
	colDistance, colComplex,
}

type csvRecord struct {
	line   int
	fields []string
}

// ParseLogbook parses the full text of a ForeFlight export.
//
// Rows without a parseable date, or with neither TotalTime nor SimulatedFlight
// above zero, are dropped and counted in the diagnostics. Malformed numeric
// cells become zero and are counted as well. The function performs no I/O.
func ParseLogbook(text string) (*Logbook, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	records, badRecords := readRecords(text)
	if len(records) == 0 {
		return nil, &FormatError{Reason: "file is empty"}
	}
	if records[0].line != 1 || !strings.Contains(strings.Join(records[0].fields, ","), ForeFlightMarker) {
		return nil, &FormatError{Reason: "first line must contain " + ForeFlightMarker}
	}

	aircraftAt, flightsAt := -1, -1
	for i := 1; i < len(records); i++ {
		if aircraftAt < 0 && isSectionLabel(records[i], aircraftTableLabel) {
			aircraftAt = i
			continue
		}
		if isSectionLabel(records[i], flightsTableLabel) {
			flightsAt = i
			break
		}
	}
	if flightsAt < 0 {
		return nil, &SectionNotFoundError{Section: flightsTableLabel}
	}

	flightsHeader, flightIdx := findHeader(records, flightsAt+1, len(records), func(idx HeaderIndex) bool {
		return idx.Has(colDate...) && idx.Has(colAircraftID...)
	})
	if flightsHeader < 0 {
		return nil, &SectionNotFoundError{Section: flightsTableLabel}
	}

	book := &Logbook{}

	if aircraftAt >= 0 {
		hdr, idx := findHeader(records, aircraftAt+1, flightsAt, func(idx HeaderIndex) bool {
			return idx.Has(colAircraftID...)
		})
		if hdr >= 0 {
			book.Aircraft = parseAircraftRows(records[hdr+1:flightsAt], idx)
		}
	}

	for _, names := range flightColumns {
		if !flightIdx.Has(names...) {
			book.Diagnostics.MissingColumns = append(book.Diagnostics.MissingColumns, names[0])
		}
	}

	scanned := 0
	for _, rec := range records[flightsHeader+1:] {
		if isBlankRecord(rec) {
			continue
		}
		scanned++

		if n := swallowedRows(rec, flightIdx); n > 0 {
			book.Diagnostics.DroppedRows += n
			book.Diagnostics.UnclosedQuoteLines = append(book.Diagnostics.UnclosedQuoteLines, rec.line)
			scanned += n
		}

		flight, valid, defaulted := parseFlightRow(rec, flightIdx)
		if !valid {
			book.Diagnostics.DroppedRows++
			continue
		}
		if defaulted {
			book.Diagnostics.RowsWithDefaultedFields++
		}
		book.Flights = append(book.Flights, flight)
	}
	for _, line := range badRecords {
		if line > records[flightsHeader].line {
			book.Diagnostics.DroppedRows++
			scanned++
		}
	}

	if len(book.Flights) == 0 {
		return nil, &EmptyResultError{RowsScanned: scanned}
	}
	return book, nil
}

// readRecords reads every CSV record with its starting line number.
// Records the csv package rejects are skipped and their lines returned.
func readRecords(text string) ([]csvRecord, []int) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records []csvRecord
	var bad []int
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				bad = append(bad, pe.StartLine)
				continue
			}
			break
		}
		line, _ := r.FieldPos(0)
		records = append(records, csvRecord{line: line, fields: fields})
	}
	return records, bad
}

// swallowedRows counts the flight rows an unclosed quote pulled into one of
// rec's cells. A lenient reader keeps such a cell open up to the next quote
// or the end of the file; an embedded line that starts with a date and
// reaches the AircraftID column was a row of its own.
func swallowedRows(rec csvRecord, idx HeaderIndex) int {
	n := 0
	for _, field := range rec.fields {
		lines := strings.Split(field, "\n")
		for _, line := range lines[1:] {
			cells := strings.Split(strings.TrimSuffix(line, "\r"), ",")
			if _, ok := ParseFlightDate(idx.Cell(cells, colDate...)); !ok {
				continue
			}
			if idx.Cell(cells, colAircraftID...) == "" {
				continue
			}
			n++
		}
	}
	return n
}

func isSectionLabel(rec csvRecord, label string) bool {
	return len(rec.fields) > 0 && strings.Contains(CleanCell(rec.fields[0]), label)
}

func isBlankRecord(rec csvRecord) bool {
	for _, f := range rec.fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// findHeader returns the position of the first record in [from, to) that
// satisfies match, looking at no more than MaxHeaderSearchRows records.
func findHeader(records []csvRecord, from, to int, match func(HeaderIndex) bool) (int, HeaderIndex) {
	limit := from + MaxHeaderSearchRows
	if limit > to {
		limit = to
	}
	for i := from; i < limit; i++ {
		idx := MakeHeaderIndex(records[i].fields)
		if match(idx) {
			return i, idx
		}
	}
	return -1, nil
}

func parseAircraftRows(records []csvRecord, idx HeaderIndex) []AircraftRecord {
	var out []AircraftRecord
	for _, rec := range records {
		id := idx.Cell(rec.fields, colAircraftID...)
		if id == "" {
			continue
		}
		out = append(out, AircraftRecord{
			AircraftID:    id,
			Make:          idx.Cell(rec.fields, colMake...),
			Model:         idx.Cell(rec.fields, colModel...),
			Year:          idx.Cell(rec.fields, colYear...),
			EquipmentType: idx.Cell(rec.fields, colEquipmentType...),
		})
	}
	return out
}

// parseFlightRow converts one Flights Table record. valid reports whether the
// row passes the date and flight-time filter; defaulted reports whether any
// non-empty numeric cell had to be replaced by zero.
func parseFlightRow(rec csvRecord, idx HeaderIndex) (flight RawFlightRecord, valid, defaulted bool) {
	hours := func(names []string) decimal.Decimal {
		d, ok := ParseHours(idx.Cell(rec.fields, names...))
		if !ok {
			defaulted = true
		}
		return d
	}

	date, dateOK := ParseFlightDate(idx.Cell(rec.fields, colDate...))

	flight = RawFlightRecord{
		Date:                date,
		AircraftID:          idx.Cell(rec.fields, colAircraftID...),
		TotalTime:           hours(colTotalTime),
		PIC:                 hours(colPIC),
		CrossCountry:        hours(colCrossCountry),
		DualReceived:        hours(colDualReceived),
		ActualInstrument:    hours(colActualInstrument),
		SimulatedInstrument: hours(colSimulatedInstrument),
		SimulatedFlight:     hours(colSimulatedFlight),
		ComplexTime:         hours(colComplex),
		Night:               hours(colNight),
		DistanceNM:          hours(colDistance),
		Line:                rec.line,
	}

	for n := 1; n <= maxApproachColumns; n++ {
		if a := idx.Cell(rec.fields, "Approach"+strconv.Itoa(n)); a != "" {
			flight.Approaches = append(flight.Approaches, a)
		}
	}

	valid = dateOK && (flight.TotalTime.IsPositive() || flight.SimulatedFlight.IsPositive())
	return flight, valid, defaulted
}
