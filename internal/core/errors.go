package core

import "fmt"

// ForeFlightMarker must appear on the first line of every logbook export.
const ForeFlightMarker = "ForeFlight Logbook Import"

// FormatError reports a file that is not a logbook export at all.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "invalid logbook format: " + e.Reason
}

// SectionNotFoundError reports that a required table could not be located.
type SectionNotFoundError struct {
	Section string
}

func (e *SectionNotFoundError) Error() string {
	return fmt.Sprintf("section not found: %s header could not be located", e.Section)
}

// EmptyResultError reports a well-formed export with no usable flight rows.
type EmptyResultError struct {
	RowsScanned int
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no valid flights: %d rows scanned, none had a date and flight time", e.RowsScanned)
}

// UnknownCertificationError reports an unsupported certification selector.
type UnknownCertificationError struct {
	Type CertificationType
}

func (e *UnknownCertificationError) Error() string {
	return fmt.Sprintf("unknown certification type %q", string(e.Type))
}
