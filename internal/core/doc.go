// Package core turns ForeFlight logbook exports into certification progress.
//
// The package has no transport or storage dependencies beyond the
// [ImportHistoryStore] interface, so the web server, the CLI and tests all
// drive the same pipeline.
//
// # Pipeline
//
// Data flows strictly forward and every stage returns a new value:
//
//  1. [ParseLogbook] splits the export into Aircraft and Flights tables and
//     keeps only rows with a date and flight time.
//  2. [ClassifyAircraft] and [ClassifyFlights] tag each flight with an
//     [AircraftKind] taken from the Aircraft Table equipment type.
//  3. [AggregateHours] sums and derives every hour category in one pass.
//     The "now" argument anchors the two-calendar-month recency window.
//  4. [EvaluateCertification] measures an [AggregatedHours] against the
//     requirement table of a [CertificationType].
//  5. [ReconcileImport] describes how an import differs from the previous
//     [ImportSnapshot].
//
// [AnalyzeLogbook] runs stages 1-3. [Service.Import] adds reconciliation and
// persistence, and bounds concurrency with an [ImportLimiter].
//
// # Hour Arithmetic
//
// All hours are [decimal.Decimal] values so that sums and minima are exact
// and results are byte-identical across runs. Overlap categories such as
// PIC cross-country are accumulated per flight as the minimum of their
// components, never clamped after the fact.
//
// # Error Handling
//
// Fatal parse problems are typed: [*FormatError], [*SectionNotFoundError] and
// [*EmptyResultError]. An unsupported certificate is an
// [*UnknownCertificationError]. Row-level problems are not errors; they are
// counted in [ParseDiagnostics]. [MapError] converts any error into a
// [UserMessage] with a support code.
package core
