// Command hours imports a ForeFlight logbook export into a local history
// and prints the change since the last import and certification progress.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/JonMunkholm/flighthours/internal/config"
	"github.com/JonMunkholm/flighthours/internal/core"
	"github.com/JonMunkholm/flighthours/internal/logging"
	"github.com/JonMunkholm/flighthours/internal/storage"
)

const maxFileSize = 50 << 20

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	file    string
	cert    string
	db      string
	now     string
	notes   string
	dryRun  bool
	logLvl  string
	logJSON bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("hours", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.file, "file", "", "ForeFlight logbook CSV export (required)")
	fs.StringVar(&opts.cert, "cert", "", "certification to report: private, instrument, commercial or cfi (default all)")
	fs.StringVar(&opts.db, "db", "hours.db", "SQLite history file, or :memory:")
	fs.StringVar(&opts.now, "now", "", "evaluate recency as of this date (YYYY-MM-DD)")
	fs.StringVar(&opts.notes, "notes", "", "note stored with the import")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "analyze and reconcile without saving")
	fs.StringVar(&opts.logLvl, "log-level", "warn", "log level: debug, info, warn, error")
	fs.BoolVar(&opts.logJSON, "log-json", false, "log as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.file == "" {
		fs.Usage()
		return nil, errors.New("-file is required")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	format := "text"
	if opts.logJSON {
		format = "json"
	}
	logging.SetupWriter(stderr, opts.logLvl, format)

	if err := importFile(ctx, opts, stdout); err != nil {
		fmt.Fprintln(stderr, "error:", core.FormatUserError(err))
		fmt.Fprintf(stderr, "  detail: %v\n", err)
		return 1
	}
	return 0
}

func importFile(ctx context.Context, opts *options, out io.Writer) error {
	var certs []core.CertificationType
	if opts.cert == "" {
		certs = core.CertificationTypes()
	} else {
		cert := core.CertificationType(strings.ToLower(opts.cert))
		if _, err := core.Requirements(cert); err != nil {
			return err
		}
		certs = []core.CertificationType{cert}
	}

	var svcOpts []core.ServiceOption
	if opts.now != "" {
		now, err := time.Parse("2006-01-02", opts.now)
		if err != nil {
			return fmt.Errorf("invalid -now %q: %w", opts.now, err)
		}
		svcOpts = append(svcOpts, core.WithClock(func() time.Time { return now }))
	}

	f, err := os.Open(opts.file)
	if err != nil {
		return err
	}
	defer f.Close()

	text, err := core.ReadLogbookText(f, maxFileSize)
	if err != nil {
		return err
	}

	backend, err := storage.Open(ctx, config.StorageConfig{Driver: config.DriverSQLite, SQLitePath: opts.db})
	if err != nil {
		return err
	}
	defer backend.Close()

	svc := core.NewService(backend.Store, svcOpts...)

	var (
		hours       core.AggregatedHours
		diagnostics core.ParseDiagnostics
	)
	if opts.dryRun {
		preview, err := svc.PreviewImport(ctx, text)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, preview.Reconciliation.Text)
		fmt.Fprintln(out, "(dry run, nothing saved)")
		hours, diagnostics = preview.Summary.Hours, preview.Diagnostics
	} else {
		result, err := svc.Import(ctx, core.ImportRequest{
			FileName: opts.file,
			Text:     text,
			Notes:    opts.notes,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, result.Reconciliation.Text)
		hours, diagnostics = result.Snapshot.Hours, result.Diagnostics
	}
	printDiagnostics(out, diagnostics)

	for _, cert := range certs {
		progress, err := svc.Evaluate(hours, cert)
		if err != nil {
			return err
		}
		if err := printProgress(out, cert, progress); err != nil {
			return err
		}
	}
	return nil
}

func printDiagnostics(out io.Writer, d core.ParseDiagnostics) {
	if d.DroppedRows > 0 {
		fmt.Fprintf(out, "warning: %d rows skipped (missing date or flight time)\n", d.DroppedRows)
	}
	for _, line := range d.UnclosedQuoteLines {
		fmt.Fprintf(out, "warning: unclosed quote on line %d hid the rows after it\n", line)
	}
	if d.RowsWithDefaultedFields > 0 {
		fmt.Fprintf(out, "warning: %d rows had unreadable values treated as zero\n", d.RowsWithDefaultedFields)
	}
	if len(d.MissingColumns) > 0 {
		fmt.Fprintf(out, "warning: missing columns: %s\n", strings.Join(d.MissingColumns, ", "))
	}
	if len(d.UnmatchedAircraft) > 0 {
		fmt.Fprintf(out, "warning: aircraft not in the Aircraft Table, counted as airplanes: %s\n",
			strings.Join(d.UnmatchedAircraft, ", "))
	}
}

func printProgress(out io.Writer, cert core.CertificationType, progress []core.RequirementProgress) error {
	fmt.Fprintf(out, "\n%s\n", strings.ToUpper(string(cert)))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REQUIREMENT\tCURRENT\tREQUIRED\tREMAINING\t%\t")
	for _, p := range progress {
		mark := " "
		if p.IsComplete {
			mark = "✓"
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s %s\t%s\t%s\t\n",
			mark,
			p.Requirement.Label,
			p.Current.StringFixed(1),
			p.Requirement.Required.String(),
			p.Requirement.Unit,
			p.Remaining.StringFixed(1),
			p.Percentage.StringFixed(0))
	}
	return tw.Flush()
}
