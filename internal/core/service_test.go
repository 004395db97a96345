package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeStore keeps snapshots in insertion order.
type fakeStore struct {
	mu        sync.Mutex
	snapshots []ImportSnapshot
	saveErr   error
	saves     int
}

func (f *fakeStore) Latest(ctx context.Context) (*ImportSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.snapshots) == 0 {
		return nil, nil
	}
	snap := f.snapshots[len(f.snapshots)-1]
	return &snap, nil
}

func (f *fakeStore) Save(ctx context.Context, snapshot ImportSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.snapshots = append(f.snapshots, snapshot)
	return nil
}

func (f *fakeStore) List(ctx context.Context, limit, offset int) ([]ImportSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ImportSnapshot
	for i := len(f.snapshots) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.snapshots[i])
	}
	return out, nil
}

func newTestService(store ImportHistoryStore) *Service {
	return NewService(store,
		WithClock(func() time.Time { return testNow }),
		WithLimiter(NewImportLimiter(2, time.Second)),
	)
}

func TestService_ImportFirstThenSecond(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.Import(ctx, ImportRequest{
		FileName: "first.csv",
		Text:     logbookText(minimalFlightsHeader, "2025-01-10,N1,1.5,1.5,0,0"),
	})
	if err != nil {
		t.Fatalf("first Import() error = %v", err)
	}
	if first.Reconciliation.Kind != ReconcileFirstImport {
		t.Errorf("first Kind = %q, want %q", first.Reconciliation.Kind, ReconcileFirstImport)
	}
	if first.Snapshot.FileName != "first.csv" || first.Snapshot.ImportType != ImportTypeForeFlight {
		t.Errorf("snapshot metadata = %+v", first.Snapshot)
	}
	if !first.Snapshot.Timestamp.Equal(testNow) {
		t.Errorf("Timestamp = %v, want %v", first.Snapshot.Timestamp, testNow)
	}

	second, err := svc.Import(ctx, ImportRequest{
		FileName: "second.csv",
		Text: logbookText(minimalFlightsHeader,
			"2025-01-10,N1,1.5,1.5,0,0",
			"2025-01-12,N1,2.0,2.0,0,0",
		),
	})
	if err != nil {
		t.Fatalf("second Import() error = %v", err)
	}
	if second.Reconciliation.Kind != ReconcileAdded {
		t.Errorf("second Kind = %q, want %q", second.Reconciliation.Kind, ReconcileAdded)
	}
	if second.Reconciliation.FlightDelta != 1 {
		t.Errorf("FlightDelta = %d, want 1", second.Reconciliation.FlightDelta)
	}
	assertDecimal(t, "HourDelta", second.Reconciliation.HourDelta, "2.0")

	if len(store.snapshots) != 2 {
		t.Fatalf("stored snapshots = %d, want 2", len(store.snapshots))
	}
	if store.snapshots[0].ID == store.snapshots[1].ID {
		t.Error("snapshots should have distinct IDs")
	}
}

func TestService_ImportParseErrorLeavesHistory(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	_, err := svc.Import(context.Background(), ImportRequest{FileName: "bad.csv", Text: "Date,Total\n2024-01-01,1.0\n"})
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("Import() error = %v, want FormatError", err)
	}
	if store.saves != 0 {
		t.Errorf("Save called %d times after a parse failure", store.saves)
	}
	if got := svc.Limiter().ActiveCount(); got != 0 {
		t.Errorf("limiter still holds %d slots", got)
	}
}

func TestService_ImportSaveError(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("database is locked")}
	svc := newTestService(store)

	_, err := svc.Import(context.Background(), ImportRequest{
		Text: logbookText(minimalFlightsHeader, "2025-01-10,N1,1.5,1.5,0,0"),
	})
	if err == nil || !errors.Is(err, store.saveErr) {
		t.Fatalf("Import() error = %v, want wrapped save error", err)
	}
	if got := MapError(err).Code; got != "DB008" {
		t.Errorf("MapError code = %s, want DB008", got)
	}
}

func TestService_ImportCancelled(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Import(ctx, ImportRequest{Text: logbookText(minimalFlightsHeader, "2025-01-10,N1,1.5,1.5,0,0")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Import() error = %v, want context.Canceled", err)
	}
	if store.saves != 0 {
		t.Error("cancelled import should not be saved")
	}
}

func TestService_Progress(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Progress(ctx, CertPrivate); !errors.Is(err, ErrNoImports) {
		t.Fatalf("Progress() before import error = %v, want ErrNoImports", err)
	}

	if _, err := svc.Progress(ctx, CertificationType("atp")); err == nil {
		t.Fatal("Progress() with unknown certification should fail")
	} else if MapError(err).Code != "CERT001" {
		t.Errorf("MapError code = %s, want CERT001", MapError(err).Code)
	}

	result, err := svc.Import(ctx, ImportRequest{Text: loadSample(t)})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	progress, err := svc.Progress(ctx, CertPrivate)
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if progress.SnapshotID != result.Snapshot.ID {
		t.Errorf("SnapshotID = %v, want %v", progress.SnapshotID, result.Snapshot.ID)
	}
	if len(progress.Requirements) != 4 {
		t.Fatalf("private requirements = %d, want 4", len(progress.Requirements))
	}

	completed := 0
	for _, r := range progress.Requirements {
		if r.IsComplete {
			completed++
		}
	}
	if progress.Completed != completed {
		t.Errorf("Completed = %d, want %d", progress.Completed, completed)
	}
}

func TestService_History(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)
	ctx := context.Background()

	for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
		if _, err := svc.Import(ctx, ImportRequest{
			FileName: name,
			Text:     logbookText(minimalFlightsHeader, "2025-01-10,N1,1.5,1.5,0,0"),
		}); err != nil {
			t.Fatalf("Import(%s) error = %v", name, err)
		}
	}

	all, err := svc.History(ctx, 0, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(all) != 3 || all[0].FileName != "c.csv" {
		t.Errorf("History() = %d snapshots, first %q; want 3 newest first", len(all), all[0].FileName)
	}

	page, err := svc.History(ctx, 1, 1)
	if err != nil {
		t.Fatalf("History(1,1) error = %v", err)
	}
	if len(page) != 1 || page[0].FileName != "b.csv" {
		t.Errorf("History(1,1) = %+v, want b.csv", page)
	}
}

func TestAnalyzeLogbook_Sample(t *testing.T) {
	analysis, err := AnalyzeLogbook(loadSample(t), testNow)
	if err != nil {
		t.Fatalf("AnalyzeLogbook() error = %v", err)
	}
	if analysis.Summary.FlightCount != 6 || analysis.Summary.ActualFlightCount != 5 || analysis.Summary.SimulatorFlightCount != 1 {
		t.Errorf("Summary counts = %+v, want 6/5/1", analysis.Summary)
	}
	if got := analysis.Diagnostics.UnmatchedAircraft; len(got) != 1 || got[0] != "N54321" {
		t.Errorf("UnmatchedAircraft = %v, want [N54321]", got)
	}
	if !analysis.Summary.Hours.Total.Equal(analysis.Hours.Total) {
		t.Error("summary hours should match aggregated hours")
	}
}

func TestService_PreviewImport(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)
	ctx := context.Background()

	preview, err := svc.PreviewImport(ctx, loadSample(t))
	if err != nil {
		t.Fatalf("PreviewImport() error = %v", err)
	}
	if store.saves != 0 {
		t.Error("preview must not save a snapshot")
	}
	if preview.Reconciliation.Kind != ReconcileFirstImport {
		t.Errorf("Kind = %q, want %q", preview.Reconciliation.Kind, ReconcileFirstImport)
	}
	if len(preview.FlightSamples) != 6 {
		t.Fatalf("FlightSamples = %d, want 6", len(preview.FlightSamples))
	}
	if s := preview.FlightSamples[4]; s.AircraftID != "SIM1" || s.Kind != "BATD" {
		t.Errorf("FlightSamples[4] = %+v, want SIM1 BATD", s)
	}

	if _, err := svc.PreviewImport(ctx, "not a logbook"); err == nil {
		t.Error("PreviewImport() should reject a non-logbook file")
	}
}

// slowStore delays Latest and records how many calls overlap.
type slowStore struct {
	fakeStore
	delay time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (s *slowStore) Latest(ctx context.Context) (*ImportSnapshot, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.maxInFlight.Load()
		if n <= peak || s.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(s.delay)
	return s.fakeStore.Latest(ctx)
}

func TestService_ConcurrentImportsReconcileInOrder(t *testing.T) {
	const imports = 4
	store := &slowStore{delay: 20 * time.Millisecond}
	svc := NewService(store,
		WithClock(func() time.Time { return testNow }),
		WithLimiter(NewImportLimiter(imports, 5*time.Second)),
	)
	text := loadSample(t)

	var wg sync.WaitGroup
	results := make([]*ImportResult, imports)
	errs := make([]error, imports)
	for i := 0; i < imports; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Import(context.Background(), ImportRequest{FileName: "logbook.csv", Text: text})
		}(i)
	}
	wg.Wait()

	kinds := map[ReconciliationKind]int{}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("Import() #%d error = %v", i, err)
		}
		kinds[results[i].Reconciliation.Kind]++
	}
	if kinds[ReconcileFirstImport] != 1 || kinds[ReconcileUnchanged] != imports-1 {
		t.Errorf("reconciliation kinds = %v, want 1 first_import and %d unchanged", kinds, imports-1)
	}
	if got := len(store.snapshots); got != imports {
		t.Errorf("saved %d snapshots, want %d", got, imports)
	}
	if got := store.maxInFlight.Load(); got != 1 {
		t.Errorf("Latest overlapped %d times, want reads serialized with saves", got)
	}
}

func TestService_PreviewImportRespectsLimiter(t *testing.T) {
	svc := NewService(&fakeStore{},
		WithClock(func() time.Time { return testNow }),
		WithLimiter(NewImportLimiter(1, 10*time.Millisecond)),
	)
	ctx := context.Background()

	if err := svc.Limiter().Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.PreviewImport(ctx, loadSample(t)); !errors.Is(err, ErrTooManyImports) {
		t.Fatalf("PreviewImport() error = %v, want ErrTooManyImports", err)
	}
	svc.Limiter().Release()

	if _, err := svc.PreviewImport(ctx, loadSample(t)); err != nil {
		t.Fatalf("PreviewImport() after release error = %v", err)
	}
	if got := svc.Limiter().ActiveCount(); got != 0 {
		t.Errorf("limiter still holds %d slots", got)
	}
}
