package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/flighthours/internal/config"
	"github.com/JonMunkholm/flighthours/internal/core"
	"github.com/JonMunkholm/flighthours/internal/storage/memory"
)

var testNow = time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080, RequestTimeout: 10 * time.Second, ShutdownTimeout: time.Second},
		Storage: config.StorageConfig{Driver: config.DriverMemory},
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       10 * time.Second,
		},
		Rate:     config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{EnableCSP: true},
		Logging:  config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, opts ...Option) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := core.NewService(store,
		core.WithClock(func() time.Time { return testNow }),
		core.WithLimiter(core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)),
	)
	s := NewServer(svc, cfg, opts...)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s, store
}

func sampleExport(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../core/testdata/foreflight_sample.csv")
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	return data
}

func multipartRequest(t *testing.T, path, field, fileName string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mpw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mpw.CreateFormFile(field, fileName)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	}
	mpw.WriteField("notes", "after checkride prep")
	mpw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func TestHandleImport(t *testing.T) {
	s, store := newTestServer(t, testConfig())

	rec := serve(s, multipartRequest(t, "/api/import", "file", "logbook.csv", sampleExport(t)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result core.ImportResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Reconciliation.Kind != core.ReconcileFirstImport {
		t.Errorf("Kind = %q, want first_import", result.Reconciliation.Kind)
	}
	if result.Snapshot.FlightCount != 6 || result.Snapshot.FileName != "logbook.csv" {
		t.Errorf("snapshot = %d flights from %q", result.Snapshot.FlightCount, result.Snapshot.FileName)
	}
	if result.Snapshot.Notes != "after checkride prep" {
		t.Errorf("Notes = %q", result.Snapshot.Notes)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d snapshots, want 1", store.Len())
	}

	// Same file again reconciles as unchanged.
	rec = serve(s, multipartRequest(t, "/api/import", "file", "logbook.csv", sampleExport(t)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("second import status = %d", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Reconciliation.Kind != core.ReconcileUnchanged {
		t.Errorf("second Kind = %q, want unchanged", result.Reconciliation.Kind)
	}
}

func TestHandleImport_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 2048

	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		wantCode int
		wantErr  string
	}{
		{
			name:     "not a logbook",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "/api/import", "file", "x.csv", []byte("a,b\n1,2\n")) },
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "LOG001",
		},
		{
			name: "no flights table",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/import", "file", "x.csv", []byte(core.ForeFlightMarker+"\nAircraft Table\nAircraftID\nN1\n"))
			},
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "LOG002",
		},
		{
			name:     "missing file field",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "/api/import", "", "", nil) },
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE004",
		},
		{
			name:     "empty file",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "/api/import", "file", "x.csv", []byte("  \n")) },
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE005",
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/import", "file", "x.csv", bytes.Repeat([]byte("x"), 4096))
			},
			wantCode: http.StatusRequestEntityTooLarge,
			wantErr:  "FILE001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store := newTestServer(t, cfg)
			rec := serve(s, tt.req(t))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if got := decodeError(t, rec).Code; got != tt.wantErr {
				t.Errorf("code = %s, want %s", got, tt.wantErr)
			}
			if store.Len() != 0 {
				t.Error("failed import must not be stored")
			}
		})
	}
}

func TestHandleImport_HTMX(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	req := multipartRequest(t, "/api/import", "file", "logbook.csv", sampleExport(t))
	req.Header.Set("HX-Request", "true")
	rec := serve(s, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"First import", "N54321", "2 rows skipped"} {
		if !strings.Contains(body, want) {
			t.Errorf("HTML fragment missing %q: %s", want, body)
		}
	}
}

func TestHandlePreview(t *testing.T) {
	s, store := newTestServer(t, testConfig())

	rec := serve(s, multipartRequest(t, "/api/preview", "file", "logbook.csv", sampleExport(t)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var preview core.PreviewResponse
	if err := json.NewDecoder(rec.Body).Decode(&preview); err != nil {
		t.Fatal(err)
	}
	if preview.Summary.FlightCount != 6 || len(preview.FlightSamples) != 6 {
		t.Errorf("preview = %d flights, %d samples", preview.Summary.FlightCount, len(preview.FlightSamples))
	}
	if store.Len() != 0 {
		t.Error("preview must not store a snapshot")
	}
}

func TestHandleHistoryAndLatest(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/history/latest", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("latest before import status = %d, want 404", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != "LOG004" {
		t.Errorf("code = %s, want LOG004", got)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	var page HistoryResponse
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatal(err)
	}
	if page.Imports == nil || len(page.Imports) != 0 || page.Limit != core.DefaultHistoryLimit {
		t.Errorf("empty history = %+v", page)
	}

	for i := 0; i < 3; i++ {
		if rec := serve(s, multipartRequest(t, "/api/import", "file", "logbook.csv", sampleExport(t))); rec.Code != http.StatusCreated {
			t.Fatalf("import %d status = %d", i, rec.Code)
		}
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/history?limit=2&offset=1", nil))
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatal(err)
	}
	if len(page.Imports) != 2 || page.Limit != 2 || page.Offset != 1 {
		t.Errorf("page = %d imports, limit %d, offset %d", len(page.Imports), page.Limit, page.Offset)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/history?limit=bogus", nil))
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatal(err)
	}
	if page.Limit != core.DefaultHistoryLimit || len(page.Imports) != 3 {
		t.Errorf("bogus limit page = %d imports, limit %d", len(page.Imports), page.Limit)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/history/latest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("latest status = %d", rec.Code)
	}
	var latest core.ImportSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&latest); err != nil {
		t.Fatal(err)
	}
	if latest.FlightCount != 6 {
		t.Errorf("latest FlightCount = %d, want 6", latest.FlightCount)
	}
}

func TestHandleCertifications(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/certifications", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var certs []CertificationInfo
	if err := json.NewDecoder(rec.Body).Decode(&certs); err != nil {
		t.Fatal(err)
	}
	if len(certs) != 4 {
		t.Fatalf("certifications = %d, want 4", len(certs))
	}
	for _, c := range certs {
		if len(c.Requirements) == 0 {
			t.Errorf("%s has no requirements", c.Type)
		}
	}
}

func TestHandleProgress(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/certifications/private/progress", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("progress before import status = %d, want 404", rec.Code)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/certifications/atp/progress", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown cert status = %d, want 404", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != "CERT001" {
		t.Errorf("code = %s, want CERT001", got)
	}

	serve(s, multipartRequest(t, "/api/import", "file", "logbook.csv", sampleExport(t)))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/certifications/Instrument/progress", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var progress core.CertificationProgress
	if err := json.NewDecoder(rec.Body).Decode(&progress); err != nil {
		t.Fatal(err)
	}
	if progress.Certification != core.CertInstrument || len(progress.Requirements) != 5 {
		t.Errorf("progress = %s with %d requirements", progress.Certification, len(progress.Requirements))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/certifications/private/progress", nil)
	req.Header.Set("HX-Request", "true")
	rec = serve(s, req)
	if !strings.Contains(rec.Body.String(), `data-certification="private"`) {
		t.Errorf("HTML progress table missing certification: %s", rec.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Imports.MaxConcurrent != 2 {
		t.Errorf("health = %+v", resp)
	}

	down, _ := newTestServer(t, testConfig(), WithHealthCheck(func(context.Context) error {
		return errors.New("dial tcp: connection refused")
	}))
	rec = serve(down, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d, want 503", rec.Code)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	s, _ := newTestServer(t, cfg)

	if rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/history", nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("without key status = %d, want 401", rec.Code)
	}
	if rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200 without a key", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.Header.Set("X-API-Key", "secret")
	if rec := serve(s, req); rec.Code != http.StatusOK {
		t.Errorf("with key status = %d, want 200", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 3, ImportLimit: 1}
	s, _ := newTestServer(t, cfg)

	for i := 0; i < 3; i++ {
		if rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/certifications", nil)); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/certifications", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if got := decodeError(t, rec).Code; got != "RATE001" {
		t.Errorf("code = %s, want RATE001", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing %s header", h)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&core.FormatError{Reason: "x"}, http.StatusUnprocessableEntity},
		{&core.EmptyResultError{}, http.StatusUnprocessableEntity},
		{&core.UnknownCertificationError{Type: "atp"}, http.StatusNotFound},
		{core.ErrNoImports, http.StatusNotFound},
		{core.ErrTooManyImports, http.StatusServiceUnavailable},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRespondError_LogLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		name      string
		err       error
		status    int
		wantLevel string
		wantCode  string
	}{
		{"mapped client error", &core.EmptyResultError{RowsScanned: 3}, http.StatusUnprocessableEntity, "level=WARN", "LOG003"},
		{"unmapped client error", errors.New("strange multipart failure"), http.StatusBadRequest, "level=ERROR", "ERR000"},
		{"server error", errors.New("database is locked"), http.StatusInternalServerError, "level=ERROR", "DB008"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			req := httptest.NewRequest(http.MethodPost, "/api/imports", nil)
			rec := httptest.NewRecorder()

			respondError(rec, req, tt.err, tt.status)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if resp := decodeError(t, rec); resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
			if !strings.Contains(buf.String(), tt.wantLevel) {
				t.Errorf("log = %q, want %s", buf.String(), tt.wantLevel)
			}
		})
	}
}
