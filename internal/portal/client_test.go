package portal

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/lamim/corrispettivi-report/internal/debug"
	"github.com/lamim/corrispettivi-report/internal/portal/testutil"
)

func newTestClient(t *testing.T, fake *testutil.Portal, opts Options) *Client {
	t.Helper()
	server := testutil.NewIPv4Server(t, fake)
	opts.BaseURL = server.URL
	client, err := NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	for _, base := range []string{"", "portal.local", "ftp://portal.local", "http://"} {
		if _, err := NewClient(Options{BaseURL: base}); err == nil {
			t.Errorf("expected error for base URL %q", base)
		}
	}
}

func TestFetchDecodesAnnualSeries(t *testing.T) {
	fake := testutil.NewPortal()
	path := AnnualPath(SeriesEnergy, "ponte_giurino", 2023)
	fake.Handle(path, http.StatusOK, `{"success":true,"per_month":{"1":100.5,"02":"200","3":null}}`)

	client := newTestClient(t, fake, Options{})
	payload, err := client.Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !payload.OK() {
		t.Fatalf("expected OK payload, got %#v", payload)
	}
	if v, ok := payload.PerMonth.Lookup(1); !ok || v != 100.5 {
		t.Errorf("month 1: expected 100.5, got %v (%v)", v, ok)
	}
	if v, ok := payload.PerMonth.Lookup(2); !ok || v != 200 {
		t.Errorf("month 2: expected 200, got %v (%v)", v, ok)
	}
	if _, ok := payload.PerMonth.Lookup(3); ok {
		t.Errorf("month 3: expected null to be missing")
	}
	if fake.Hits(path) != 1 {
		t.Errorf("expected 1 hit, got %d", fake.Hits(path))
	}
}

func TestFetchKeepsStatusOfErrorBodies(t *testing.T) {
	fake := testutil.NewPortal()
	client := newTestClient(t, fake, Options{})

	payload, err := client.Fetch(context.Background(), AnnualPath(SeriesTFO, "missing", 2023))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if payload.Status != http.StatusNotFound {
		t.Fatalf("expected 404 status, got %d", payload.Status)
	}
	if payload.OK() {
		t.Fatal("expected payload not to be OK")
	}
}

func TestFetchFailsOnInvalidJSON(t *testing.T) {
	fake := testutil.NewPortal()
	path := AnnualPath(SeriesTFO, "broken", 2023)
	fake.Handle(path, http.StatusOK, `{"success":`)

	client := newTestClient(t, fake, Options{})
	if _, err := client.Fetch(context.Background(), path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFetchEscapesNickname(t *testing.T) {
	fake := testutil.NewPortal()
	path := AnnualPath(SeriesEnergy, "san teodoro", 2022)
	if path != "/corrispettivi/api/annuale/energia-kwh/san%20teodoro/2022/" {
		t.Fatalf("unexpected path %q", path)
	}
	fake.Handle(path, http.StatusOK, `{"success":true,"per_month":{}}`)

	client := newTestClient(t, fake, Options{})
	if _, err := client.Fetch(context.Background(), path); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if fake.Hits(path) != 1 {
		t.Fatalf("expected escaped path to be requested once, got %d", fake.Hits(path))
	}
}

func TestSaveComment(t *testing.T) {
	fake := testutil.NewPortal()
	client := newTestClient(t, fake, Options{})

	err := client.SaveComment(context.Background(), Comment{Nickname: "ponte_giurino", Year: 2023, Month: 4, Text: "verificare"})
	if err != nil {
		t.Fatalf("SaveComment failed: %v", err)
	}

	saved := fake.Saved()
	if len(saved) != 1 {
		t.Fatalf("expected 1 save, got %d", len(saved))
	}
	body := saved[0]
	if body["nickname"] != "ponte_giurino" || body["anno"] != float64(2023) || body["mese"] != float64(4) || body["testo"] != "verificare" {
		t.Fatalf("unexpected save body %#v", body)
	}
}

func TestSaveCommentFailures(t *testing.T) {
	fake := testutil.NewPortal()
	client := newTestClient(t, fake, Options{})
	comment := Comment{Nickname: "x", Year: 2023, Month: 1, Text: "t"}

	fake.SaveResponse(http.StatusOK, `{"success":false}`)
	if err := client.SaveComment(context.Background(), comment); !errors.Is(err, ErrCommentRejected) {
		t.Fatalf("expected ErrCommentRejected, got %v", err)
	}

	fake.SaveResponse(http.StatusInternalServerError, `{"success":true}`)
	err := client.SaveComment(context.Background(), comment)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected StatusError 500, got %v", err)
	}
}

func TestFetchWritesDebugLog(t *testing.T) {
	fake := testutil.NewPortal()
	path := AnnualPath(SeriesCNI, "ponte_giurino", 2023)
	fake.Handle(path, http.StatusOK, `{"success":true,"per_month":{"1":5}}`)
	client := newTestClient(t, fake, Options{Token: "secret"})

	logger := debug.NewLogger(true, false, t.TempDir(), "annual")
	tableLog := logger.StartTable("ponte_giurino", 2023)
	ctx := WithTableLog(WithDebugLogger(context.Background(), logger), tableLog)

	if _, err := client.Fetch(ctx, path); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	logger.EndTable(tableLog)

	if len(tableLog.Requests) != 1 || len(tableLog.Responses) != 1 {
		t.Fatalf("expected 1 request and 1 response, got %d/%d", len(tableLog.Requests), len(tableLog.Responses))
	}
	if tableLog.Requests[0].Headers["Authorization"] != "[redacted]" {
		t.Fatalf("expected authorization header to be redacted, got %q", tableLog.Requests[0].Headers["Authorization"])
	}
	if tableLog.Responses[0].StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", tableLog.Responses[0].StatusCode)
	}
}

func TestCacheDirReplaysReads(t *testing.T) {
	fake := testutil.NewPortal()
	path := AnnualPath(SeriesEnergy, "ponte_giurino", 2021)
	fake.Handle(path, http.StatusOK, `{"success":true,"per_month":{"1":7}}`)

	cacheDir := t.TempDir()
	client := newTestClient(t, fake, Options{CacheDir: cacheDir, Timeout: 5 * time.Second})

	for i := 0; i < 3; i++ {
		payload, err := client.Fetch(context.Background(), path)
		if err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
		if payload.PerMonth.Value(1) != 7 {
			t.Fatalf("Fetch %d: expected 7, got %v", i, payload.PerMonth.Value(1))
		}
	}
	if fake.Hits(path) != 1 {
		t.Fatalf("expected backend to be hit once, got %d", fake.Hits(path))
	}
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		t.Fatalf("read cache dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 cache file, got %d", len(entries))
	}
}
