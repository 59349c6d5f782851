package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"kashela/internal/core"
)

func sampleTransaction() core.StoredTransaction {
	return core.StoredTransaction{
		ID:     "tx-1",
		UserID: "user-1",
		Source: core.SourceReceipt,
		TransactionRecord: core.TransactionRecord{
			Amount:      decimal.RequireFromString("1250.5"),
			Type:        core.Expense,
			Category:    "food",
			Description: "Restaurant XYZ",
			Timestamp:   time.Date(2025, 3, 4, 23, 30, 0, 0, time.UTC),
		},
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, "sheet-id", "Transactions")
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "id"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{
		SpreadsheetID:   "id",
		CredentialsFile: filepath.Join(t.TempDir(), "missing.json"),
	})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAppendTransaction(t *testing.T) {
	var gotPath, gotQuery string
	var gotBody gsheet.ValueRange
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-id","updates":{"updatedRange":"'2025 Transactions'!A7:G7","updatedRows":1}}`)
	})

	ref, err := c.AppendTransaction(context.Background(), sampleTransaction())
	if err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}
	if ref != "'2025 Transactions'!A7:G7" {
		t.Errorf("ref = %q", ref)
	}
	if !strings.Contains(gotPath, "/spreadsheets/sheet-id/values/'2025 Transactions'!A:G:append") {
		t.Errorf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotQuery, "valueInputOption=USER_ENTERED") || !strings.Contains(gotQuery, "insertDataOption=INSERT_ROWS") {
		t.Errorf("unexpected query %q", gotQuery)
	}
	want := []string{"2025-03-04", "expense", "food", "Restaurant XYZ", "1250.50", "user-1", "tx-1"}
	if len(gotBody.Values) != 1 || len(gotBody.Values[0]) != len(want) {
		t.Fatalf("unexpected body: %+v", gotBody.Values)
	}
	for i, w := range want {
		if gotBody.Values[0][i] != w {
			t.Errorf("column %d = %v, want %q", i, gotBody.Values[0][i], w)
		}
	}
}

func TestAppendTransaction_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":400,"message":"Unable to parse range"}}`, http.StatusBadRequest)
	})
	if _, err := c.AppendTransaction(context.Background(), sampleTransaction()); err == nil {
		t.Fatal("expected error")
	}
}

func TestHasTransaction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "!G:G") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"range":"'2025 Transactions'!G1:G3","majorDimension":"ROWS","values":[["id"],["tx-0"],["tx-1"]]}`)
	})

	tx := sampleTransaction()
	found, err := c.HasTransaction(context.Background(), tx)
	if err != nil || !found {
		t.Fatalf("HasTransaction = %v, %v", found, err)
	}
	tx.ID = "tx-9"
	if found, _ := c.HasTransaction(context.Background(), tx); found {
		t.Fatal("tx-9 should not be found")
	}
}

func TestClientWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetBase: "Transactions"}
	if _, err := c.AppendTransaction(context.Background(), sampleTransaction()); err == nil {
		t.Fatal("expected error without service")
	}
	if _, err := c.HasTransaction(context.Background(), sampleTransaction()); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Transactions", 2025, "2025 Transactions"},
		{"2024 Transactions", 2025, "2024 Transactions"},
		{"  Ledger ", 2026, "2026 Ledger"},
		{"", 2025, ""},
		{"1200 Club", 2025, "2025 1200 Club"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestA1(t *testing.T) {
	if got := a1("2025 Transactions", "A:G"); got != "'2025 Transactions'!A:G" {
		t.Errorf("got %q", got)
	}
	if got := a1("Bob's", "G:G"); got != "'Bob''s'!G:G" {
		t.Errorf("got %q", got)
	}
}

func TestSheetFor_UsesTransactionYear(t *testing.T) {
	c := NewWithService(nil, "id", "")
	tx := sampleTransaction()
	tx.Timestamp = time.Date(2023, 12, 31, 23, 0, 0, 0, time.FixedZone("EAT", 3*3600))
	if got := c.SheetFor(tx); got != "2023 Transactions" {
		t.Fatalf("got %q", got)
	}
}
