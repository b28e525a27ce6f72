package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expensetracker/internal/core"
)

type fakeSheets struct {
	mu       sync.Mutex
	existing [][]any
	appended [][]any
	ranges   []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		json.NewEncoder(w).Encode(gsheet.ValueRange{Values: f.existing})
	case http.MethodPost:
		f.ranges = append(f.ranges, r.URL.Path)
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.appended = append(f.appended, vr.Values...)
		f.existing = append(f.existing, vr.Values...)
		json.NewEncoder(w).Encode(gsheet.AppendValuesResponse{
			Updates: &gsheet.UpdateValuesResponse{UpdatedRange: "Expenses!A1:E2", UpdatedRows: int64(len(vr.Values))},
		})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, "sheet-id", "", nil)
}

func testExpenses() []core.Expense {
	return []core.Expense{
		{ID: 1, Title: "Groceries", Amount: decimal.RequireFromString("12.5"), Category: core.Food, ExpenseDate: core.NewDate(2025, 3, 1)},
		{ID: 2, Title: "Bus", Amount: decimal.NewFromInt(2), Category: core.Transportation, ExpenseDate: core.NewDate(2025, 3, 2), Description: "ticket"},
	}
}

func TestClient_ExportWritesHeaderOnEmptySheet(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	n, err := c.Export(context.Background(), testExpenses())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Export() = %d, want 2", n)
	}
	if len(fake.appended) != 3 {
		t.Fatalf("expected header and two rows, got %v", fake.appended)
	}
	if fake.appended[0][0] != "Date" {
		t.Errorf("first row should be the header, got %v", fake.appended[0])
	}
	if fake.appended[1][3] != "12.50" || fake.appended[2][4] != "ticket" {
		t.Errorf("unexpected rows %v", fake.appended[1:])
	}
	if len(fake.ranges) != 1 || !strings.Contains(fake.ranges[0], "sheet-id") {
		t.Errorf("unexpected append path %v", fake.ranges)
	}
}

func TestClient_ExportSkipsHeaderWhenPresent(t *testing.T) {
	fake := &fakeSheets{existing: [][]any{{"Date", "Title", "Category", "Amount", "Description"}}}
	c := newTestClient(t, fake)

	if _, err := c.Export(context.Background(), testExpenses()[:1]); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(fake.appended) != 1 || fake.appended[0][1] != "Groceries" {
		t.Errorf("unexpected rows %v", fake.appended)
	}
}

func TestClient_ExportEmpty(t *testing.T) {
	c := &Client{}
	n, err := c.Export(context.Background(), nil)
	if err == nil || n != 0 {
		t.Fatalf("expected uninitialized service error, got n=%d err=%v", n, err)
	}

	fake := &fakeSheets{}
	n, err = newTestClient(t, fake).Export(context.Background(), nil)
	if err != nil || n != 0 {
		t.Fatalf("unexpected export of nothing: n=%d err=%v", n, err)
	}
	if len(fake.appended) != 0 {
		t.Error("nothing should be sent for an empty export")
	}
}

func TestClient_ExportServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	}))
	if _, err := c.Export(context.Background(), testExpenses()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNew_MissingSettings(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"no spreadsheet", Config{}, "missing GOOGLE_SPREADSHEET_ID"},
		{"no credentials", Config{SpreadsheetID: "id"}, "missing service account credentials"},
		{"unreadable file", Config{SpreadsheetID: "id", CredentialsFile: "/nonexistent/creds.json"}, "read service account file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("New() error = %v, want substring %q", err, tt.want)
			}
		})
	}
}
