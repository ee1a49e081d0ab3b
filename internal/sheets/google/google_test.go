package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"afasrapport/internal/core"
	"afasrapport/internal/finview"
	"afasrapport/internal/log"
)

func TestNewClient_MissingSpreadsheetID(t *testing.T) {
	_, err := NewClient(context.Background(), Options{}, nil)
	if err == nil {
		t.Fatal("expected error for missing spreadsheet ID")
	}
	if err.Error() != "missing spreadsheet ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), Options{SpreadsheetID: "test-id"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got: %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		opts    Options
		want    string
		wantErr bool
	}{
		{"inline json", Options{CredentialsJSON: `{"inline":true}`, CredentialsFile: path}, `{"inline":true}`, false},
		{"file", Options{CredentialsFile: path}, `{"type":"service_account"}`, false},
		{"missing file", Options{CredentialsFile: filepath.Join(dir, "nope.json")}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadCredentials(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSheetRange(t *testing.T) {
	tests := []struct {
		sheet, cells, want string
	}{
		{"Overzicht", "A1:H3", "Overzicht!A1:H3"},
		{"Financieel overzicht", "A:H", "'Financieel overzicht'!A:H"},
		{"Jan's", "A1", "'Jan''s'!A1"},
	}
	for _, tt := range tests {
		if got := sheetRange(tt.sheet, tt.cells); got != tt.want {
			t.Errorf("sheetRange(%q, %q) = %q, want %q", tt.sheet, tt.cells, got, tt.want)
		}
	}
}

func TestClient_ExportView(t *testing.T) {
	var (
		mu      sync.Mutex
		calls   []string
		written gsheet.ValueRange
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, r.Method)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
		case r.Method == http.MethodPut:
			if got := r.URL.Query().Get("valueInputOption"); got != "USER_ENTERED" {
				t.Errorf("valueInputOption = %q", got)
			}
			if err := json.NewDecoder(r.Body).Decode(&written); err != nil {
				t.Errorf("decode body: %v", err)
			}
			_, _ = w.Write([]byte(`{"updatedRange":"Overzicht!A1:H3"}`))
		default:
			http.Error(w, "unexpected request", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	c := newWithService(svc, Options{SpreadsheetID: "sheet-1"}, log.Discard())

	view := finview.Build([]core.RawTransaction{
		{Jaar: 2024, Periode: 1, BedragCredit: 100, TypeRekening: "Opbrengsten"},
	}, core.FullYear(2024))

	ref, err := c.ExportView(context.Background(), view)
	if err != nil {
		t.Fatalf("ExportView: %v", err)
	}
	if ref != "Overzicht!A1:H3" {
		t.Errorf("ref = %q", ref)
	}
	if len(calls) != 2 || calls[0] != http.MethodPost || calls[1] != http.MethodPut {
		t.Errorf("calls = %v, want clear then update", calls)
	}
	if len(written.Values) != 3 || written.Values[1][0] != "januari 2024" {
		t.Errorf("unexpected values written: %v", written.Values)
	}
}

func TestClient_ExportViewUninitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	_, err := c.ExportView(context.Background(), &core.FinancialView{})
	if err == nil || err.Error() != "sheets service not initialized" {
		t.Fatalf("unexpected error: %v", err)
	}
}
