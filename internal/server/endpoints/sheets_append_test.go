package endpoints

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fieldledger/internal/ledger"
	"fieldledger/internal/sheets"
	"fieldledger/internal/svcctx"
)

type fakeSheetsAPI struct {
	appends [][][]string
	rng     string
}

func (f *fakeSheetsAPI) Append(ctx context.Context, tab string, rows [][]string) (sheets.AppendResult, error) {
	f.appends = append(f.appends, rows)
	return sheets.AppendResult{UpdatedRange: f.rng}, nil
}

func (f *fakeSheetsAPI) Read(ctx context.Context, tab string) ([][]string, error) {
	return nil, nil
}

func (f *fakeSheetsAPI) SheetURL() string {
	return "https://docs.google.com/spreadsheets/d/fake"
}

func postAppend(t *testing.T, fake *fakeSheetsAPI, body string) *httptest.ResponseRecorder {
	t.Helper()
	cfg := func() ledger.Config {
		return ledger.Config{
			RecordsTab:        "Records",
			UploadLogTab:      "Upload Log",
			UpdateRequestsTab: "Update Requests",
			HeaderOrder:       []string{"foreman", "entry_date"},
			RowOrder:          []string{"worker_name", "hours"},
		}
	}
	logger := slog.New(slog.DiscardHandler)
	svcs := &svcctx.Services{
		Ledger: ledger.NewService(fake, cfg, logger),
		Logger: logger,
	}

	req := httptest.NewRequest(http.MethodPost, "/api/sheets/append", strings.NewReader(body))
	req = req.WithContext(svcctx.WithServices(req.Context(), svcs))
	w := httptest.NewRecorder()

	_, _, handler := (&AppendEndpoint{}).Route()
	handler(w, req)
	return w
}

func TestAppendRosterHeaderData(t *testing.T) {
	fake := &fakeSheetsAPI{rng: "Records!A5:H6"}
	body := `{
		"headerData": {"foreman": "Bob", "entry_date": "2026-03-15"},
		"rows": [
			{"worker_name": "Alice", "hours": "8"},
			{"worker_name": "Carol", "hours": "6"}
		],
		"submittedBy": "reviewer@example.com"
	}`

	w := postAppend(t, fake, body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	// Header values travel under headerData and repeat on every worker row.
	rows := fake.appends[0]
	if len(rows) != 2 {
		t.Fatalf("appended %d rows, want 2", len(rows))
	}
	for i, row := range rows {
		if row[1] != "Bob" || row[2] != "2026-03-15" {
			t.Errorf("row %d header cells = %q, %q, want Bob, 2026-03-15", i, row[1], row[2])
		}
	}
	if rows[0][3] != "Alice" || rows[1][3] != "Carol" {
		t.Errorf("worker cells = %q, %q", rows[0][3], rows[1][3])
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			RowNumber *int `json:"rowNumber"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Data.RowNumber == nil || *resp.Data.RowNumber != 6 {
		t.Errorf("rowNumber = %v, want 6", resp.Data.RowNumber)
	}
}
