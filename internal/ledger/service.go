// Package ledger turns extraction results into append-only rows of the
// connected spreadsheet and reads them back. Tabs are never mutated in
// place; corrections travel through the update-request queue.
package ledger

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"fieldledger/internal/faults"
	"fieldledger/internal/sheets"
)

// SheetsAPI is the slice of the spreadsheet client the ledger needs.
type SheetsAPI interface {
	Append(ctx context.Context, tab string, rows [][]string) (sheets.AppendResult, error)
	Read(ctx context.Context, tab string) ([][]string, error)
	SheetURL() string
}

// Config names the tabs and fixes the column order of appended rows. Column
// order is part of the ledger's contract: changing it reshuffles how new
// rows line up under old ones.
type Config struct {
	RecordsTab        string
	UploadLogTab      string
	UpdateRequestsTab string

	// FieldOrder lists field names in column order for flat records.
	FieldOrder []string
	// HeaderOrder and RowOrder do the same for roster records.
	HeaderOrder []string
	RowOrder    []string
}

// Service writes and reads the ledger tabs.
type Service struct {
	api    SheetsAPI
	cfg    func() Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a ledger service. The cfg func is read per call so
// configuration reloads take effect without restart.
func NewService(api SheetsAPI, cfg func() Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, cfg: cfg, logger: logger, now: time.Now}
}

// FieldValues maps field name to the approved cell text. Unreadable fields
// arrive as empty strings.
type FieldValues map[string]string

// AppendRecord is one approved submission. Roster submissions carry Rows;
// flat submissions carry only Fields.
type AppendRecord struct {
	Fields      FieldValues
	Rows        []FieldValues
	SubmittedBy string
	FileName    string
	UploadID    string
}

// AppendResult reports where the record landed.
type AppendResult struct {
	// RowNumber is the 1-based sheet ordinal of the first appended row, nil
	// when the provider response did not reveal it.
	RowNumber *int
	RowsAdded int
	SheetURL  string
}

var trailingRowRe = regexp.MustCompile(`(\d+)$`)

// rowOrdinal extracts the trailing row index from an A1 updatedRange such
// as "Records!A5:G6".
func rowOrdinal(updatedRange string) *int {
	m := trailingRowRe.FindString(updatedRange)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &n
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// Append writes one approved record to the records tab and best-effort logs
// the upload. A roster record becomes one sheet row per worker, with the
// header values repeated on each, appended in a single batch so the rows
// stay contiguous.
func (s *Service) Append(ctx context.Context, rec *AppendRecord) (*AppendResult, error) {
	cfg := s.cfg()
	ts := s.timestamp()

	var rows [][]string
	if len(rec.Rows) > 0 {
		for _, worker := range rec.Rows {
			row := []string{ts}
			for _, name := range cfg.HeaderOrder {
				row = append(row, rec.Fields[name])
			}
			for _, name := range cfg.RowOrder {
				row = append(row, worker[name])
			}
			row = append(row, rec.SubmittedBy, "Approved")
			rows = append(rows, row)
		}
	} else {
		row := []string{ts}
		for _, name := range cfg.FieldOrder {
			row = append(row, rec.Fields[name])
		}
		row = append(row, rec.SubmittedBy, "Approved")
		rows = append(rows, row)
	}

	result, err := s.api.Append(ctx, cfg.RecordsTab, rows)
	if err != nil {
		return nil, err
	}

	s.logUpload(ctx, rec, ts)

	return &AppendResult{
		RowNumber: rowOrdinal(result.UpdatedRange),
		RowsAdded: len(rows),
		SheetURL:  s.api.SheetURL(),
	}, nil
}

// logUpload appends to the upload log tab. Failures are logged and
// swallowed; the record append already succeeded and must not be reported
// as failed.
func (s *Service) logUpload(ctx context.Context, rec *AppendRecord, ts string) {
	cfg := s.cfg()
	name := rec.FileName
	if name == "" {
		name = rec.UploadID
	}
	_, err := s.api.Append(ctx, cfg.UploadLogTab, [][]string{
		{ts, name, "Approved", rec.SubmittedBy},
	})
	if err != nil {
		s.logger.Warn("upload log append failed",
			"tab", cfg.UploadLogTab,
			"kind", faults.KindOf(err).String(),
			"error", err,
		)
	}
}

// Records is a read of the records tab split into header and data rows.
type Records struct {
	Headers   []string   `json:"headers"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"totalRows"`
	SheetURL  string     `json:"sheetUrl"`
}

// Records reads the records tab. An empty tab yields no headers and zero
// rows rather than an error.
func (s *Service) Records(ctx context.Context) (*Records, error) {
	cfg := s.cfg()
	all, err := s.api.Read(ctx, cfg.RecordsTab)
	if err != nil {
		return nil, err
	}
	out := &Records{SheetURL: s.api.SheetURL()}
	if len(all) == 0 {
		return out, nil
	}
	out.Headers = all[0]
	out.Rows = all[1:]
	out.TotalRows = len(out.Rows)
	return out, nil
}
