// Package sheets is the typed access layer for one spreadsheet document.
// It shields callers from provider-specific status codes: the only fault
// kinds it raises are PermissionDenied, SheetNotFound, QuotaExceeded,
// SheetsOperationFailed, and UpstreamTimeout.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"fieldledger/internal/faults"
)

// BaseURL is the spreadsheet provider's values API root.
const BaseURL = "https://sheets.googleapis.com"

// TokenSource supplies a bearer token per call. Satisfied by
// gauth.TokenCache.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config holds construction parameters for a Client.
type Config struct {
	SheetID string
	Tokens  TokenSource
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client performs append/read operations against named tabs of a single
// sheet.
type Client struct {
	sheetID    string
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// AppendResult reports what the provider wrote.
type AppendResult struct {
	// UpdatedRange is the provider-reported A1 range the rows landed in,
	// e.g. "Records!A5:G6". The trailing row index is the only safe way to
	// learn a row's ordinal since concurrent writers exist.
	UpdatedRange string
}

// NewClient creates a sheets client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		sheetID:    cfg.SheetID,
		baseURL:    cfg.BaseURL,
		tokens:     cfg.Tokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

// SheetURL returns the human-facing document URL.
func (c *Client) SheetURL() string {
	return "https://docs.google.com/spreadsheets/d/" + c.sheetID
}

// tabRange addresses the full column range of a tab, matching the append
// semantics of writing to the next blank row.
func (c *Client) tabRange(tab string) string {
	return url.PathEscape(tab + "!A:Z")
}

// Append writes rows to the next blank row of the tab in one batch call.
// Rows land contiguously in the given order; USER_ENTERED value
// interpretation lets the provider coerce date- and number-looking strings.
func (c *Client) Append(ctx context.Context, tab string, rows [][]string) (AppendResult, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED",
		c.baseURL, c.sheetID, c.tabRange(tab))

	payload := struct {
		Values [][]string `json:"values"`
	}{Values: rows}
	body, err := json.Marshal(payload)
	if err != nil {
		return AppendResult{}, fmt.Errorf("failed to marshal append body: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), "append")
	if err != nil {
		return AppendResult{}, err
	}

	var appendResp struct {
		Updates struct {
			UpdatedRange string `json:"updatedRange"`
		} `json:"updates"`
	}
	if err := json.Unmarshal(respBody, &appendResp); err != nil {
		return AppendResult{}, faults.Wrap(faults.SheetsOperationFailed, "unmarshaling append response", err)
	}
	return AppendResult{UpdatedRange: appendResp.Updates.UpdatedRange}, nil
}

// Read returns every row of the tab including any header row. An empty tab
// yields an empty slice.
func (c *Client) Read(ctx context.Context, tab string) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s", c.baseURL, c.sheetID, c.tabRange(tab))

	respBody, err := c.do(ctx, http.MethodGet, endpoint, nil, "read")
	if err != nil {
		return nil, err
	}

	var readResp struct {
		Values [][]any `json:"values"`
	}
	if err := json.Unmarshal(respBody, &readResp); err != nil {
		return nil, faults.Wrap(faults.SheetsOperationFailed, "unmarshaling read response", err)
	}

	rows := make([][]string, len(readResp.Values))
	for i, row := range readResp.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cellString(cell)
		}
		rows[i] = cells
	}
	return rows, nil
}

// do runs one request with a fresh bearer token and maps the provider's
// response into the closed fault taxonomy.
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, op string) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, faults.Wrap(faults.UpstreamTimeout, "sheets "+op+" timed out", err)
		}
		return nil, faults.Wrap(faults.SheetsOperationFailed, "sheets "+op+" request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, faults.Wrap(faults.SheetsOperationFailed, "reading sheets response", err)
	}

	switch resp.StatusCode {
	case http.StatusForbidden:
		return nil, faults.New(faults.PermissionDenied, "sheets "+op+" forbidden")
	case http.StatusNotFound:
		return nil, faults.New(faults.SheetNotFound, "sheet or tab not found")
	case http.StatusTooManyRequests:
		return nil, faults.New(faults.QuotaExceeded, "sheets quota exceeded")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Raw body kept for server-side diagnostics; never shown to users.
		return nil, faults.Newf(faults.SheetsOperationFailed,
			"sheets %s status %d: %s", op, resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// cellString renders one provider cell value. The values API with default
// rendering returns strings, but be tolerant of raw numbers and booleans.
func cellString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
