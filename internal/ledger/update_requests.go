package ledger

import (
	"context"
	"strconv"

	"fieldledger/internal/faults"
)

// UpdateRequest is a correction filed against an existing ledger row. The
// row itself is never edited; an admin reviews the queue out of band.
type UpdateRequest struct {
	// Row is the 1-based sheet row the request occupies in the
	// update-requests tab, usable as a stable handle.
	Row       int    `json:"row"`
	Timestamp string `json:"timestamp"`
	// OriginalRow is the ledger row under dispute, nil when the stored
	// cell does not parse as a number.
	OriginalRow *int   `json:"originalRow"`
	RequestedBy string `json:"requestedBy"`
	Description string `json:"description"`
	Status      string `json:"status"`
	ReviewedBy  string `json:"reviewedBy"`
	ReviewedAt  string `json:"reviewedAt"`
}

// SubmitUpdateRequest appends a pending correction to the update-requests
// tab and returns the sheet row it landed on, nil when the append reply
// carries no range. OriginalRow and Description are required; RequestedBy
// is optional.
func (s *Service) SubmitUpdateRequest(ctx context.Context, originalRow, requestedBy, description string) (*int, error) {
	if originalRow == "" || description == "" {
		return nil, faults.New(faults.Validation, "missing required fields: originalRow or description")
	}

	cfg := s.cfg()
	row := []string{s.timestamp(), originalRow, requestedBy, description, "Pending", "", ""}

	result, err := s.api.Append(ctx, cfg.UpdateRequestsTab, [][]string{row})
	if err != nil {
		return nil, err
	}
	return rowOrdinal(result.UpdatedRange), nil
}

// ListUpdateRequests reads the queue, newest last. The first sheet row is
// treated as a header and skipped, so data row k maps to sheet row k+2.
func (s *Service) ListUpdateRequests(ctx context.Context) ([]UpdateRequest, error) {
	cfg := s.cfg()
	all, err := s.api.Read(ctx, cfg.UpdateRequestsTab)
	if err != nil {
		return nil, err
	}
	if len(all) <= 1 {
		return []UpdateRequest{}, nil
	}

	requests := make([]UpdateRequest, 0, len(all)-1)
	for k, row := range all[1:] {
		req := UpdateRequest{
			Row:         k + 2,
			Timestamp:   cell(row, 0),
			RequestedBy: cell(row, 2),
			Description: cell(row, 3),
			Status:      cell(row, 4),
			ReviewedBy:  cell(row, 5),
			ReviewedAt:  cell(row, 6),
		}
		if n, err := strconv.Atoi(cell(row, 1)); err == nil {
			req.OriginalRow = &n
		}
		if req.Status == "" {
			req.Status = "Pending"
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// cell reads a column defensively since short rows drop trailing blanks.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
