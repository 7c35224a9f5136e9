package importer

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	ErrNoHeader = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "the file has no header row"})
	ErrNoRows   = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "the file has no data rows"})
)

// Record is one data row, keyed by normalized (lower-cased, trimmed) header names.
// Cells are trimmed; a key is absent when the row is shorter than the header.
type Record struct {
	Row    int // 1-based sheet row; the header is row 1
	Fields map[string]string
}

// Get returns the value of key, or "" when it is absent.
func (r Record) Get(key string) string {
	return r.Fields[key]
}

// Lookup returns the value of key and whether it was present.
func (r Record) Lookup(key string) (string, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// Extract turns grid into Records. Every required header must be present (case-insensitive);
// fully empty rows and columns with an empty header are ignored.
func Extract(grid Grid, required ...string) ([]Record, error) {
	if len(grid) == 0 || isBlank(grid[0]) {
		return nil, ErrNoHeader
	}

	headers := make([]string, len(grid[0]))
	seen := make(map[string]bool, len(grid[0]))
	for i, h := range grid[0] {
		h = normalizeHeader(h)
		if h == "" || seen[h] { // first column wins
			continue
		}
		seen[h] = true
		headers[i] = h
	}

	var missing []string
	for _, req := range required {
		if !seen[req] {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, core.NewValidationError(
			errors.Errorf("missing required columns: %s", strings.Join(missing, ", ")),
			core.FieldError{Field: "file", Error: "missing required columns: " + strings.Join(missing, ", ")},
		)
	}

	records := make([]Record, 0, len(grid)-1)
	for i, row := range grid[1:] {
		if isBlank(row) {
			continue
		}
		rec := Record{Row: i + 2, Fields: make(map[string]string, len(headers))}
		for col, h := range headers {
			if h == "" || col >= len(row) {
				continue
			}
			rec.Fields[h] = strings.TrimSpace(row[col])
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrNoRows
	}
	return records, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
