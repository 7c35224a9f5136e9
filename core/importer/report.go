package importer

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/pkg/errors"
)

// Outcome is why a row did not produce a write.
type Outcome string

const (
	OutcomeInvalid   Outcome = "invalid"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeNotFound  Outcome = "not_found"
)

type Rejection struct {
	Row     int     `json:"row"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason"`
}

// Report summarizes a bulk import.
// Every input row ends up in exactly one of Created, SkippedInvalid, SkippedDuplicate
// or SkippedNotFound.
type Report struct {
	TotalRows        int         `json:"totalRows"`
	Created          int         `json:"created"`
	SkippedInvalid   int         `json:"skippedInvalid"`
	SkippedDuplicate int         `json:"skippedDuplicate"`
	SkippedNotFound  int         `json:"skippedNotFound"`
	NotFound         []string    `json:"notFound,omitempty"`
	Rejections       []Rejection `json:"rejections,omitempty"`
}

func NewReport(totalRows int) *Report {
	return &Report{TotalRows: totalRows}
}

// Skip records a rejected row.
func (r *Report) Skip(row int, outcome Outcome, reason string) {
	switch outcome {
	case OutcomeInvalid:
		r.SkippedInvalid++
	case OutcomeDuplicate:
		r.SkippedDuplicate++
	case OutcomeNotFound:
		r.SkippedNotFound++
	}
	r.Rejections = append(r.Rejections, Rejection{Row: row, Outcome: outcome, Reason: reason})
}

// SkipNotFound records a row whose identifier could not be resolved.
func (r *Report) SkipNotFound(row int, identifier string) {
	r.Skip(row, OutcomeNotFound, identifier+" not found")
	r.NotFound = append(r.NotFound, identifier)
}

func (r *Report) Skipped() int {
	return r.SkippedInvalid + r.SkippedDuplicate + r.SkippedNotFound
}

// Balanced reports whether every input row is accounted for.
func (r *Report) Balanced() bool {
	return r.Created+r.Skipped() == r.TotalRows
}

// RejectionsCSV renders the rejected rows as a csv sheet with a header row.
func (r *Report) RejectionsCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"row", "outcome", "reason"})
	for _, rej := range r.Rejections {
		_ = w.Write([]string{strconv.Itoa(rej.Row), string(rej.Outcome), rej.Reason})
	}
	w.Flush()
	return buf.Bytes(), errors.Wrap(w.Error(), "writing rejections")
}
