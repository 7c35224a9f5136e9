// Package importer turns uploaded spreadsheets into header-keyed records and
// tallies what happened to each of them.
package importer

import (
	"bytes"
	"encoding/csv"
	"mime"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/academia/core"
)

const (
	MIMETypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMETypeXLS  = "application/vnd.ms-excel" // also sent by some browsers for .csv
	MIMETypeCSV  = "text/csv"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}

	ErrUnsupportedType = core.NewValidationError(nil, core.FieldError{
		Field: "file", Error: "only .xlsx and .csv files are supported",
	})
	ErrLegacyFormat = core.NewValidationError(nil, core.FieldError{
		Field: "file", Error: "legacy .xls workbooks are not supported, save the file as .xlsx",
	})
	ErrNoSheet = core.NewValidationError(nil, core.FieldError{
		Field: "file", Error: "the workbook has no sheet",
	})
	ErrInvalidFile = core.NewValidationError(nil, core.FieldError{
		Field: "file", Error: "the file is corrupted or not a valid spreadsheet",
	})
)

// Grid is a parsed sheet: rows of cells, the first row being the header.
type Grid [][]string

// AllowedMIMEType reports whether a declared upload content type may hold a spreadsheet.
func AllowedMIMEType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case MIMETypeXLSX, MIMETypeXLS, MIMETypeCSV:
		return true
	}
	return false
}

// Parse reads the first sheet of an xlsx workbook, or a CSV document, into a Grid.
// The format is detected from the content, not from the declared type.
func Parse(data []byte) (Grid, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return parseXLSX(data)
	case bytes.HasPrefix(data, oleMagic):
		return nil, ErrLegacyFormat
	default:
		return parseCSV(data)
	}
}

func parseXLSX(data []byte) (Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidFile
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "reading first sheet")
	}
	return rows, nil
}

func parseCSV(data []byte) (Grid, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, ErrUnsupportedType // binary content
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, ErrInvalidFile
	}
	return rows, nil
}

// EncodeXLSX writes grid to the first sheet of a new workbook.
func EncodeXLSX(grid Grid) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, row := range grid {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, errors.Wrap(err, "computing cell name")
		}
		vals := make([]interface{}, len(row))
		for j, v := range row {
			vals[j] = v
		}
		if err = f.SetSheetRow(sheet, cell, &vals); err != nil {
			return nil, errors.Wrap(err, "writing row")
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
