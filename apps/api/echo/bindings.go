package echoapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindSpreadsheet reads the spreadsheet uploaded as the multipart field and parses its first sheet.
func bindSpreadsheet(ctx echo.Context, field string, maxSize int64) (importer.Grid, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "reading form file"), core.FieldError{
			Field: field, Error: "a spreadsheet file is required",
		})
	}
	if !importer.AllowedMIMEType(fh.Header.Get(echo.HeaderContentType)) {
		return nil, core.NewValidationError(nil, core.FieldError{
			Field: field, Error: "only .xlsx and .csv files are supported",
		})
	}
	if fh.Size > maxSize {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("the file exceeds %d bytes", maxSize))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening form file")
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "reading form file")
	}
	if int64(len(data)) > maxSize {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("the file exceeds %d bytes", maxSize))
	}
	return importer.Parse(data)
}
