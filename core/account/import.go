package account

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
)

// ImportColumns are the headers an account sheet must carry; email, studentId and name are optional.
var ImportColumns = []string{"username", "password", "role"}

// ImportReport is the outcome of a bulk account import.
type ImportReport struct {
	*importer.Report
	ProfilesCreated int `json:"profilesCreated"`
}

// Import creates the accounts described by grid. Invalid and duplicate rows are skipped and
// reported; the remaining rows are written in one transaction.
func (svc *Service) Import(ctx context.Context, grid importer.Grid) (ImportReport, error) {
	records, err := importer.Extract(grid, ImportColumns...)
	if err != nil {
		return ImportReport{}, err
	}

	report := importer.NewReport(len(records))
	intents := make([]Intent, 0, len(records))
	var invalid []core.FieldError
	for _, rec := range records {
		in, err := ParseIntent(svc.validate, NewAccountFromRecord(rec))
		if err != nil {
			fErr, ok := core.FirstFieldError(err, svc.translator)
			if !ok {
				return ImportReport{}, errors.Wrapf(err, "validating row %d", rec.Row)
			}
			reason := fErr.Field + ": " + fErr.Error
			report.Skip(rec.Row, importer.OutcomeInvalid, reason)
			invalid = append(invalid, core.FieldError{Field: fmt.Sprintf("row %d", rec.Row), Error: reason})
			continue
		}
		in.Row = rec.Row
		intents = append(intents, in)
	}
	if len(intents) == 0 {
		return ImportReport{}, core.NewValidationError(errors.New("the file has no valid rows"), invalid...)
	}

	if intents, err = svc.resolveDuplicates(ctx, intents, report); err != nil {
		return ImportReport{}, err
	}

	res := ImportReport{Report: report}
	if len(intents) > 0 {
		written, err := svc.write(ctx, intents)
		if err != nil {
			return ImportReport{}, err
		}
		report.Created = len(written.accounts)
		res.ProfilesCreated = len(written.students)
	}

	svc.logger.Info("accounts imported", map[string]interface{}{
		"rows":      report.TotalRows,
		"created":   report.Created,
		"profiles":  res.ProfilesCreated,
		"invalid":   report.SkippedInvalid,
		"duplicate": report.SkippedDuplicate,
	})
	return res, nil
}

// MailImportReport sends the outcome of an import to the admin who ran it, with the rejected
// rows attached as csv. Nothing is sent when the admin has no email; failures are only logged.
func (svc *Service) MailImportReport(to Principal, report ImportReport) {
	if to.Email == "" {
		return
	}

	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: to.Username, Address: to.Email}},
		Subject: "Account import report",
		BodyStr: fmt.Sprintf("Rows: %d\nCreated: %d (%d student profiles)\nInvalid: %d\nDuplicates: %d\n",
			report.TotalRows, report.Created, report.ProfilesCreated, report.SkippedInvalid, report.SkippedDuplicate),
	}
	if len(report.Rejections) > 0 {
		data, err := report.RejectionsCSV()
		if err != nil {
			svc.logger.Error("attaching rejected rows", err)
		} else {
			content := bytes.NewBufferString(base64.StdEncoding.EncodeToString(data))
			msg.Attachments = []core.Attachment{{Content: content, ContentType: importer.MIMETypeCSV, Filename: "rejected_rows.csv"}}
		}
	}
	svc.mailSvc.SendMessages(msg)
}
