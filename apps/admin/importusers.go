package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/importer"
)

// importUsers creates the accounts listed in the spreadsheet at path and prints the report.
func (cli *commandLine) importUsers(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading file")
	}
	grid, err := importer.Parse(data)
	if err != nil {
		return err
	}

	report, err := cli.accountSvc.Import(context.Background(), grid)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "rows: %d, created: %d (%d student profiles), invalid: %d, duplicates: %d\n",
		report.TotalRows, report.Created, report.ProfilesCreated, report.SkippedInvalid, report.SkippedDuplicate)
	for _, rej := range report.Rejections {
		fmt.Fprintf(cli.out, "  row %d: %s\n", rej.Row, rej.Reason)
	}
	return nil
}
