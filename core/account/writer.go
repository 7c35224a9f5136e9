package account

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

type writeResult struct {
	accounts []Account
	students []Student
}

// storeError names the offending row of a store-level validation failure.
func (svc *Service) storeError(row int, err error) error {
	fErr, ok := core.FirstFieldError(err, svc.translator)
	if !ok {
		return err
	}
	if row == 0 {
		return core.NewValidationError(nil, fErr)
	}
	return core.NewValidationError(
		errors.Errorf("row %d: %s: %s", row, fErr.Field, fErr.Error),
		core.FieldError{Field: fmt.Sprintf("row %d", row), Error: fErr.Field + ": " + fErr.Error},
	)
}

// write persists intents in one transaction: all the accounts, then the profiles of the students.
// Any failure rolls the whole batch back.
func (svc *Service) write(ctx context.Context, intents []Intent) (writeResult, error) {
	now := time.Now().UTC()
	accounts := make([]Account, 0, len(intents))
	for _, in := range intents {
		acc := in.Account
		if err := svc.validate.Struct(acc); err != nil {
			return writeResult{}, svc.storeError(in.Row, err)
		}
		if in.Profile != nil {
			if err := svc.validate.Struct(*in.Profile); err != nil {
				return writeResult{}, svc.storeError(in.Row, err)
			}
		}
		if err := acc.SetPassword(in.Password); err != nil {
			return writeResult{}, errors.Wrap(err, "hashing password")
		}
		acc.CreatedAt, acc.UpdatedAt = now, now
		accounts = append(accounts, acc)
	}

	var res writeResult
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		created, err := svc.repo.CreateAccounts(ctx, accounts, exec)
		if err != nil {
			return errors.Wrap(err, "inserting accounts")
		}

		profiles := make([]Student, 0)
		for i, in := range intents {
			if in.Profile == nil {
				continue
			}
			st := *in.Profile
			st.AccountID = created[i].ID
			st.CreatedAt, st.UpdatedAt = now, now
			profiles = append(profiles, st)
		}
		var students []Student
		if len(profiles) > 0 {
			if students, err = svc.repo.CreateStudents(ctx, profiles, exec); err != nil {
				return errors.Wrap(err, "inserting student profiles")
			}
		}
		res = writeResult{accounts: created, students: students}
		return nil
	})
	return res, err
}
