package account

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
)

// takenSet holds the identifiers already in use.
type takenSet struct {
	usernames  map[string]bool
	emails     map[string]bool
	studentIDs map[string]bool
}

func newTakenSet(accounts []Account, students []Student, excludedID string) takenSet {
	ts := takenSet{
		usernames:  make(map[string]bool, len(accounts)),
		emails:     make(map[string]bool, len(accounts)),
		studentIDs: make(map[string]bool, len(students)),
	}
	for _, acc := range accounts {
		if acc.ID != excludedID {
			ts.add(acc)
		}
	}
	for _, st := range students {
		if st.AccountID != excludedID {
			ts.studentIDs[st.StudentID] = true
		}
	}
	return ts
}

func (ts takenSet) add(acc Account) {
	ts.usernames[acc.Username] = true
	if acc.Email != "" {
		ts.emails[acc.Email] = true
	}
	if acc.StudentID != "" {
		ts.studentIDs[acc.StudentID] = true
	}
}

// collision returns the first field of acc already taken: username, then email, then studentId.
func (ts takenSet) collision(acc Account) (field, value string) {
	switch {
	case ts.usernames[acc.Username]:
		return "username", acc.Username
	case acc.Email != "" && ts.emails[acc.Email]:
		return "email", acc.Email
	case acc.StudentID != "" && ts.studentIDs[acc.StudentID]:
		return "studentId", acc.StudentID
	}
	return "", ""
}

// lookup fetches, in one query per table, the stored records colliding with accounts.
func (svc *Service) lookup(ctx context.Context, accounts []Account, exec ...core.DBExecutor) ([]Account, []Student, error) {
	usernames := make([]string, 0, len(accounts))
	emails := make([]string, 0, len(accounts))
	studentIDs := make([]string, 0)
	for _, acc := range accounts {
		usernames = append(usernames, acc.Username)
		if acc.Email != "" {
			emails = append(emails, acc.Email)
		}
		if acc.StudentID != "" {
			studentIDs = append(studentIDs, acc.StudentID)
		}
	}

	existing, err := svc.repo.FindCollisions(ctx, usernames, emails, exec...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "finding colliding accounts")
	}
	var students []Student
	if len(studentIDs) > 0 {
		if students, err = svc.repo.FindStudentsByStudentIDs(ctx, studentIDs, exec...); err != nil {
			return nil, nil, errors.Wrap(err, "finding colliding students")
		}
	}
	return existing, students, nil
}

// checkUniqueness fails fast with a likely conflict when acc collides with another stored account.
func (svc *Service) checkUniqueness(ctx context.Context, acc Account, exec ...core.DBExecutor) error {
	existing, students, err := svc.lookup(ctx, []Account{acc}, exec...)
	if err != nil {
		return err
	}
	if field, val := newTakenSet(existing, students, acc.ID).collision(acc); field != "" {
		return core.NewLikelyConflict(field, val)
	}
	return nil
}

// resolveDuplicates drops the intents colliding with stored accounts, or with an earlier row
// of the same batch, and tallies them as duplicates in report.
func (svc *Service) resolveDuplicates(ctx context.Context, intents []Intent, report *importer.Report) ([]Intent, error) {
	if len(intents) == 0 {
		return intents, nil
	}

	accounts := make([]Account, 0, len(intents))
	for _, in := range intents {
		accounts = append(accounts, in.Account)
	}
	existing, students, err := svc.lookup(ctx, accounts)
	if err != nil {
		return nil, err
	}

	taken := newTakenSet(existing, students, "")
	kept := make([]Intent, 0, len(intents))
	for _, in := range intents {
		if field, val := taken.collision(in.Account); field != "" {
			report.Skip(in.Row, importer.OutcomeDuplicate, fmt.Sprintf("%s %q already exists", field, val))
			continue
		}
		taken.add(in.Account)
		kept = append(kept, in)
	}
	return kept, nil
}
