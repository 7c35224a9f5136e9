package classroom

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/core/importer"
)

// RosterColumn is the only header a roster sheet must carry.
const RosterColumn = "studentid"

// resolveMember finds a student profile by its id or by its student identifier.
func (svc *Service) resolveMember(ctx context.Context, ref string, exec ...core.DBExecutor) (Member, error) {
	switch {
	case account.IsStudentID(ref):
		return svc.repo.GetMember(ctx, ref, true, exec...)
	case isUUID(ref):
		return svc.repo.GetMember(ctx, ref, false, exec...)
	}
	return Member{}, ErrStudentNotFound
}

func (svc *Service) memberSet(ctx context.Context, classID string, exec ...core.DBExecutor) (map[string]bool, error) {
	rosters, err := svc.repo.ClassMembers(ctx, []string{classID}, exec...)
	if err != nil {
		return nil, errors.Wrap(err, "listing class members")
	}
	set := make(map[string]bool, len(rosters[classID]))
	for _, m := range rosters[classID] {
		set[m.ID] = true
	}
	return set, nil
}

// AddStudent adds the student ref to the roster of a class.
func (svc *Service) AddStudent(ctx context.Context, p account.Principal, classID, ref string) (Member, error) {
	var member Member
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		cls, err := svc.ownedClass(ctx, p, classID, exec)
		if err != nil {
			return err
		}
		if member, err = svc.resolveMember(ctx, ref, exec); err != nil {
			return err
		}
		inClass, err := svc.memberSet(ctx, cls.ID, exec)
		if err != nil {
			return err
		}
		if inClass[member.ID] {
			return ErrAlreadyMember
		}
		return errors.Wrap(svc.repo.AddMembers(ctx, cls.ID, []string{member.ID}, exec), "adding class member")
	})
	if err != nil {
		return Member{}, err
	}
	return member, nil
}

// RemoveStudent removes the student ref from the roster of a class.
func (svc *Service) RemoveStudent(ctx context.Context, p account.Principal, classID, ref string) error {
	return svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		cls, err := svc.ownedClass(ctx, p, classID, exec)
		if err != nil {
			return err
		}
		member, err := svc.resolveMember(ctx, ref, exec)
		if err != nil {
			return err
		}
		return svc.repo.RemoveMember(ctx, cls.ID, member.ID, exec)
	})
}

// ImportRoster adds the students listed in grid to a class. Identifiers are resolved in one
// lookup; unknown ones and current members are reported, the others added in one statement.
// Running it twice with the same sheet adds nothing the second time.
func (svc *Service) ImportRoster(ctx context.Context, p account.Principal, classID string, grid importer.Grid) (RosterReport, error) {
	cls, err := svc.ownedClass(ctx, p, classID)
	if err != nil {
		return RosterReport{}, err
	}
	records, err := importer.Extract(grid, RosterColumn)
	if err != nil {
		return RosterReport{}, err
	}

	report := importer.NewReport(len(records))
	kept := make([]importer.Record, 0, len(records))
	studentIDs := make([]string, 0, len(records))
	for _, rec := range records {
		sid := rec.Get(RosterColumn)
		if sid == "" {
			report.Skip(rec.Row, importer.OutcomeInvalid, RosterColumn+": this field is required")
			continue
		}
		kept = append(kept, rec)
		studentIDs = append(studentIDs, sid)
	}

	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var found []Member
		if len(studentIDs) > 0 {
			if found, err = svc.repo.FindMembersByStudentIDs(ctx, studentIDs, exec); err != nil {
				return errors.Wrap(err, "finding students")
			}
		}
		byStudentID := make(map[string]Member, len(found))
		for _, m := range found {
			byStudentID[m.StudentID] = m
		}

		inClass, err := svc.memberSet(ctx, cls.ID, exec)
		if err != nil {
			return err
		}

		toAdd := make([]string, 0, len(kept))
		for _, rec := range kept {
			sid := rec.Get(RosterColumn)
			m, ok := byStudentID[sid]
			switch {
			case !ok:
				report.SkipNotFound(rec.Row, sid)
			case inClass[m.ID]:
				report.Skip(rec.Row, importer.OutcomeDuplicate, sid+" already in class")
			default:
				inClass[m.ID] = true
				toAdd = append(toAdd, m.ID)
			}
		}
		if len(toAdd) > 0 {
			if err = svc.repo.AddMembers(ctx, cls.ID, toAdd, exec); err != nil {
				return errors.Wrap(err, "adding class members")
			}
		}
		report.Created = len(toAdd)
		return nil
	})
	if err != nil {
		return RosterReport{}, err
	}

	svc.logger.Info("roster imported", map[string]interface{}{
		"class":          cls.ID,
		"rows":           report.TotalRows,
		"added":          report.Created,
		"alreadyInClass": report.SkippedDuplicate,
		"notFound":       report.SkippedNotFound,
	}, p)
	return newRosterReport(report), nil
}
