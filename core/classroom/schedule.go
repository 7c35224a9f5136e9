package classroom

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
)

func (svc *Service) getSchedule(ctx context.Context, classID, id string, exec ...core.DBExecutor) (Schedule, error) {
	if !isUUID(id) {
		return Schedule{}, ErrScheduleNotFound
	}
	return svc.repo.GetSchedule(ctx, classID, id, exec...)
}

func (svc *Service) CreateSchedule(ctx context.Context, p account.Principal, classID string, ns NewSchedule) (Schedule, error) {
	sch := UpdateSchedule{DayOfWeek: &ns.DayOfWeek, StartTime: &ns.StartTime, EndTime: &ns.EndTime}.merge(Schedule{})
	if err := svc.validate.Struct(sch); err != nil {
		return Schedule{}, err
	}

	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		cls, err := svc.ownedClass(ctx, p, classID, exec)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		sch.ClassID = cls.ID
		sch.CreatedAt, sch.UpdatedAt = now, now
		sch, err = svc.repo.CreateSchedule(ctx, sch, exec)
		return errors.Wrap(err, "creating schedule")
	})
	if err != nil {
		return Schedule{}, err
	}
	return sch, nil
}

// ListSchedules returns the weekly slots of a class, by day then start time.
func (svc *Service) ListSchedules(ctx context.Context, p account.Principal, classID string) ([]Schedule, error) {
	cls, err := svc.ownedClass(ctx, p, classID)
	if err != nil {
		return nil, err
	}
	schedules, err := svc.repo.QuerySchedules(ctx, cls.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying schedules")
	}
	return schedules, nil
}

// UpdateSchedule checks the merge of the stored schedule and us before saving it.
func (svc *Service) UpdateSchedule(ctx context.Context, p account.Principal, classID, id string, us UpdateSchedule) (Schedule, error) {
	var sch Schedule
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		cls, err := svc.ownedClass(ctx, p, classID, exec)
		if err != nil {
			return err
		}
		stored, err := svc.getSchedule(ctx, cls.ID, id, exec)
		if err != nil {
			return err
		}
		sch = us.merge(stored)
		if err = svc.validate.Struct(sch); err != nil {
			return err
		}
		sch.UpdatedAt = time.Now().UTC()
		sch, err = svc.repo.UpdateSchedule(ctx, sch, exec)
		return errors.Wrap(err, "updating schedule")
	})
	if err != nil {
		return Schedule{}, err
	}
	return sch, nil
}

func (svc *Service) DeleteSchedule(ctx context.Context, p account.Principal, classID, id string) error {
	return svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		cls, err := svc.ownedClass(ctx, p, classID, exec)
		if err != nil {
			return err
		}
		if _, err = svc.getSchedule(ctx, cls.ID, id, exec); err != nil {
			return err
		}
		return errors.Wrap(svc.repo.DeleteSchedule(ctx, cls.ID, id, exec), "deleting schedule")
	})
}
