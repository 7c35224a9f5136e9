package classroom_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/classroom"
	"github.com/trezcool/academia/testutil"
)

func strPtr(s string) *string { return &s }

func TestService_CreateSchedule(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	smith := testutil.CreateTeacher(t, env.AccountSvc, "mrsmith")
	jones := testutil.CreateTeacher(t, env.AccountSvc, "mrjones")
	cls := testutil.CreateClass(t, env.ClassSvc, smith, "Maths")

	tests := []struct {
		name      string
		data      classroom.NewSchedule
		wantField string
		wantMsg   string
	}{
		{
			name:      "end before start",
			data:      classroom.NewSchedule{DayOfWeek: classroom.Monday, StartTime: "10:00", EndTime: "09:00"},
			wantField: "endTime", wantMsg: "End time must be after start time",
		},
		{
			name:      "empty slot",
			data:      classroom.NewSchedule{DayOfWeek: classroom.Monday, StartTime: "10:00", EndTime: "10:00"},
			wantField: "endTime", wantMsg: "End time must be after start time",
		},
		{
			name:      "unknown day",
			data:      classroom.NewSchedule{DayOfWeek: "funday", StartTime: "10:00", EndTime: "11:00"},
			wantField: "dayOfWeek", wantMsg: "must be a day of the week, e.g. monday",
		},
		{
			name:      "missing day",
			data:      classroom.NewSchedule{StartTime: "10:00", EndTime: "11:00"},
			wantField: "dayOfWeek", wantMsg: "this field is required",
		},
		{
			name:      "bad clock",
			data:      classroom.NewSchedule{DayOfWeek: classroom.Friday, StartTime: "9:00", EndTime: "11:00"},
			wantField: "startTime", wantMsg: "must be a time of day formatted HH:MM",
		},
		{
			name:      "out of range clock",
			data:      classroom.NewSchedule{DayOfWeek: classroom.Friday, StartTime: "10:00", EndTime: "24:00"},
			wantField: "endTime", wantMsg: "must be a time of day formatted HH:MM",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ClassSvc.CreateSchedule(ctx, smith.Principal(), cls.ID, tt.data)
			fErr, ok := core.FirstFieldError(err, env.Translator)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.wantField, fErr.Field)
			assert.Equal(t, tt.wantMsg, fErr.Error)
		})
	}

	schedules, err := env.ClassSvc.ListSchedules(ctx, smith.Principal(), cls.ID)
	require.NoError(t, err)
	assert.Empty(t, schedules, "rejected slots must not be stored")

	sch, err := env.ClassSvc.CreateSchedule(ctx, smith.Principal(), cls.ID, classroom.NewSchedule{
		DayOfWeek: " Tuesday ", StartTime: "08:00", EndTime: "09:30",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sch.ID)
	assert.Equal(t, cls.ID, sch.ClassID)
	assert.Equal(t, classroom.Tuesday, sch.DayOfWeek)

	_, err = env.ClassSvc.CreateSchedule(ctx, jones.Principal(), cls.ID, classroom.NewSchedule{
		DayOfWeek: classroom.Monday, StartTime: "08:00", EndTime: "09:00",
	})
	assert.Equal(t, classroom.ErrNotOwner, err)

	_, err = env.ClassSvc.CreateSchedule(ctx, smith.Principal(), unknownID, classroom.NewSchedule{
		DayOfWeek: classroom.Monday, StartTime: "08:00", EndTime: "09:00",
	})
	assert.Equal(t, classroom.ErrNotFound, errors.Cause(err))
}

func TestService_ListSchedules(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	smith := testutil.CreateTeacher(t, env.AccountSvc, "mrsmith")
	admin := testutil.CreateAdmin(t, env.AccountSvc, "boss")
	cls := testutil.CreateClass(t, env.ClassSvc, smith, "Maths")

	create := func(day classroom.DayOfWeek, start, end string) classroom.Schedule {
		sch, err := env.ClassSvc.CreateSchedule(ctx, smith.Principal(), cls.ID, classroom.NewSchedule{DayOfWeek: day, StartTime: start, EndTime: end})
		require.NoError(t, err)
		return sch
	}
	friday := create(classroom.Friday, "08:00", "09:00")
	mondayLate := create(classroom.Monday, "14:00", "15:00")
	sunday := create(classroom.Sunday, "07:00", "08:00")
	mondayEarly := create(classroom.Monday, "08:00", "10:00")

	got, err := env.ClassSvc.ListSchedules(ctx, admin.Principal(), cls.ID)
	require.NoError(t, err)
	assert.Equal(t, []classroom.Schedule{mondayEarly, mondayLate, friday, sunday}, got)
}

func TestService_UpdateSchedule(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	smith := testutil.CreateTeacher(t, env.AccountSvc, "mrsmith")
	jones := testutil.CreateTeacher(t, env.AccountSvc, "mrjones")
	maths := testutil.CreateClass(t, env.ClassSvc, smith, "Maths")
	history := testutil.CreateClass(t, env.ClassSvc, smith, "History")

	sch, err := env.ClassSvc.CreateSchedule(ctx, smith.Principal(), maths.ID, classroom.NewSchedule{
		DayOfWeek: classroom.Monday, StartTime: "08:00", EndTime: "10:00",
	})
	require.NoError(t, err)

	t.Run("partial update is merged", func(t *testing.T) {
		got, err := env.ClassSvc.UpdateSchedule(ctx, smith.Principal(), maths.ID, sch.ID, classroom.UpdateSchedule{StartTime: strPtr("09:00")})
		require.NoError(t, err)
		assert.Equal(t, classroom.Monday, got.DayOfWeek)
		assert.Equal(t, "09:00", got.StartTime)
		assert.Equal(t, "10:00", got.EndTime)
	})

	t.Run("merged slot must still be valid", func(t *testing.T) {
		_, err := env.ClassSvc.UpdateSchedule(ctx, smith.Principal(), maths.ID, sch.ID, classroom.UpdateSchedule{EndTime: strPtr("08:30")})
		fErr, ok := core.FirstFieldError(err, env.Translator)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, "endTime", fErr.Field)

		schedules, err := env.ClassSvc.ListSchedules(ctx, smith.Principal(), maths.ID)
		require.NoError(t, err)
		require.Len(t, schedules, 1)
		assert.Equal(t, "10:00", schedules[0].EndTime)
	})

	t.Run("schedule of another class", func(t *testing.T) {
		_, err := env.ClassSvc.UpdateSchedule(ctx, smith.Principal(), history.ID, sch.ID, classroom.UpdateSchedule{StartTime: strPtr("08:00")})
		assert.Equal(t, classroom.ErrScheduleNotFound, errors.Cause(err))
	})

	t.Run("not the owner", func(t *testing.T) {
		_, err := env.ClassSvc.UpdateSchedule(ctx, jones.Principal(), maths.ID, sch.ID, classroom.UpdateSchedule{StartTime: strPtr("08:00")})
		assert.Equal(t, classroom.ErrNotOwner, err)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := env.ClassSvc.UpdateSchedule(ctx, smith.Principal(), maths.ID, "42", classroom.UpdateSchedule{})
		assert.Equal(t, classroom.ErrScheduleNotFound, err)
	})
}

func TestService_DeleteSchedule(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	smith := testutil.CreateTeacher(t, env.AccountSvc, "mrsmith")
	maths := testutil.CreateClass(t, env.ClassSvc, smith, "Maths")
	history := testutil.CreateClass(t, env.ClassSvc, smith, "History")

	sch, err := env.ClassSvc.CreateSchedule(ctx, smith.Principal(), maths.ID, classroom.NewSchedule{
		DayOfWeek: classroom.Monday, StartTime: "08:00", EndTime: "10:00",
	})
	require.NoError(t, err)

	err = env.ClassSvc.DeleteSchedule(ctx, smith.Principal(), history.ID, sch.ID)
	assert.Equal(t, classroom.ErrScheduleNotFound, errors.Cause(err))

	require.NoError(t, env.ClassSvc.DeleteSchedule(ctx, smith.Principal(), maths.ID, sch.ID))
	schedules, err := env.ClassSvc.ListSchedules(ctx, smith.Principal(), maths.ID)
	require.NoError(t, err)
	assert.Empty(t, schedules)

	err = env.ClassSvc.DeleteSchedule(ctx, smith.Principal(), maths.ID, sch.ID)
	assert.Equal(t, classroom.ErrScheduleNotFound, errors.Cause(err))
}
