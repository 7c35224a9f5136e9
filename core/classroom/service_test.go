package classroom_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/core/classroom"
	"github.com/trezcool/academia/testutil"
)

const unknownID = "9d0fa8f3-1111-4c4c-9a9a-000000000000"

func isPermissionErr(err error) bool {
	var pErr *core.PermissionError
	return errors.As(err, &pErr)
}

func TestService_CreateClass(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	admin := testutil.CreateAdmin(t, env.AccountSvc, "boss")
	teacher := testutil.CreateTeacher(t, env.AccountSvc, "mrsmith")
	student := testutil.CreateStudent(t, env.AccountSvc, "DH00000001", "Kid")
	studentAcc, err := env.AccountSvc.GetByID(ctx, student.AccountID)
	require.NoError(t, err)

	t.Run("teacher owns it", func(t *testing.T) {
		cls, err := env.ClassSvc.CreateClass(ctx, teacher.Principal(), classroom.NewClass{Name: "  Maths ", TeacherID: admin.ID})
		require.NoError(t, err)
		assert.Equal(t, "Maths", cls.Name)
		require.NotNil(t, cls.Teacher)
		assert.Equal(t, classroom.TeacherSummary{ID: teacher.ID, Username: "mrsmith"}, *cls.Teacher)
		assert.Equal(t, []classroom.Member{}, cls.Students)
	})

	t.Run("admin names the teacher", func(t *testing.T) {
		cls, err := env.ClassSvc.CreateClass(ctx, admin.Principal(), classroom.NewClass{Name: "Physics", TeacherID: teacher.ID})
		require.NoError(t, err)
		require.NotNil(t, cls.Teacher)
		assert.Equal(t, teacher.ID, cls.Teacher.ID)
	})

	t.Run("admin without teacher", func(t *testing.T) {
		cls, err := env.ClassSvc.CreateClass(ctx, admin.Principal(), classroom.NewClass{Name: "Free"})
		require.NoError(t, err)
		assert.Nil(t, cls.Teacher)
	})

	tests := []struct {
		name      string
		principal account.Principal
		data      classroom.NewClass
		want      error
	}{
		{name: "teacher is an admin", principal: admin.Principal(), data: classroom.NewClass{Name: "x", TeacherID: admin.ID}, want: classroom.ErrInvalidTeacher},
		{name: "unknown teacher", principal: admin.Principal(), data: classroom.NewClass{Name: "x", TeacherID: unknownID}, want: classroom.ErrInvalidTeacher},
		{name: "malformed teacher id", principal: admin.Principal(), data: classroom.NewClass{Name: "x", TeacherID: "42"}, want: classroom.ErrInvalidTeacher},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ClassSvc.CreateClass(ctx, tt.principal, tt.data)
			assert.Equal(t, tt.want, err)
		})
	}

	t.Run("students cannot", func(t *testing.T) {
		_, err := env.ClassSvc.CreateClass(ctx, studentAcc.Principal(), classroom.NewClass{Name: "Mine"})
		assert.True(t, isPermissionErr(err), "got %v", err)
	})

	t.Run("name required", func(t *testing.T) {
		_, err := env.ClassSvc.CreateClass(ctx, teacher.Principal(), classroom.NewClass{Name: "  "})
		fErr, ok := core.FirstFieldError(err, env.Translator)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, core.FieldError{Field: "name", Error: "this field is required"}, fErr)
	})
}

func TestService_ListClasses(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	smith := testutil.CreateTeacher(t, env.AccountSvc, "mrsmith")
	jones := testutil.CreateTeacher(t, env.AccountSvc, "mrjones")
	maths := testutil.CreateClass(t, env.ClassSvc, smith, "Maths")
	physics := testutil.CreateClass(t, env.ClassSvc, smith, "Physics")
	testutil.CreateClass(t, env.ClassSvc, jones, "History")

	kid := testutil.CreateStudent(t, env.AccountSvc, "DH00000001", "Kid")
	_, err := env.ClassSvc.AddStudent(ctx, smith.Principal(), maths.ID, kid.StudentID)
	require.NoError(t, err)

	all, err := env.ClassSvc.ListClasses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := env.ClassSvc.ListTeacherClasses(ctx, smith.Principal())
	require.NoError(t, err)
	names := make([]string, 0, len(mine))
	for _, cls := range mine {
		names = append(names, cls.Name)
		if cls.ID == maths.ID {
			assert.Equal(t, []classroom.Member{{ID: kid.ID, Name: "Kid", StudentID: "DH00000001"}}, cls.Students)
		}
		if cls.ID == physics.ID {
			assert.Equal(t, []classroom.Member{}, cls.Students)
		}
	}
	assert.ElementsMatch(t, []string{"Maths", "Physics"}, names)

	admin := testutil.CreateAdmin(t, env.AccountSvc, "boss")
	_, err = env.ClassSvc.ListTeacherClasses(ctx, admin.Principal())
	assert.True(t, isPermissionErr(err), "got %v", err)

	_, err = env.ClassSvc.GetClass(ctx, "not-a-uuid")
	assert.Equal(t, classroom.ErrNotFound, err)
	_, err = env.ClassSvc.GetClass(ctx, unknownID)
	assert.Equal(t, classroom.ErrNotFound, errors.Cause(err))
}

func TestService_Roster(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	smith := testutil.CreateTeacher(t, env.AccountSvc, "mrsmith")
	jones := testutil.CreateTeacher(t, env.AccountSvc, "mrjones")
	admin := testutil.CreateAdmin(t, env.AccountSvc, "boss")
	cls := testutil.CreateClass(t, env.ClassSvc, smith, "Maths")
	amy := testutil.CreateStudent(t, env.AccountSvc, "DH00000001", "Amy")
	ben := testutil.CreateStudent(t, env.AccountSvc, "DH00000002", "Ben")

	m, err := env.ClassSvc.AddStudent(ctx, smith.Principal(), cls.ID, amy.StudentID)
	require.NoError(t, err)
	assert.Equal(t, amy.ID, m.ID)

	m, err = env.ClassSvc.AddStudent(ctx, admin.Principal(), cls.ID, ben.ID)
	require.NoError(t, err)
	assert.Equal(t, "DH00000002", m.StudentID)

	tests := []struct {
		name      string
		principal account.Principal
		classID   string
		ref       string
		want      error
	}{
		{name: "already member", principal: smith.Principal(), classID: cls.ID, ref: amy.StudentID, want: classroom.ErrAlreadyMember},
		{name: "unknown student", principal: smith.Principal(), classID: cls.ID, ref: "DH99999999", want: classroom.ErrStudentNotFound},
		{name: "malformed ref", principal: smith.Principal(), classID: cls.ID, ref: "amy", want: classroom.ErrStudentNotFound},
		{name: "unknown class", principal: admin.Principal(), classID: unknownID, ref: amy.StudentID, want: classroom.ErrNotFound},
		{name: "not the owner", principal: jones.Principal(), classID: cls.ID, ref: amy.StudentID, want: classroom.ErrNotOwner},
	}
	for _, tt := range tests {
		t.Run("add: "+tt.name, func(t *testing.T) {
			_, err := env.ClassSvc.AddStudent(ctx, tt.principal, tt.classID, tt.ref)
			assert.Equal(t, tt.want, errors.Cause(err))
		})
	}

	students, err := env.ClassSvc.ListStudents(ctx, cls.ID)
	require.NoError(t, err)
	assert.Equal(t, []classroom.Member{
		{ID: amy.ID, Name: "Amy", StudentID: "DH00000001"},
		{ID: ben.ID, Name: "Ben", StudentID: "DH00000002"},
	}, students)

	assert.Equal(t, classroom.ErrNotOwner, env.ClassSvc.RemoveStudent(ctx, jones.Principal(), cls.ID, amy.StudentID))
	require.NoError(t, env.ClassSvc.RemoveStudent(ctx, smith.Principal(), cls.ID, amy.StudentID))
	assert.Equal(t, classroom.ErrNotMember, errors.Cause(env.ClassSvc.RemoveStudent(ctx, smith.Principal(), cls.ID, amy.StudentID)))

	students, err = env.ClassSvc.ListStudents(ctx, cls.ID)
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestService_ImportRoster(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	smith := testutil.CreateTeacher(t, env.AccountSvc, "mrsmith")
	jones := testutil.CreateTeacher(t, env.AccountSvc, "mrjones")
	cls := testutil.CreateClass(t, env.ClassSvc, smith, "Maths")
	amy := testutil.CreateStudent(t, env.AccountSvc, "DH00000001", "Amy")
	testutil.CreateStudent(t, env.AccountSvc, "DH00000002", "Ben")
	testutil.CreateStudent(t, env.AccountSvc, "DH00000003", "Cid")

	_, err := env.ClassSvc.AddStudent(ctx, smith.Principal(), cls.ID, amy.StudentID)
	require.NoError(t, err)

	grid := [][]string{
		{"Name", "StudentID"},
		{"Amy", "DH00000001"},
		{"Ben", "DH00000002"},
		{"Cid", "DH00000003"},
		{"Ben again", "DH00000002"},
		{"Ghost", "DH00000009"},
		{"Nobody", ""},
	}

	report, err := env.ClassSvc.ImportRoster(ctx, smith.Principal(), cls.ID, grid)
	require.NoError(t, err)
	assert.Equal(t, 6, report.TotalRows)
	assert.Equal(t, 2, report.AddedCount)
	assert.Equal(t, 2, report.AlreadyInClassCount)
	assert.Equal(t, 1, report.NotFoundCount)
	assert.Equal(t, []string{"DH00000009"}, report.NotFound)
	assert.Equal(t, 1, report.SkippedInvalid)

	students, err := env.ClassSvc.ListStudents(ctx, cls.ID)
	require.NoError(t, err)
	assert.Len(t, students, 3)

	// same sheet again: nothing left to add
	report, err = env.ClassSvc.ImportRoster(ctx, smith.Principal(), cls.ID, grid)
	require.NoError(t, err)
	assert.Equal(t, 0, report.AddedCount)
	assert.Equal(t, 4, report.AlreadyInClassCount)
	assert.Equal(t, 1, report.NotFoundCount)

	_, err = env.ClassSvc.ImportRoster(ctx, jones.Principal(), cls.ID, grid)
	assert.Equal(t, classroom.ErrNotOwner, err)

	_, err = env.ClassSvc.ImportRoster(ctx, smith.Principal(), cls.ID, [][]string{{"name"}, {"Amy"}})
	fErr, ok := core.FirstFieldError(err, env.Translator)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "missing required columns: studentid", fErr.Error)
}

func TestService_ImportRoster_emptyNotFound(t *testing.T) {
	env := testutil.NewEnv(t)
	smith := testutil.CreateTeacher(t, env.AccountSvc, "mrsmith")
	cls := testutil.CreateClass(t, env.ClassSvc, smith, "Maths")
	testutil.CreateStudent(t, env.AccountSvc, "DH00000001", "Amy")

	report, err := env.ClassSvc.ImportRoster(context.Background(), smith.Principal(), cls.ID, [][]string{{"studentid"}, {"DH00000001"}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.AddedCount)
	assert.NotNil(t, report.NotFound)
	assert.Empty(t, report.NotFound)
}
