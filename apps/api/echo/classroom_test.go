package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/classroom"
	"github.com/trezcool/academia/core/importer"
	"github.com/trezcool/academia/testutil"
)

const unknownID = "9d0fa8f3-1111-4c4c-9a9a-000000000000"

func Test_classApi_classes(t *testing.T) {
	env, srv := setup(t)
	admin := testutil.CreateAdmin(t, env.AccountSvc, "admin")
	smith := testutil.CreateTeacher(t, env.AccountSvc, "smith")
	jones := testutil.CreateTeacher(t, env.AccountSvc, "jones")
	amy := testutil.CreateStudent(t, env.AccountSvc, "DH00000001", "Amy")
	student, err := env.AccountSvc.GetByID(context.Background(), amy.AccountID)
	require.NoError(t, err)

	adminToken := getToken(t, env, admin)
	smithToken := getToken(t, env, smith)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{name: "Auth required", path: "/v1/classes", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Staff required", path: "/v1/classes", token: getToken(t, env, student), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "Teacher required", path: "/v1/classes/teacher", token: adminToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{
			name: "name required", method: http.MethodPost, path: "/v1/classes", token: smithToken, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "admin names a non teacher", method: http.MethodPost, path: "/v1/classes", token: adminToken,
			body:     marchallObj(t, classroom.NewClass{Name: "Maths", TeacherID: admin.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"teacherId": "must reference a teacher"}),
		},
		{name: "unknown class", path: "/v1/classes/" + unknownID, token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "class not found"})},
	}
	runHTTPTests(t, srv, tests)

	var maths, physics classroom.Class
	t.Run("teacher creates", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", smithToken, marchallObj(t, classroom.NewClass{Name: "Maths"}))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &maths)
		assert.NotEmpty(t, maths.ID)
		require.NotNil(t, maths.Teacher)
		assert.Equal(t, smith.ID, maths.Teacher.ID)
	})

	t.Run("admin assigns", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", adminToken, marchallObj(t, classroom.NewClass{Name: "Physics", TeacherID: jones.ID}))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &physics)
		require.NotNil(t, physics.Teacher)
		assert.Equal(t, "jones", physics.Teacher.Username)
	})

	t.Run("list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes", adminToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var classes []classroom.Class
		decode(t, rec, &classes)
		assert.Len(t, classes, 2)
	})

	t.Run("list own", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/teacher", smithToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var classes []classroom.Class
		decode(t, rec, &classes)
		require.Len(t, classes, 1)
		assert.Equal(t, maths.ID, classes[0].ID)
	})

	t.Run("retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+physics.ID, smithToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var cls classroom.Class
		decode(t, rec, &cls)
		assert.Equal(t, "Physics", cls.Name)
	})
}

func Test_classApi_roster(t *testing.T) {
	env, srv := setup(t)
	smith := testutil.CreateTeacher(t, env.AccountSvc, "smith")
	jones := testutil.CreateTeacher(t, env.AccountSvc, "jones")
	amy := testutil.CreateStudent(t, env.AccountSvc, "DH00000001", "Amy")
	ben := testutil.CreateStudent(t, env.AccountSvc, "DH00000002", "Ben")
	testutil.CreateStudent(t, env.AccountSvc, "DH00000003", "Cal")
	cls := testutil.CreateClass(t, env.ClassSvc, smith, "Maths")

	smithToken := getToken(t, env, smith)
	jonesToken := getToken(t, env, jones)
	students := "/v1/classes/" + cls.ID + "/students"

	tests := []httpTest{
		{name: "empty roster", path: students, token: smithToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{
			name: "add", method: http.MethodPost, path: students + "/" + amy.StudentID, token: smithToken, wantCode: http.StatusCreated,
			wantData: marchallObj(t, classroom.Member{ID: amy.ID, Name: amy.Name, StudentID: amy.StudentID}),
		},
		{
			name: "add twice", method: http.MethodPost, path: students + "/" + amy.StudentID, token: smithToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"studentId": "student already in class"}),
		},
		{
			name: "add unknown student", method: http.MethodPost, path: students + "/DH00000099", token: smithToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "student not found"}),
		},
		{
			name: "not the owner", method: http.MethodPost, path: students + "/" + ben.StudentID, token: jonesToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: classroom.ErrNotOwner.Error()}),
		},
		{
			name: "list", path: students, token: jonesToken, wantCode: http.StatusOK,
			wantData: marchallObj(t, []classroom.Member{{ID: amy.ID, Name: amy.Name, StudentID: amy.StudentID}}),
		},
		{name: "remove", method: http.MethodDelete, path: students + "/" + amy.StudentID, token: smithToken, wantCode: http.StatusNoContent},
		{
			name: "remove non member", method: http.MethodDelete, path: students + "/" + amy.StudentID, token: smithToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "class member not found"}),
		},
	}
	runHTTPTests(t, srv, tests)

	grid := importer.Grid{
		{"studentId", "name"},
		{"DH00000001", "Amy"},
		{"DH00000002", "Ben"},
		{"DH00000009", "Nobody"},
		{"", "Cal"},
		{"DH00000001", "Amy again"},
	}

	t.Run("upload not the owner", func(t *testing.T) {
		req, rec := newUploadRequest(t, students+"/upload", jonesToken, "studentsFile", grid)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	t.Run("upload", func(t *testing.T) {
		req, rec := newUploadRequest(t, students+"/upload", smithToken, "studentsFile", grid)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp RosterResponse
		decode(t, rec, &resp)
		assert.Equal(t, "2 student(s) added to the class", resp.Message)
		assert.Equal(t, 2, resp.AddedCount)
		assert.Equal(t, 1, resp.AlreadyInClassCount)
		assert.Equal(t, 1, resp.NotFoundCount)
		assert.Equal(t, []string{"DH00000009"}, resp.NotFound)
		assert.Equal(t, 1, resp.SkippedInvalid)
	})

	t.Run("upload again", func(t *testing.T) {
		req, rec := newUploadRequest(t, students+"/upload", smithToken, "studentsFile", grid)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp RosterResponse
		decode(t, rec, &resp)
		assert.Equal(t, 0, resp.AddedCount)
		assert.Equal(t, 3, resp.AlreadyInClassCount)
	})
}

func Test_classApi_schedules(t *testing.T) {
	env, srv := setup(t)
	smith := testutil.CreateTeacher(t, env.AccountSvc, "smith")
	jones := testutil.CreateTeacher(t, env.AccountSvc, "jones")
	cls := testutil.CreateClass(t, env.ClassSvc, smith, "Maths")

	smithToken := getToken(t, env, smith)
	schedules := "/v1/classes/" + cls.ID + "/schedules"

	tests := []httpTest{
		{
			name: "end before start", method: http.MethodPost, path: schedules, token: smithToken,
			body:     marchallObj(t, classroom.NewSchedule{DayOfWeek: classroom.Monday, StartTime: "10:00", EndTime: "09:00"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"endTime": "End time must be after start time"}),
		},
		{
			name: "not the owner", method: http.MethodPost, path: schedules, token: getToken(t, env, jones),
			body:     marchallObj(t, classroom.NewSchedule{DayOfWeek: classroom.Monday, StartTime: "08:00", EndTime: "09:00"}),
			wantCode: http.StatusForbidden,
		},
		{name: "none yet", path: schedules, token: smithToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
	}
	runHTTPTests(t, srv, tests)

	create := func(t *testing.T, ns classroom.NewSchedule) classroom.Schedule {
		req, rec := newAuthRequest(http.MethodPost, schedules, smithToken, marchallObj(t, ns))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var sch classroom.Schedule
		decode(t, rec, &sch)
		return sch
	}
	friday := create(t, classroom.NewSchedule{DayOfWeek: classroom.Friday, StartTime: "08:00", EndTime: "10:00"})
	monday := create(t, classroom.NewSchedule{DayOfWeek: classroom.Monday, StartTime: "13:00", EndTime: "14:30"})
	assert.Equal(t, cls.ID, monday.ClassID)

	t.Run("list in week order", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, schedules, smithToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got []classroom.Schedule
		decode(t, rec, &got)
		require.Len(t, got, 2)
		assert.Equal(t, monday.ID, got[0].ID)
		assert.Equal(t, friday.ID, got[1].ID)
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, schedules+"/"+friday.ID, smithToken, []byte(`{"endTime": "11:00"}`))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sch classroom.Schedule
		decode(t, rec, &sch)
		assert.Equal(t, classroom.Friday, sch.DayOfWeek)
		assert.Equal(t, "08:00", sch.StartTime)
		assert.Equal(t, "11:00", sch.EndTime)
	})

	t.Run("invalid update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, schedules+"/"+friday.ID, smithToken, []byte(`{"startTime": "12:00"}`))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, schedules+"/"+monday.ID, smithToken)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		req, rec = newAuthRequest(http.MethodDelete, schedules+"/"+monday.ID, smithToken)
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "schedule not found"})}, rec)
	})
}
