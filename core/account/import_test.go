package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/core/importer"
	"github.com/trezcool/academia/testutil"
)

func TestService_Import(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	grid := importer.Grid{
		{"Username", "Password", "Role", "StudentId", "Name"},
		{"jane", "pwd", "student", "DH12345678", "Jane Doe"},
		{"bob", "", "teacher", "", ""},
	}
	report, err := env.AccountSvc.Import(ctx, grid)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalRows)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.ProfilesCreated)
	assert.Equal(t, 1, report.SkippedInvalid)
	assert.True(t, report.Balanced())
	require.Len(t, report.Rejections, 1)
	assert.Equal(t, importer.Rejection{Row: 3, Outcome: importer.OutcomeInvalid, Reason: "password: this field is required"}, report.Rejections[0])

	acc, err := env.AccountSvc.GetByUsernameOrEmail(ctx, "DH12345678")
	require.NoError(t, err)
	st, err := env.AccountSvc.GetStudentProfile(ctx, acc)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", st.Name)
}

func TestService_Import_duplicates(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.CreateTeacher(t, env.AccountSvc, "mrsmith")
	testutil.CreateStudent(t, env.AccountSvc, "DH00000001", "Old Timer")

	grid := importer.Grid{
		{"username", "password", "role", "email", "studentid", "name"},
		{"mrsmith", "pwd", "teacher", "", "", ""},               // taken
		{"mrjones", "pwd", "teacher", "jones@test.cd", "", ""},  // new
		{"mrjones2", "pwd", "teacher", "JONES@test.cd", "", ""}, // email repeated in the file
		{"x", "pwd", "student", "", "DH00000001", "Again"},      // identifier taken
		{"x", "pwd", "student", "", "DH00000002", "New Kid"},    // new
		{"x", "pwd", "student", "", "DH00000002", "Twin"},       // repeated in the file
		{"x", "pwd", "student", "", "DH0000003", "Typo"},        // invalid
		{"boss", "pwd", "admin", "", "DH00000004", ""},          // staff, identifier ignored
	}
	report, err := env.AccountSvc.Import(ctx, grid)
	require.NoError(t, err)

	assert.Equal(t, 8, report.TotalRows)
	assert.Equal(t, 3, report.Created)
	assert.Equal(t, 1, report.ProfilesCreated)
	assert.Equal(t, 4, report.SkippedDuplicate)
	assert.Equal(t, 1, report.SkippedInvalid)
	assert.True(t, report.Balanced())

	reasons := make(map[int]string, len(report.Rejections))
	for _, r := range report.Rejections {
		reasons[r.Row] = r.Reason
	}
	assert.Equal(t, map[int]string{
		2: `username "mrsmith" already exists`,
		4: `email "jones@test.cd" already exists`,
		5: `username "DH00000001" already exists`,
		7: `username "DH00000002" already exists`,
		8: `studentId: must be "DH" followed by exactly 8 digits`,
	}, reasons)

	// importing the same sheet again creates nothing
	report, err = env.AccountSvc.Import(ctx, grid)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 7, report.SkippedDuplicate)
	assert.True(t, report.Balanced())
}

func TestService_Import_errors(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		grid      importer.Grid
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing columns",
			grid:      importer.Grid{{"username", "role"}, {"bob", "teacher"}},
			wantField: "file", wantMsg: "missing required columns: password",
		},
		{
			name:      "header only",
			grid:      importer.Grid{{"username", "password", "role"}},
			wantField: "file", wantMsg: "the file has no data rows",
		},
		{
			name: "no valid rows",
			grid: importer.Grid{
				{"username", "password", "role"},
				{"bob", "pwd", "janitor"},
				{"", "pwd", "teacher"},
			},
			wantField: "row 2", wantMsg: "role: must be one of student, teacher, admin",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.AccountSvc.Import(ctx, tt.grid)
			fErr, ok := core.FirstFieldError(err, env.Translator)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.wantField, fErr.Field)
			assert.Equal(t, tt.wantMsg, fErr.Error)
		})
	}

	accounts, err := env.AccountRepo.QueryAccounts(ctx, account.QueryFilter{}, nil)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestService_Import_xlsx(t *testing.T) {
	env := testutil.NewEnv(t)

	data, err := importer.EncodeXLSX(importer.Grid{
		{"Username", "Password", "Role"},
		{"alice", "secret", "admin"},
		{"carol", "secret", "teacher"},
	})
	require.NoError(t, err)
	grid, err := importer.Parse(data)
	require.NoError(t, err)

	report, err := env.AccountSvc.Import(context.Background(), grid)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 0, report.ProfilesCreated)
}
