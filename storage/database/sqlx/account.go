package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
)

const (
	accountColumns = "id, username, email, role, student_id, password_hash, created_at, updated_at, last_login"
	studentColumns = "id, account_id, student_id, name, email, created_at, updated_at"
)

type (
	accountRow struct {
		ID           string      `db:"id"`
		Username     string      `db:"username"`
		Email        null.String `db:"email"`
		Role         string      `db:"role"`
		StudentID    null.String `db:"student_id"`
		PasswordHash []byte      `db:"password_hash"`
		CreatedAt    time.Time   `db:"created_at"`
		UpdatedAt    time.Time   `db:"updated_at"`
		LastLogin    null.Time   `db:"last_login"`
	}

	studentRow struct {
		ID        string      `db:"id"`
		AccountID string      `db:"account_id"`
		StudentID string      `db:"student_id"`
		Name      string      `db:"name"`
		Email     null.String `db:"email"`
		CreatedAt time.Time   `db:"created_at"`
		UpdatedAt time.Time   `db:"updated_at"`
	}
)

func toAccountRow(acc account.Account) accountRow {
	return accountRow{
		ID:           acc.ID,
		Username:     acc.Username,
		Email:        null.NewString(acc.Email, acc.Email != ""),
		Role:         string(acc.Role),
		StudentID:    null.NewString(acc.StudentID, acc.StudentID != ""),
		PasswordHash: acc.PasswordHash,
		CreatedAt:    acc.CreatedAt.UTC(),
		UpdatedAt:    acc.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(acc.LastLogin.UTC(), !acc.LastLogin.IsZero()),
	}
}

func (row accountRow) account() account.Account {
	return account.Account{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email.String,
		Role:         account.Role(row.Role),
		StudentID:    row.StudentID.String,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

func accountsFromRows(rows []accountRow) []account.Account {
	accounts := make([]account.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, row.account())
	}
	return accounts
}

func (row studentRow) student() account.Student {
	return account.Student{
		ID:        row.ID,
		AccountID: row.AccountID,
		StudentID: row.StudentID,
		Name:      row.Name,
		Email:     row.Email.String,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type accountRepository struct {
	repo
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(exec core.DBExecutor) account.Repository {
	return &accountRepository{repo{exec: exec}}
}

// CreateAccounts inserts every account, in batches of insertBatchSize rows.
func (r accountRepository) CreateAccounts(ctx context.Context, accounts []account.Account, exec ...core.DBExecutor) ([]account.Account, error) {
	if len(accounts) == 0 {
		return nil, nil
	}
	created := make([]account.Account, len(accounts))
	rows := make([]accountRow, 0, len(accounts))
	for i, acc := range accounts {
		acc.ID = uuid.New().String()
		created[i] = acc
		rows = append(rows, toAccountRow(acc))
	}

	q := `INSERT INTO accounts (` + accountColumns + `) VALUES
		(:id, :username, :email, :role, :student_id, :password_hash, :created_at, :updated_at, :last_login)`
	if err := namedInsert(ctx, r.getExec(exec), q, rows); err != nil {
		return nil, trapConstraintErr(err, "inserting accounts")
	}
	return created, nil
}

// CreateStudents inserts every student profile, in batches of insertBatchSize rows.
func (r accountRepository) CreateStudents(ctx context.Context, students []account.Student, exec ...core.DBExecutor) ([]account.Student, error) {
	if len(students) == 0 {
		return nil, nil
	}
	created := make([]account.Student, len(students))
	rows := make([]studentRow, 0, len(students))
	for i, st := range students {
		st.ID = uuid.New().String()
		created[i] = st
		rows = append(rows, studentRow{
			ID:        st.ID,
			AccountID: st.AccountID,
			StudentID: st.StudentID,
			Name:      st.Name,
			Email:     null.NewString(st.Email, st.Email != ""),
			CreatedAt: st.CreatedAt.UTC(),
			UpdatedAt: st.UpdatedAt.UTC(),
		})
	}

	q := `INSERT INTO students (` + studentColumns + `) VALUES
		(:id, :account_id, :student_id, :name, :email, :created_at, :updated_at)`
	if err := namedInsert(ctx, r.getExec(exec), q, rows); err != nil {
		return nil, trapConstraintErr(err, "inserting students")
	}
	return created, nil
}

func (r accountRepository) GetAccount(ctx context.Context, filter account.GetFilter, exec ...core.DBExecutor) (account.Account, error) {
	var where string
	var arg interface{}
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return account.Account{}, account.ErrNotFound
		}
		where, arg = "id = $1", filter.ID
	case filter.Email != "":
		where, arg = "email = $1", filter.Email
	case filter.UsernameOrEmail != "":
		where, arg = "username = $1 OR email = $1", filter.UsernameOrEmail
	default:
		return account.Account{}, account.ErrNotFound
	}

	var row accountRow
	q := "SELECT " + accountColumns + " FROM accounts WHERE " + where + " LIMIT 1"
	if err := sqlx.GetContext(ctx, r.getExec(exec), &row, q, arg); err != nil {
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "getting account")
	}
	return row.account(), nil
}

func (r accountRepository) GetStudentByAccount(ctx context.Context, accountID string, exec ...core.DBExecutor) (account.Student, error) {
	if !isUUID(accountID) {
		return account.Student{}, account.ErrNotFound
	}
	var row studentRow
	q := "SELECT " + studentColumns + " FROM students WHERE account_id = $1"
	if err := sqlx.GetContext(ctx, r.getExec(exec), &row, q, accountID); err != nil {
		return account.Student{}, trapNoRowsErr(err, account.ErrNotFound, "getting student profile")
	}
	return row.student(), nil
}

func (r accountRepository) FindCollisions(ctx context.Context, usernames, emails []string, exec ...core.DBExecutor) ([]account.Account, error) {
	var rows []accountRow
	q := "SELECT " + accountColumns + " FROM accounts WHERE username = ANY($1) OR email = ANY($2)"
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &rows, q, pq.Array(usernames), pq.Array(emails)); err != nil {
		return nil, errors.Wrap(err, "finding colliding accounts")
	}
	return accountsFromRows(rows), nil
}

func (r accountRepository) FindStudentsByStudentIDs(ctx context.Context, studentIDs []string, exec ...core.DBExecutor) ([]account.Student, error) {
	var rows []studentRow
	q := "SELECT " + studentColumns + " FROM students WHERE student_id = ANY($1)"
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &rows, q, pq.Array(studentIDs)); err != nil {
		return nil, errors.Wrap(err, "finding students")
	}
	students := make([]account.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}

func (r accountRepository) QueryAccounts(ctx context.Context, filter account.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]account.Account, error) {
	var (
		conds []string
		args  []interface{}
	)
	// accounts with Username or Email matching the search keyword
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(username ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	if len(filter.Roles) > 0 {
		roles := make([]string, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			roles = append(roles, string(role))
		}
		args = append(args, pq.Array(roles))
		conds = append(conds, fmt.Sprintf("role = ANY($%d)", len(args)))
	}

	q := "SELECT " + accountColumns + " FROM accounts"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	ordering = core.FilterOrderings(ordering, map[string]string{"username": "username", "createdAt": "created_at"})
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "username", Ascending: true}}
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	q += " ORDER BY " + strings.Join(orderList, ", ")

	var rows []accountRow
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying accounts")
	}
	return accountsFromRows(rows), nil
}

func (r accountRepository) UpdateAccount(ctx context.Context, acc account.Account, exec ...core.DBExecutor) (account.Account, error) {
	if !isUUID(acc.ID) {
		return account.Account{}, account.ErrNotFound
	}
	row := toAccountRow(acc)
	q := `UPDATE accounts SET
			username = $2,
			email = $3,
			password_hash = COALESCE($4, password_hash),
			updated_at = $5,
			last_login = $6
		WHERE id = $1
		RETURNING ` + accountColumns

	var updated accountRow
	err := sqlx.GetContext(
		ctx, r.getExec(exec), &updated, q,
		row.ID, row.Username, row.Email, row.PasswordHash, row.UpdatedAt, row.LastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, trapConstraintErr(err, "updating account")
	}
	return updated.account(), nil
}

func (r accountRepository) DeleteAccount(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !isUUID(id) {
		return account.ErrNotFound
	}
	res, err := r.getExec(exec).ExecContext(ctx, "DELETE FROM accounts WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting account")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return account.ErrNotFound
	}
	return nil
}
