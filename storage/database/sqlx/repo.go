package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// Postgres error codes
const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

// constraintFields names the field guarded by each unique constraint.
var constraintFields = map[string]string{
	"accounts_username_key":   "username",
	"accounts_email_key":      "email",
	"students_student_id_key": "studentId",
	"class_students_pkey":     "studentId",
}

// insertBatchSize rows per statement keeps multi-row inserts under the 65535 bind
// parameters Postgres accepts.
const insertBatchSize = 1000

// namedInsert runs the multi-row insert q once per batch of rows, on the same executor.
func namedInsert[T any](ctx context.Context, exec core.DBExecutor, q string, rows []T) error {
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := sqlx.NamedExecContext(ctx, exec, q, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

type repo struct {
	exec core.DBExecutor
}

func (r repo) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return r.exec
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// trapConstraintErr maps constraint violations to typed errors.
func trapConstraintErr(err error, msg string) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return errors.Wrap(err, msg)
	}
	switch pqErr.Code {
	case uniqueViolation:
		if field, ok := constraintFields[pqErr.Constraint]; ok {
			return core.NewDefiniteConflict(field, "")
		}
	case checkViolation:
		return core.NewValidationError(errors.Wrap(err, msg), core.FieldError{Field: pqErr.Constraint, Error: "invalid value"})
	}
	return errors.Wrap(err, msg)
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// uuids keeps the valid ids, which would otherwise fail the whole query.
func uuids(ids []string) []string {
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			res = append(res, id)
		}
	}
	return res
}
