package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/classroom"
)

const (
	classSelect = `SELECT c.id, c.name, c.teacher_id, a.username AS teacher_username, c.created_at, c.updated_at
		FROM classes c LEFT JOIN accounts a ON a.id = c.teacher_id`
	memberColumns   = "s.id, s.name, s.student_id"
	scheduleColumns = `id, class_id, day_of_week,
		to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time,
		created_at, updated_at`
)

type (
	classRow struct {
		ID              string      `db:"id"`
		Name            string      `db:"name"`
		TeacherID       null.String `db:"teacher_id"`
		TeacherUsername null.String `db:"teacher_username"`
		CreatedAt       time.Time   `db:"created_at"`
		UpdatedAt       time.Time   `db:"updated_at"`
	}

	memberRow struct {
		ClassID   string `db:"class_id"`
		ID        string `db:"id"`
		Name      string `db:"name"`
		StudentID string `db:"student_id"`
	}

	scheduleRow struct {
		ID        string    `db:"id"`
		ClassID   string    `db:"class_id"`
		DayOfWeek string    `db:"day_of_week"`
		StartTime string    `db:"start_time"`
		EndTime   string    `db:"end_time"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
)

func (row classRow) class() classroom.Class {
	cls := classroom.Class{
		ID:        row.ID,
		Name:      row.Name,
		TeacherID: row.TeacherID.String,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.TeacherID.Valid {
		cls.Teacher = &classroom.TeacherSummary{ID: row.TeacherID.String, Username: row.TeacherUsername.String}
	}
	return cls
}

func (row memberRow) member() classroom.Member {
	return classroom.Member{ID: row.ID, Name: row.Name, StudentID: row.StudentID}
}

func (row scheduleRow) schedule() classroom.Schedule {
	return classroom.Schedule{
		ID:        row.ID,
		ClassID:   row.ClassID,
		DayOfWeek: classroom.DayOfWeek(row.DayOfWeek),
		StartTime: row.StartTime,
		EndTime:   row.EndTime,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type classRepository struct {
	repo
}

var _ classroom.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(exec core.DBExecutor) classroom.Repository {
	return &classRepository{repo{exec: exec}}
}

func (r classRepository) CreateClass(ctx context.Context, cls classroom.Class, exec ...core.DBExecutor) (classroom.Class, error) {
	cls.ID = uuid.New().String()
	_, err := r.getExec(exec).ExecContext(
		ctx,
		"INSERT INTO classes (id, name, teacher_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)",
		cls.ID, cls.Name, null.NewString(cls.TeacherID, cls.TeacherID != ""), cls.CreatedAt.UTC(), cls.UpdatedAt.UTC(),
	)
	if err != nil {
		return classroom.Class{}, errors.Wrap(err, "inserting class")
	}
	return r.GetClass(ctx, cls.ID, exec...)
}

func (r classRepository) GetClass(ctx context.Context, id string, exec ...core.DBExecutor) (classroom.Class, error) {
	if !isUUID(id) {
		return classroom.Class{}, classroom.ErrNotFound
	}
	var row classRow
	if err := sqlx.GetContext(ctx, r.getExec(exec), &row, classSelect+" WHERE c.id = $1", id); err != nil {
		return classroom.Class{}, trapNoRowsErr(err, classroom.ErrNotFound, "getting class")
	}
	return row.class(), nil
}

func (r classRepository) QueryClasses(ctx context.Context, filter classroom.ClassFilter, exec ...core.DBExecutor) ([]classroom.Class, error) {
	q := classSelect
	var args []interface{}
	if filter.TeacherID != "" {
		if !isUUID(filter.TeacherID) {
			return []classroom.Class{}, nil
		}
		q += " WHERE c.teacher_id = $1"
		args = append(args, filter.TeacherID)
	}
	q += " ORDER BY c.created_at DESC"

	var rows []classRow
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]classroom.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.class())
	}
	return classes, nil
}

func (r classRepository) TeacherClassIDs(ctx context.Context, teacherID string, exec ...core.DBExecutor) ([]string, error) {
	ids := make([]string, 0)
	if !isUUID(teacherID) {
		return ids, nil
	}
	q := "SELECT id FROM classes WHERE teacher_id = $1 ORDER BY id"
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &ids, q, teacherID); err != nil {
		return nil, errors.Wrap(err, "listing teacher classes")
	}
	return ids, nil
}

func (r classRepository) SetTeacherClasses(ctx context.Context, teacherID string, classIDs []string, exec ...core.DBExecutor) error {
	exe := r.getExec(exec)
	ids := uuids(classIDs)
	if len(ids) != len(classIDs) {
		return classroom.ErrNotFound
	}

	var count int
	if err := sqlx.GetContext(ctx, exe, &count, "SELECT COUNT(*) FROM classes WHERE id = ANY($1)", pq.Array(ids)); err != nil {
		return errors.Wrap(err, "counting classes")
	}
	if count != len(distinct(ids)) {
		return classroom.ErrNotFound
	}

	now := time.Now().UTC()
	q := "UPDATE classes SET teacher_id = NULL, updated_at = $3 WHERE teacher_id = $1 AND NOT (id = ANY($2))"
	if _, err := exe.ExecContext(ctx, q, teacherID, pq.Array(ids), now); err != nil {
		return errors.Wrap(err, "unassigning classes")
	}
	q = "UPDATE classes SET teacher_id = $1, updated_at = $3 WHERE id = ANY($2)"
	if _, err := exe.ExecContext(ctx, q, teacherID, pq.Array(ids), now); err != nil {
		return errors.Wrap(err, "assigning classes")
	}
	return nil
}

func (r classRepository) ClassMembers(ctx context.Context, classIDs []string, exec ...core.DBExecutor) (map[string][]classroom.Member, error) {
	res := make(map[string][]classroom.Member, len(classIDs))
	ids := uuids(classIDs)
	if len(ids) == 0 {
		return res, nil
	}

	var rows []memberRow
	q := `SELECT cs.class_id, ` + memberColumns + `
		FROM class_students cs JOIN students s ON s.id = cs.student_id
		WHERE cs.class_id = ANY($1)
		ORDER BY s.student_id`
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &rows, q, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "listing class members")
	}
	for _, row := range rows {
		res[row.ClassID] = append(res[row.ClassID], row.member())
	}
	return res, nil
}

func (r classRepository) GetMember(ctx context.Context, ref string, byStudentID bool, exec ...core.DBExecutor) (classroom.Member, error) {
	where := "s.student_id = $1"
	if !byStudentID {
		if !isUUID(ref) {
			return classroom.Member{}, classroom.ErrStudentNotFound
		}
		where = "s.id = $1"
	}
	var row memberRow
	q := "SELECT " + memberColumns + " FROM students s WHERE " + where
	if err := sqlx.GetContext(ctx, r.getExec(exec), &row, q, ref); err != nil {
		return classroom.Member{}, trapNoRowsErr(err, classroom.ErrStudentNotFound, "getting student")
	}
	return row.member(), nil
}

func (r classRepository) FindMembersByStudentIDs(ctx context.Context, studentIDs []string, exec ...core.DBExecutor) ([]classroom.Member, error) {
	var rows []memberRow
	q := "SELECT " + memberColumns + " FROM students s WHERE s.student_id = ANY($1)"
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &rows, q, pq.Array(studentIDs)); err != nil {
		return nil, errors.Wrap(err, "finding students")
	}
	members := make([]classroom.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.member())
	}
	return members, nil
}

func (r classRepository) AddMembers(ctx context.Context, classID string, memberIDs []string, exec ...core.DBExecutor) error {
	if len(memberIDs) == 0 {
		return nil
	}
	q := `INSERT INTO class_students (class_id, student_id, created_at)
		SELECT $1::uuid, unnest($2::uuid[]), $3::timestamptz`
	if _, err := r.getExec(exec).ExecContext(ctx, q, classID, pq.Array(memberIDs), time.Now().UTC()); err != nil {
		return trapConstraintErr(err, "inserting class members")
	}
	return nil
}

func (r classRepository) RemoveMember(ctx context.Context, classID, memberID string, exec ...core.DBExecutor) error {
	res, err := r.getExec(exec).ExecContext(
		ctx, "DELETE FROM class_students WHERE class_id = $1 AND student_id = $2", classID, memberID,
	)
	if err != nil {
		return errors.Wrap(err, "deleting class member")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classroom.ErrNotMember
	}
	return nil
}

func (r classRepository) CreateSchedule(ctx context.Context, sch classroom.Schedule, exec ...core.DBExecutor) (classroom.Schedule, error) {
	q := `INSERT INTO class_schedules (id, class_id, day_of_week, start_time, end_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + scheduleColumns

	var row scheduleRow
	err := sqlx.GetContext(
		ctx, r.getExec(exec), &row, q,
		uuid.New().String(), sch.ClassID, string(sch.DayOfWeek), sch.StartTime, sch.EndTime,
		sch.CreatedAt.UTC(), sch.UpdatedAt.UTC(),
	)
	if err != nil {
		return classroom.Schedule{}, trapConstraintErr(err, "inserting schedule")
	}
	return row.schedule(), nil
}

func (r classRepository) GetSchedule(ctx context.Context, classID, id string, exec ...core.DBExecutor) (classroom.Schedule, error) {
	if !isUUID(id) || !isUUID(classID) {
		return classroom.Schedule{}, classroom.ErrScheduleNotFound
	}
	var row scheduleRow
	q := "SELECT " + scheduleColumns + " FROM class_schedules WHERE id = $1 AND class_id = $2"
	if err := sqlx.GetContext(ctx, r.getExec(exec), &row, q, id, classID); err != nil {
		return classroom.Schedule{}, trapNoRowsErr(err, classroom.ErrScheduleNotFound, "getting schedule")
	}
	return row.schedule(), nil
}

// QuerySchedules relies on the day_of_week enum being declared Monday first.
func (r classRepository) QuerySchedules(ctx context.Context, classID string, exec ...core.DBExecutor) ([]classroom.Schedule, error) {
	var rows []scheduleRow
	q := "SELECT " + scheduleColumns + " FROM class_schedules WHERE class_id = $1 ORDER BY day_of_week, start_time"
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &rows, q, classID); err != nil {
		return nil, errors.Wrap(err, "querying schedules")
	}
	schedules := make([]classroom.Schedule, 0, len(rows))
	for _, row := range rows {
		schedules = append(schedules, row.schedule())
	}
	return schedules, nil
}

func (r classRepository) UpdateSchedule(ctx context.Context, sch classroom.Schedule, exec ...core.DBExecutor) (classroom.Schedule, error) {
	q := `UPDATE class_schedules SET day_of_week = $3, start_time = $4, end_time = $5, updated_at = $6
		WHERE id = $1 AND class_id = $2
		RETURNING ` + scheduleColumns

	var row scheduleRow
	err := sqlx.GetContext(
		ctx, r.getExec(exec), &row, q,
		sch.ID, sch.ClassID, string(sch.DayOfWeek), sch.StartTime, sch.EndTime, sch.UpdatedAt.UTC(),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return classroom.Schedule{}, classroom.ErrScheduleNotFound
		}
		return classroom.Schedule{}, trapConstraintErr(err, "updating schedule")
	}
	return row.schedule(), nil
}

func (r classRepository) DeleteSchedule(ctx context.Context, classID, id string, exec ...core.DBExecutor) error {
	res, err := r.getExec(exec).ExecContext(ctx, "DELETE FROM class_schedules WHERE id = $1 AND class_id = $2", id, classID)
	if err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classroom.ErrScheduleNotFound
	}
	return nil
}

func distinct(vals []string) []string {
	seen := make(map[string]bool, len(vals))
	res := make([]string, 0, len(vals))
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			res = append(res, v)
		}
	}
	return res
}
