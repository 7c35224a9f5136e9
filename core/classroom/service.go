package classroom

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("class")
	ErrScheduleNotFound = core.NewNotFoundError("schedule")
	ErrStudentNotFound  = core.NewNotFoundError("student")
	ErrNotMember        = core.NewNotFoundError("class member")
	ErrAlreadyMember    = core.NewValidationError(nil, core.FieldError{Field: "studentId", Error: "student already in class"})
	ErrNotOwner         = core.NewPermissionError("only an admin or the teacher of the class can do this")
	ErrInvalidTeacher   = core.NewValidationError(nil, core.FieldError{Field: "teacherId", Error: "must reference a teacher"})
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class, exec ...core.DBExecutor) (Class, error)
		// GetClass returns the class with its teacher, without its students.
		GetClass(ctx context.Context, id string, exec ...core.DBExecutor) (Class, error)
		// QueryClasses returns the classes matching filter, newest first, without their students.
		QueryClasses(ctx context.Context, filter ClassFilter, exec ...core.DBExecutor) ([]Class, error)
		TeacherClassIDs(ctx context.Context, teacherID string, exec ...core.DBExecutor) ([]string, error)
		SetTeacherClasses(ctx context.Context, teacherID string, classIDs []string, exec ...core.DBExecutor) error

		// ClassMembers returns the rosters of classIDs, keyed by class id, ordered by student identifier.
		ClassMembers(ctx context.Context, classIDs []string, exec ...core.DBExecutor) (map[string][]Member, error)
		// GetMember returns the student profile with id or, when byStudentID, with that student identifier.
		GetMember(ctx context.Context, ref string, byStudentID bool, exec ...core.DBExecutor) (Member, error)
		FindMembersByStudentIDs(ctx context.Context, studentIDs []string, exec ...core.DBExecutor) ([]Member, error)
		// AddMembers adds memberIDs to the roster of classID in one statement.
		AddMembers(ctx context.Context, classID string, memberIDs []string, exec ...core.DBExecutor) error
		// RemoveMember fails with ErrNotMember when memberID is not in the roster.
		RemoveMember(ctx context.Context, classID, memberID string, exec ...core.DBExecutor) error

		CreateSchedule(ctx context.Context, sch Schedule, exec ...core.DBExecutor) (Schedule, error)
		// GetSchedule only finds schedules of classID.
		GetSchedule(ctx context.Context, classID, id string, exec ...core.DBExecutor) (Schedule, error)
		// QuerySchedules returns the schedules of classID ordered by day of week, then start time.
		QuerySchedules(ctx context.Context, classID string, exec ...core.DBExecutor) ([]Schedule, error)
		UpdateSchedule(ctx context.Context, sch Schedule, exec ...core.DBExecutor) (Schedule, error)
		DeleteSchedule(ctx context.Context, classID, id string, exec ...core.DBExecutor) error
	}

	// AccountGetter resolves the teacher of a class.
	AccountGetter interface {
		GetByID(ctx context.Context, id string) (account.Account, error)
	}

	ServiceDeps struct {
		Tx         core.Transactor
		Repo       Repository
		Accounts   AccountGetter
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Service struct {
		tx         core.Transactor
		repo       Repository
		accounts   AccountGetter
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(deps ServiceDeps) *Service {
	return &Service{
		tx:         deps.Tx,
		repo:       deps.Repo,
		accounts:   deps.Accounts,
		logger:     deps.Logger,
		validate:   deps.Validate,
		translator: deps.Translator,
	}
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// authorize lets admins and the teacher owning cls through.
func authorize(p account.Principal, cls Class) error {
	if p.IsAdmin() || (p.IsTeacher() && cls.OwnedBy(p.ID)) {
		return nil
	}
	return ErrNotOwner
}

func (svc *Service) getClass(ctx context.Context, id string, exec ...core.DBExecutor) (Class, error) {
	if !isUUID(id) {
		return Class{}, ErrNotFound
	}
	return svc.repo.GetClass(ctx, id, exec...)
}

// ownedClass returns the class named id, provided p may manage it.
func (svc *Service) ownedClass(ctx context.Context, p account.Principal, id string, exec ...core.DBExecutor) (Class, error) {
	cls, err := svc.getClass(ctx, id, exec...)
	if err != nil {
		return Class{}, err
	}
	if err = authorize(p, cls); err != nil {
		return Class{}, err
	}
	return cls, nil
}

// CreateClass creates a class. Teachers own the classes they create; admins may name the teacher.
func (svc *Service) CreateClass(ctx context.Context, p account.Principal, nc NewClass) (Class, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Class{}, err
	}

	cls := Class{Name: nc.Name}
	switch {
	case p.IsTeacher():
		cls.TeacherID = p.ID
	case p.IsAdmin():
		if nc.TeacherID != "" {
			if !isUUID(nc.TeacherID) {
				return Class{}, ErrInvalidTeacher
			}
			teacher, err := svc.accounts.GetByID(ctx, nc.TeacherID)
			if err != nil {
				if errors.Is(err, account.ErrNotFound) {
					return Class{}, ErrInvalidTeacher
				}
				return Class{}, errors.Wrap(err, "getting teacher")
			}
			if !teacher.IsTeacher() {
				return Class{}, ErrInvalidTeacher
			}
			cls.TeacherID = teacher.ID
		}
	default:
		return Class{}, core.NewPermissionError("only admins and teachers can create classes")
	}

	now := time.Now().UTC()
	cls.CreatedAt, cls.UpdatedAt = now, now
	cls, err := svc.repo.CreateClass(ctx, cls)
	if err != nil {
		return Class{}, errors.Wrap(err, "creating class")
	}
	cls.Students = []Member{}
	return cls, nil
}

// withStudents fills the rosters of classes.
func (svc *Service) withStudents(ctx context.Context, classes []Class) ([]Class, error) {
	if len(classes) == 0 {
		return classes, nil
	}
	ids := make([]string, 0, len(classes))
	for _, cls := range classes {
		ids = append(ids, cls.ID)
	}
	rosters, err := svc.repo.ClassMembers(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "listing class members")
	}
	for i := range classes {
		classes[i].Students = rosters[classes[i].ID]
		if classes[i].Students == nil {
			classes[i].Students = []Member{}
		}
	}
	return classes, nil
}

// ListClasses returns every class, newest first, with teacher and students.
func (svc *Service) ListClasses(ctx context.Context) ([]Class, error) {
	classes, err := svc.repo.QueryClasses(ctx, ClassFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return svc.withStudents(ctx, classes)
}

// ListTeacherClasses returns the classes owned by the calling teacher.
func (svc *Service) ListTeacherClasses(ctx context.Context, p account.Principal) ([]Class, error) {
	if !p.IsTeacher() {
		return nil, core.NewPermissionError("only teachers own classes")
	}
	classes, err := svc.repo.QueryClasses(ctx, ClassFilter{TeacherID: p.ID})
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher classes")
	}
	return svc.withStudents(ctx, classes)
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	cls, err := svc.getClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	classes, err := svc.withStudents(ctx, []Class{cls})
	if err != nil {
		return Class{}, err
	}
	return classes[0], nil
}

// ListStudents returns the roster of a class.
func (svc *Service) ListStudents(ctx context.Context, classID string) ([]Member, error) {
	cls, err := svc.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	return cls.Students, nil
}
