package account

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("account")
	ErrTeacherNotFound = core.NewNotFoundError("teacher")

	errInvalidValue = "invalid value"
)

type (
	Repository interface {
		// CreateAccounts inserts accounts, assigning their IDs, and returns them in the same order.
		CreateAccounts(ctx context.Context, accounts []Account, exec ...core.DBExecutor) ([]Account, error)
		CreateStudents(ctx context.Context, students []Student, exec ...core.DBExecutor) ([]Student, error)
		GetAccount(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Account, error)
		GetStudentByAccount(ctx context.Context, accountID string, exec ...core.DBExecutor) (Student, error)
		// FindCollisions returns, in a single lookup, the accounts owning any of usernames or emails.
		FindCollisions(ctx context.Context, usernames, emails []string, exec ...core.DBExecutor) ([]Account, error)
		FindStudentsByStudentIDs(ctx context.Context, studentIDs []string, exec ...core.DBExecutor) ([]Student, error)
		QueryAccounts(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Account, error)
		UpdateAccount(ctx context.Context, acc Account, exec ...core.DBExecutor) (Account, error)
		DeleteAccount(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// ClassRepository is the part of the class store needed to manage teachers.
	ClassRepository interface {
		TeacherClassIDs(ctx context.Context, teacherID string, exec ...core.DBExecutor) ([]string, error)
		// SetTeacherClasses makes teacherID the owner of exactly classIDs.
		SetTeacherClasses(ctx context.Context, teacherID string, classIDs []string, exec ...core.DBExecutor) error
	}

	ServiceDeps struct {
		Tx         core.Transactor
		Repo       Repository
		ClassRepo  ClassRepository
		MailSvc    core.EmailService
		Cache      core.Cache // optional
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Conf       *core.Config
	}

	Service struct {
		tx         core.Transactor
		repo       Repository
		classRepo  ClassRepository
		mailSvc    core.EmailService
		cache      core.Cache
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
		conf       *core.Config
	}
)

func NewService(deps ServiceDeps) *Service {
	cache := deps.Cache
	if cache == nil {
		cache = core.NoopCache
	}
	return &Service{
		tx:         deps.Tx,
		repo:       deps.Repo,
		classRepo:  deps.ClassRepo,
		mailSvc:    deps.MailSvc,
		cache:      cache,
		logger:     deps.Logger,
		validate:   deps.Validate,
		translator: deps.Translator,
		conf:       deps.Conf,
	}
}

// Create validates na, rejects likely duplicates, then writes the account
// (and the student profile of a student) in one transaction.
func (svc *Service) Create(ctx context.Context, na NewAccount) (Account, error) {
	in, err := ParseIntent(svc.validate, na)
	if err != nil {
		// same rule as import rows: only the first violated rule is reported
		if fErr, ok := core.FirstFieldError(err, svc.translator); ok {
			return Account{}, core.NewValidationError(nil, fErr)
		}
		return Account{}, err
	}
	if err = svc.checkUniqueness(ctx, in.Account); err != nil {
		return Account{}, err
	}
	res, err := svc.write(ctx, []Intent{in})
	if err != nil {
		return Account{}, err
	}
	return res.accounts[0], nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname)})
}

func (svc *Service) GetStudentProfile(ctx context.Context, acc Account) (Student, error) {
	return svc.repo.GetStudentByAccount(ctx, acc.ID)
}

func principalKey(id string) string {
	return fmt.Sprintf("account:%s:principal", id)
}

// Principal resolves an authenticated account id, through the cache when one is configured.
func (svc *Service) Principal(ctx context.Context, id string) (Principal, error) {
	var p Principal
	if ok, err := svc.cache.Get(ctx, principalKey(id), &p); err != nil {
		svc.logger.Warn("reading principal cache", errors.Wrap(err, "cache get"))
	} else if ok {
		return p, nil
	}

	acc, err := svc.GetByID(ctx, id)
	if err != nil {
		return Principal{}, err
	}
	p = acc.Principal()
	if err = svc.cache.Set(ctx, principalKey(id), p, svc.conf.Redis.TTL); err != nil {
		svc.logger.Warn("writing principal cache", errors.Wrap(err, "cache set"))
	}
	return p, nil
}

func (svc *Service) forgetPrincipal(ctx context.Context, id string) {
	if err := svc.cache.Delete(ctx, principalKey(id)); err != nil {
		svc.logger.Warn("evicting principal cache", errors.Wrap(err, "cache delete"))
	}
}

// Authenticate checks the credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (Account, error) {
	acc, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return Account{}, err
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return Account{}, ErrNotFound
	}
	acc.LastLogin = time.Now().UTC()
	acc, err = svc.repo.UpdateAccount(ctx, acc)
	return acc, errors.Wrap(err, "setting lastLogin")
}

// ChangePassword hashes pwd and stores it on acc.
func (svc *Service) ChangePassword(ctx context.Context, acc Account, pwd string) (Account, error) {
	if err := acc.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acc.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAccount(ctx, acc)
}

func (svc *Service) QueryTeachers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Teacher, error) {
	filter.Clean()
	filter.Roles = []Role{RoleTeacher}
	accounts, err := svc.repo.QueryAccounts(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]Teacher, 0, len(accounts))
	for _, acc := range accounts {
		teachers = append(teachers, NewTeacher(acc))
	}
	return teachers, nil
}

func (svc *Service) getTeacher(ctx context.Context, id string, exec ...core.DBExecutor) (Account, error) {
	acc, err := svc.repo.GetAccount(ctx, GetFilter{ID: id}, exec...)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, ErrTeacherNotFound
		}
		return Account{}, err
	}
	if !acc.IsTeacher() {
		return Account{}, ErrTeacherNotFound
	}
	return acc, nil
}

// UpdateTeacher applies data to a teacher and returns the teacher as stored afterwards.
func (svc *Service) UpdateTeacher(ctx context.Context, id string, data UpdateTeacher) (Teacher, error) {
	if err := data.Validate(svc.validate); err != nil {
		return Teacher{}, err
	}

	var teacher Teacher
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		acc, err := svc.getTeacher(ctx, id, exec)
		if err != nil {
			return err
		}
		if data.Username != "" {
			acc.Username = data.Username
		}
		if data.Email != "" {
			acc.Email = data.Email
		}
		if err = svc.checkUniqueness(ctx, acc, exec); err != nil {
			return err
		}

		acc.UpdatedAt = time.Now().UTC()
		if acc, err = svc.repo.UpdateAccount(ctx, acc, exec); err != nil {
			return errors.Wrap(err, "updating teacher")
		}
		if data.ClassIDs != nil {
			if err = svc.classRepo.SetTeacherClasses(ctx, acc.ID, data.ClassIDs, exec); err != nil {
				return errors.Wrap(err, "assigning classes")
			}
		}
		classIDs, err := svc.classRepo.TeacherClassIDs(ctx, acc.ID, exec)
		if err != nil {
			return errors.Wrap(err, "listing teacher classes")
		}
		teacher = NewTeacher(acc, classIDs...)
		return nil
	})
	if err != nil {
		return Teacher{}, err
	}
	svc.forgetPrincipal(ctx, id)
	return teacher, nil
}

// DeleteTeacher removes a teacher that owns no class.
func (svc *Service) DeleteTeacher(ctx context.Context, id string) error {
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.getTeacher(ctx, id, exec); err != nil {
			return err
		}
		classIDs, err := svc.classRepo.TeacherClassIDs(ctx, id, exec)
		if err != nil {
			return errors.Wrap(err, "listing teacher classes")
		}
		if len(classIDs) > 0 {
			msg := fmt.Sprintf("the teacher still owns %d class(es), reassign them first", len(classIDs))
			return core.NewValidationError(errors.New(msg))
		}
		return errors.Wrap(svc.repo.DeleteAccount(ctx, id, exec), "deleting teacher")
	})
	if err != nil {
		return err
	}
	svc.forgetPrincipal(ctx, id)
	return nil
}

// RequestPasswordReset mails a password reset link to the account owning email, if any.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	acc, err := svc.repo.GetAccount(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		return err
	}
	return svc.sendPasswordResetMail(acc)
}

func (svc *Service) sendPasswordResetMail(acc Account) error {
	token, err := MakeToken(acc, svc.conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "making password reset token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acc.Username, Address: acc.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":     acc.Username,
			"Username": acc.Username,
			"UID":      EncodeUID(acc),
			"Token":    token,
		},
	})
	return nil
}

// ResetPassword sets a new password when the uid/token pair is valid.
func (svc *Service) ResetPassword(ctx context.Context, data ResetPassword) (Account, error) {
	if err := data.Validate(svc.validate); err != nil {
		return Account{}, err
	}

	invalidUID := core.NewValidationError(nil, core.FieldError{Field: "uid", Error: errInvalidValue})
	id, err := decodeUID(data.UID)
	if err != nil {
		return Account{}, invalidUID
	}
	acc, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, invalidUID
		}
		return Account{}, errors.Wrap(err, "getting account")
	}
	if err = verifyToken(acc, data.Token, svc.conf.SecretKey, svc.conf.PasswordResetTimeoutDelta); err != nil {
		return Account{}, core.NewValidationError(err, core.FieldError{Field: "token", Error: errInvalidValue})
	}
	return svc.ChangePassword(ctx, acc, data.Password)
}
