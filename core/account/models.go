package account

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
)

// Roles
const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

var (
	Roles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

	PasswordHashCost = bcrypt.DefaultCost // lowered in tests
)

type Role string

func (r Role) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username" validate:"required,max=150"`
	Email        string    `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Role         Role      `json:"role" validate:"required,role"`
	StudentID    string    `json:"studentId,omitempty"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
	LastLogin    time.Time `json:"-"`         // UTC
}

func (acc *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), PasswordHashCost)
	if err != nil {
		return err
	}
	acc.PasswordHash = hash
	return nil
}

func (acc *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(pwd))
}

func (acc Account) IsAdmin() bool   { return acc.Role == RoleAdmin }
func (acc Account) IsTeacher() bool { return acc.Role == RoleTeacher }
func (acc Account) IsStudent() bool { return acc.Role == RoleStudent }

func (acc Account) Principal() Principal {
	return Principal{ID: acc.ID, Username: acc.Username, Email: acc.Email, Role: acc.Role}
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
}

func (p Principal) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p Principal) IsTeacher() bool { return p.Role == RoleTeacher }

// Student is the academic profile paired with a student Account.
type Student struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	StudentID string    `json:"studentId" validate:"required,studentid"`
	Name      string    `json:"name" validate:"required,max=255"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewAccount contains information needed to create a new Account, either from a request body
// or from a spreadsheet row.
type NewAccount struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	Role      Role   `json:"role" validate:"required,role"`
	Email     string `json:"email"`
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
}

// NewAccountFromRecord maps a spreadsheet record onto a NewAccount.
func NewAccountFromRecord(rec importer.Record) NewAccount {
	return NewAccount{
		Username:  rec.Get("username"),
		Password:  rec.Get("password"),
		Role:      Role(rec.Get("role")),
		Email:     rec.Get("email"),
		StudentID: rec.Get("studentid"),
		Name:      rec.Get("name"),
	}
}

func (na *NewAccount) clean() {
	na.Username = core.CleanString(na.Username)
	na.Role = Role(core.CleanString(string(na.Role), true /* lower */))
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.StudentID = core.CleanString(na.StudentID)
	na.Name = core.CleanString(na.Name)
	// only student accounts carry an identifier
	if na.Role != RoleStudent {
		na.StudentID = ""
	}
}

func (na *NewAccount) Validate(validate *validator.Validate) error {
	na.clean()
	return validate.Struct(na)
}

// Intent is a validated account write-intent.
// Profile is set iff the account is a student; its AccountID is filled in by the writer.
type Intent struct {
	Row      int // source spreadsheet row, 0 outside of imports
	Account  Account
	Password string
	Profile  *Student
}

// ParseIntent applies the account rules to na; every violated rule is in the returned error.
// Students log in with their identifier, so it becomes their username.
func ParseIntent(validate *validator.Validate, na NewAccount) (Intent, error) {
	if err := na.Validate(validate); err != nil {
		return Intent{}, err
	}

	in := Intent{
		Account: Account{
			Username: na.Username,
			Email:    na.Email,
			Role:     na.Role,
		},
		Password: na.Password,
	}
	if na.Role == RoleStudent {
		in.Account.Username = na.StudentID
		in.Account.StudentID = na.StudentID
		in.Profile = &Student{
			StudentID: na.StudentID,
			Name:      na.Name,
			Email:     na.Email,
		}
	}
	return in, nil
}

// UpdateTeacher defines what an admin may change on a teacher.
// A non-nil ClassIDs replaces the set of classes owned by the teacher.
type UpdateTeacher struct {
	Username string   `json:"username" validate:"omitempty,max=150"`
	Email    string   `json:"email" validate:"omitempty,email,max=254"`
	ClassIDs []string `json:"classIds" validate:"omitempty,dive,required"`
}

func (ut *UpdateTeacher) Validate(validate *validator.Validate) error {
	ut.Username = core.CleanString(ut.Username)
	ut.Email = core.CleanString(ut.Email, true /* lower */)
	return validate.Struct(ut)
}

// Teacher is the admin view of a teacher account.
type Teacher struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	ClassIDs []string `json:"classIds,omitempty"`
}

func NewTeacher(acc Account, classIDs ...string) Teacher {
	return Teacher{ID: acc.ID, Username: acc.Username, Email: acc.Email, ClassIDs: classIDs}
}

type ResetPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

// GetFilter selects one account; the first non-empty field wins.
type GetFilter struct {
	ID              string
	Email           string
	UsernameOrEmail string
}

type QueryFilter struct {
	Search string `query:"search"`
	Roles  []Role `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
