package account

import (
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	roleTag  = "role"
	roleText = "must be one of " + strings.Join([]string{string(RoleStudent), string(RoleTeacher), string(RoleAdmin)}, ", ")

	studentIDTag   = "studentid"
	studentIDText  = `must be "DH" followed by exactly 8 digits`
	studentIDRegex = regexp.MustCompile(`^DH\d{8}$`)

	requiredForStudentTag  = "required_for_student"
	requiredForStudentText = "this field is required for students"

	forbiddenForStaffTag  = "forbidden_for_staff"
	forbiddenForStaffText = "only student accounts have a student identifier"
)

// InitValidators registers the account validation tags and their messages.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	_ = validate.RegisterValidation(studentIDTag, studentIDValidation)
	core.RegisterCustomTranslation(validate, translator, studentIDTag, studentIDText)

	validate.RegisterStructValidation(newAccountStructValidation, NewAccount{})
	validate.RegisterStructValidation(accountStructValidation, Account{})
	core.RegisterCustomTranslation(validate, translator, requiredForStudentTag, requiredForStudentText)
	core.RegisterCustomTranslation(validate, translator, forbiddenForStaffTag, forbiddenForStaffText)
}

// IsStudentID reports whether id is a well-formed student identifier.
func IsStudentID(id string) bool {
	return studentIDRegex.MatchString(id)
}

// Custom Validators

func roleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).Valid()
}

func studentIDValidation(fl validator.FieldLevel) bool {
	return IsStudentID(fl.Field().String())
}

// newAccountStructValidation checks the student-only fields, after the field level rules passed.
// Order matters: the identifier, then the name, then the identifier format.
func newAccountStructValidation(sl validator.StructLevel) {
	na := sl.Current().Interface().(NewAccount)
	if na.Role != RoleStudent {
		return
	}
	switch {
	case na.StudentID == "":
		sl.ReportError(na.StudentID, "studentId", "StudentID", requiredForStudentTag, "")
	case na.Name == "":
		sl.ReportError(na.Name, "name", "Name", requiredForStudentTag, "")
	case !IsStudentID(na.StudentID):
		sl.ReportError(na.StudentID, "studentId", "StudentID", studentIDTag, "")
	}
}

// accountStructValidation enforces that the student identifier is set iff the account is a student.
func accountStructValidation(sl validator.StructLevel) {
	acc := sl.Current().Interface().(Account)
	switch {
	case acc.Role == RoleStudent && acc.StudentID == "":
		sl.ReportError(acc.StudentID, "studentId", "StudentID", requiredForStudentTag, "")
	case acc.Role == RoleStudent && !IsStudentID(acc.StudentID):
		sl.ReportError(acc.StudentID, "studentId", "StudentID", studentIDTag, "")
	case acc.Role != RoleStudent && acc.StudentID != "":
		sl.ReportError(acc.StudentID, "studentId", "StudentID", forbiddenForStaffTag, "")
	}
}
