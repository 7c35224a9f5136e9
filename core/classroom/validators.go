package classroom

import (
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	weekdayTag  = "weekday"
	weekdayText = "must be a day of the week, e.g. monday"

	clockTag   = "clock"
	clockText  = "must be a time of day formatted HH:MM"
	clockRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

	afterStartTag  = "after_start"
	afterStartText = "End time must be after start time"
)

// InitValidators registers the class validation tags and their messages.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(weekdayTag, weekdayValidation)
	core.RegisterCustomTranslation(validate, translator, weekdayTag, weekdayText)

	_ = validate.RegisterValidation(clockTag, clockValidation)
	core.RegisterCustomTranslation(validate, translator, clockTag, clockText)

	validate.RegisterStructValidation(scheduleStructValidation, Schedule{})
	core.RegisterCustomTranslation(validate, translator, afterStartTag, afterStartText)
}

func weekdayValidation(fl validator.FieldLevel) bool {
	return DayOfWeek(fl.Field().String()).Valid()
}

func clockValidation(fl validator.FieldLevel) bool {
	return clockRegex.MatchString(fl.Field().String())
}

// scheduleStructValidation rejects slots ending before they start.
// HH:MM strings order like the times they represent.
func scheduleStructValidation(sl validator.StructLevel) {
	sch := sl.Current().Interface().(Schedule)
	if !clockRegex.MatchString(sch.StartTime) || !clockRegex.MatchString(sch.EndTime) {
		return // reported by the field rules
	}
	if strings.Compare(sch.EndTime, sch.StartTime) <= 0 {
		sl.ReportError(sch.EndTime, "endTime", "EndTime", afterStartTag, "")
	}
}
