package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
)

// Days of the week, Monday first.
const (
	Monday    DayOfWeek = "monday"
	Tuesday   DayOfWeek = "tuesday"
	Wednesday DayOfWeek = "wednesday"
	Thursday  DayOfWeek = "thursday"
	Friday    DayOfWeek = "friday"
	Saturday  DayOfWeek = "saturday"
	Sunday    DayOfWeek = "sunday"
)

var Weekdays = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

type DayOfWeek string

// Index is the position of d in the week, -1 if d is not a day.
func (d DayOfWeek) Index() int {
	for i, day := range Weekdays {
		if d == day {
			return i
		}
	}
	return -1
}

func (d DayOfWeek) Valid() bool { return d.Index() >= 0 }

// TeacherSummary is the owner of a Class as exposed in class listings.
type TeacherSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Member is a student profile as exposed in rosters.
type Member struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
}

type Class struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	TeacherID string          `json:"-"`
	Teacher   *TeacherSummary `json:"teacher"`
	Students  []Member        `json:"students"`
	CreatedAt time.Time       `json:"createdAt"` // UTC
	UpdatedAt time.Time       `json:"updatedAt"` // UTC
}

// OwnedBy reports whether the teacher accountID owns cls.
func (cls Class) OwnedBy(accountID string) bool {
	return cls.TeacherID != "" && cls.TeacherID == accountID
}

type NewClass struct {
	Name      string `json:"name" validate:"required,max=255"`
	TeacherID string `json:"teacherId"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.TeacherID = core.CleanString(nc.TeacherID)
	return validate.Struct(nc)
}

// ClassFilter narrows class listings; the zero value selects every class.
type ClassFilter struct {
	TeacherID string
}

// Schedule is a weekly time slot of a class. Times are "HH:MM", 24-hour clock.
type Schedule struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"classId"`
	DayOfWeek DayOfWeek `json:"dayOfWeek" validate:"required,weekday"`
	StartTime string    `json:"startTime" validate:"required,clock"`
	EndTime   string    `json:"endTime" validate:"required,clock"`
	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

type NewSchedule struct {
	DayOfWeek DayOfWeek `json:"dayOfWeek"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
}

// UpdateSchedule holds the fields to change; nil fields keep their stored value.
type UpdateSchedule struct {
	DayOfWeek *DayOfWeek `json:"dayOfWeek"`
	StartTime *string    `json:"startTime"`
	EndTime   *string    `json:"endTime"`
}

// merge applies us onto sch.
func (us UpdateSchedule) merge(sch Schedule) Schedule {
	if us.DayOfWeek != nil {
		sch.DayOfWeek = DayOfWeek(core.CleanString(string(*us.DayOfWeek), true /* lower */))
	}
	if us.StartTime != nil {
		sch.StartTime = core.CleanString(*us.StartTime)
	}
	if us.EndTime != nil {
		sch.EndTime = core.CleanString(*us.EndTime)
	}
	return sch
}

// RosterReport is the outcome of a roster bulk-add.
type RosterReport struct {
	TotalRows           int                  `json:"totalRows"`
	AddedCount          int                  `json:"addedCount"`
	AlreadyInClassCount int                  `json:"alreadyInClassCount"`
	NotFoundCount       int                  `json:"notFoundCount"`
	NotFound            []string             `json:"notFound"`
	SkippedInvalid      int                  `json:"skippedInvalid"`
	Rejections          []importer.Rejection `json:"rejections,omitempty"`
}

func newRosterReport(r *importer.Report) RosterReport {
	notFound := r.NotFound
	if notFound == nil {
		notFound = []string{}
	}
	return RosterReport{
		TotalRows:           r.TotalRows,
		AddedCount:          r.Created,
		AlreadyInClassCount: r.SkippedDuplicate,
		NotFoundCount:       r.SkippedNotFound,
		NotFound:            notFound,
		SkippedInvalid:      r.SkippedInvalid,
		Rejections:          r.Rejections,
	}
}
