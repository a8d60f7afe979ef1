package attendance

import (
	"math"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

// Statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

var AllStatuses = []string{StatusPresent, StatusAbsent, StatusLate}

type Attendance struct {
	ID               int         `db:"id" json:"id"`
	UserID           int         `db:"user_id" json:"user_id"`
	SubjectID        int         `db:"subject_id" json:"subject_id"`
	ClassLevelID     int         `db:"class_level_id" json:"class_level_id"`
	Date             core.Date   `db:"date" json:"date"`
	Status           string      `db:"status" json:"status"`
	MarkedBy         int         `db:"marked_by" json:"marked_by"`
	Notes            null.String `db:"notes" json:"notes"`
	NotificationSent bool        `db:"notification_sent" json:"notification_sent"`
}

// RecordAttendance contains the information needed to mark a user for a subject on a given date.
// The marker is always the caller.
type RecordAttendance struct {
	UserID       int       `json:"user_id" validate:"required,min=1"`
	SubjectID    int       `json:"subject_id" validate:"required,min=1"`
	ClassLevelID int       `json:"class_level_id" validate:"omitempty,min=1"` // defaults to the subject's class level
	Date         core.Date `json:"date"`
	Status       string    `json:"status" validate:"required,status"`
	Notes        string    `json:"notes" validate:"max=500"`
}

func (ra *RecordAttendance) Clean() {
	ra.Status = core.CleanString(ra.Status, true /* lower */)
	ra.Notes = core.CleanString(ra.Notes)
}

// Filter selects attendance records. Zero values are ignored; From and To are inclusive.
type Filter struct {
	UserID       int       `query:"user_id"`
	ClassLevelID int       `query:"class_id"`
	SubjectID    int       `query:"subject_id"`
	Date         core.Date `query:"date"`
	From         core.Date `query:"from"`
	To           core.Date `query:"to"`
}

type StatsQuery struct {
	UserID    int `query:"user_id" json:"user_id" validate:"required,min=1"`
	SubjectID int `query:"subject_id" json:"subject_id" validate:"omitempty,min=1"`
	Month     int `query:"month" json:"month" validate:"required,min=1,max=12"`
	Year      int `query:"year" json:"year" validate:"required,min=2000,max=2100"`
}

// Stats is the attendance summary of a user for one month. It is never stored.
type Stats struct {
	UserID      int      `json:"user_id"`
	SubjectID   null.Int `json:"subject_id"`
	Month       int      `json:"month"`
	Year        int      `json:"year"`
	PresentDays int      `json:"present_days"`
	AbsentDays  int      `json:"absent_days"`
	LateDays    int      `json:"late_days"`
	Percentage  float64  `json:"percentage"`
}

// Percentage returns present / (present + absent + late) * 100, rounded to 2 decimals.
// It is 0 when no day was recorded.
func Percentage(present, absent, late int) float64 {
	total := present + absent + late
	if total == 0 {
		return 0
	}
	pct := float64(present) / float64(total) * 100
	return math.Round(pct*100) / 100
}
