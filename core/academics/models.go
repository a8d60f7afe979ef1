package academics

import (
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

// Promotion statuses
const (
	StatusPending  = "pending"
	StatusPromoted = "promoted"
	StatusRetained = "retained"
)

var AllPromotionStatuses = []string{StatusPending, StatusPromoted, StatusRetained}

// StudentAcademics is the placement of a student for one academic year.
type StudentAcademics struct {
	ID              int         `db:"id" json:"id"`
	StudentID       int         `db:"student_id" json:"student_id"`
	ClassLevelID    int         `db:"class_level_id" json:"class_level_id"`
	AcademicYear    int         `db:"academic_year" json:"academic_year"`
	OverallGrade    null.String `db:"overall_grade" json:"overall_grade"`
	PromotionStatus string      `db:"promotion_status" json:"promotion_status"`
	Remarks         null.String `db:"remarks" json:"remarks"`
}

type UpdateAcademics struct {
	OverallGrade    *string `json:"overall_grade" validate:"omitempty,max=5"`
	PromotionStatus *string `json:"promotion_status" validate:"omitempty,promotionstatus"`
	Remarks         *string `json:"remarks" validate:"omitempty,max=500"`
}

func (ua *UpdateAcademics) Clean() {
	if ua.OverallGrade != nil {
		*ua.OverallGrade = core.CleanString(*ua.OverallGrade)
	}
	if ua.PromotionStatus != nil {
		*ua.PromotionStatus = core.CleanString(*ua.PromotionStatus, true /* lower */)
	}
	if ua.Remarks != nil {
		*ua.Remarks = core.CleanString(*ua.Remarks)
	}
}

func (ua *UpdateAcademics) Apply(sa *StudentAcademics) {
	if ua.OverallGrade != nil {
		sa.OverallGrade = null.NewString(*ua.OverallGrade, *ua.OverallGrade != "")
	}
	if ua.PromotionStatus != nil {
		sa.PromotionStatus = *ua.PromotionStatus
	}
	if ua.Remarks != nil {
		sa.Remarks = null.NewString(*ua.Remarks, *ua.Remarks != "")
	}
}

// Promotion moves a student to a class level for an academic year.
type Promotion struct {
	ClassLevelID int `json:"class_level_id" validate:"required,min=1"`
	AcademicYear int `json:"academic_year" validate:"required,min=2000,max=2100"`
}

type ExamResult struct {
	ID           int       `db:"id" json:"id"`
	StudentID    int       `db:"student_id" json:"student_id"`
	SubjectID    int       `db:"subject_id" json:"subject_id"`
	AcademicYear int       `db:"academic_year" json:"academic_year"`
	Term         int       `db:"term" json:"term"`
	Marks        float64   `db:"marks" json:"marks"`
	Grade        string    `db:"grade" json:"grade"`
	ExamDate     core.Date `db:"exam_date" json:"exam_date"`
}

// NewExamResult contains the information needed to record an exam result.
// Grade is derived from Marks when empty.
type NewExamResult struct {
	StudentID    int       `json:"student_id" validate:"required,min=1"`
	SubjectID    int       `json:"subject_id" validate:"required,min=1"`
	AcademicYear int       `json:"academic_year" validate:"required,min=2000,max=2100"`
	Term         int       `json:"term" validate:"required,min=1,max=3"`
	Marks        *float64  `json:"marks" validate:"required,min=0,max=100"`
	Grade        string    `json:"grade" validate:"omitempty,max=2"`
	ExamDate     core.Date `json:"exam_date"`
}

func (ner *NewExamResult) Clean() {
	ner.Grade = core.CleanString(ner.Grade)
}

type UpdateExamResult struct {
	Term     *int       `json:"term" validate:"omitempty,min=1,max=3"`
	Marks    *float64   `json:"marks" validate:"omitempty,min=0,max=100"`
	Grade    *string    `json:"grade" validate:"omitempty,max=2"`
	ExamDate *core.Date `json:"exam_date"`
}

func (uer *UpdateExamResult) Clean() {
	if uer.Grade != nil {
		*uer.Grade = core.CleanString(*uer.Grade)
	}
}

// Apply merges the update into res. The grade is re-derived when the marks change without a grade.
func (uer *UpdateExamResult) Apply(res *ExamResult) {
	if uer.Term != nil {
		res.Term = *uer.Term
	}
	if uer.Marks != nil {
		res.Marks = *uer.Marks
		if uer.Grade == nil || *uer.Grade == "" {
			res.Grade = GradeForMarks(res.Marks)
		}
	}
	if uer.Grade != nil && *uer.Grade != "" {
		res.Grade = *uer.Grade
	}
	if uer.ExamDate != nil && !uer.ExamDate.IsZero() {
		res.ExamDate = *uer.ExamDate
	}
}

type ResultFilter struct {
	StudentID    int
	SubjectID    int `query:"subject_id"`
	AcademicYear int `query:"academic_year"`
	Term         int `query:"term"`
}

type Filter struct {
	StudentID    int
	AcademicYear int `query:"academic_year"`
}

var gradeScale = []struct {
	min   float64
	grade string
}{
	{80, "A"},
	{70, "B"},
	{60, "C"},
	{50, "D"},
	{40, "E"},
}

// GradeForMarks maps marks (0-100) to a letter grade.
func GradeForMarks(marks float64) string {
	for _, g := range gradeScale {
		if marks >= g.min {
			return g.grade
		}
	}
	return "F"
}
