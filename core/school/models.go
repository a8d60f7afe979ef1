package school

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

type ClassLevel struct {
	ID           int    `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	Description  string `db:"description" json:"description"`
	AcademicYear int    `db:"academic_year" json:"academic_year"`
}

type NewClassLevel struct {
	Name         string `json:"name" validate:"required,max=100"`
	Description  string `json:"description" validate:"max=500"`
	AcademicYear int    `json:"academic_year" validate:"required,min=2000,max=2100"`
}

func (ncl *NewClassLevel) Clean() {
	ncl.Name = core.CleanString(ncl.Name)
	ncl.Description = core.CleanString(ncl.Description)
}

type UpdateClassLevel struct {
	Name         *string `json:"name" validate:"omitempty,notblank,max=100"`
	Description  *string `json:"description" validate:"omitempty,max=500"`
	AcademicYear *int    `json:"academic_year" validate:"omitempty,min=2000,max=2100"`
}

func (ucl *UpdateClassLevel) Clean() {
	if ucl.Name != nil {
		*ucl.Name = core.CleanString(*ucl.Name)
	}
	if ucl.Description != nil {
		*ucl.Description = core.CleanString(*ucl.Description)
	}
}

func (ucl *UpdateClassLevel) Apply(cl *ClassLevel) {
	if ucl.Name != nil {
		cl.Name = *ucl.Name
	}
	if ucl.Description != nil {
		cl.Description = *ucl.Description
	}
	if ucl.AcademicYear != nil {
		cl.AcademicYear = *ucl.AcademicYear
	}
}

type ClassLevelFilter struct {
	AcademicYear int `query:"academic_year"`
}

type Subject struct {
	ID           int         `db:"id" json:"id"`
	Name         string      `db:"name" json:"name"`
	Description  null.String `db:"description" json:"description"`
	TeacherID    null.Int    `db:"teacher_id" json:"teacher_id"`
	ClassLevelID int         `db:"class_level_id" json:"class_level_id"`
}

type NewSubject struct {
	Name         string   `json:"name" validate:"required,max=100"`
	Description  string   `json:"description" validate:"max=500"`
	TeacherID    null.Int `json:"teacher_id"`
	ClassLevelID int      `json:"class_level_id" validate:"required,min=1"`
}

func (ns *NewSubject) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
}

type UpdateSubject struct {
	Name         *string `json:"name" validate:"omitempty,notblank,max=100"`
	Description  *string `json:"description" validate:"omitempty,max=500"`
	TeacherID    *int    `json:"teacher_id" validate:"omitempty,min=1"`
	ClassLevelID *int    `json:"class_level_id" validate:"omitempty,min=1"`
}

func (us *UpdateSubject) Clean() {
	if us.Name != nil {
		*us.Name = core.CleanString(*us.Name)
	}
	if us.Description != nil {
		*us.Description = core.CleanString(*us.Description)
	}
}

func (us *UpdateSubject) Apply(subj *Subject) {
	if us.Name != nil {
		subj.Name = *us.Name
	}
	if us.Description != nil {
		subj.Description = null.NewString(*us.Description, *us.Description != "")
	}
	if us.TeacherID != nil {
		subj.TeacherID = null.IntFrom(*us.TeacherID)
	}
	if us.ClassLevelID != nil {
		subj.ClassLevelID = *us.ClassLevelID
	}
}

type SubjectFilter struct {
	ClassLevelID int
	TeacherID    int
}

type Announcement struct {
	ID        int       `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	AuthorID  int       `db:"author_id" json:"author_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"` // UTC
}

type NewAnnouncement struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

func (na *NewAnnouncement) Clean() {
	na.Title = core.CleanString(na.Title)
	na.Content = core.CleanString(na.Content)
}

type Material struct {
	ID          int         `db:"id" json:"id"`
	Title       string      `db:"title" json:"title"`
	Description null.String `db:"description" json:"description"`
	FileURL     string      `db:"file_url" json:"file_url"`
	UploadedBy  int         `db:"uploaded_by" json:"uploaded_by"`
	SubjectID   int         `db:"subject_id" json:"subject_id"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"` // UTC
}

type NewMaterial struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	FileURL     string `json:"file_url" validate:"required,url"`
	SubjectID   int    `json:"subject_id" validate:"required,min=1"`
}

func (nm *NewMaterial) Clean() {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	nm.FileURL = core.CleanString(nm.FileURL)
}

type MaterialFilter struct {
	SubjectID int `query:"subject_id"`
}
