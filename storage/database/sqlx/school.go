package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
)

// Class Levels

type classLevelRepository struct {
	repository
}

var _ school.ClassLevelRepository = (*classLevelRepository)(nil)

func NewClassLevelRepository(exec core.DBExecutor) *classLevelRepository {
	return &classLevelRepository{repository{exec: exec}}
}

func (repo classLevelRepository) CreateClassLevel(ctx context.Context, cl school.ClassLevel, exec ...core.DBExecutor) (school.ClassLevel, error) {
	id, err := insert(ctx, repo.getExec(exec),
		"INSERT INTO class_levels (name, description, academic_year) VALUES (:name, :description, :academic_year)", cl)
	if err != nil {
		return school.ClassLevel{}, errors.Wrap(err, "inserting class level")
	}
	cl.ID = id
	return cl, nil
}

func (repo classLevelRepository) QueryClassLevels(ctx context.Context, filter *school.ClassLevelFilter, exec ...core.DBExecutor) ([]school.ClassLevel, error) {
	var conds conditions
	if filter != nil && filter.AcademicYear != 0 {
		conds.add("academic_year = ?", filter.AcademicYear)
	}

	levels := make([]school.ClassLevel, 0)
	query := "SELECT id, name, description, academic_year FROM class_levels" + conds.where() + " ORDER BY id ASC"
	if err := selectAll(ctx, repo.getExec(exec), &levels, query, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying class levels")
	}
	return levels, nil
}

func (repo classLevelRepository) GetClassLevel(ctx context.Context, id int, exec ...core.DBExecutor) (school.ClassLevel, error) {
	var cl school.ClassLevel
	err := get(ctx, repo.getExec(exec), &cl, school.ErrClassLevelNotFound,
		"SELECT id, name, description, academic_year FROM class_levels WHERE id = ?", id)
	if err != nil && err != school.ErrClassLevelNotFound {
		err = errors.Wrap(err, "finding class level")
	}
	return cl, err
}

func (repo classLevelRepository) UpdateClassLevel(ctx context.Context, cl school.ClassLevel, exec ...core.DBExecutor) (school.ClassLevel, error) {
	err := update(ctx, repo.getExec(exec), school.ErrClassLevelNotFound,
		"UPDATE class_levels SET name = :name, description = :description, academic_year = :academic_year WHERE id = :id", cl)
	if err != nil {
		if err == school.ErrClassLevelNotFound {
			return school.ClassLevel{}, err
		}
		return school.ClassLevel{}, errors.Wrap(err, "updating class level")
	}
	return cl, nil
}

func (repo classLevelRepository) DeleteClassLevel(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), school.ErrClassLevelNotFound, "class_levels", id)
}

// Subjects

const subjectColumns = "id, name, description, teacher_id, class_level_id"

type subjectRepository struct {
	repository
}

var _ school.SubjectRepository = (*subjectRepository)(nil)

func NewSubjectRepository(exec core.DBExecutor) *subjectRepository {
	return &subjectRepository{repository{exec: exec}}
}

func (repo subjectRepository) CreateSubject(ctx context.Context, subj school.Subject, exec ...core.DBExecutor) (school.Subject, error) {
	id, err := insert(ctx, repo.getExec(exec), `INSERT INTO subjects (name, description, teacher_id, class_level_id)
		VALUES (:name, :description, :teacher_id, :class_level_id)`, subj)
	if err != nil {
		return school.Subject{}, errors.Wrap(err, "inserting subject")
	}
	subj.ID = id
	return subj, nil
}

func (repo subjectRepository) QuerySubjects(ctx context.Context, filter *school.SubjectFilter, exec ...core.DBExecutor) ([]school.Subject, error) {
	var conds conditions
	if filter != nil {
		if filter.ClassLevelID != 0 {
			conds.add("class_level_id = ?", filter.ClassLevelID)
		}
		if filter.TeacherID != 0 {
			conds.add("teacher_id = ?", filter.TeacherID)
		}
	}

	subjects := make([]school.Subject, 0)
	query := "SELECT " + subjectColumns + " FROM subjects" + conds.where() + " ORDER BY id ASC"
	if err := selectAll(ctx, repo.getExec(exec), &subjects, query, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo subjectRepository) GetSubject(ctx context.Context, id int, exec ...core.DBExecutor) (school.Subject, error) {
	var subj school.Subject
	err := get(ctx, repo.getExec(exec), &subj, school.ErrSubjectNotFound,
		"SELECT "+subjectColumns+" FROM subjects WHERE id = ?", id)
	if err != nil && err != school.ErrSubjectNotFound {
		err = errors.Wrap(err, "finding subject")
	}
	return subj, err
}

func (repo subjectRepository) UpdateSubject(ctx context.Context, subj school.Subject, exec ...core.DBExecutor) (school.Subject, error) {
	err := update(ctx, repo.getExec(exec), school.ErrSubjectNotFound, `UPDATE subjects SET
		name = :name, description = :description, teacher_id = :teacher_id, class_level_id = :class_level_id
	WHERE id = :id`, subj)
	if err != nil {
		if err == school.ErrSubjectNotFound {
			return school.Subject{}, err
		}
		return school.Subject{}, errors.Wrap(err, "updating subject")
	}
	return subj, nil
}

func (repo subjectRepository) DeleteSubject(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), school.ErrSubjectNotFound, "subjects", id)
}

// Announcements

type announcementRepository struct {
	repository
}

var _ school.AnnouncementRepository = (*announcementRepository)(nil)

func NewAnnouncementRepository(exec core.DBExecutor) *announcementRepository {
	return &announcementRepository{repository{exec: exec}}
}

func (repo announcementRepository) CreateAnnouncement(ctx context.Context, ann school.Announcement, exec ...core.DBExecutor) (school.Announcement, error) {
	id, err := insert(ctx, repo.getExec(exec), `INSERT INTO announcements (title, content, author_id, created_at)
		VALUES (:title, :content, :author_id, :created_at)`, ann)
	if err != nil {
		return school.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	ann.ID = id
	return ann, nil
}

// QueryAnnouncements returns all announcements, newest first.
func (repo announcementRepository) QueryAnnouncements(ctx context.Context, exec ...core.DBExecutor) ([]school.Announcement, error) {
	anns := make([]school.Announcement, 0)
	err := selectAll(ctx, repo.getExec(exec), &anns,
		"SELECT id, title, content, author_id, created_at FROM announcements ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	return anns, nil
}

func (repo announcementRepository) GetAnnouncement(ctx context.Context, id int, exec ...core.DBExecutor) (school.Announcement, error) {
	var ann school.Announcement
	err := get(ctx, repo.getExec(exec), &ann, school.ErrAnnouncementNotFound,
		"SELECT id, title, content, author_id, created_at FROM announcements WHERE id = ?", id)
	if err != nil && err != school.ErrAnnouncementNotFound {
		err = errors.Wrap(err, "finding announcement")
	}
	return ann, err
}

func (repo announcementRepository) DeleteAnnouncement(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), school.ErrAnnouncementNotFound, "announcements", id)
}

// Materials

const materialColumns = "id, title, description, file_url, uploaded_by, subject_id, created_at"

type materialRepository struct {
	repository
}

var _ school.MaterialRepository = (*materialRepository)(nil)

func NewMaterialRepository(exec core.DBExecutor) *materialRepository {
	return &materialRepository{repository{exec: exec}}
}

func (repo materialRepository) CreateMaterial(ctx context.Context, mat school.Material, exec ...core.DBExecutor) (school.Material, error) {
	id, err := insert(ctx, repo.getExec(exec), `INSERT INTO materials (title, description, file_url, uploaded_by, subject_id, created_at)
		VALUES (:title, :description, :file_url, :uploaded_by, :subject_id, :created_at)`, mat)
	if err != nil {
		return school.Material{}, errors.Wrap(err, "inserting material")
	}
	mat.ID = id
	return mat, nil
}

func (repo materialRepository) QueryMaterials(ctx context.Context, filter *school.MaterialFilter, exec ...core.DBExecutor) ([]school.Material, error) {
	var conds conditions
	if filter != nil && filter.SubjectID != 0 {
		conds.add("subject_id = ?", filter.SubjectID)
	}

	mats := make([]school.Material, 0)
	query := "SELECT " + materialColumns + " FROM materials" + conds.where() + " ORDER BY created_at DESC, id DESC"
	if err := selectAll(ctx, repo.getExec(exec), &mats, query, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}
	return mats, nil
}

func (repo materialRepository) GetMaterial(ctx context.Context, id int, exec ...core.DBExecutor) (school.Material, error) {
	var mat school.Material
	err := get(ctx, repo.getExec(exec), &mat, school.ErrMaterialNotFound,
		"SELECT "+materialColumns+" FROM materials WHERE id = ?", id)
	if err != nil && err != school.ErrMaterialNotFound {
		err = errors.Wrap(err, "finding material")
	}
	return mat, err
}

func (repo materialRepository) DeleteMaterial(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), school.ErrMaterialNotFound, "materials", id)
}
