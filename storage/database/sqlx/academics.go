package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/academics"
)

const (
	academicsColumns = "id, student_id, class_level_id, academic_year, overall_grade, promotion_status, remarks"
	resultColumns    = "id, student_id, subject_id, academic_year, term, marks, grade, exam_date"
)

type academicsRepository struct {
	repository
}

var _ academics.Repository = (*academicsRepository)(nil)

func NewAcademicsRepository(exec core.DBExecutor) *academicsRepository {
	return &academicsRepository{repository{exec: exec}}
}

func (repo academicsRepository) CreateAcademics(ctx context.Context, sa academics.StudentAcademics, exec ...core.DBExecutor) (academics.StudentAcademics, error) {
	id, err := insert(ctx, repo.getExec(exec), `INSERT INTO student_academics (
		student_id, class_level_id, academic_year, overall_grade, promotion_status, remarks
	) VALUES (
		:student_id, :class_level_id, :academic_year, :overall_grade, :promotion_status, :remarks
	)`, sa)
	if err != nil {
		if isUniqueViolation(err) {
			return academics.StudentAcademics{}, academics.ErrAcademicsExist
		}
		return academics.StudentAcademics{}, errors.Wrap(err, "inserting academic record")
	}
	sa.ID = id
	return sa, nil
}

func (repo academicsRepository) GetAcademics(ctx context.Context, id int, exec ...core.DBExecutor) (academics.StudentAcademics, error) {
	var sa academics.StudentAcademics
	err := get(ctx, repo.getExec(exec), &sa, academics.ErrNotFound,
		"SELECT "+academicsColumns+" FROM student_academics WHERE id = ?", id)
	if err != nil && err != academics.ErrNotFound {
		err = errors.Wrap(err, "finding academic record")
	}
	return sa, err
}

func (repo academicsRepository) QueryAcademics(ctx context.Context, filter *academics.Filter, exec ...core.DBExecutor) ([]academics.StudentAcademics, error) {
	var conds conditions
	if filter != nil {
		if filter.StudentID != 0 {
			conds.add("student_id = ?", filter.StudentID)
		}
		if filter.AcademicYear != 0 {
			conds.add("academic_year = ?", filter.AcademicYear)
		}
	}

	records := make([]academics.StudentAcademics, 0)
	query := "SELECT " + academicsColumns + " FROM student_academics" + conds.where() + " ORDER BY academic_year DESC, id ASC"
	if err := selectAll(ctx, repo.getExec(exec), &records, query, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying academic records")
	}
	return records, nil
}

func (repo academicsRepository) UpdateAcademics(ctx context.Context, sa academics.StudentAcademics, exec ...core.DBExecutor) (academics.StudentAcademics, error) {
	err := update(ctx, repo.getExec(exec), academics.ErrNotFound, `UPDATE student_academics SET
		overall_grade = :overall_grade, promotion_status = :promotion_status, remarks = :remarks
	WHERE id = :id`, sa)
	if err != nil {
		if err == academics.ErrNotFound {
			return academics.StudentAcademics{}, err
		}
		return academics.StudentAcademics{}, errors.Wrap(err, "updating academic record")
	}
	return sa, nil
}

// Exam Results

func (repo academicsRepository) CreateResult(ctx context.Context, res academics.ExamResult, exec ...core.DBExecutor) (academics.ExamResult, error) {
	id, err := insert(ctx, repo.getExec(exec), `INSERT INTO exam_results (
		student_id, subject_id, academic_year, term, marks, grade, exam_date
	) VALUES (
		:student_id, :subject_id, :academic_year, :term, :marks, :grade, :exam_date
	)`, res)
	if err != nil {
		return academics.ExamResult{}, errors.Wrap(err, "inserting exam result")
	}
	res.ID = id
	return res, nil
}

func (repo academicsRepository) GetResult(ctx context.Context, id int, exec ...core.DBExecutor) (academics.ExamResult, error) {
	var res academics.ExamResult
	err := get(ctx, repo.getExec(exec), &res, academics.ErrResultNotFound,
		"SELECT "+resultColumns+" FROM exam_results WHERE id = ?", id)
	if err != nil && err != academics.ErrResultNotFound {
		err = errors.Wrap(err, "finding exam result")
	}
	return res, err
}

func (repo academicsRepository) QueryResults(ctx context.Context, filter *academics.ResultFilter, exec ...core.DBExecutor) ([]academics.ExamResult, error) {
	var conds conditions
	if filter != nil {
		if filter.StudentID != 0 {
			conds.add("student_id = ?", filter.StudentID)
		}
		if filter.SubjectID != 0 {
			conds.add("subject_id = ?", filter.SubjectID)
		}
		if filter.AcademicYear != 0 {
			conds.add("academic_year = ?", filter.AcademicYear)
		}
		if filter.Term != 0 {
			conds.add("term = ?", filter.Term)
		}
	}

	results := make([]academics.ExamResult, 0)
	query := "SELECT " + resultColumns + " FROM exam_results" + conds.where() + " ORDER BY exam_date DESC, id ASC"
	if err := selectAll(ctx, repo.getExec(exec), &results, query, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying exam results")
	}
	return results, nil
}

func (repo academicsRepository) UpdateResult(ctx context.Context, res academics.ExamResult, exec ...core.DBExecutor) (academics.ExamResult, error) {
	err := update(ctx, repo.getExec(exec), academics.ErrResultNotFound, `UPDATE exam_results SET
		term = :term, marks = :marks, grade = :grade, exam_date = :exam_date
	WHERE id = :id`, res)
	if err != nil {
		if err == academics.ErrResultNotFound {
			return academics.ExamResult{}, err
		}
		return academics.ExamResult{}, errors.Wrap(err, "updating exam result")
	}
	return res, nil
}

func (repo academicsRepository) DeleteResult(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), academics.ErrResultNotFound, "exam_results", id)
}
