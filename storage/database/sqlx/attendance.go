package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

const attendanceColumns = "id, user_id, subject_id, class_level_id, date, status, marked_by, notes, notification_sent"

type attendanceRepository struct {
	repository
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(exec core.DBExecutor) *attendanceRepository {
	return &attendanceRepository{repository{exec: exec}}
}

func (repo attendanceRepository) CreateAttendance(ctx context.Context, att attendance.Attendance, exec ...core.DBExecutor) (attendance.Attendance, error) {
	id, err := insert(ctx, repo.getExec(exec), `INSERT INTO attendance (
		user_id, subject_id, class_level_id, date, status, marked_by, notes, notification_sent
	) VALUES (
		:user_id, :subject_id, :class_level_id, :date, :status, :marked_by, :notes, :notification_sent
	)`, att)
	if err != nil {
		if isUniqueViolation(err) {
			return attendance.Attendance{}, attendance.ErrAttendanceExists
		}
		return attendance.Attendance{}, errors.Wrap(err, "inserting attendance")
	}
	att.ID = id
	return att, nil
}

func (repo attendanceRepository) GetAttendance(ctx context.Context, id int, exec ...core.DBExecutor) (attendance.Attendance, error) {
	var att attendance.Attendance
	err := get(ctx, repo.getExec(exec), &att, attendance.ErrNotFound,
		"SELECT "+attendanceColumns+" FROM attendance WHERE id = ?", id)
	if err != nil && err != attendance.ErrNotFound {
		err = errors.Wrap(err, "finding attendance")
	}
	return att, err
}

func (repo attendanceRepository) FindAttendance(ctx context.Context, userID, subjectID int, date core.Date, exec ...core.DBExecutor) (attendance.Attendance, error) {
	var att attendance.Attendance
	err := get(ctx, repo.getExec(exec), &att, attendance.ErrNotFound,
		"SELECT "+attendanceColumns+" FROM attendance WHERE user_id = ? AND subject_id = ? AND date = ?",
		userID, subjectID, date)
	if err != nil && err != attendance.ErrNotFound {
		err = errors.Wrap(err, "finding attendance")
	}
	return att, err
}

func (repo attendanceRepository) QueryAttendance(ctx context.Context, filter *attendance.Filter, exec ...core.DBExecutor) ([]attendance.Attendance, error) {
	var conds conditions
	if filter != nil {
		if filter.UserID != 0 {
			conds.add("user_id = ?", filter.UserID)
		}
		if filter.ClassLevelID != 0 {
			conds.add("class_level_id = ?", filter.ClassLevelID)
		}
		if filter.SubjectID != 0 {
			conds.add("subject_id = ?", filter.SubjectID)
		}
		if !filter.Date.IsZero() {
			conds.add("date = ?", filter.Date)
		}
		if !filter.From.IsZero() {
			conds.add("date >= ?", filter.From)
		}
		if !filter.To.IsZero() {
			conds.add("date <= ?", filter.To)
		}
	}

	records := make([]attendance.Attendance, 0)
	query := "SELECT " + attendanceColumns + " FROM attendance" + conds.where() + " ORDER BY date DESC, id ASC"
	if err := selectAll(ctx, repo.getExec(exec), &records, query, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return records, nil
}

func (repo attendanceRepository) UpdateAttendance(ctx context.Context, att attendance.Attendance, exec ...core.DBExecutor) (attendance.Attendance, error) {
	err := update(ctx, repo.getExec(exec), attendance.ErrNotFound, `UPDATE attendance SET
		class_level_id = :class_level_id, status = :status, marked_by = :marked_by, notes = :notes,
		notification_sent = :notification_sent
	WHERE id = :id`, att)
	if err != nil {
		if err == attendance.ErrNotFound {
			return attendance.Attendance{}, err
		}
		return attendance.Attendance{}, errors.Wrap(err, "updating attendance")
	}
	return att, nil
}

func (repo attendanceRepository) DeleteAttendance(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), attendance.ErrNotFound, "attendance", id)
}

func (repo attendanceRepository) CountByStatus(ctx context.Context, userID, subjectID int, from, to core.Date, exec ...core.DBExecutor) (map[string]int, error) {
	var conds conditions
	conds.add("user_id = ?", userID)
	conds.add("date >= ?", from)
	conds.add("date < ?", to)
	if subjectID != 0 {
		conds.add("subject_id = ?", subjectID)
	}

	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"cnt"`
	}
	query := "SELECT status, COUNT(*) AS cnt FROM attendance" + conds.where() + " GROUP BY status"
	if err := selectAll(ctx, repo.getExec(exec), &rows, query, conds.args...); err != nil {
		return nil, errors.Wrap(err, "counting attendance")
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
