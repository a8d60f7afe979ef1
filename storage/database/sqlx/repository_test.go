package sqlxrepos_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/academics"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
	"github.com/trezcool/darasa/testutil"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)

	usr := testutil.CreateUser(t, repo, "Jane Doe", "jane", "jane@test.cd", "Pwd#1234", user.RoleStudent)
	assert.NotZero(t, usr.ID)

	t.Run("get round trip", func(t *testing.T) {
		got, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
		require.NoError(t, err)
		assert.Equal(t, usr.Username, got.Username)
		assert.Equal(t, usr.FullName, got.FullName)
		assert.Equal(t, usr.Role, got.Role)
		assert.Equal(t, usr.PasswordHash, got.PasswordHash)
		assert.True(t, usr.CreatedAt.Equal(got.CreatedAt))
		assert.False(t, got.LastLogin.Valid)

		got, err = repo.GetUser(ctx, user.GetFilter{Username: "jane"})
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)

		got, err = repo.GetUser(ctx, user.GetFilter{Email: "jane@test.cd"})
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)
	})

	t.Run("absent user", func(t *testing.T) {
		_, err := repo.GetUser(ctx, user.GetFilter{ID: 999})
		assert.Equal(t, user.ErrNotFound, err)
		_, err = repo.GetUser(ctx, user.GetFilter{})
		assert.Equal(t, user.ErrNotFound, err)
		_, err = repo.UpdateUser(ctx, user.User{ID: 999, Username: "ghost"})
		assert.Equal(t, user.ErrNotFound, err)
		assert.Equal(t, user.ErrNotFound, repo.DeleteUser(ctx, 999))
	})

	t.Run("duplicate username", func(t *testing.T) {
		dup := usr
		dup.ID = 0
		_, err := repo.CreateUser(ctx, dup)
		assert.Equal(t, user.ErrUsernameExists, errors.Cause(err))

		assert.Equal(t, user.ErrUsernameExists, repo.CheckUsernameUniqueness(ctx, "jane", nil))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "jane", []user.User{usr}))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "john", nil))

		// first user unaffected
		got, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", got.FullName)
	})

	t.Run("update keeps id", func(t *testing.T) {
		usr.FullName = "Jane D."
		usr.CurrentClassID = null.IntFrom(3)
		updated, err := repo.UpdateUser(ctx, usr)
		require.NoError(t, err)
		assert.Equal(t, usr.ID, updated.ID)

		got, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
		require.NoError(t, err)
		assert.Equal(t, "Jane D.", got.FullName)
		assert.Equal(t, null.IntFrom(3), got.CurrentClassID)
	})

	t.Run("query", func(t *testing.T) {
		teacher := testutil.CreateUser(t, repo, "Mr Smith", "smith", "smith@test.cd", "", user.RoleTeacher)
		stored, err := repo.GetUser(ctx, user.GetFilter{ID: teacher.ID})
		require.NoError(t, err)
		assert.NoError(t, stored.CheckPassword(testutil.DefaultPassword))

		users, err := repo.QueryUsers(ctx, nil, nil)
		require.NoError(t, err)
		assert.Len(t, users, 2)

		users, err = repo.QueryUsers(ctx, &user.QueryFilter{Email: "SMITH@test.cd"}, nil)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, teacher.ID, users[0].ID)

		users, err = repo.QueryUsers(ctx, &user.QueryFilter{Role: user.RoleTeacher}, nil)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, teacher.ID, users[0].ID)

		users, err = repo.QueryUsers(ctx, &user.QueryFilter{Search: "JANE"}, nil)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, usr.ID, users[0].ID)

		users, err = repo.QueryUsers(ctx, &user.QueryFilter{CurrentClassID: 3}, nil)
		require.NoError(t, err)
		require.Len(t, users, 1)

		users, err = repo.QueryUsers(ctx, nil, []core.DBOrdering{{Field: "username", Ascending: false}})
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "smith", users[0].Username)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteUser(ctx, usr.ID))
		_, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestSchoolRepositories(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	classRepo := sqlxrepos.NewClassLevelRepository(db)
	subjRepo := sqlxrepos.NewSubjectRepository(db)

	grade5 := testutil.CreateClassLevel(t, classRepo, "Grade 5", 2024)
	grade6 := testutil.CreateClassLevel(t, classRepo, "Grade 6", 2025)

	got, err := classRepo.GetClassLevel(ctx, grade5.ID)
	require.NoError(t, err)
	assert.Equal(t, grade5, got)

	levels, err := classRepo.QueryClassLevels(ctx, &school.ClassLevelFilter{AcademicYear: 2025})
	require.NoError(t, err)
	assert.Equal(t, []school.ClassLevel{grade6}, levels)

	grade6.Description = "upper primary"
	_, err = classRepo.UpdateClassLevel(ctx, grade6)
	require.NoError(t, err)
	got, err = classRepo.GetClassLevel(ctx, grade6.ID)
	require.NoError(t, err)
	assert.Equal(t, "upper primary", got.Description)

	_, err = classRepo.GetClassLevel(ctx, 999)
	assert.Equal(t, school.ErrClassLevelNotFound, err)
	_, err = classRepo.UpdateClassLevel(ctx, school.ClassLevel{ID: 999, Name: "x"})
	assert.Equal(t, school.ErrClassLevelNotFound, err)
	assert.Equal(t, school.ErrClassLevelNotFound, classRepo.DeleteClassLevel(ctx, 999))

	math := testutil.CreateSubject(t, subjRepo, "Math", grade5.ID, 0)
	science := testutil.CreateSubject(t, subjRepo, "Science", grade6.ID, 42)

	subj, err := subjRepo.GetSubject(ctx, math.ID)
	require.NoError(t, err)
	assert.Equal(t, math, subj)
	assert.False(t, subj.TeacherID.Valid)

	subjects, err := subjRepo.QuerySubjects(ctx, &school.SubjectFilter{TeacherID: 42})
	require.NoError(t, err)
	assert.Equal(t, []school.Subject{science}, subjects)
	subjects, err = subjRepo.QuerySubjects(ctx, &school.SubjectFilter{ClassLevelID: grade5.ID})
	require.NoError(t, err)
	assert.Equal(t, []school.Subject{math}, subjects)

	// deleting a class level leaves its subjects in place
	require.NoError(t, classRepo.DeleteClassLevel(ctx, grade5.ID))
	_, err = subjRepo.GetSubject(ctx, math.ID)
	assert.NoError(t, err)

	require.NoError(t, subjRepo.DeleteSubject(ctx, math.ID))
	assert.Equal(t, school.ErrSubjectNotFound, subjRepo.DeleteSubject(ctx, math.ID))
}

func TestAttendanceRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewAttendanceRepository(db)

	record := func(day int, status string) attendance.Attendance {
		att, err := repo.CreateAttendance(ctx, attendance.Attendance{
			UserID:       1,
			SubjectID:    2,
			ClassLevelID: 3,
			Date:         core.NewDate(2024, 3, day),
			Status:       status,
			MarkedBy:     4,
		})
		require.NoError(t, err)
		return att
	}

	first := record(1, attendance.StatusPresent)
	record(2, attendance.StatusAbsent)
	record(3, attendance.StatusLate)
	record(4, attendance.StatusPresent)

	// next month is not counted
	_, err := repo.CreateAttendance(ctx, attendance.Attendance{
		UserID: 1, SubjectID: 2, ClassLevelID: 3, Date: core.NewDate(2024, 4, 1), Status: attendance.StatusAbsent, MarkedBy: 4,
	})
	require.NoError(t, err)

	t.Run("unique per user, subject and date", func(t *testing.T) {
		dup := first
		dup.ID = 0
		_, err := repo.CreateAttendance(ctx, dup)
		assert.Equal(t, attendance.ErrAttendanceExists, errors.Cause(err))
	})

	t.Run("find", func(t *testing.T) {
		got, err := repo.FindAttendance(ctx, 1, 2, core.NewDate(2024, 3, 1))
		require.NoError(t, err)
		assert.Equal(t, first, got)

		_, err = repo.FindAttendance(ctx, 1, 2, core.NewDate(2024, 3, 9))
		assert.Equal(t, attendance.ErrNotFound, err)
	})

	t.Run("update", func(t *testing.T) {
		first.Status = attendance.StatusLate
		first.NotificationSent = true
		_, err := repo.UpdateAttendance(ctx, first)
		require.NoError(t, err)

		got, err := repo.GetAttendance(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, attendance.StatusLate, got.Status)
		assert.True(t, got.NotificationSent)

		_, err = repo.UpdateAttendance(ctx, attendance.Attendance{ID: 999})
		assert.Equal(t, attendance.ErrNotFound, err)
	})

	t.Run("query", func(t *testing.T) {
		records, err := repo.QueryAttendance(ctx, &attendance.Filter{ClassLevelID: 3, Date: core.NewDate(2024, 3, 2)})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, attendance.StatusAbsent, records[0].Status)

		records, err = repo.QueryAttendance(ctx, &attendance.Filter{
			UserID: 1, From: core.NewDate(2024, 3, 2), To: core.NewDate(2024, 3, 4),
		})
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("count by status", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx, 1, 0, core.NewDate(2024, 3, 1), core.NewDate(2024, 4, 1))
		require.NoError(t, err)
		assert.Equal(t, map[string]int{attendance.StatusPresent: 1, attendance.StatusAbsent: 1, attendance.StatusLate: 2}, counts)

		counts, err = repo.CountByStatus(ctx, 1, 99, core.NewDate(2024, 3, 1), core.NewDate(2024, 4, 1))
		require.NoError(t, err)
		assert.Empty(t, counts)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteAttendance(ctx, first.ID))
		assert.Equal(t, attendance.ErrNotFound, repo.DeleteAttendance(ctx, first.ID))
	})
}

func TestAcademicsRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewAcademicsRepository(db)

	sa, err := repo.CreateAcademics(ctx, academics.StudentAcademics{
		StudentID: 1, ClassLevelID: 2, AcademicYear: 2024, PromotionStatus: academics.StatusPending,
	})
	require.NoError(t, err)

	t.Run("one record per student and year", func(t *testing.T) {
		_, err := repo.CreateAcademics(ctx, academics.StudentAcademics{
			StudentID: 1, ClassLevelID: 3, AcademicYear: 2024, PromotionStatus: academics.StatusPending,
		})
		assert.Equal(t, academics.ErrAcademicsExist, errors.Cause(err))
	})

	t.Run("update", func(t *testing.T) {
		sa.PromotionStatus = academics.StatusPromoted
		sa.OverallGrade = null.StringFrom("B")
		_, err := repo.UpdateAcademics(ctx, sa)
		require.NoError(t, err)

		got, err := repo.GetAcademics(ctx, sa.ID)
		require.NoError(t, err)
		assert.Equal(t, sa, got)

		records, err := repo.QueryAcademics(ctx, &academics.Filter{StudentID: 1})
		require.NoError(t, err)
		assert.Equal(t, []academics.StudentAcademics{sa}, records)

		_, err = repo.GetAcademics(ctx, 999)
		assert.Equal(t, academics.ErrNotFound, err)
	})

	t.Run("results", func(t *testing.T) {
		res, err := repo.CreateResult(ctx, academics.ExamResult{
			StudentID: 1, SubjectID: 2, AcademicYear: 2024, Term: 1, Marks: 72.5, Grade: "B",
			ExamDate: core.NewDate(2024, 6, 10),
		})
		require.NoError(t, err)

		got, err := repo.GetResult(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, res, got)

		results, err := repo.QueryResults(ctx, &academics.ResultFilter{StudentID: 1, Term: 2})
		require.NoError(t, err)
		assert.Empty(t, results)

		res.Marks = 85
		res.Grade = "A"
		_, err = repo.UpdateResult(ctx, res)
		require.NoError(t, err)
		results, err = repo.QueryResults(ctx, &academics.ResultFilter{StudentID: 1})
		require.NoError(t, err)
		assert.Equal(t, []academics.ExamResult{res}, results)

		require.NoError(t, repo.DeleteResult(ctx, res.ID))
		_, err = repo.GetResult(ctx, res.ID)
		assert.Equal(t, academics.ErrResultNotFound, err)
		assert.Equal(t, academics.ErrResultNotFound, repo.DeleteResult(ctx, res.ID))
	})
}
