package echoapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/testutil"
)

func Test_attendanceApi_record(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.RoleTeacher)
	jane := testutil.CreateUser(t, usrRepo, "Jane Doe", "jane", "jane@test.cd", "", user.RoleStudent)
	john := testutil.CreateUser(t, usrRepo, "John Doe", "john", "", "", user.RoleStudent)

	grade5 := testutil.CreateClassLevel(t, classRepo, "Grade 5", 2024)
	math := testutil.CreateSubject(t, subjRepo, "Math", grade5.ID, teacher.ID)

	teacherToken := getToken(t, teacher)
	day := "2024-03-04"
	reqMsg := "this field is required"

	t.Run("auth and validation", func(t *testing.T) {
		body := marchallObj(t, echoMap{"user_id": jane.ID, "subject_id": math.ID, "date": day, "status": "present"})
		tests := []httpTest{
			{name: "Auth required", body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingTokenData)},
			{name: "Student forbidden", body: body, token: getToken(t, jane), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbiddenData)},
			{
				name: "required fields", body: []byte("{}"), token: teacherToken, wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, map[string]string{"user_id": reqMsg, "subject_id": reqMsg, "status": reqMsg, "date": reqMsg}),
			},
			{
				name: "invalid status", token: teacherToken, wantCode: http.StatusBadRequest,
				body:     marchallObj(t, echoMap{"user_id": jane.ID, "subject_id": math.ID, "date": day, "status": "sick"}),
				wantData: marchallObj(t, map[string]string{"status": "must be one of: present, absent, late"}),
			},
			{
				name: "unknown refs", token: teacherToken, wantCode: http.StatusBadRequest,
				body:     marchallObj(t, echoMap{"user_id": 999, "subject_id": 999, "date": day, "status": "present"}),
				wantData: marchallObj(t, map[string]string{"user_id": "user not found", "subject_id": "subject not found"}),
			},
		}
		for _, tt := range tests {
			tt.method = http.MethodPost
			tt.path = "/api/attendance"

			t.Run(tt.name, func(t *testing.T) {
				checkCodeAndData(t, tt, tt.run(t, app))
			})
		}
	})

	var first attendance.Attendance

	t.Run("created then replaced", func(t *testing.T) {
		req := httpTest{
			method: http.MethodPost, path: "/api/attendance", token: teacherToken,
			body: marchallObj(t, echoMap{"user_id": jane.ID, "subject_id": math.ID, "date": day, "status": "PRESENT"}),
		}
		rec := req.run(t, app)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &first)
		assert.Equal(t, jane.ID, first.UserID)
		assert.Equal(t, grade5.ID, first.ClassLevelID) // defaulted to the subject's
		assert.Equal(t, attendance.StatusPresent, first.Status)
		assert.Equal(t, teacher.ID, first.MarkedBy)
		assert.Equal(t, day, first.Date.String())

		// exactly one record for the class on that day
		list := httpTest{method: http.MethodGet, path: "/api/attendance?class_id=" + itoa(grade5.ID) + "&date=" + day, token: teacherToken}
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, first)}, list.run(t, app))

		req.body = marchallObj(t, echoMap{"user_id": jane.ID, "subject_id": math.ID, "date": day, "status": "late", "notes": "bus"})
		rec = req.run(t, app)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var replaced attendance.Attendance
		decode(t, rec, &replaced)
		assert.Equal(t, first.ID, replaced.ID)
		assert.Equal(t, attendance.StatusLate, replaced.Status)
		assert.Equal(t, null.StringFrom("bus"), replaced.Notes)

		records, err := attRepo.QueryAttendance(context.Background(), &attendance.Filter{UserID: jane.ID})
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("absence notice", func(t *testing.T) {
		mailSvc.Reset()

		req := httpTest{
			method: http.MethodPost, path: "/api/attendance", token: teacherToken,
			body: marchallObj(t, echoMap{"user_id": jane.ID, "subject_id": math.ID, "date": "2024-03-05", "status": "absent"}),
		}
		rec := req.run(t, app)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var att attendance.Attendance
		decode(t, rec, &att)
		assert.True(t, att.NotificationSent)

		sent := mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, jane.Email, sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, "Jane Doe was marked absent from Math on 2024-03-05.")

		// no email address: no notice
		req.body = marchallObj(t, echoMap{"user_id": john.ID, "subject_id": math.ID, "date": "2024-03-05", "status": "absent"})
		rec = req.run(t, app)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &att)
		assert.False(t, att.NotificationSent)
		assert.Len(t, mailSvc.SentMessages(), 1)

		// a notice is sent once per record
		req.body = marchallObj(t, echoMap{"user_id": jane.ID, "subject_id": math.ID, "date": "2024-03-05", "status": "absent", "notes": "again"})
		rec = req.run(t, app)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Len(t, mailSvc.SentMessages(), 1)
	})

	t.Run("absence notice not delivered", func(t *testing.T) {
		mailSvc.Reset()
		mailSvc.FailWith(errors.New("mail server unavailable"))

		req := httpTest{
			method: http.MethodPost, path: "/api/attendance", token: teacherToken,
			body: marchallObj(t, echoMap{"user_id": jane.ID, "subject_id": math.ID, "date": "2024-03-06", "status": "absent"}),
		}
		rec := req.run(t, app)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var att attendance.Attendance
		decode(t, rec, &att)
		assert.False(t, att.NotificationSent)
		assert.Empty(t, mailSvc.SentMessages())

		stored, err := attRepo.GetAttendance(context.Background(), att.ID)
		require.NoError(t, err)
		assert.False(t, stored.NotificationSent)

		// the next update of the record retries the notice
		mailSvc.Reset()
		req.body = marchallObj(t, echoMap{"user_id": jane.ID, "subject_id": math.ID, "date": "2024-03-06", "status": "absent", "notes": "retry"})
		rec = req.run(t, app)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &att)
		assert.True(t, att.NotificationSent)
		assert.Len(t, mailSvc.SentMessages(), 1)
	})
}

func Test_attendanceApi_query(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.RoleTeacher)
	jane := testutil.CreateUser(t, usrRepo, "Jane Doe", "jane", "jane@test.cd", "", user.RoleStudent)
	john := testutil.CreateUser(t, usrRepo, "John Doe", "john", "john@test.cd", "", user.RoleStudent)

	grade5 := testutil.CreateClassLevel(t, classRepo, "Grade 5", 2024)
	math := testutil.CreateSubject(t, subjRepo, "Math", grade5.ID, teacher.ID)

	mark := func(usr user.User, date core.Date, status string) attendance.Attendance {
		att, err := attRepo.CreateAttendance(context.Background(), attendance.Attendance{
			UserID:       usr.ID,
			SubjectID:    math.ID,
			ClassLevelID: grade5.ID,
			Date:         date,
			Status:       status,
			MarkedBy:     teacher.ID,
		})
		require.NoError(t, err)
		return att
	}
	janeMar4 := mark(jane, core.NewDate(2024, time.March, 4), attendance.StatusPresent)
	johnMar4 := mark(john, core.NewDate(2024, time.March, 4), attendance.StatusAbsent)
	janeMar5 := mark(jane, core.NewDate(2024, time.March, 5), attendance.StatusLate)
	janeApr2 := mark(jane, core.NewDate(2024, time.April, 2), attendance.StatusPresent)

	janeToken := getToken(t, jane)
	teacherToken := getToken(t, teacher)
	reqMsg := "this field is required"

	tests := []httpTest{
		{name: "Auth required", path: "/api/attendance", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingTokenData)},
		{name: "student: own records", path: "/api/attendance", token: janeToken, wantData: marchallList(t, janeApr2, janeMar5, janeMar4)},
		{name: "student: date range", path: "/api/attendance?from=2024-03-05&to=2024-03-31", token: janeToken, wantData: marchallList(t, janeMar5)},
		{name: "student: other filters ignored", path: "/api/attendance?user_id=" + itoa(john.ID), token: janeToken, wantData: marchallList(t, janeApr2, janeMar5, janeMar4)},
		{name: "student: invalid date", path: "/api/attendance?from=lol", token: janeToken, wantCode: http.StatusBadRequest},
		{
			name: "teacher: class and date required", path: "/api/attendance", token: teacherToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"class_id": reqMsg, "date": reqMsg}),
		},
		{
			name: "teacher: date required", path: "/api/attendance?class_id=" + itoa(grade5.ID), token: teacherToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date": reqMsg}),
		},
		{name: "teacher: class on date", path: "/api/attendance?class_id=" + itoa(grade5.ID) + "&date=2024-03-04", token: teacherToken, wantData: marchallList(t, janeMar4, johnMar4)},
		{name: "teacher: empty day", path: "/api/attendance?class_id=" + itoa(grade5.ID) + "&date=2024-03-06", token: teacherToken, wantData: marchallList(t)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, tt.run(t, app))
		})
	}
}

func Test_attendanceApi_stats(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.RoleTeacher)
	jane := testutil.CreateUser(t, usrRepo, "Jane Doe", "jane", "jane@test.cd", "", user.RoleStudent)
	john := testutil.CreateUser(t, usrRepo, "John Doe", "john", "john@test.cd", "", user.RoleStudent)

	grade5 := testutil.CreateClassLevel(t, classRepo, "Grade 5", 2024)
	math := testutil.CreateSubject(t, subjRepo, "Math", grade5.ID, teacher.ID)

	// march: 18 present, 2 absent
	for day := 1; day <= 20; day++ {
		status := attendance.StatusPresent
		if day > 18 {
			status = attendance.StatusAbsent
		}
		_, err := attRepo.CreateAttendance(context.Background(), attendance.Attendance{
			UserID:       john.ID,
			SubjectID:    math.ID,
			ClassLevelID: grade5.ID,
			Date:         core.NewDate(2024, time.March, day),
			Status:       status,
			MarkedBy:     teacher.ID,
		})
		require.NoError(t, err)
	}
	// april is not counted in march
	_, err := attRepo.CreateAttendance(context.Background(), attendance.Attendance{
		UserID: john.ID, SubjectID: math.ID, ClassLevelID: grade5.ID,
		Date: core.NewDate(2024, time.April, 1), Status: attendance.StatusLate, MarkedBy: teacher.ID,
	})
	require.NoError(t, err)

	johnMarch := attendance.Stats{UserID: john.ID, Month: 3, Year: 2024, PresentDays: 18, AbsentDays: 2, Percentage: 90}
	johnMathMarch := johnMarch
	johnMathMarch.SubjectID = null.IntFrom(math.ID)
	reqMsg := "this field is required"

	tests := []httpTest{
		{name: "Auth required", path: "/api/attendance/stats?month=3&year=2024", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingTokenData)},
		{name: "admin", path: "/api/attendance/stats?month=3&year=2024&user_id=" + itoa(john.ID), token: getToken(t, admin), wantData: marchallObj(t, johnMarch)},
		{name: "teacher: by subject", path: "/api/attendance/stats?month=3&year=2024&subject_id=" + itoa(math.ID) + "&user_id=" + itoa(john.ID), token: getToken(t, teacher), wantData: marchallObj(t, johnMathMarch)},
		{name: "student: own stats", path: "/api/attendance/stats?month=3&year=2024", token: getToken(t, john), wantData: marchallObj(t, johnMarch)},
		{
			name: "student: nothing recorded", path: "/api/attendance/stats?month=3&year=2024", token: getToken(t, jane),
			wantData: marchallObj(t, attendance.Stats{UserID: jane.ID, Month: 3, Year: 2024}),
		},
		{name: "student: other user", path: "/api/attendance/stats?month=3&year=2024&user_id=" + itoa(john.ID), token: getToken(t, jane), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbiddenData)},
		{
			name: "required fields", path: "/api/attendance/stats", token: getToken(t, john), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"month": reqMsg, "year": reqMsg}),
		},
		{name: "unknown user", path: "/api/attendance/stats?month=3&year=2024&user_id=999", token: getToken(t, admin), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"})},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, tt.run(t, app))
		})
	}
}

type echoMap map[string]interface{}
