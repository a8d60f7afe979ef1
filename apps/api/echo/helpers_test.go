package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/academics"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/policy"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
	"github.com/trezcool/darasa/testutil"
)

var (
	testConf  *core.Config
	usrRepo   user.Repository
	classRepo school.ClassLevelRepository
	subjRepo  school.SubjectRepository
	annRepo   school.AnnouncementRepository
	matRepo   school.MaterialRepository
	attRepo   attendance.Repository
	acadRepo  academics.Repository
	mailSvc   *emailsvc.ConsoleServiceMock

	errMissingTokenData = httpErr{Error: "missing or malformed jwt"}
	errForbiddenData    = httpErr{Error: "permission denied"}
)

// setup builds a Server over a fresh SQLite database.
func setup(t *testing.T) *Server {
	testConf = testutil.NewConfig(t)
	db := testutil.PrepareDB(t, testConf)

	// set up repos
	usrRepo = sqlxrepos.NewUserRepository(db)
	classRepo = sqlxrepos.NewClassLevelRepository(db)
	subjRepo = sqlxrepos.NewSubjectRepository(db)
	annRepo = sqlxrepos.NewAnnouncementRepository(db)
	matRepo = sqlxrepos.NewMaterialRepository(db)
	attRepo = sqlxrepos.NewAttendanceRepository(db)
	acadRepo = sqlxrepos.NewAcademicsRepository(db)

	// set up services
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", log.LstdFlags), testConf)
	mailSvc = emailsvc.NewConsoleServiceMock(testConf, logger)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	academics.InitValidators(validate, translator)

	// set up server
	return NewServer(ServerDeps{
		Conf:          testConf,
		Logger:        logger,
		Policy:        policy.New(),
		Validate:      validate,
		Translator:    translator,
		UserSvc:       user.NewService(usrRepo, mailSvc, testConf),
		SchoolSvc:     school.NewService(classRepo, subjRepo, annRepo, matRepo, usrRepo),
		AttendanceSvc: attendance.NewService(db, attRepo, usrRepo, subjRepo, classRepo, mailSvc, logger),
		AcademicsSvc:  academics.NewService(db, acadRepo, usrRepo, classRepo, subjRepo),
	})
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func (tt httpTest) run(t *testing.T, app http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, usr user.User) string {
	a := newJWTAuth(testConf)
	token, err := a.GenerateToken(a.UserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "code; body %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// decode unmarshals the response body into dest.
func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func itoa(id int) string {
	return strconv.Itoa(id)
}
