package testutil

import (
	"context"
	"net/mail"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/database"
)

// NewConfig returns the configuration used by tests: debug off, SQLite database in a temp dir.
func NewConfig(t *testing.T) *core.Config {
	return &core.Config{
		AppName:          "Darasa",
		Build:            "test",
		Env:              "TEST",
		TestMode:         true,
		SecretKey:        "test-secret-key-which-is-long-enough-for-hs256",
		FrontendURL:      "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Darasa", Address: "noreply@localhost"},
		Server: core.ServerConfig{
			Addr:                      ":0",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
			LoginRateLimit:            1000,
		},
		Database: core.DatabaseConfig{
			Engine: database.EngineSQLite,
			Path:   filepath.Join(t.TempDir(), "darasa_test.db"),
		},
	}
}

// PrepareDB opens and migrates a fresh SQLite database, closed when the test ends.
func PrepareDB(t *testing.T, conf ...*core.Config) *sqlx.DB {
	var cfg *core.Config
	if len(conf) > 0 {
		cfg = conf[0]
	} else {
		cfg = NewConfig(t)
	}

	db, err := database.Setup(context.Background(), cfg)
	if err != nil {
		t.Fatalf("database.Setup(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// DefaultPassword is the password of the users created by CreateUser without one.
const DefaultPassword = "Test#Pwd1"

// CreateUser stores a user; an empty pwd stands for DefaultPassword.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, role string,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FullName:  name,
		Username:  uname,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd == "" {
		pwd = DefaultPassword
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateClassLevel(t *testing.T, repo school.ClassLevelRepository, name string, year int) school.ClassLevel {
	cl, err := repo.CreateClassLevel(context.Background(), school.ClassLevel{Name: name, AcademicYear: year})
	if err != nil {
		t.Fatalf("CreateClassLevel(): %v", err)
	}
	return cl
}

// CreateSubject creates a subject of the class level; teacherID 0 leaves it unassigned.
func CreateSubject(t *testing.T, repo school.SubjectRepository, name string, classLevelID, teacherID int) school.Subject {
	subj, err := repo.CreateSubject(context.Background(), school.Subject{
		Name:         name,
		TeacherID:    null.NewInt(teacherID, teacherID != 0),
		ClassLevelID: classLevelID,
	})
	if err != nil {
		t.Fatalf("CreateSubject(): %v", err)
	}
	return subj
}
