package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/darasa/core"
)

const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite3"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrationsDir returns the embedded migrations directory of the given engine.
func MigrationsDir(engine string) string {
	return path.Join("migrations", engine)
}

func postgresURL(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   EnginePostgres,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// SQLiteDSN returns the data source name of the SQLite database file at fpath.
func SQLiteDSN(fpath string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_loc=UTC", fpath)
}

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	if conf.Database.Engine == EngineSQLite {
		return sqlx.Open(EngineSQLite, SQLiteDSN(conf.Database.Path))
	}
	return sqlx.Open(EnginePostgres, postgresURL(dbName, admin, conf))
}

// Open opens the application database. The connection is not checked.
func Open(conf *core.Config) (*sqlx.DB, error) {
	return open(conf.Database.Name, false, conf)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping cancelled")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

func exists(ctx context.Context, db *sqlx.DB, query, name string) (bool, error) {
	var found bool
	err := db.GetContext(ctx, &found, query, name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

// DDL statements cannot bind parameters; names and passwords are quoted instead.

func createUserStmt(user, password string) string {
	return "CREATE USER " + pq.QuoteIdentifier(user) + " CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(password)
}

func createDBStmt(name string) string {
	return "CREATE DATABASE " + pq.QuoteIdentifier(name)
}

func createAppUser(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	found, err := exists(ctx, db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		if _, err = db.ExecContext(ctx, createUserStmt(conf.Database.User, conf.Database.Password)); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	found, err := exists(ctx, db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.ExecContext(ctx, createDBStmt(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the PostgreSQL app user and database when missing.
// SQLite databases are created on open.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	if conf.Database.Engine == EngineSQLite {
		return nil
	}

	// connect as admin
	adminDB, err := open(EnginePostgres, true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = adminDB.Close() }()

	if err = ping(ctx, adminDB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(ctx, adminDB, conf); err != nil {
		return err
	}

	// create DB as app user
	db, err := open(EnginePostgres, false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()
	return createDB(ctx, db, conf)
}

func setUpGoose(db *sqlx.DB) error {
	goose.SetBaseFS(migrationsFS)
	return goose.SetDialect(db.DriverName())
}

// Migrate applies all pending migrations.
func Migrate(db *sqlx.DB) error {
	return RunMigrations(db, "up")
}

// RunMigrations runs a goose command (up, down, status, redo, ...) against db.
func RunMigrations(db *sqlx.DB, command string, args ...string) error {
	if err := setUpGoose(db); err != nil {
		return errors.Wrap(err, "setting up goose")
	}
	if err := goose.Run(command, db.DB, MigrationsDir(db.DriverName()), args...); err != nil {
		return errors.Wrapf(err, "running migration command %q", command)
	}
	return nil
}

// Setup creates (if needed), opens, pings and migrates the application database.
func Setup(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := CreateIfNotExist(ctx, conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}

	db, err := Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}
	if err = Migrate(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrating database")
	}
	return db, nil
}
