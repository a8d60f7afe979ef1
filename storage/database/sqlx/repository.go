package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// repository holds the default executor of a sqlx repository.
// Every method accepts an optional executor (eg. a *sqlx.Tx) that takes precedence.
type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// conditions accumulates `?` placeholder WHERE clauses, joined with AND.
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(clause string, args ...interface{}) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

func orderBy(ordering []core.DBOrdering, dflt string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + dflt
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}

// get scans a single row into dest, returning notFound when there is none.
func get(ctx context.Context, exe core.DBExecutor, dest interface{}, notFound error, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, exe, dest, exe.Rebind(query), args...)
	if err == sql.ErrNoRows {
		return notFound
	}
	return err
}

func selectAll(ctx context.Context, exe core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, exe, dest, exe.Rebind(query), args...)
}

// insert runs a named INSERT ... RETURNING id statement.
func insert(ctx context.Context, exe core.DBExecutor, query string, arg interface{}) (int, error) {
	q, args, err := exe.BindNamed(query+" RETURNING id", arg)
	if err != nil {
		return 0, errors.Wrap(err, "binding params")
	}
	var id int
	if err = sqlx.GetContext(ctx, exe, &id, q, args...); err != nil {
		return 0, err
	}
	return id, nil
}

// update runs a named UPDATE statement, returning notFound when no row matched.
func update(ctx context.Context, exe core.DBExecutor, notFound error, query string, arg interface{}) error {
	q, args, err := exe.BindNamed(query, arg)
	if err != nil {
		return errors.Wrap(err, "binding params")
	}
	res, err := exe.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return checkAffected(res, notFound)
}

func deleteByID(ctx context.Context, exe core.DBExecutor, notFound error, table string, id int) error {
	res, err := exe.ExecContext(ctx, exe.Rebind("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	return checkAffected(res, notFound)
}

func checkAffected(res sql.Result, notFound error) error {
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if cnt == 0 {
		return notFound
	}
	return nil
}

// isUniqueViolation reports whether err was caused by a UNIQUE constraint, on either engine.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgerrcode.UniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
