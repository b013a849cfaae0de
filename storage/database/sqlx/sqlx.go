// Package sqlxrepos implements the core repositories on top of sqlx and SQLite.
// Timestamps are stored as INTEGER unix nanoseconds (UTC) so that they order and compare correctly in SQL.
package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/trezcool/aicanvas/core"
)

type baseRepository struct {
	exec core.DBExecutor
}

func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps sql "no rows" err to `notFound`
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
