package database

import (
	"context"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/trezcool/aicanvas/core"
	appfs "github.com/trezcool/aicanvas/fs"
)

const (
	driverName    = "sqlite"
	migrationsDir = "migrations"
)

var gooseRunFunc = goose.Run // mockable

func init() {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		panic(err)
	}
}

// dsn builds a modernc.org/sqlite data source name for the database file at `path`.
func dsn(path string) string {
	q := make(url.Values)
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	if path != ":memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	return "file:" + path + "?" + q.Encode()
}

func Open(conf *core.Config) (*sqlx.DB, error) {
	return open(conf.Database.Path)
}

// OpenInMemory opens a private in-memory database. It is pinned to a single connection
// since every new SQLite connection to ":memory:" gets its own empty database.
func OpenInMemory() (*sqlx.DB, error) {
	return open(":memory:")
}

func open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, dsn(path))
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	// SQLite serializes writers anyway; a single connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 10
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// Migrate applies the embedded migrations. Every statement is create-if-absent, so it is safe on each start.
func Migrate(db *sqlx.DB) error {
	return RunMigrations(db, "up")
}

// RunMigrations runs a goose command (up, down, status, version, redo, ...) against the embedded migrations.
func RunMigrations(db *sqlx.DB, command string, args ...string) error {
	if err := gooseRunFunc(command, db.DB, migrationsDir, args...); err != nil {
		return errors.Wrapf(err, "migrating database (%s)", command)
	}
	return nil
}
