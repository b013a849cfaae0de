// Package testutil holds helpers shared by repository, service and HTTP tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/course"
	"github.com/trezcool/aicanvas/core/user"
	"github.com/trezcool/aicanvas/storage/database"
)

// PrepareDB opens a migrated in-memory database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateUser(t *testing.T, repo user.Repository, email, role string, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr, err := repo.CreateUser(context.Background(), user.User{Email: email, Role: role, CreatedAt: tstamp})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, name, professorID string, createdAt ...time.Time) course.Course {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		ID:          uuid.New().String(),
		Name:        name,
		ProfessorID: professorID,
		CreatedAt:   tstamp,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

// Logger discards everything.
type Logger struct{}

var _ core.Logger = Logger{}

func (Logger) Debug(string, ...interface{}) {}
func (Logger) Info(string, ...interface{})  {}
func (Logger) Warn(string, ...interface{})  {}
func (Logger) Error(string, ...interface{}) {}
func (Logger) Fatal(string, ...interface{}) {}

// LoggerMock records the messages it is given.
type LoggerMock struct {
	mu   sync.Mutex
	msgs []string
}

var _ core.Logger = (*LoggerMock)(nil)

func (l *LoggerMock) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, level+" "+msg)
}

// Messages returns the recorded "LEVEL msg" lines.
func (l *LoggerMock) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.msgs...)
}

func (l *LoggerMock) Debug(msg string, _ ...interface{}) { l.record("DEBUG", msg) }
func (l *LoggerMock) Info(msg string, _ ...interface{})  { l.record("INFO", msg) }
func (l *LoggerMock) Warn(msg string, _ ...interface{})  { l.record("WARN", msg) }
func (l *LoggerMock) Error(msg string, _ ...interface{}) { l.record("ERROR", msg) }
func (l *LoggerMock) Fatal(msg string, _ ...interface{}) { l.record("FATAL", msg) }
