// Package dbtest contains database helpers for tests.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Tester is the subset of testing.TB used by this package.
type Tester interface {
	Fatalf(format string, args ...interface{})
	Logf(format string, args ...interface{})
	Cleanup(func())
	Name() string
}

// gormLogger writes every gorm log line to the running test.
type gormLogger struct {
	t     Tester
	level gormlogger.LogLevel
}

// NewGormLogger returns a gorm logger that logs to t.
func NewGormLogger(t Tester, level gormlogger.LogLevel) gormlogger.Interface {
	return gormLogger{t: t, level: level}
}

func (l gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return gormLogger{t: l.t, level: level}
}

func (l gormLogger) Info(_ context.Context, format string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.t.Logf(format, args...)
	}
}

func (l gormLogger) Warn(_ context.Context, format string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.t.Logf(format, args...)
	}
}

func (l gormLogger) Error(_ context.Context, format string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.t.Logf(format, args...)
	}
}

func (l gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level < gormlogger.Info {
		return
	}
	sql, rows := fc()
	errS := "<nil>"
	if err != nil {
		errS = fmt.Sprintf("%q", err.Error())
	}
	l.Info(ctx, "sql:%q rows:%d error:%s duration:%0.3fms", sql, rows, errS, float64(time.Since(begin).Microseconds())/1e3)
}

var _ gormlogger.Interface = gormLogger{}

// MemoryDB opens a private in-memory SQLite database and auto-migrates models.
// The pool is pinned to one connection so every statement sees the same database.
// Set TERSE to only log warnings.
func MemoryDB(t Tester, models ...any) *gorm.DB {
	level := gormlogger.Info
	if _, ok := os.LookupEnv("TERSE"); ok {
		level = gormlogger.Warn
	}

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: NewGormLogger(t, level),
	})
	if err != nil {
		t.Fatalf("error opening database: %s", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("error getting sql.DB: %s", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		t.Fatalf("error enabling foreign keys: %s", err)
	}

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("error migrating models: %s", err)
		}
	}
	return db
}
