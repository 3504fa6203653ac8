package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/darasa-lms/darasa/core"
)

// gormLogger forwards gorm logs to a core.Logger: errors always, slow queries as warnings,
// every query at debug level when query logging is on.
type gormLogger struct {
	logger        core.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

var _ gormlogger.Interface = (*gormLogger)(nil)

func NewGormLogger(logger core.Logger, conf core.DatabaseConfig) gormlogger.Interface {
	level := gormlogger.Warn
	if conf.LogQueries {
		level = gormlogger.Info
	}
	return &gormLogger{logger: logger, level: level, slowThreshold: conf.SlowThreshold}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	nl := *l
	nl.level = level
	return &nl
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.logger.Error(fmt.Sprintf("query failed: %v", err), err, map[string]interface{}{
			"sql": sql, "rows": rows, "elapsed": elapsed.String(),
		})
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.logger.Warn(fmt.Sprintf("slow query (>= %v)", l.slowThreshold), map[string]interface{}{
			"sql": sql, "rows": rows, "elapsed": elapsed.String(),
		})
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.logger.Debug("query", map[string]interface{}{"sql": sql, "rows": rows, "elapsed": elapsed.String()})
	}
}
