package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger adapts zap to gorm's logger interface. Statements carry the
// request, actor and trace fields of the context they ran under.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger returns a gorm logger. Queries slower than slowThreshold
// are logged at warn; zero disables slow query logging.
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{
		logger:        zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: slowThreshold,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, at gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < at {
		return
	}
	WithLogger(ctx, l.logger).Zap().Log(lvl, fmt.Sprintf(msg, data...))
}

// Trace logs a finished statement. Record-not-found is never an error here;
// lookups miss routinely during idempotency and numbering.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	var (
		lvl   zapcore.Level
		msg   string
		extra zap.Field
	)
	switch {
	case failed && l.level >= gormlogger.Error:
		lvl, msg, extra = zapcore.ErrorLevel, "SQL Error", zap.Error(err)
	case slow && l.level >= gormlogger.Warn:
		lvl, msg, extra = zapcore.WarnLevel, "Slow SQL", zap.Duration("threshold", l.slowThreshold)
	case l.level >= gormlogger.Info:
		lvl, msg, extra = zapcore.DebugLevel, "SQL Query", zap.Skip()
	default:
		return
	}

	sql, rows := fc()
	WithLogger(ctx, l.logger).Zap().Log(lvl, msg,
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
		extra,
	)
}

// MapGormLogLevel maps the application log level to a gorm level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
