package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func stmt(sql string) func() (string, int64) {
	return func() (string, int64) { return sql, 1 }
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		begin   time.Time
		err     error
		wantLen int
		wantLvl zapcore.Level
		wantMsg string
	}{
		{
			name:    "error",
			level:   gormlogger.Warn,
			begin:   time.Now(),
			err:     errors.New("boom"),
			wantLen: 1,
			wantLvl: zapcore.ErrorLevel,
			wantMsg: "SQL Error",
		},
		{
			name:    "record not found is not an error",
			level:   gormlogger.Warn,
			begin:   time.Now(),
			err:     gormlogger.ErrRecordNotFound,
			wantLen: 0,
		},
		{
			name:    "slow query",
			level:   gormlogger.Warn,
			begin:   time.Now().Add(-time.Second),
			wantLen: 1,
			wantLvl: zapcore.WarnLevel,
			wantMsg: "Slow SQL",
		},
		{
			name:    "fast query at warn is quiet",
			level:   gormlogger.Warn,
			begin:   time.Now(),
			wantLen: 0,
		},
		{
			name:    "info logs every query",
			level:   gormlogger.Info,
			begin:   time.Now(),
			wantLen: 1,
			wantLvl: zapcore.DebugLevel,
			wantMsg: "SQL Query",
		},
		{
			name:    "silent",
			level:   gormlogger.Silent,
			begin:   time.Now(),
			err:     errors.New("boom"),
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level, 200*time.Millisecond)

			ctx := WithRequestID(context.Background(), "req-1")
			gl.Trace(ctx, tt.begin, stmt("SELECT 1"), tt.err)

			require.Equal(t, tt.wantLen, logs.Len())
			if tt.wantLen == 0 {
				return
			}
			entry := logs.All()[0]
			assert.Equal(t, tt.wantLvl, entry.Level)
			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, "req-1", entry.ContextMap()["request_id"])
			assert.Equal(t, "SELECT 1", entry.ContextMap()["sql"])
		})
	}
}

func TestGormLogger_LogMode(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Info, 0)
	changed, ok := gl.LogMode(gormlogger.Error).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Info, gl.level)
	assert.Equal(t, gormlogger.Error, changed.level)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("anything"))
}
