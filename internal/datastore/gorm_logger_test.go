package datastore

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/logger"
)

func statement(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestQueryLoggerTrace(t *testing.T) {
	tests := []struct {
		name    string
		begin   time.Time
		err     error
		want    string
		notWant string
	}{
		{
			name:  "failed query",
			begin: time.Now(),
			err:   errors.NewStd("disk I/O error"),
			want:  "query failed",
		},
		{
			name:    "record not found is not a failure",
			begin:   time.Now(),
			err:     gorm.ErrRecordNotFound,
			notWant: "query failed",
		},
		{
			name:  "slow query",
			begin: time.Now().Add(-time.Second),
			want:  "slow query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			q := newQueryLogger(logger.NewSlogLogger(&buf, logger.LogLevelWarn, time.UTC), 200*time.Millisecond)

			q.Trace(context.Background(), tt.begin, statement("SELECT * FROM identifications", 2), tt.err)

			if tt.want != "" {
				assert.Contains(t, buf.String(), tt.want)
				assert.Contains(t, buf.String(), "SELECT * FROM identifications")
			}
			if tt.notWant != "" {
				assert.NotContains(t, buf.String(), tt.notWant)
			}
		})
	}
}

func TestQueryLoggerSilentMode(t *testing.T) {
	var buf bytes.Buffer
	base := newQueryLogger(logger.NewSlogLogger(&buf, logger.LogLevelTrace, time.UTC), time.Millisecond)
	silent := base.LogMode(gormlogger.Silent)

	silent.Trace(context.Background(), time.Now().Add(-time.Second), statement("SELECT 1", 1), errors.NewStd("boom"))
	silent.Error(context.Background(), "migration failed: %s", "boom")

	assert.Empty(t, buf.String())
	assert.Equal(t, gormlogger.Info, base.level, "LogMode must not change the receiver")
}
