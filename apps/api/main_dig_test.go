package main

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dig_container "github.com/trezcool/academia/apps/api/di/dig"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/user"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
)

type recordingLogger struct {
	core.NopLogger
	mu      sync.Mutex
	lines   []string
	flushed int
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+": "+msg)
}

func (l *recordingLogger) Info(msg string, _ ...interface{})  { l.record("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...interface{})  { l.record("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...interface{}) { l.record("error", msg) }
func (l *recordingLogger) Flush()                             { l.flushed++ }

func (l *recordingLogger) has(prefix string) bool {
	for _, line := range l.lines {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func TestCheckRecords(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.NewDB()
	profiles := user.NewAccessor(db)
	records := academic.NewRecords(db)

	logger := &recordingLogger{}
	require.NoError(t, checkRecords(ctx, profiles, records, logger))
	assert.True(t, logger.has("warn: no admin account yet"), logger.lines)

	require.NoError(t, profiles.Create(ctx, user.Profile{UID: "a1", DisplayName: "Root", Details: user.AdminDetails{}}))
	logger = &recordingLogger{}
	require.NoError(t, checkRecords(ctx, profiles, records, logger))
	assert.False(t, logger.has("warn:"), logger.lines)
	assert.True(t, logger.has("info: record store ready : 1 admin(s), 0 department(s)"), logger.lines)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, checkRecords(cancelled, profiles, records, &recordingLogger{}))
}

func TestApi_release(t *testing.T) {
	closeErr := errors.New("connection reset")
	logger, dbLogger := &recordingLogger{}, &recordingLogger{}
	var closed int
	app := api{
		Logger:   logger,
		DBLogger: dbLogger,
		Backend: dig_container.Backend{
			Backend: inmemdb.NewDB(),
			Close: func() error {
				closed++
				return closeErr
			},
		},
	}

	app.release()
	assert.Equal(t, 1, closed)
	assert.True(t, dbLogger.has("error: failed to close the record store"), dbLogger.lines)
	assert.True(t, logger.has("info: Application stopped"), logger.lines)
	assert.Equal(t, 1, logger.flushed)
	assert.Equal(t, 1, dbLogger.flushed)
}
