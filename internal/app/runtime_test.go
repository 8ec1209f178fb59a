package app

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloseQuietlyLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	closed := false
	CloseQuietly(logger, "nats", closerFunc(func() error { closed = true; return nil }))
	assert.True(t, closed)
	assert.Empty(t, buf.String())

	CloseQuietly(logger, "asynq client", closerFunc(func() error { return errors.New("redis gone") }))
	assert.Contains(t, buf.String(), "close asynq client")
	assert.Contains(t, buf.String(), "redis gone")

	CloseQuietly(nil, "nothing", nil)
}

func TestInTestModeFollowsEnvironment(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
