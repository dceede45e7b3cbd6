package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerHistoryKeepsOrder(t *testing.T) {
	l := NewNopLogger()
	l.Info("first %d", 1)
	l.Warn("second")
	l.Error("third: %v", fmt.Errorf("boom"))

	h := l.History()
	require.Len(t, h, 3)
	assert.Equal(t, "first 1", h[0].Message)
	assert.Equal(t, "INFO", h[0].Level)
	assert.Equal(t, "WARN", h[1].Level)
	assert.Equal(t, "third: boom", h[2].Message)
}

func TestLoggerHistoryIsBounded(t *testing.T) {
	l := newLogger(NewNopLogger().sugar, 4)
	for i := 0; i < 10; i++ {
		l.Info("msg %d", i)
	}

	h := l.History()
	require.Len(t, h, 4)
	assert.Equal(t, "msg 6", h[0].Message)
	assert.Equal(t, "msg 9", h[3].Message)
}

func TestLoggerWithSharesHistory(t *testing.T) {
	l := NewNopLogger()
	child := l.With("component", "test")
	child.Debug("from child")

	h := l.History()
	require.Len(t, h, 1)
	assert.Equal(t, "from child", h[0].Message)
}

func TestNewLoggerWithOptionsBadLevelFallsBack(t *testing.T) {
	l := NewLoggerWithOptions(LoggerOptions{Level: "loud", Format: "json", HistorySize: 2})
	l.Info("ok")
	assert.Len(t, l.History(), 1)
}
