package utils

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultHistorySize is the number of log entries retained for /debug/logs.
const DefaultHistorySize = 256

// LogEntry is one formatted message kept in the logger history.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// LoggerOptions configures NewLogger.
type LoggerOptions struct {
	Level       string // debug, info, warn, error
	Format      string // console or json
	HistorySize int
}

// Logger provides leveled, printf-style logging throughout the application.
// Output goes to zap; the most recent messages are also kept in a fixed-size ring.
type Logger struct {
	sugar   *zap.SugaredLogger
	history *history
}

// NewLogger creates a Logger writing to stdout with default options.
func NewLogger() *Logger {
	return NewLoggerWithOptions(LoggerOptions{})
}

// NewLoggerWithOptions creates a Logger from explicit options.
func NewLoggerWithOptions(opts LoggerOptions) *Logger {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			level = zapcore.InfoLevel
		}
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoder := zapcore.NewConsoleEncoder(encCfg)
	if strings.EqualFold(opts.Format, "json") {
		jsonCfg := zap.NewProductionEncoderConfig()
		jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(jsonCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)
	return newLogger(zap.New(core).Sugar(), opts.HistorySize)
}

// NewNopLogger returns a Logger that discards output but still records history.
func NewNopLogger() *Logger {
	return newLogger(zap.NewNop().Sugar(), DefaultHistorySize)
}

func newLogger(sugar *zap.SugaredLogger, size int) *Logger {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &Logger{sugar: sugar, history: newHistory(size)}
}

// With returns a child logger carrying extra structured fields. The history ring is shared.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...), history: l.history}
}

func (l *Logger) Info(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.history.add("INFO", msg)
	l.sugar.Info(msg)
}

func (l *Logger) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.history.add("WARN", msg)
	l.sugar.Warn(msg)
}

func (l *Logger) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.history.add("ERROR", msg)
	l.sugar.Error(msg)
}

func (l *Logger) Debug(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.history.add("DEBUG", msg)
	l.sugar.Debug(msg)
}

// History returns the retained entries, oldest first.
func (l *Logger) History() []LogEntry {
	return l.history.snapshot()
}

// Sync flushes any buffered output.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// history is a ring buffer; once full, each new entry overwrites the oldest.
type history struct {
	mu      sync.Mutex
	entries []LogEntry
	next    int
	full    bool
}

func newHistory(size int) *history {
	return &history{entries: make([]LogEntry, size)}
}

func (h *history) add(level, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = LogEntry{Time: time.Now(), Level: level, Message: msg}
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

func (h *history) snapshot() []LogEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.full {
		out := make([]LogEntry, h.next)
		copy(out, h.entries[:h.next])
		return out
	}
	out := make([]LogEntry, 0, len(h.entries))
	out = append(out, h.entries[h.next:]...)
	out = append(out, h.entries[:h.next]...)
	return out
}
