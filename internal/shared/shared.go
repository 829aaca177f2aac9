// package shared defines shared helpers
package shared

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// NewFileLogger creates a [log.Logger] that writes to stderr and to a size-rotated log file.
//
// The returned [io.Closer] releases the log file. When cfg.File is empty only stderr is used.
func NewFileLogger(cfg LogConfig) (*log.Logger, io.Closer) {
	if cfg.File == "" {
		l := NewLogger(nil)
		SetLogLevel(l, ParseLogLevel(cfg.Level))
		return l, nopCloser{}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}

	l := NewLogger(io.MultiWriter(os.Stderr, rotator))
	SetLogLevel(l, ParseLogLevel(cfg.Level))
	return l, rotator
}

// NewQuietLogger is [NewFileLogger] without stderr, for full-screen terminal programs.
//
// Without a log file entries are discarded.
func NewQuietLogger(cfg LogConfig) (*log.Logger, io.Closer) {
	var (
		w      io.Writer = io.Discard
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		rotator := &lumberjack.Logger{Filename: cfg.File, MaxSize: cfg.MaxSizeMB, MaxBackups: cfg.MaxBackups}
		w, closer = rotator, rotator
	}

	l := NewLogger(w)
	SetLogLevel(l, ParseLogLevel(cfg.Level))
	return l, closer
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// ParseLogLevel maps a config level name to a [log.Level], falling back to info.
func ParseLogLevel(name string) log.Level {
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// FoldKey returns the case-insensitive identity of a tag or playlist name.
func FoldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
