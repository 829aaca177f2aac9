package shared

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestFoldKey(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercases", in: "Club Banger", want: "club banger"},
		{name: "trims", in: "  techno ", want: "techno"},
		{name: "keeps inner spacing", in: "deep  house", want: "deep  house"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := FoldKey(tt.in); got != tt.want {
				t.Errorf("FoldKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tc := []struct {
		in   string
		want log.Level
	}{
		{in: "debug", want: log.DebugLevel},
		{in: " WARN ", want: log.WarnLevel},
		{in: "error", want: log.ErrorLevel},
		{in: "nonsense", want: log.InfoLevel},
		{in: "", want: log.InfoLevel},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLogLevel(tt.in); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewFileLogger(t *testing.T) {
	t.Run("without file", func(t *testing.T) {
		l, closer := NewFileLogger(LogConfig{Level: "debug"})
		defer closer.Close()

		if l.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", l.GetLevel())
		}
	})

	t.Run("with rotating file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tagdeck.log")
		l, closer := NewFileLogger(LogConfig{Level: "info", File: path, MaxSizeMB: 1, MaxBackups: 1})
		l.Info("hello")
		if err := closer.Close(); err != nil {
			t.Fatalf("failed to close log file: %v", err)
		}
	})
}

func TestNewQuietLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tui.log")
	l, closer := NewQuietLogger(LogConfig{Level: "info", File: path})
	l.Info("only in the file")
	if err := closer.Close(); err != nil {
		t.Fatalf("failed to close log file: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "only in the file") {
		t.Errorf("expected entry in log file, got %q", data)
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a, b)
	}
}
