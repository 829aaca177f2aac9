package audiofile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
)

func TestTaglibErrors(t *testing.T) {
	codec := NewTaglib()
	missing := filepath.Join(t.TempDir(), "missing.mp3")

	tc := []struct {
		name string
		fn   func() error
	}{
		{name: "ReadComment", fn: func() error { _, err := codec.ReadComment(missing); return err }},
		{name: "WriteComment", fn: func() error { return codec.WriteComment(missing, "x && y") }},
		{name: "WriteTrackInfo", fn: func() error { return codec.WriteTrackInfo(missing, models.TrackInfo{Title: models.Ptr("x")}) }},
		{name: "Touch", fn: func() error { return codec.Touch(missing) }},
		{name: "Probe", fn: func() error { _, err := codec.Probe(missing); return err }},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, shared.ErrTagFile) {
				t.Errorf("expected ErrTagFile, got %v", err)
			}
		})
	}
}

func TestWriteTrackInfoNoop(t *testing.T) {
	if err := NewTaglib().WriteTrackInfo("/does/not/matter.mp3", models.TrackInfo{}); err != nil {
		t.Errorf("empty edit should not touch the file, got %v", err)
	}
}

func TestTouch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, []byte("not really audio"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	stamp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	codec := &Taglib{now: func() time.Time { return stamp }}

	if err := codec.Touch(path); err != nil {
		t.Fatalf("failed to touch: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat: %v", err)
	}
	if !info.ModTime().Equal(stamp) {
		t.Errorf("expected mtime %v, got %v", stamp, info.ModTime())
	}
}
