package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Track is the local view of one audio file.
//
// ID is local only. PersistentID is assigned by the external library and is empty for files it does not know.
// Missing is never sourced externally.
type Track struct {
	ID           int64   `json:"id"`
	PersistentID string  `json:"persistent_id"`
	FilePath     string  `json:"file_path"`
	Artist       string  `json:"artist,omitempty"`
	Title        string  `json:"title,omitempty"`
	Album        string  `json:"album,omitempty"`
	CommentRaw   string  `json:"comment_raw"`
	Duration     float64 `json:"duration"`
	Format       string  `json:"format"`
	Size         int64   `json:"size"`
	BitRate      int64   `json:"bit_rate"`
	ModifiedAt   int64   `json:"modified_at"`
	Rating       int     `json:"rating"`
	DateAdded    int64   `json:"date_added"`
	BPM          int     `json:"bpm"`
	Missing      bool    `json:"missing"`
}

// Validate checks ranges the store relies on.
func (t *Track) Validate() error {
	if t.Rating < 0 || t.Rating > 100 {
		return fmt.Errorf("rating %d out of range 0-100", t.Rating)
	}
	if t.BPM < 0 {
		return fmt.Errorf("bpm %d must not be negative", t.BPM)
	}
	if t.FilePath == "" && t.PersistentID == "" {
		return fmt.Errorf("track needs a file path or a persistent id")
	}
	return nil
}

// SameExternal reports whether every externally sourced field of t equals o's.
func (t Track) SameExternal(o Track) bool {
	return t.PersistentID == o.PersistentID &&
		t.FilePath == o.FilePath &&
		t.Artist == o.Artist &&
		t.Title == o.Title &&
		t.Album == o.Album &&
		t.CommentRaw == o.CommentRaw &&
		t.Duration == o.Duration &&
		t.Format == o.Format &&
		t.Size == o.Size &&
		t.BitRate == o.BitRate &&
		t.ModifiedAt == o.ModifiedAt &&
		t.Rating == o.Rating &&
		t.DateAdded == o.DateAdded &&
		t.BPM == o.BPM
}

// DisplayName renders "Artist - Title", falling back to the file name.
func (t Track) DisplayName() string {
	switch {
	case t.Artist != "" && t.Title != "":
		return t.Artist + " - " + t.Title
	case t.Title != "":
		return t.Title
	default:
		return filepath.Base(t.FilePath)
	}
}

// FormatFromPath derives the container format from a file extension, e.g. "mp3".
func FormatFromPath(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// TrackRef identifies a track in both the local store and the external library.
type TrackRef struct {
	ID           int64  `json:"id"`
	PersistentID string `json:"persistent_id"`
}

// FieldSnapshot is the external library's view of a track's rating and BPM.
type FieldSnapshot struct {
	PersistentID string `json:"persistent_id"`
	Rating       int    `json:"rating"`
	BPM          int    `json:"bpm"`
}

// CommentUpdate is one entry of a batched comment write to the external library.
type CommentUpdate struct {
	PersistentID string `json:"persistent_id"`
	Comment      string `json:"comment"`
}

// TrackInfo is a partial track edit; nil fields are left untouched.
type TrackInfo struct {
	Title   *string `json:"title,omitempty"`
	Artist  *string `json:"artist,omitempty"`
	Album   *string `json:"album,omitempty"`
	Comment *string `json:"comment,omitempty"`
	BPM     *int    `json:"bpm,omitempty"`
}

// IsEmpty reports whether the edit changes nothing.
func (i TrackInfo) IsEmpty() bool {
	return i.Title == nil && i.Artist == nil && i.Album == nil && i.Comment == nil && i.BPM == nil
}

// Apply copies every non-nil field onto t.
func (i TrackInfo) Apply(t *Track) {
	if i.Title != nil {
		t.Title = *i.Title
	}
	if i.Artist != nil {
		t.Artist = *i.Artist
	}
	if i.Album != nil {
		t.Album = *i.Album
	}
	if i.Comment != nil {
		t.CommentRaw = *i.Comment
	}
	if i.BPM != nil {
		t.BPM = *i.BPM
	}
}

// Capture returns the current values of t for the fields set in i.
func (i TrackInfo) Capture(t Track) TrackInfo {
	var out TrackInfo
	if i.Title != nil {
		out.Title = Ptr(t.Title)
	}
	if i.Artist != nil {
		out.Artist = Ptr(t.Artist)
	}
	if i.Album != nil {
		out.Album = Ptr(t.Album)
	}
	if i.Comment != nil {
		out.Comment = Ptr(t.CommentRaw)
	}
	if i.BPM != nil {
		out.BPM = Ptr(t.BPM)
	}
	return out
}

// Changed drops fields whose value already matches t.
func (i TrackInfo) Changed(t Track) TrackInfo {
	out := i
	if out.Title != nil && *out.Title == t.Title {
		out.Title = nil
	}
	if out.Artist != nil && *out.Artist == t.Artist {
		out.Artist = nil
	}
	if out.Album != nil && *out.Album == t.Album {
		out.Album = nil
	}
	if out.Comment != nil && *out.Comment == t.CommentRaw {
		out.Comment = nil
	}
	if out.BPM != nil && *out.BPM == t.BPM {
		out.BPM = nil
	}
	return out
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
