// Package audiofile reads and writes the tag chunk embedded in audio files.
package audiofile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
	"go.senan.xyz/taglib"
)

const (
	keyComment = "COMMENT"
	keyBPM     = "BPM"
)

// TagFile is the tag-chunk codec used by the edit pipeline.
type TagFile interface {
	ReadComment(path string) (string, error)
	WriteComment(path, comment string) error
	WriteTrackInfo(path string, info models.TrackInfo) error
	Touch(path string) error
}

// Taglib implements [TagFile] on top of TagLib.
type Taglib struct {
	now func() time.Time
}

// NewTaglib creates a [Taglib] codec.
func NewTaglib() *Taglib {
	return &Taglib{now: time.Now}
}

// ReadComment returns the first comment value stored in the file, or "" when there is none.
func (t *Taglib) ReadComment(path string) (string, error) {
	tags, err := taglib.ReadTags(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", shared.ErrTagFile, path, err)
	}
	return first(tags, keyComment), nil
}

// WriteComment replaces the file's comment. An empty comment removes it.
func (t *Taglib) WriteComment(path, comment string) error {
	return t.write(path, map[string][]string{keyComment: values(comment)})
}

// WriteTrackInfo writes the fields set in info; nil fields are left untouched.
func (t *Taglib) WriteTrackInfo(path string, info models.TrackInfo) error {
	tags := make(map[string][]string)
	if info.Title != nil {
		tags[taglib.Title] = values(*info.Title)
	}
	if info.Artist != nil {
		tags[taglib.Artist] = values(*info.Artist)
	}
	if info.Album != nil {
		tags[taglib.Album] = values(*info.Album)
	}
	if info.Comment != nil {
		tags[keyComment] = values(*info.Comment)
	}
	if info.BPM != nil {
		bpm := ""
		if *info.BPM > 0 {
			bpm = strconv.Itoa(*info.BPM)
		}
		tags[keyBPM] = values(bpm)
	}
	if len(tags) == 0 {
		return nil
	}
	return t.write(path, tags)
}

// Touch bumps the file's modification time so other watchers notice the edit.
func (t *Taglib) Touch(path string) error {
	now := t.now()
	if err := os.Chtimes(path, now, now); err != nil {
		return fmt.Errorf("%w: touch %s: %v", shared.ErrTagFile, path, err)
	}
	return nil
}

// Probe reads the tags and audio properties of a file into a [models.Track].
func (t *Taglib) Probe(path string) (*models.Track, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", shared.ErrTagFile, path, err)
	}

	tags, err := taglib.ReadTags(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", shared.ErrTagFile, path, err)
	}

	track := &models.Track{
		FilePath:   path,
		Title:      first(tags, taglib.Title),
		Artist:     first(tags, taglib.Artist),
		Album:      first(tags, taglib.Album),
		CommentRaw: first(tags, keyComment),
		Format:     models.FormatFromPath(path),
		Size:       info.Size(),
		ModifiedAt: info.ModTime().Unix(),
	}
	if bpm, err := strconv.ParseFloat(first(tags, keyBPM), 64); err == nil && bpm > 0 {
		track.BPM = int(bpm + 0.5)
	}

	if props, err := taglib.ReadProperties(path); err == nil {
		track.Duration = props.Length.Seconds()
		track.BitRate = int64(props.Bitrate)
	}
	return track, nil
}

func (t *Taglib) write(path string, tags map[string][]string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrTagFile, path, err)
	}
	if err := taglib.WriteTags(path, tags, 0); err != nil {
		return fmt.Errorf("%w: write %s: %v", shared.ErrTagFile, path, err)
	}
	return nil
}

func first(tags map[string][]string, key string) string {
	for _, v := range tags[key] {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// values maps "" to a nil slice, which deletes the key.
func values(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
