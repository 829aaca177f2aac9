package services

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
	"howett.net/plist"
)

// Library is the content of an exported library property list.
type Library struct {
	Tracks    []models.Track
	Playlists []models.Playlist
}

type xmlLibrary struct {
	Tracks    map[string]xmlTrack `plist:"Tracks"`
	Playlists []xmlPlaylist       `plist:"Playlists"`
}

type xmlTrack struct {
	TrackID        int       `plist:"Track ID"`
	PersistentID   string    `plist:"Persistent ID"`
	Name           string    `plist:"Name"`
	Artist         string    `plist:"Artist"`
	Album          string    `plist:"Album"`
	Comments       string    `plist:"Comments"`
	TotalTime      int64     `plist:"Total Time"`
	Size           int64     `plist:"Size"`
	BitRate        int64     `plist:"Bit Rate"`
	DateModified   time.Time `plist:"Date Modified"`
	DateAdded      time.Time `plist:"Date Added"`
	Rating         int       `plist:"Rating"`
	RatingComputed bool      `plist:"Rating Computed"`
	BPM            int       `plist:"BPM"`
	Location       string    `plist:"Location"`
	TrackType      string    `plist:"Track Type"`
}

type xmlPlaylist struct {
	Name               string `plist:"Name"`
	PersistentID       string `plist:"Playlist Persistent ID"`
	ParentPersistentID string `plist:"Parent Persistent ID"`
	Folder             bool   `plist:"Folder"`
	Master             bool   `plist:"Master"`
	DistinguishedKind  int    `plist:"Distinguished Kind"`
	Items              []struct {
		TrackID int `plist:"Track ID"`
	} `plist:"Playlist Items"`
}

// ReadLibraryXML parses the library file at path.
func ReadLibraryXML(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open library file: %v", shared.ErrInvalidInput, err)
	}
	defer f.Close()
	return ParseLibraryXML(f)
}

// ParseLibraryXML decodes a library property list. Remote and streamed entries are skipped,
// as are tracks without a local file location and the built-in library playlists.
func ParseLibraryXML(r io.ReadSeeker) (*Library, error) {
	var doc xmlLibrary
	if err := plist.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode library file: %v", shared.ErrInvalidInput, err)
	}

	raw := make([]xmlTrack, 0, len(doc.Tracks))
	for key, t := range doc.Tracks {
		if t.TrackID == 0 {
			t.TrackID, _ = strconv.Atoi(key)
		}
		raw = append(raw, t)
	}
	slices.SortFunc(raw, func(a, b xmlTrack) int { return a.TrackID - b.TrackID })

	lib := &Library{}
	pidByTrackID := make(map[int]string, len(raw))
	for _, t := range raw {
		if t.TrackType == "Remote" || t.TrackType == "URL" || t.PersistentID == "" {
			continue
		}
		path, ok := decodeLocation(t.Location)
		if !ok {
			continue
		}

		rating := t.Rating
		if t.RatingComputed {
			rating = 0
		}

		track := models.Track{
			PersistentID: t.PersistentID,
			FilePath:     path,
			Artist:       t.Artist,
			Title:        t.Name,
			Album:        t.Album,
			CommentRaw:   t.Comments,
			Duration:     float64(t.TotalTime) / 1000,
			Format:       models.FormatFromPath(path),
			Size:         t.Size,
			BitRate:      t.BitRate,
			Rating:       rating,
			BPM:          t.BPM,
		}
		if !t.DateModified.IsZero() {
			track.ModifiedAt = t.DateModified.Unix()
		}
		if !t.DateAdded.IsZero() {
			track.DateAdded = t.DateAdded.Unix()
		}

		pidByTrackID[t.TrackID] = t.PersistentID
		lib.Tracks = append(lib.Tracks, track)
	}

	for _, p := range doc.Playlists {
		if p.Master || p.DistinguishedKind != 0 || p.PersistentID == "" {
			continue
		}

		playlist := models.Playlist{
			PersistentID:       p.PersistentID,
			ParentPersistentID: p.ParentPersistentID,
			Name:               p.Name,
			IsFolder:           p.Folder,
		}
		if !p.Folder {
			for _, item := range p.Items {
				if pid, ok := pidByTrackID[item.TrackID]; ok {
					playlist.TrackIDs = append(playlist.TrackIDs, pid)
				}
			}
		}
		lib.Playlists = append(lib.Playlists, playlist)
	}

	return lib, nil
}

// decodeLocation turns a file:// URL into a local path. Paths on an external volume that mirror a
// home directory are mapped back onto /Users.
func decodeLocation(location string) (string, bool) {
	if location == "" {
		return "", false
	}
	u, err := url.Parse(location)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", false
	}

	path := u.Path
	if strings.HasPrefix(path, "/Volumes/") {
		if i := strings.Index(path, "/Users/"); i > 0 {
			path = path[i:]
		}
	}
	return path, path != ""
}
