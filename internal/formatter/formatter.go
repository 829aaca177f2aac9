// package formatter exports tracks, playlists and the tag list to CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/tagcodec"
)

// FormatDuration renders seconds as m:ss, or h:mm:ss from one hour on.
func FormatDuration(seconds float64) string {
	total := int(seconds + 0.5)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// TracksToCSV writes one row per track with the comment split into text and tags.
func TracksToCSV(tracks []*models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "PersistentID", "Artist", "Title", "Album", "Duration", "BPM", "Rating", "Comment", "Tags", "Path", "Missing"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		comment := tagcodec.Decode(track.CommentRaw)
		record := []string{
			strconv.FormatInt(track.ID, 10),
			track.PersistentID,
			track.Artist,
			track.Title,
			track.Album,
			FormatDuration(track.Duration),
			strconv.Itoa(track.BPM),
			strconv.Itoa(track.Rating),
			comment.Text,
			strings.Join(comment.Tags, tagcodec.Separator+" "),
			track.FilePath,
			strconv.FormatBool(track.Missing),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// TagsToCSV writes the tag list with usage counts and group names.
func TagsToCSV(tags []models.Tag) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Tag", "Tracks", "Group"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, tag := range tags {
		if err := writer.Write([]string{tag.Name, strconv.Itoa(tag.UsageCount), groupName(tag)}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// TagsToMarkdown renders the tag list as a table grouped by tag group, ungrouped tags last.
func TagsToMarkdown(tags []models.Tag) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Tags\n\n")
	buf.WriteString(fmt.Sprintf("**Tags**: %d\n\n", len(tags)))

	var order []string
	byGroup := make(map[string][]models.Tag)
	for _, tag := range tags {
		name := groupName(tag)
		if _, ok := byGroup[name]; !ok && name != "" {
			order = append(order, name)
		}
		byGroup[name] = append(byGroup[name], tag)
	}
	if _, ok := byGroup[""]; ok {
		order = append(order, "")
	}

	for _, name := range order {
		title := name
		if title == "" {
			title = "Ungrouped"
		}
		buf.WriteString(fmt.Sprintf("## %s\n\n", title))
		buf.WriteString("| Tag | Tracks |\n|---|---|\n")
		for _, tag := range byGroup[name] {
			buf.WriteString(fmt.Sprintf("| %s | %d |\n", tag.Name, tag.UsageCount))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// PlaylistToMarkdown renders a playlist and its tracks in playlist order.
func PlaylistToMarkdown(playlist *models.Playlist, tracks []*models.Track) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", playlist.Name))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s%s [%s]", i+1, track.DisplayName(), albumPart, FormatDuration(track.Duration)))
		if tags := tagcodec.Tags(track.CommentRaw); len(tags) > 0 {
			buf.WriteString(" `" + strings.Join(tags, "` `") + "`")
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// TracksToText renders one "n. Artist - Title" line per track.
func TracksToText(title string, tracks []*models.Track) []byte {
	var buf bytes.Buffer

	if title != "" {
		buf.WriteString(fmt.Sprintf("Playlist: %s\n", title))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(tracks)))

	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, track.DisplayName()))
	}

	return buf.Bytes()
}

// PlaylistTracks orders tracks by the playlist's membership list, skipping unknown members.
func PlaylistTracks(playlist *models.Playlist, tracks []*models.Track) []*models.Track {
	byPID := make(map[string]*models.Track, len(tracks))
	for _, t := range tracks {
		if t.PersistentID != "" {
			byPID[t.PersistentID] = t
		}
	}

	out := make([]*models.Track, 0, len(playlist.TrackIDs))
	for _, pid := range playlist.TrackIDs {
		if t, ok := byPID[pid]; ok {
			out = append(out, t)
		}
	}
	return out
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without members)
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	meta := struct {
		models.Playlist
		TrackCount int `json:"track_count"`
	}{Playlist: playlist, TrackCount: len(playlist.TrackIDs)}
	meta.TrackIDs = nil

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist's tracks to {base}_tracks.csv with a {base}_metadata.json beside it.
//
// The base defaults to the playlist's persistent id.
func WriteCSVExport(playlist *models.Playlist, tracks []*models.Track, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = playlist.PersistentID
	}

	csvData, err := TracksToCSV(tracks)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(*playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteMarkdownExport writes {dir}/README.md for a playlist. The directory defaults to the
// playlist's persistent id and is created when missing.
func WriteMarkdownExport(playlist *models.Playlist, tracks []*models.Track, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = playlist.PersistentID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, PlaylistToMarkdown(playlist, tracks), 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

// WriteTextExport exports a playlist to plain text, defaulting to {persistent id}_tracks.txt.
func WriteTextExport(playlist *models.Playlist, tracks []*models.Track, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", playlist.PersistentID)
	}

	if err := os.WriteFile(path, TracksToText(playlist.Name, tracks), 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

func groupName(tag models.Tag) string {
	if tag.Group == nil {
		return ""
	}
	return tag.Group.Name
}
