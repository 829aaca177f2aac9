package formatter

import (
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/factor8/TagDeck/internal/models"
	th "github.com/factor8/TagDeck/internal/testing"
	"github.com/google/go-cmp/cmp"
)

func testTracks() []*models.Track {
	return []*models.Track{
		{
			ID:           1,
			PersistentID: "AAA",
			Artist:       "Kavinsky",
			Title:        "Nightcall",
			Album:        "OutRun",
			CommentRaw:   "closer && Synth; Dark",
			Duration:     258.4,
			BPM:          91,
			Rating:       80,
			FilePath:     "/m/nightcall.mp3",
		},
		{
			ID:           2,
			PersistentID: "BBB",
			Title:        "Untitled",
			CommentRaw:   "no tags here",
			Duration:     3725,
			FilePath:     "/m/untitled.flac",
			Missing:      true,
		},
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00"},
		{59.6, "1:00"},
		{258.4, "4:18"},
		{3725, "1:02:05"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestExporters(t *testing.T) {
	t.Run("TracksToCSV", func(t *testing.T) {
		data, err := TracksToCSV(testTracks())
		if err != nil {
			t.Fatalf("TracksToCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("failed to parse CSV: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header and 2 rows, got %d", len(records))
		}

		want := []string{"1", "AAA", "Kavinsky", "Nightcall", "OutRun", "4:18", "91", "80", "closer", "Synth; Dark", "/m/nightcall.mp3", "false"}
		if diff := cmp.Diff(want, records[1]); diff != "" {
			t.Errorf("row mismatch (-want +got):\n%s", diff)
		}
		if records[2][8] != "no tags here" || records[2][9] != "" || records[2][11] != "true" {
			t.Errorf("unexpected second row %v", records[2])
		}
	})

	t.Run("TagsToCSV", func(t *testing.T) {
		genre := &models.TagGroup{Name: "Genre"}
		data, err := TagsToCSV([]models.Tag{{Name: "House", UsageCount: 3, Group: genre}, {Name: "Peak", UsageCount: 1}})
		if err != nil {
			t.Fatalf("TagsToCSV failed: %v", err)
		}
		want := "Tag,Tracks,Group\nHouse,3,Genre\nPeak,1,\n"
		if string(data) != want {
			t.Errorf("expected %q, got %q", want, string(data))
		}
	})

	t.Run("TagsToMarkdown", func(t *testing.T) {
		genre := &models.TagGroup{Name: "Genre"}
		output := string(TagsToMarkdown([]models.Tag{
			{Name: "Peak", UsageCount: 1},
			{Name: "House", UsageCount: 3, Group: genre},
		}))

		if !strings.Contains(output, "**Tags**: 2") {
			t.Errorf("missing tag count, got: %s", output)
		}
		if strings.Index(output, "## Genre") > strings.Index(output, "## Ungrouped") {
			t.Errorf("expected ungrouped tags last, got: %s", output)
		}
		if !strings.Contains(output, "| House | 3 |") {
			t.Errorf("missing House row, got: %s", output)
		}
	})

	t.Run("PlaylistToMarkdown", func(t *testing.T) {
		playlist := &models.Playlist{Name: "Friday", TrackIDs: []string{"BBB", "AAA"}}
		output := string(PlaylistToMarkdown(playlist, PlaylistTracks(playlist, testTracks())))

		if !strings.HasPrefix(output, "# Friday\n") {
			t.Errorf("missing title, got: %s", output)
		}
		if !strings.Contains(output, "1. Untitled [1:02:05]") {
			t.Errorf("expected playlist order, got: %s", output)
		}
		if !strings.Contains(output, "2. Kavinsky - Nightcall (OutRun) [4:18] `Synth` `Dark`") {
			t.Errorf("missing tagged track line, got: %s", output)
		}
	})

	t.Run("TracksToText", func(t *testing.T) {
		output := string(TracksToText("Friday", testTracks()))
		want := "Playlist: Friday\nTracks: 2\n\n1. Kavinsky - Nightcall\n2. Untitled\n"
		if output != want {
			t.Errorf("expected %q, got %q", want, output)
		}
	})

	t.Run("PlaylistTracks skips unknown members", func(t *testing.T) {
		playlist := &models.Playlist{TrackIDs: []string{"ZZZ", "AAA"}}
		got := PlaylistTracks(playlist, testTracks())
		if len(got) != 1 || got[0].PersistentID != "AAA" {
			t.Errorf("unexpected tracks %+v", got)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(models.Playlist{PersistentID: "P1", Name: "Friday", TrackIDs: []string{"A", "B"}})
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, `"track_count": 2`) || strings.Contains(output, `"A"`) {
			t.Errorf("unexpected metadata %s", output)
		}
	})
}

func TestWriters(t *testing.T) {
	playlist := &models.Playlist{PersistentID: "P1", Name: "Friday", TrackIDs: []string{"AAA"}}
	tracks := PlaylistTracks(playlist, testTracks())

	t.Run("WriteCSVExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			tempDir := t.TempDir()
			originalDir := th.MustGetwd(t)
			th.MustChdir(t, tempDir)
			defer th.MustChdir(t, originalDir)

			result, err := WriteCSVExport(playlist, tracks, "")
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			if result.TracksFile != "P1_tracks.csv" || result.MetadataFile != "P1_metadata.json" {
				t.Errorf("unexpected files %+v", result)
			}
			th.AssertFileExists(t, result.TracksFile)
			th.AssertFileExists(t, result.MetadataFile)

			if content := th.MustReadFile(t, result.TracksFile); !strings.Contains(content, "Nightcall") {
				t.Errorf("CSV missing track, got: %s", content)
			}
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "friday")
			result, err := WriteCSVExport(playlist, tracks, base)
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			th.AssertFileExists(t, base+"_tracks.csv")
			th.AssertFileExists(t, result.MetadataFile)
		})

		t.Run("UnwritablePath", func(t *testing.T) {
			if _, err := WriteCSVExport(playlist, tracks, filepath.Join(t.TempDir(), "nope", "x")); err == nil {
				t.Error("expected error for missing directory")
			}
		})
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "friday")
		path, err := WriteMarkdownExport(playlist, tracks, dir)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		th.AssertDirExists(t, dir)
		if content := th.MustReadFile(t, path); !strings.HasPrefix(content, "# Friday") {
			t.Errorf("unexpected README: %s", content)
		}
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteTextExport(playlist, tracks, "")
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if path != "P1_tracks.txt" {
			t.Errorf("unexpected path %q", path)
		}
		th.AssertFileExists(t, path)
	})
}
