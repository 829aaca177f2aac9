package models

import "testing"

func TestTrackInfo(t *testing.T) {
	track := Track{Title: "Old", Artist: "Someone", BPM: 120, CommentRaw: "a && x"}

	t.Run("Changed drops equal fields", func(t *testing.T) {
		edit := TrackInfo{Title: Ptr("New"), Artist: Ptr("Someone"), BPM: Ptr(120)}
		changed := edit.Changed(track)

		if changed.Title == nil || *changed.Title != "New" {
			t.Errorf("expected title to stay in edit, got %v", changed.Title)
		}
		if changed.Artist != nil || changed.BPM != nil {
			t.Error("expected unchanged artist and bpm to be dropped")
		}
	})

	t.Run("Capture and Apply round trip", func(t *testing.T) {
		edit := TrackInfo{Title: Ptr("New"), BPM: Ptr(128)}
		before := edit.Capture(track)

		updated := track
		edit.Apply(&updated)
		if updated.Title != "New" || updated.BPM != 128 || updated.Artist != "Someone" {
			t.Fatalf("unexpected track after apply: %+v", updated)
		}

		before.Apply(&updated)
		if updated != track {
			t.Errorf("expected restore to original, got %+v", updated)
		}
	})

	t.Run("IsEmpty", func(t *testing.T) {
		if !(TrackInfo{}).IsEmpty() {
			t.Error("zero TrackInfo should be empty")
		}
		if (TrackInfo{Album: Ptr("")}).IsEmpty() {
			t.Error("clearing album is still an edit")
		}
	})
}

func TestPlaylistSameState(t *testing.T) {
	base := Playlist{PersistentID: "P1", Name: "Mix", TrackIDs: []string{"A", "B"}}

	tc := []struct {
		name  string
		other Playlist
		want  bool
	}{
		{name: "identical", other: Playlist{PersistentID: "P1", Name: "Mix", TrackIDs: []string{"A", "B"}}, want: true},
		{name: "reordered", other: Playlist{PersistentID: "P1", Name: "Mix", TrackIDs: []string{"B", "A"}}, want: false},
		{name: "renamed", other: Playlist{PersistentID: "P1", Name: "Mix 2", TrackIDs: []string{"A", "B"}}, want: false},
		{name: "moved", other: Playlist{PersistentID: "P1", ParentPersistentID: "F", Name: "Mix", TrackIDs: []string{"A", "B"}}, want: false},
		{name: "local id ignored", other: Playlist{ID: 9, PersistentID: "P1", Name: "Mix", TrackIDs: []string{"A", "B"}}, want: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.SameState(tt.other); got != tt.want {
				t.Errorf("SameState() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("folder with tracks", func(t *testing.T) {
		p := &Playlist{PersistentID: "F", Name: "Folder", IsFolder: true, TrackIDs: []string{"A"}}
		if err := p.Validate(); err == nil {
			t.Error("expected folder with members to be invalid")
		}
	})

	t.Run("rating range", func(t *testing.T) {
		tr := &Track{FilePath: "/a.mp3", Rating: 120}
		if err := tr.Validate(); err == nil {
			t.Error("expected rating above 100 to be invalid")
		}
	})

	t.Run("display name", func(t *testing.T) {
		tr := Track{FilePath: "/music/a.mp3"}
		if tr.DisplayName() != "a.mp3" {
			t.Errorf("unexpected display name %q", tr.DisplayName())
		}
		if FormatFromPath("/music/A.MP3") != "mp3" {
			t.Errorf("unexpected format %q", FormatFromPath("/music/A.MP3"))
		}
	})
}
