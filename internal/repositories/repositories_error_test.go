package repositories

import (
	"errors"
	"testing"

	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
)

func TestTrackRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("DuplicatePersistentID", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewTrackRepository(db)
			if err := repo.Create(newTrack("A1", "/a.mp3")); err != nil {
				t.Fatalf("failed to create first track: %v", err)
			}

			err := repo.Create(newTrack("A1", "/other.mp3"))
			if !errors.Is(err, shared.ErrStore) {
				t.Fatalf("expected ErrStore for duplicate persistent id, got %v", err)
			}
		})

		t.Run("EmptyPersistentIDsMayRepeat", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewTrackRepository(db)
			for _, path := range []string{"/a.mp3", "/b.mp3"} {
				if err := repo.Create(newTrack("", path)); err != nil {
					t.Fatalf("failed to create unmatched track: %v", err)
				}
			}
		})

		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			track := newTrack("A1", "/a.mp3")
			track.Rating = 101
			if err := NewTrackRepository(db).Create(track); err == nil {
				t.Fatal("expected validation error for rating above 100")
			}
		})
	})

	t.Run("NotFound errors", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)

		tc := []struct {
			name string
			fn   func() error
		}{
			{name: "Get", fn: func() error { _, err := repo.Get(42); return err }},
			{name: "GetByPersistentID", fn: func() error { _, err := repo.GetByPersistentID("nope"); return err }},
			{name: "GetByEmptyPersistentID", fn: func() error { _, err := repo.GetByPersistentID(""); return err }},
			{name: "UpdateComment", fn: func() error { return repo.UpdateComment(42, "x") }},
			{name: "UpdateRating", fn: func() error { return repo.UpdateRating(42, 20) }},
			{name: "UpdateSnapshotFields", fn: func() error {
				return repo.UpdateSnapshotFields(models.FieldSnapshot{PersistentID: "nope"})
			}},
			{name: "UpdateInfo", fn: func() error { return repo.UpdateInfo(42, models.TrackInfo{Title: models.Ptr("x")}) }},
			{name: "SetMissing", fn: func() error { return repo.SetMissing(42, true) }},
			{name: "Delete", fn: func() error { return repo.Delete(42) }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.fn(); !errors.Is(err, shared.ErrTrackNotFound) {
					t.Errorf("expected ErrTrackNotFound, got %v", err)
				}
			})
		}
	})

	t.Run("UpdateRating out of range", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if err := NewTrackRepository(db).UpdateRating(1, -5); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestPlaylistRepositoryErrors(t *testing.T) {
	t.Run("Validation", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		tc := []struct {
			name     string
			playlist *models.Playlist
		}{
			{name: "missing persistent id", playlist: &models.Playlist{Name: "x"}},
			{name: "self parent", playlist: &models.Playlist{PersistentID: "P", ParentPersistentID: "P", Name: "x"}},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if err := repo.Upsert(tt.playlist); err == nil {
					t.Error("expected validation error")
				}
			})
		}
	})

	t.Run("NotFound errors", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)

		tc := []struct {
			name string
			fn   func() error
		}{
			{name: "Get", fn: func() error { _, err := repo.Get(7); return err }},
			{name: "GetByPersistentID", fn: func() error { _, err := repo.GetByPersistentID("nope"); return err }},
			{name: "Delete", fn: func() error { return repo.Delete(7) }},
			{name: "DeleteByPersistentID", fn: func() error { return repo.DeleteByPersistentID("nope") }},
			{name: "AddTracks", fn: func() error { _, err := repo.AddTracks(7, []string{"A"}); return err }},
			{name: "InsertTrackAfter", fn: func() error { _, err := repo.InsertTrackAfter(7, "A", ""); return err }},
			{name: "RemoveTracks", fn: func() error { return repo.RemoveTracks(7, []string{"A"}) }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.fn(); !errors.Is(err, shared.ErrPlaylistNotFound) {
					t.Errorf("expected ErrPlaylistNotFound, got %v", err)
				}
			})
		}
	})
}
