package tasks

import (
	"context"
	"fmt"

	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
)

// CopyOptions selects what besides playlist membership is copied from the source track.
type CopyOptions struct {
	Rating    bool `json:"rating"`
	PlayCount bool `json:"play_count"`
	Comment   bool `json:"comment"`
}

// CopyPlaylistMemberships places every target track right after the source track in each of the
// given playlists. With no playlists given, every playlist containing the source is used.
//
// Each playlist gets its own "Add to Playlist" history entry and a copied comment one "Tag Change"
// entry. Ratings and play counts are not part of the history.
func (e *Editor) CopyPlaylistMemberships(ctx context.Context, sourceID int64, targetIDs, playlistIDs []int64, opts CopyOptions) (*BatchResult, error) {
	if len(targetIDs) == 0 {
		return nil, fmt.Errorf("%w: no target tracks given", shared.ErrMissingArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		source    *models.Track
		targets   []*models.Track
		playlists []*models.Playlist
	)
	err := e.store.Do(func() error {
		var err error
		if source, err = e.store.Tracks.Get(sourceID); err != nil {
			return err
		}
		if source.PersistentID == "" {
			return fmt.Errorf("%w: source track %d has no persistent id", shared.ErrInvalidInput, sourceID)
		}
		if targets, err = e.store.Tracks.List(map[string]any{"ids": targetIDs}); err != nil {
			return err
		}
		if len(playlistIDs) == 0 {
			playlists, err = e.store.Playlists.List(map[string]any{"contains": source.PersistentID})
			return err
		}
		for _, id := range playlistIDs {
			p, err := e.store.Playlists.Get(id)
			if err != nil {
				return err
			}
			playlists = append(playlists, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Failed: len(targetIDs) - len(targets)}
	var eligible []*models.Track
	for _, t := range targets {
		if t.ID == source.ID || t.PersistentID == "" {
			result.Failed++
			continue
		}
		eligible = append(eligible, t)
	}
	if len(eligible) == 0 {
		return result, nil
	}

	for _, p := range playlists {
		if p.IsFolder || !p.Contains(source.PersistentID) {
			e.logger.Warn("source track is not a member, skipping playlist", "playlist", p.Name)
			continue
		}

		var refs []models.TrackRef
		for _, t := range eligible {
			if p.Contains(t.PersistentID) {
				result.Unchanged++
				continue
			}
			refs = append(refs, models.TrackRef{ID: t.ID, PersistentID: t.PersistentID})
		}
		if len(refs) == 0 {
			continue
		}

		action := NewPlaylistAddAction(*p, refs)
		action.Anchor = source.PersistentID
		if err := e.addMembers(ctx, action); err != nil {
			e.logger.Error("failed to copy playlist membership", "playlist", p.Name, "error", err)
			result.Failed += len(refs)
			continue
		}
		e.history.Push(action)
		result.Updated += len(refs)
	}

	if opts.Rating {
		for _, t := range eligible {
			if err := e.UpdateRating(ctx, t.ID, source.Rating); err != nil {
				e.logger.Error("failed to copy rating", "track", t.ID, "error", err)
			}
		}
	}

	if opts.Comment {
		e.copyComment(ctx, source, eligible)
	}

	if opts.PlayCount {
		e.copyPlayCount(ctx, source, eligible)
	}

	return result, nil
}

func (e *Editor) copyComment(ctx context.Context, source *models.Track, targets []*models.Track) {
	var changes []CommentChange
	for _, t := range targets {
		if t.CommentRaw == source.CommentRaw {
			continue
		}
		changes = append(changes, CommentChange{
			TrackID:      t.ID,
			PersistentID: t.PersistentID,
			FilePath:     t.FilePath,
			Old:          t.CommentRaw,
			New:          source.CommentRaw,
		})
	}

	applied, err := e.applyComments(ctx, changes, true)
	if err != nil {
		e.logger.Error("failed to copy comment to some tracks", "error", err)
	}
	if len(applied) > 0 {
		e.history.Push(NewCommentAction(applied))
	}
}

func (e *Editor) copyPlayCount(ctx context.Context, source *models.Track, targets []*models.Track) {
	count, err := e.gateway.PlayCount(ctx, source.PersistentID)
	if err != nil {
		e.logger.Warn("failed to read play count", "track", source.ID, "error", err)
		return
	}
	for _, t := range targets {
		if err := e.gateway.SetPlayCount(ctx, t.PersistentID, count); err != nil {
			e.logger.Warn("failed to set play count", "track", t.ID, "error", err)
		}
	}
}
