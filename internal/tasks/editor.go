package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/factor8/TagDeck/internal/audiofile"
	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/repositories"
	"github.com/factor8/TagDeck/internal/services"
	"github.com/factor8/TagDeck/internal/shared"
	"github.com/factor8/TagDeck/internal/tagcodec"
)

// BatchResult is the aggregate outcome of an edit over several tracks.
// Per-item failures are only reported through the log.
type BatchResult struct {
	ActionID  string `json:"action_id,omitempty"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Failed    int    `json:"failed"`
}

// Editor applies user edits through the ordered pipeline: compute, tag file, local store,
// then the external library. Local commits happen before the external call, whose failures are
// logged and discarded. Reversible edits are recorded on the [History].
//
// Edits, undo and redo run one at a time so the history stays linear.
type Editor struct {
	mu      sync.Mutex
	store   *repositories.Store
	files   audiofile.TagFile
	gateway services.Gateway
	history *History
	logger  *log.Logger
}

// NewEditor creates an Editor.
func NewEditor(store *repositories.Store, files audiofile.TagFile, gateway services.Gateway, history *History, logger *log.Logger) *Editor {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if history == nil {
		history = NewHistory(DefaultHistoryLimit)
	}
	return &Editor{
		store:   store,
		files:   files,
		gateway: gateway,
		history: history,
		logger:  shared.WithLogger(logger, "component", "editor"),
	}
}

// History returns the undo log the editor records to.
func (e *Editor) History() *History {
	return e.history
}

// WriteComment replaces a track's raw comment field. The value is stored as given; its first
// delimiter decides where the tag list starts.
func (e *Editor) WriteComment(ctx context.Context, id int64, raw string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writeComment(ctx, id, raw)
}

func (e *Editor) writeComment(ctx context.Context, id int64, raw string) error {
	track, err := e.track(id)
	if err != nil {
		return err
	}
	if track.CommentRaw == raw {
		return nil
	}

	change := CommentChange{
		TrackID:      track.ID,
		PersistentID: track.PersistentID,
		FilePath:     track.FilePath,
		Old:          track.CommentRaw,
		New:          raw,
	}
	applied, err := e.applyComments(ctx, []CommentChange{change}, true)
	if len(applied) == 0 {
		return err
	}

	e.history.Push(NewCommentAction(applied))
	return nil
}

// SetCommentText replaces the free-text part of a track's comment and keeps its tags.
func (e *Editor) SetCommentText(ctx context.Context, id int64, text string) error {
	if err := tagcodec.ValidateText(text); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	track, err := e.track(id)
	if err != nil {
		return err
	}

	c := tagcodec.Decode(track.CommentRaw)
	c.Text = text
	return e.writeComment(ctx, id, c.Encode())
}

// BatchAddTag adds tag to every listed track that does not carry it yet.
func (e *Editor) BatchAddTag(ctx context.Context, ids []int64, tag string) (*BatchResult, error) {
	if err := tagcodec.ValidateTag(tag); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batchComments(ctx, ids, func(raw string) (string, bool) { return tagcodec.AddTag(raw, tag) })
}

// BatchRemoveTag removes tag, ignoring case, from every listed track.
func (e *Editor) BatchRemoveTag(ctx context.Context, ids []int64, tag string) (*BatchResult, error) {
	if tag == "" {
		return nil, fmt.Errorf("%w: tag name is empty", shared.ErrInvalidInput)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batchComments(ctx, ids, func(raw string) (string, bool) { return tagcodec.RemoveTag(raw, tag) })
}

// RenameTag renames a tag on every track carrying it and moves its group assignment along.
func (e *Editor) RenameTag(ctx context.Context, from, to string) (*BatchResult, error) {
	if err := tagcodec.ValidateTag(to); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var ids []int64
	err := e.store.Do(func() error {
		tracks, err := e.store.Tracks.List(nil)
		if err != nil {
			return err
		}
		for _, t := range tracks {
			if tagcodec.Decode(t.CommentRaw).Has(from) {
				ids = append(ids, t.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	if len(ids) > 0 {
		result, err = e.batchComments(ctx, ids, func(raw string) (string, bool) { return tagcodec.RenameTag(raw, from, to) })
		if err != nil {
			return nil, err
		}
	}

	if err := e.store.Do(func() error { return e.store.TagGroups.RenameMember(from, to) }); err != nil {
		e.logger.Warn("failed to carry tag group assignment", "from", from, "to", to, "error", err)
	}
	return result, nil
}

func (e *Editor) batchComments(ctx context.Context, ids []int64, edit func(raw string) (string, bool)) (*BatchResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no tracks given", shared.ErrMissingArgument)
	}

	var tracks []*models.Track
	err := e.store.Do(func() error {
		var err error
		tracks, err = e.store.Tracks.List(map[string]any{"ids": ids})
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Failed: len(ids) - len(tracks)}
	var changes []CommentChange
	for _, t := range tracks {
		next, changed := edit(t.CommentRaw)
		if !changed {
			result.Unchanged++
			continue
		}
		changes = append(changes, CommentChange{
			TrackID:      t.ID,
			PersistentID: t.PersistentID,
			FilePath:     t.FilePath,
			Old:          t.CommentRaw,
			New:          next,
		})
	}

	applied, _ := e.applyComments(ctx, changes, true)
	result.Updated = len(applied)
	result.Failed += len(changes) - len(applied)

	if len(applied) > 0 {
		action := NewCommentAction(applied)
		e.history.Push(action)
		result.ActionID = action.ID()
	}
	return result, nil
}

// applyComments writes New (forward) or Old values through file, store and gateway.
// It returns the changes whose file and store writes both succeeded and the first error seen.
// A file write whose store write fails is reverted to the prior value.
func (e *Editor) applyComments(ctx context.Context, changes []CommentChange, forward bool) ([]CommentChange, error) {
	var (
		applied  []CommentChange
		updates  []models.CommentUpdate
		firstErr error
	)

	for _, c := range changes {
		value, prior := c.Old, c.New
		if forward {
			value, prior = c.New, c.Old
		}

		if err := e.files.WriteComment(c.FilePath, value); err != nil {
			e.logger.Error("failed to write tag file", "track", c.TrackID, "path", c.FilePath, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if err := e.store.Do(func() error { return e.store.Tracks.UpdateComment(c.TrackID, value) }); err != nil {
			e.logger.Error("failed to store comment", "track", c.TrackID, "error", err)
			if rerr := e.files.WriteComment(c.FilePath, prior); rerr != nil {
				e.logger.Error("tag file and store diverged", "track", c.TrackID, "path", c.FilePath, "file", value, "store", prior, "error", rerr)
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		applied = append(applied, c)
		if c.PersistentID != "" {
			updates = append(updates, models.CommentUpdate{PersistentID: c.PersistentID, Comment: value})
		}
	}

	e.mirrorComments(ctx, updates)
	return applied, firstErr
}

func (e *Editor) mirrorComments(ctx context.Context, updates []models.CommentUpdate) {
	var err error
	switch len(updates) {
	case 0:
		return
	case 1:
		err = e.gateway.UpdateComment(ctx, updates[0].PersistentID, updates[0].Comment)
	default:
		err = e.gateway.BatchUpdateComments(ctx, updates)
	}
	if err != nil {
		e.logger.Warn("external library comment update failed", "tracks", len(updates), "error", err)
	}
}

// AddToPlaylist appends tracks that are not members yet. Tracks without a persistent id cannot be
// playlist members and count as failed.
func (e *Editor) AddToPlaylist(ctx context.Context, trackIDs []int64, playlistID int64) (*BatchResult, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("%w: no tracks given", shared.ErrMissingArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		playlist *models.Playlist
		tracks   []*models.Track
	)
	err := e.store.Do(func() error {
		var err error
		if playlist, err = e.store.Playlists.Get(playlistID); err != nil {
			return err
		}
		tracks, err = e.store.Tracks.List(map[string]any{"ids": trackIDs})
		return err
	})
	if err != nil {
		return nil, err
	}
	if playlist.IsFolder {
		return nil, fmt.Errorf("%w: %q is a folder", shared.ErrInvalidInput, playlist.Name)
	}

	result := &BatchResult{Failed: len(trackIDs) - len(tracks)}
	var refs []models.TrackRef
	for _, t := range tracks {
		if t.PersistentID == "" {
			e.logger.Warn("track has no persistent id", "track", t.ID)
			result.Failed++
			continue
		}
		if playlist.Contains(t.PersistentID) {
			result.Unchanged++
			continue
		}
		refs = append(refs, models.TrackRef{ID: t.ID, PersistentID: t.PersistentID})
	}
	if len(refs) == 0 {
		return result, nil
	}

	action := NewPlaylistAddAction(*playlist, refs)
	if err := e.addMembers(ctx, action); err != nil {
		return nil, err
	}

	e.history.Push(action)
	result.Updated = len(refs)
	result.ActionID = action.ID()
	return result, nil
}

// addMembers writes the additions of a to the store, then mirrors them to the external library.
func (e *Editor) addMembers(ctx context.Context, a *PlaylistAddAction) error {
	pids := refPIDs(a.Tracks)

	var order []string
	err := e.store.Do(func() error {
		if a.Anchor == "" {
			_, err := e.store.Playlists.AddTracks(a.PlaylistID, pids)
			return err
		}
		anchor := a.Anchor
		for _, pid := range pids {
			if _, err := e.store.Playlists.InsertTrackAfter(a.PlaylistID, pid, anchor); err != nil {
				return err
			}
			anchor = pid
		}
		p, err := e.store.Playlists.Get(a.PlaylistID)
		if err != nil {
			return err
		}
		order = p.TrackIDs
		return nil
	})
	if err != nil {
		return err
	}

	for _, pid := range pids {
		if err := e.gateway.AddTrackToPlaylist(ctx, pid, a.PlaylistPersistentID); err != nil {
			e.logger.Warn("external library playlist add failed", "track", pid, "playlist", a.PlaylistPersistentID, "error", err)
		}
	}
	if order != nil {
		if err := e.gateway.ReorderPlaylist(ctx, a.PlaylistPersistentID, order); err != nil {
			e.logger.Warn("external library reorder failed", "playlist", a.PlaylistPersistentID, "error", err)
		}
	}
	return nil
}

func (e *Editor) removeMembers(ctx context.Context, a *PlaylistAddAction) error {
	pids := refPIDs(a.Tracks)
	if err := e.store.Do(func() error { return e.store.Playlists.RemoveTracks(a.PlaylistID, pids) }); err != nil {
		return err
	}

	for _, pid := range pids {
		if err := e.gateway.RemoveTrackFromPlaylist(ctx, pid, a.PlaylistPersistentID); err != nil {
			e.logger.Warn("external library playlist remove failed", "track", pid, "playlist", a.PlaylistPersistentID, "error", err)
		}
	}
	return nil
}

// UpdateRating sets a track's 0-100 rating in the store and the external library.
// Ratings are not part of the tag chunk.
func (e *Editor) UpdateRating(ctx context.Context, id int64, rating int) error {
	var track *models.Track
	err := e.store.Do(func() error {
		var err error
		if track, err = e.store.Tracks.Get(id); err != nil {
			return err
		}
		return e.store.Tracks.UpdateRating(id, rating)
	})
	if err != nil {
		return err
	}

	if track.PersistentID != "" {
		if err := e.gateway.UpdateRating(ctx, track.PersistentID, rating); err != nil {
			e.logger.Warn("external library rating update failed", "track", id, "error", err)
		}
	}
	return nil
}

// UpdateTrackInfo applies a partial edit of title, artist, album, BPM or comment.
// Fields equal to the stored value are ignored; nothing is recorded when nothing changes.
func (e *Editor) UpdateTrackInfo(ctx context.Context, id int64, info models.TrackInfo) error {
	if info.BPM != nil && *info.BPM < 0 {
		return fmt.Errorf("%w: bpm must not be negative", shared.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	track, err := e.track(id)
	if err != nil {
		return err
	}

	changed := info.Changed(*track)
	if changed.IsEmpty() {
		return nil
	}
	old := changed.Capture(*track)

	action := NewTrackInfoAction(*track, old, changed)
	if err := e.applyTrackInfo(ctx, action, true); err != nil {
		return err
	}

	e.history.Push(action)
	return nil
}

func (e *Editor) applyTrackInfo(ctx context.Context, a *TrackInfoAction, forward bool) error {
	info, prior := a.Old, a.New
	if forward {
		info, prior = a.New, a.Old
	}

	if err := e.files.WriteTrackInfo(a.FilePath, info); err != nil {
		return err
	}
	if err := e.files.Touch(a.FilePath); err != nil {
		e.logger.Warn("failed to touch file", "path", a.FilePath, "error", err)
	}

	if err := e.store.Do(func() error { return e.store.Tracks.UpdateInfo(a.TrackID, info) }); err != nil {
		if rerr := e.files.WriteTrackInfo(a.FilePath, prior); rerr != nil {
			e.logger.Error("tag file and store diverged", "track", a.TrackID, "path", a.FilePath, "error", rerr)
		}
		return err
	}

	if a.PersistentID != "" {
		if err := e.gateway.UpdateTrackInfo(ctx, a.PersistentID, info); err != nil {
			e.logger.Warn("external library track info update failed", "track", a.TrackID, "error", err)
		}
	}
	return nil
}

// Undo reverses the latest action and returns a description such as "Undo Tag Change".
//
// An action none of whose items could be reversed stays on the undo stack.
func (e *Editor) Undo(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	action, ok := e.history.popUndo()
	if !ok {
		return "", shared.ErrNothingToUndo
	}

	if err := e.replay(ctx, action, false); err != nil {
		e.history.redone(action)
		return "", fmt.Errorf("failed to undo %s: %w", action.Describe(), err)
	}

	e.history.undone(action)
	e.logger.Info("undo", "action", action.ID(), "kind", action.Describe())
	return "Undo " + action.Describe(), nil
}

// Redo re-applies the latest undone action and returns a description such as "Redo Tag Change".
func (e *Editor) Redo(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	action, ok := e.history.popRedo()
	if !ok {
		return "", shared.ErrNothingToRedo
	}

	if err := e.replay(ctx, action, true); err != nil {
		e.history.undone(action)
		return "", fmt.Errorf("failed to redo %s: %w", action.Describe(), err)
	}

	e.history.redone(action)
	e.logger.Info("redo", "action", action.ID(), "kind", action.Describe())
	return "Redo " + action.Describe(), nil
}

// replay runs the same pipeline as the original edit with old (undo) or new (redo) values.
func (e *Editor) replay(ctx context.Context, action Action, forward bool) error {
	switch a := action.(type) {
	case *CommentAction:
		applied, err := e.applyComments(ctx, a.Changes, forward)
		if len(applied) == 0 && len(a.Changes) > 0 {
			return err
		}
		if len(applied) < len(a.Changes) {
			e.logger.Warn("some tracks were skipped", "action", a.ID(), "skipped", len(a.Changes)-len(applied))
		}
		return nil
	case *PlaylistAddAction:
		if forward {
			return e.addMembers(ctx, a)
		}
		return e.removeMembers(ctx, a)
	case *TrackInfoAction:
		return e.applyTrackInfo(ctx, a, forward)
	default:
		return fmt.Errorf("%w: unknown action %T", shared.ErrInvalidInput, action)
	}
}

func (e *Editor) track(id int64) (*models.Track, error) {
	var track *models.Track
	err := e.store.Do(func() error {
		var err error
		track, err = e.store.Tracks.Get(id)
		return err
	})
	return track, err
}

func refPIDs(refs []models.TrackRef) []string {
	pids := make([]string, 0, len(refs))
	for _, r := range refs {
		pids = append(pids, r.PersistentID)
	}
	return pids
}
