package tasks

import (
	"fmt"
	"sync"
	"time"

	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
)

// DefaultHistoryLimit bounds the undo stack when no limit is configured.
const DefaultHistoryLimit = 200

// Action is one reversible user edit.
type Action interface {
	ID() string
	// Describe names the edit, e.g. "Tag Change (3 tracks)".
	Describe() string
	Created() time.Time
}

type actionBase struct {
	ActionID  string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

func newActionBase() actionBase {
	return actionBase{ActionID: shared.GenerateID(), CreatedAt: time.Now()}
}

func (b actionBase) ID() string         { return b.ActionID }
func (b actionBase) Created() time.Time { return b.CreatedAt }

// CommentChange is the before and after value of one track's comment field.
type CommentChange struct {
	TrackID      int64  `json:"track_id"`
	PersistentID string `json:"persistent_id"`
	FilePath     string `json:"file_path"`
	Old          string `json:"old"`
	New          string `json:"new"`
}

// CommentAction records a comment edit on one or many tracks.
type CommentAction struct {
	actionBase
	Changes []CommentChange `json:"changes"`
}

func NewCommentAction(changes []CommentChange) *CommentAction {
	return &CommentAction{actionBase: newActionBase(), Changes: changes}
}

func (a *CommentAction) Describe() string {
	if len(a.Changes) == 1 {
		return "Tag Change"
	}
	return fmt.Sprintf("Tag Change (%d tracks)", len(a.Changes))
}

// PlaylistAddAction records tracks added to a playlist. When Anchor is set the tracks were
// inserted right after it, in order.
type PlaylistAddAction struct {
	actionBase
	PlaylistID           int64             `json:"playlist_id"`
	PlaylistPersistentID string            `json:"playlist_persistent_id"`
	Tracks               []models.TrackRef `json:"tracks"`
	Anchor               string            `json:"anchor,omitempty"`
}

func NewPlaylistAddAction(playlist models.Playlist, tracks []models.TrackRef) *PlaylistAddAction {
	return &PlaylistAddAction{
		actionBase:           newActionBase(),
		PlaylistID:           playlist.ID,
		PlaylistPersistentID: playlist.PersistentID,
		Tracks:               tracks,
	}
}

func (a *PlaylistAddAction) Describe() string {
	return "Add to Playlist"
}

// TrackInfoAction records a partial track edit. Old and New carry only the fields that changed.
type TrackInfoAction struct {
	actionBase
	TrackID      int64            `json:"track_id"`
	PersistentID string           `json:"persistent_id"`
	FilePath     string           `json:"file_path"`
	Old          models.TrackInfo `json:"old"`
	New          models.TrackInfo `json:"new"`
}

func NewTrackInfoAction(track models.Track, old, updated models.TrackInfo) *TrackInfoAction {
	return &TrackInfoAction{
		actionBase:   newActionBase(),
		TrackID:      track.ID,
		PersistentID: track.PersistentID,
		FilePath:     track.FilePath,
		Old:          old,
		New:          updated,
	}
}

func (a *TrackInfoAction) Describe() string {
	return "Edit Track Info"
}

// History is a linear undo log. Pushing a new action clears the redo stack.
//
// History has its own lock. Callers that also use the store take the store lock first.
type History struct {
	mu    sync.Mutex
	undo  []Action
	redo  []Action
	limit int
}

// NewHistory creates a History keeping at most limit undo entries.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Push records a new action and discards forward history.
func (h *History) Push(a Action) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = h.appendBounded(h.undo, a)
	h.redo = nil
}

// CanUndo reports whether Undo has anything to replay.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

// CanRedo reports whether Redo has anything to replay.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// Entries returns copies of both stacks, oldest first.
func (h *History) Entries() (undo, redo []Action) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Action(nil), h.undo...), append([]Action(nil), h.redo...)
}

// Clear drops both stacks.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo, h.redo = nil, nil
}

func (h *History) popUndo() (Action, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return pop(&h.undo)
}

func (h *History) popRedo() (Action, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return pop(&h.redo)
}

// undone moves a replayed action onto the redo stack.
func (h *History) undone(a Action) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redo = h.appendBounded(h.redo, a)
}

// redone moves a replayed action back onto the undo stack without touching redo.
func (h *History) redone(a Action) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = h.appendBounded(h.undo, a)
}

func (h *History) appendBounded(stack []Action, a Action) []Action {
	stack = append(stack, a)
	if over := len(stack) - h.limit; over > 0 {
		stack = append(stack[:0:0], stack[over:]...)
	}
	return stack
}

func pop(stack *[]Action) (Action, bool) {
	n := len(*stack)
	if n == 0 {
		return nil, false
	}
	a := (*stack)[n-1]
	(*stack)[n-1] = nil
	*stack = (*stack)[:n-1]
	return a, true
}
