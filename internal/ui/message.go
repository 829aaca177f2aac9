package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTracksLoaded MsgKind = iota
	MsgTagsLoaded
	MsgEditDone
	MsgProgressUpdate
	MsgSyncComplete
)

type tracksLoaded struct {
	tracks []*models.Track
	err    error
}

type tagsLoaded struct {
	tags []models.Tag
	err  error
}

// editDone carries the status line for a finished edit, undo or redo.
type editDone struct {
	status string
	err    error
}

type syncComplete struct {
	run *models.SyncRun
	err error
}

// tracksLoadedMsg is the constructor for [MsgTracksLoaded]
func tracksLoadedMsg(tracks []*models.Track, err error) Msg {
	return Msg{kind: MsgTracksLoaded, data: tracksLoaded{tracks, err}}
}

// tagsLoadedMsg is the constructor for [MsgTagsLoaded]
func tagsLoadedMsg(tags []models.Tag, err error) Msg {
	return Msg{kind: MsgTagsLoaded, data: tagsLoaded{tags, err}}
}

// editDoneMsg is the constructor for [MsgEditDone]
func editDoneMsg(status string, err error) Msg {
	return Msg{kind: MsgEditDone, data: editDone{status, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(run *models.SyncRun, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncComplete{run, err}}
}
