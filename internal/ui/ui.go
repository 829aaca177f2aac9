package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
	"github.com/factor8/TagDeck/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TrackListView ViewState = iota
	TagListView
	TagInputView
	HistoryView
)

type inputMode int

const (
	addTagMode inputMode = iota
	removeTagMode
)

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusOK
	statusWarn
	statusErr
)

type status struct {
	text  string
	level statusLevel
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	library *tasks.Library
	editor  *tasks.Editor
	engine  *tasks.SyncEngine

	width  int
	height int

	tracks      []*models.Track
	tagFilter   string
	trackList   list.Model
	tagList     list.Model
	historyList list.Model

	input  textinput.Model
	mode   inputMode
	target *models.Track

	syncing      bool
	progressChan chan tasks.ProgressUpdate
	syncDone     chan syncComplete

	status status
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, library *tasks.Library, editor *tasks.Editor, engine *tasks.SyncEngine) *Model {
	input := textinput.New()
	input.Placeholder = "tag"
	input.CharLimit = 64

	return &Model{
		ctx:         ctx,
		view:        TrackListView,
		library:     library,
		editor:      editor,
		engine:      engine,
		trackList:   newList("Tracks"),
		tagList:     newList("Tags"),
		historyList: newList("History"),
		input:       input,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	return l
}

// Init loads the track list from the local store.
func (m *Model) Init() tea.Cmd {
	return m.loadTracks()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, l := range []*list.Model{&m.trackList, &m.tagList, &m.historyList} {
			l.SetSize(msg.Width-4, msg.Height-8)
		}
		m.input.Width = max(msg.Width-8, 10)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case TagListView:
			return m.handleTagListKeys(msg)
		case TagInputView:
			return m.handleInputKeys(msg)
		case HistoryView:
			return m.handleHistoryKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTracksLoaded:
		data := msg.data.(tracksLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.tracks = data.tracks
		return m, m.refreshTracks()

	case MsgTagsLoaded:
		data := msg.data.(tagsLoaded)
		if data.err != nil {
			m.setStatus(statusErr, "Failed to load tags: %v", data.err)
			return m, nil
		}
		return m, m.tagList.SetItems(tagItems(data.tags))

	case MsgEditDone:
		data := msg.data.(editDone)
		switch {
		case errors.Is(data.err, shared.ErrNothingToUndo), errors.Is(data.err, shared.ErrNothingToRedo):
			m.setStatus(statusWarn, "%v", data.err)
			return m, nil
		case data.err != nil:
			m.setStatus(statusErr, "%v", data.err)
		default:
			m.setStatus(statusOK, "%s", data.status)
		}
		cmds := []tea.Cmd{m.loadTracks()}
		switch m.view {
		case TagListView:
			cmds = append(cmds, m.loadTags())
		case HistoryView:
			cmds = append(cmds, m.refreshHistory())
		}
		return m, tea.Batch(cmds...)

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.setStatus(statusInfo, "Sync %s: %s", update.Phase, update.Message)
		return m, m.waitForProgress()

	case MsgSyncComplete:
		data := msg.data.(syncComplete)
		m.syncing = false
		m.progressChan, m.syncDone = nil, nil
		switch {
		case data.err != nil:
			m.setStatus(statusErr, "Sync failed: %v", data.err)
			return m, nil
		case data.run == nil || data.run.ID == "" && data.run.Changed() == 0 && len(data.run.Errors) == 0:
			m.setStatus(statusWarn, "Another sync is running")
			return m, nil
		case len(data.run.Errors) > 0:
			m.setStatus(statusWarn, "Sync finished with %d changes and %d errors", data.run.Changed(), len(data.run.Errors))
		default:
			m.setStatus(statusOK, "Sync finished with %d changes", data.run.Changed())
		}
		return m, m.loadTracks()
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	var body string
	switch m.view {
	case TrackListView:
		body = m.trackList.View()
	case TagListView:
		body = m.tagList.View()
	case TagInputView:
		body = m.renderInput()
	case HistoryView:
		body = m.historyList.View()
	}

	return fmt.Sprintf("%s\n%s\n\n%s", body, styles.Status(m.status), m.renderHelp())
}

func (m *Model) renderHelp() string {
	switch m.view {
	case TagListView:
		filterKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "filter tracks"))
		return m.help.ShortHelpView([]key.Binding{filterKey, m.keys.back, m.keys.undo, m.keys.redo, m.keys.quit})
	case TagInputView:
		applyKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply"))
		cancelKey := key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
		return m.help.ShortHelpView([]key.Binding{applyKey, cancelKey})
	case HistoryView:
		return m.help.ShortHelpView([]key.Binding{m.keys.undo, m.keys.redo, m.keys.back, m.keys.quit})
	default:
		return m.help.View(m.keys)
	}
}

func (m *Model) renderInput() string {
	verb := "Add tag to"
	if m.mode == removeTagMode {
		verb = "Remove tag from"
	}
	title := styles.title.Render(fmt.Sprintf("%s %s", verb, m.target.DisplayName()))
	return fmt.Sprintf("%s\n%s", title, m.input.View())
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}

	if cmd, ok := m.handleSharedKeys(msg); ok {
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.addTag):
		return m, m.openInput(addTagMode)
	case key.Matches(msg, m.keys.delTag):
		return m, m.openInput(removeTagMode)
	case key.Matches(msg, m.keys.tags):
		m.view = TagListView
		return m, m.loadTags()
	case key.Matches(msg, m.keys.history):
		m.view = HistoryView
		return m, m.refreshHistory()
	case key.Matches(msg, m.keys.reload):
		return m, m.loadTracks()
	case key.Matches(msg, m.keys.back) && m.tagFilter != "" && m.trackList.FilterState() == list.Unfiltered:
		m.tagFilter = ""
		return m, m.refreshTracks()
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleTagListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.tagList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.tagList, cmd = m.tagList.Update(msg)
		return m, cmd
	}

	if cmd, ok := m.handleSharedKeys(msg); ok {
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.view = TrackListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.tagList.SelectedItem().(tagItem); ok {
			m.tagFilter = item.tag.Name
			m.view = TrackListView
			return m, m.refreshTracks()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.tagList, cmd = m.tagList.Update(msg)
	return m, cmd
}

func (m *Model) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.handleSharedKeys(msg); ok {
		return m, cmd
	}

	if key.Matches(msg, m.keys.back) {
		m.view = TrackListView
		return m, nil
	}

	var cmd tea.Cmd
	m.historyList, cmd = m.historyList.Update(msg)
	return m, cmd
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.closeInput()
		return m, nil
	case tea.KeyEnter:
		tag := strings.TrimSpace(m.input.Value())
		target, mode := m.target, m.mode
		m.closeInput()
		if tag == "" {
			return m, nil
		}
		return m, m.applyTag(target, tag, mode)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSharedKeys handles the bindings available in every list view.
func (m *Model) handleSharedKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return tea.Quit, true
	case key.Matches(msg, m.keys.undo):
		return m.undo(), true
	case key.Matches(msg, m.keys.redo):
		return m.redo(), true
	case key.Matches(msg, m.keys.sync):
		return m.startSync(), true
	}
	return nil, false
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	case TagListView:
		m.tagList, cmd = m.tagList.Update(msg)
	case HistoryView:
		m.historyList, cmd = m.historyList.Update(msg)
	case TagInputView:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) openInput(mode inputMode) tea.Cmd {
	item, ok := m.trackList.SelectedItem().(trackItem)
	if !ok {
		return nil
	}
	m.target = item.track
	m.mode = mode
	m.view = TagInputView
	m.input.SetValue("")
	if mode == removeTagMode && m.tagFilter != "" {
		m.input.SetValue(m.tagFilter)
	}
	return m.input.Focus()
}

func (m *Model) closeInput() {
	m.input.Blur()
	m.target = nil
	m.view = TrackListView
}

func (m *Model) setStatus(level statusLevel, format string, args ...any) {
	m.status = status{text: fmt.Sprintf(format, args...), level: level}
}

func (m *Model) refreshTracks() tea.Cmd {
	if m.tagFilter != "" {
		m.trackList.Title = fmt.Sprintf("Tracks tagged %q", m.tagFilter)
	} else {
		m.trackList.Title = "Tracks"
	}
	return m.trackList.SetItems(trackItems(m.tracks, m.tagFilter))
}

func (m *Model) refreshHistory() tea.Cmd {
	undo, redo := m.editor.History().Entries()
	return m.historyList.SetItems(historyItems(undo, redo))
}

func (m *Model) loadTracks() tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.library.Tracks(nil)
		return tracksLoadedMsg(tracks, err)
	}
}

func (m *Model) loadTags() tea.Cmd {
	return func() tea.Msg {
		tags, err := m.library.Tags()
		return tagsLoadedMsg(tags, err)
	}
}

func (m *Model) applyTag(track *models.Track, tag string, mode inputMode) tea.Cmd {
	return func() tea.Msg {
		ids := []int64{track.ID}
		if mode == removeTagMode {
			result, err := m.editor.BatchRemoveTag(m.ctx, ids, tag)
			return editDoneMsg(describeBatch(result, "Removed", "from", tag, track), err)
		}
		result, err := m.editor.BatchAddTag(m.ctx, ids, tag)
		return editDoneMsg(describeBatch(result, "Added", "to", tag, track), err)
	}
}

func describeBatch(result *tasks.BatchResult, verb, prep, tag string, track *models.Track) string {
	switch {
	case result == nil:
		return ""
	case result.Failed > 0:
		return fmt.Sprintf("Could not update %s, see the log", track.DisplayName())
	case result.Unchanged > 0:
		return fmt.Sprintf("Nothing to change for %q on %s", tag, track.DisplayName())
	default:
		return fmt.Sprintf("%s %q %s %s", verb, tag, prep, track.DisplayName())
	}
}

func (m *Model) undo() tea.Cmd {
	return func() tea.Msg {
		status, err := m.editor.Undo(m.ctx)
		return editDoneMsg(status, err)
	}
}

func (m *Model) redo() tea.Cmd {
	return func() tea.Msg {
		status, err := m.editor.Redo(m.ctx)
		return editDoneMsg(status, err)
	}
}

// startSync runs an incremental pass from the last recorded run and streams its progress.
func (m *Model) startSync() tea.Cmd {
	if m.syncing {
		m.setStatus(statusWarn, "Sync already running")
		return nil
	}
	m.syncing = true
	m.setStatus(statusInfo, "Sync started")

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan syncComplete, 1)
	m.progressChan, m.syncDone = progress, done

	go func() {
		defer close(progress)
		since, err := m.engine.LastSync()
		if err != nil {
			done <- syncComplete{err: err}
			return
		}
		run, err := m.engine.SyncRecent(m.ctx, since, progress)
		done <- syncComplete{run: run, err: err}
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.syncDone
	return func() tea.Msg {
		if progress == nil {
			return nil
		}
		update, ok := <-progress
		if !ok {
			result := <-done
			return syncCompleteMsg(result.run, result.err)
		}
		return progressUpdateMsg(update)
	}
}
