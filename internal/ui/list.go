package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/tagcodec"
	"github.com/factor8/TagDeck/internal/tasks"
)

var (
	_ list.Item = trackItem{}
	_ list.Item = tagItem{}
	_ list.Item = actionItem{}
)

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track *models.Track
}

func (i trackItem) FilterValue() string {
	return strings.Join([]string{i.track.Artist, i.track.Title, i.track.Album, i.track.CommentRaw}, " ")
}

func (i trackItem) Title() string {
	if i.track.Missing {
		return "! " + i.track.DisplayName()
	}
	return i.track.DisplayName()
}

func (i trackItem) Description() string {
	tags := tagcodec.Tags(i.track.CommentRaw)
	desc := i.track.Album
	if len(tags) > 0 {
		if desc != "" {
			desc += " • "
		}
		desc += strings.Join(tags, ", ")
	}
	return desc
}

// tagItem wraps [models.Tag] to implement [list.Item].
type tagItem struct {
	tag models.Tag
}

func (i tagItem) FilterValue() string { return i.tag.Name }
func (i tagItem) Title() string       { return i.tag.Name }
func (i tagItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.tag.UsageCount)
	if i.tag.Group != nil {
		desc = fmt.Sprintf("%s • %s", desc, i.tag.Group.Name)
	}
	return desc
}

// actionItem wraps a recorded [tasks.Action] for the history view.
type actionItem struct {
	action tasks.Action
	undone bool
}

func (i actionItem) FilterValue() string { return i.action.Describe() }
func (i actionItem) Title() string       { return i.action.Describe() }
func (i actionItem) Description() string {
	state := "applied"
	if i.undone {
		state = "undone"
	}
	return fmt.Sprintf("%s • %s", state, i.action.Created().Format("15:04:05"))
}

func trackItems(tracks []*models.Track, tag string) []list.Item {
	items := make([]list.Item, 0, len(tracks))
	for _, t := range tracks {
		if tag != "" && !tagcodec.Decode(t.CommentRaw).Has(tag) {
			continue
		}
		items = append(items, trackItem{track: t})
	}
	return items
}

func tagItems(tags []models.Tag) []list.Item {
	items := make([]list.Item, len(tags))
	for i, tag := range tags {
		items[i] = tagItem{tag: tag}
	}
	return items
}

// historyItems lists undoable actions newest first, followed by redoable ones.
func historyItems(undo, redo []tasks.Action) []list.Item {
	items := make([]list.Item, 0, len(undo)+len(redo))
	for i := len(undo) - 1; i >= 0; i-- {
		items = append(items, actionItem{action: undo[i]})
	}
	for i := len(redo) - 1; i >= 0; i-- {
		items = append(items, actionItem{action: redo[i], undone: true})
	}
	return items
}
