package tasks

import (
	"fmt"
	"slices"
	"strings"

	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/repositories"
	"github.com/factor8/TagDeck/internal/shared"
	"github.com/factor8/TagDeck/internal/tagcodec"
)

// Library answers read queries and manages tag groups.
type Library struct {
	store *repositories.Store
}

func NewLibrary(store *repositories.Store) *Library {
	return &Library{store: store}
}

// Tracks lists stored tracks. See [repositories.TrackRepository.List] for criteria.
func (l *Library) Tracks(criteria map[string]any) ([]*models.Track, error) {
	var tracks []*models.Track
	err := l.store.Do(func() error {
		var err error
		tracks, err = l.store.Tracks.List(criteria)
		return err
	})
	return tracks, err
}

// Track returns one stored track.
func (l *Library) Track(id int64) (*models.Track, error) {
	var track *models.Track
	err := l.store.Do(func() error {
		var err error
		track, err = l.store.Tracks.Get(id)
		return err
	})
	return track, err
}

// Playlists lists stored playlists and folders with their members.
func (l *Library) Playlists(criteria map[string]any) ([]*models.Playlist, error) {
	var playlists []*models.Playlist
	err := l.store.Do(func() error {
		var err error
		playlists, err = l.store.Playlists.List(criteria)
		return err
	})
	return playlists, err
}

// Playlist returns one stored playlist with its members.
func (l *Library) Playlist(id int64) (*models.Playlist, error) {
	var playlist *models.Playlist
	err := l.store.Do(func() error {
		var err error
		playlist, err = l.store.Playlists.Get(id)
		return err
	})
	return playlist, err
}

// PlaylistTracks returns the stored tracks of p in playlist order. Members unknown to the store are skipped.
func (l *Library) PlaylistTracks(p *models.Playlist) ([]*models.Track, error) {
	tracks, err := l.Tracks(map[string]any{"persistent_ids": p.TrackIDs})
	if err != nil {
		return nil, err
	}

	byPID := make(map[string]*models.Track, len(tracks))
	for _, t := range tracks {
		byPID[t.PersistentID] = t
	}
	out := make([]*models.Track, 0, len(tracks))
	for _, pid := range p.TrackIDs {
		if t, ok := byPID[pid]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// Tags rescans every comment and returns each distinct tag with its usage count and group,
// sorted by name without regard to case. The first casing seen wins.
func (l *Library) Tags() ([]models.Tag, error) {
	var (
		comments []string
		groups   map[string]*models.TagGroup
	)
	err := l.store.Do(func() error {
		var err error
		if comments, err = l.store.Tracks.Comments(); err != nil {
			return err
		}
		groups, err = l.store.TagGroups.Assignments()
		return err
	})
	if err != nil {
		return nil, err
	}

	return CountTags(comments, groups), nil
}

// CountTags derives the tag list from raw comment fields.
func CountTags(comments []string, groups map[string]*models.TagGroup) []models.Tag {
	index := make(map[string]int)
	var tags []models.Tag
	for _, raw := range comments {
		seen := make(map[string]bool)
		for _, name := range tagcodec.Tags(raw) {
			key := shared.FoldKey(name)
			if seen[key] {
				continue
			}
			seen[key] = true

			i, ok := index[key]
			if !ok {
				i = len(tags)
				index[key] = i
				tags = append(tags, models.Tag{Name: name, Group: groups[key]})
			}
			tags[i].UsageCount++
		}
	}

	slices.SortFunc(tags, func(a, b models.Tag) int {
		return strings.Compare(shared.FoldKey(a.Name), shared.FoldKey(b.Name))
	})
	return tags
}

// TagGroups lists tag groups in display order.
func (l *Library) TagGroups() ([]*models.TagGroup, error) {
	var groups []*models.TagGroup
	err := l.store.Do(func() error {
		var err error
		groups, err = l.store.TagGroups.List(nil)
		return err
	})
	return groups, err
}

// CreateTagGroup adds a group at the end of the display order.
func (l *Library) CreateTagGroup(name, color string) (*models.TagGroup, error) {
	group := &models.TagGroup{Name: name, Color: color}
	if err := l.store.Do(func() error { return l.store.TagGroups.Create(group) }); err != nil {
		return nil, err
	}
	return group, nil
}

// AssignTag moves tag into the named group. An empty group name removes the assignment.
func (l *Library) AssignTag(tag, groupName string) error {
	if err := tagcodec.ValidateTag(tag); err != nil {
		return err
	}
	return l.store.Do(func() error {
		if groupName == "" {
			return l.store.TagGroups.Unassign(tag)
		}
		group, err := l.store.TagGroups.GetByName(groupName)
		if err != nil {
			return err
		}
		return l.store.TagGroups.Assign(tag, group.ID)
	})
}

// DeleteTagGroup removes a group by name; its tags become ungrouped.
func (l *Library) DeleteTagGroup(name string) error {
	return l.store.Do(func() error {
		group, err := l.store.TagGroups.GetByName(name)
		if err != nil {
			return err
		}
		return l.store.TagGroups.Delete(group.ID)
	})
}

// SyncRuns lists recorded sync passes, newest first.
func (l *Library) SyncRuns(limit int) ([]*models.SyncRun, error) {
	var runs []*models.SyncRun
	err := l.store.Do(func() error {
		var err error
		runs, err = l.store.SyncRuns.List(map[string]any{"limit": limit})
		return err
	})
	return runs, err
}

// Stats summarises the store.
type Stats struct {
	Tracks    int `json:"tracks"`
	Missing   int `json:"missing"`
	Playlists int `json:"playlists"`
	Tags      int `json:"tags"`
}

func (l *Library) Stats() (*Stats, error) {
	tags, err := l.Tags()
	if err != nil {
		return nil, err
	}

	stats := &Stats{Tags: len(tags)}
	err = l.store.Do(func() error {
		var err error
		if stats.Tracks, err = l.store.Tracks.Count(); err != nil {
			return err
		}
		missing, err := l.store.Tracks.List(map[string]any{"missing": true})
		if err != nil {
			return err
		}
		stats.Missing = len(missing)

		playlists, err := l.store.Playlists.List(map[string]any{"folders": false})
		if err != nil {
			return err
		}
		stats.Playlists = len(playlists)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect stats: %w", err)
	}
	return stats, nil
}
