package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
	"golang.org/x/time/rate"
)

// batchSize bounds how many comment updates are sent in one script.
const batchSize = 200

// MusicApp implements [Gateway] for the macOS Music application.
type MusicApp struct {
	runner  ScriptRunner
	limiter *rate.Limiter
	logger  *log.Logger
}

var _ Gateway = (*MusicApp)(nil)

// NewMusicApp creates a gateway that sends at most rps scripts per second. A non-positive rps disables pacing.
func NewMusicApp(runner ScriptRunner, rps float64, logger *log.Logger) *MusicApp {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MusicApp{
		runner:  runner,
		limiter: rate.NewLimiter(limit, 1),
		logger:  shared.WithLogger(logger, "component", "music"),
	}
}

// Name returns the name of the external library
func (m *MusicApp) Name() string {
	return "Apple Music"
}

// envelope is the JSON shape every script prints.
type envelope struct {
	Offline bool            `json:"offline"`
	Data    json.RawMessage `json:"data"`
	Failed  []string        `json:"failed"`
}

// musicTrack is a file track as reported by the Music scripting dictionary.
type musicTrack struct {
	PID      string  `json:"pid"`
	Path     string  `json:"path"`
	Artist   string  `json:"artist"`
	Title    string  `json:"title"`
	Album    string  `json:"album"`
	Comment  string  `json:"comment"`
	Duration float64 `json:"duration"`
	Size     int64   `json:"size"`
	BitRate  int64   `json:"bitRate"`
	Modified int64   `json:"modified"`
	Rating   int     `json:"rating"`
	Added    int64   `json:"added"`
	BPM      int     `json:"bpm"`
}

func (t musicTrack) toModel() models.Track {
	return models.Track{
		PersistentID: t.PID,
		FilePath:     t.Path,
		Artist:       t.Artist,
		Title:        t.Title,
		Album:        t.Album,
		CommentRaw:   t.Comment,
		Duration:     math.Round(t.Duration*1000) / 1000,
		Format:       models.FormatFromPath(t.Path),
		Size:         t.Size,
		BitRate:      t.BitRate,
		ModifiedAt:   t.Modified,
		Rating:       t.Rating,
		DateAdded:    t.Added,
		BPM:          t.BPM,
	}
}

type musicPlaylist struct {
	PID    string   `json:"pid"`
	Parent string   `json:"parent"`
	Name   string   `json:"name"`
	Folder bool     `json:"folder"`
	Tracks []string `json:"tracks"`
}

type musicField struct {
	PID    string `json:"pid"`
	Rating int    `json:"rating"`
	BPM    int    `json:"bpm"`
}

// ChangesSince returns tracks modified at or after since.
func (m *MusicApp) ChangesSince(ctx context.Context, since time.Time) ([]models.Track, error) {
	return m.tracks(ctx, map[string]any{"all": false, "since": since.Unix()})
}

// LibraryTracks returns every file track.
func (m *MusicApp) LibraryTracks(ctx context.Context) ([]models.Track, error) {
	return m.tracks(ctx, map[string]any{"all": true, "since": 0})
}

func (m *MusicApp) tracks(ctx context.Context, args map[string]any) ([]models.Track, error) {
	var raw []musicTrack
	if err := m.read(ctx, "tracks", tracksScript, args, &raw); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(raw))
	for _, t := range raw {
		if t.PID == "" || t.Path == "" {
			continue
		}
		tracks = append(tracks, t.toModel())
	}
	return tracks, nil
}

// SnapshotFields returns rating and BPM for every file track using parallel property fetches.
func (m *MusicApp) SnapshotFields(ctx context.Context) ([]models.FieldSnapshot, error) {
	var raw []musicField
	if err := m.read(ctx, "snapshot_fields", snapshotScript, nil, &raw); err != nil {
		return nil, err
	}

	snapshot := make([]models.FieldSnapshot, 0, len(raw))
	for _, f := range raw {
		snapshot = append(snapshot, models.FieldSnapshot{PersistentID: f.PID, Rating: f.Rating, BPM: f.BPM})
	}
	return snapshot, nil
}

// PlaylistSnapshot returns user playlists and folders.
func (m *MusicApp) PlaylistSnapshot(ctx context.Context) ([]models.Playlist, error) {
	var raw []musicPlaylist
	if err := m.read(ctx, "playlist_snapshot", playlistsScript, nil, &raw); err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(raw))
	for _, p := range raw {
		pl := models.Playlist{
			PersistentID:       p.PID,
			ParentPersistentID: p.Parent,
			Name:               p.Name,
			IsFolder:           p.Folder,
		}
		if !p.Folder {
			pl.TrackIDs = p.Tracks
		}
		playlists = append(playlists, pl)
	}
	return playlists, nil
}

func (m *MusicApp) UpdateComment(ctx context.Context, pid, comment string) error {
	return m.write(ctx, "update_comment", updateCommentScript, map[string]any{"pid": pid, "comment": comment})
}

// BatchUpdateComments sends updates in chunks; a failing entry does not stop the rest.
func (m *MusicApp) BatchUpdateComments(ctx context.Context, updates []models.CommentUpdate) error {
	var firstErr error
	for start := 0; start < len(updates); start += batchSize {
		end := min(start+batchSize, len(updates))
		err := m.write(ctx, "batch_update_comments", batchCommentsScript, map[string]any{"updates": updates[start:end]})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *MusicApp) UpdateRating(ctx context.Context, pid string, rating int) error {
	return m.write(ctx, "update_rating", updateRatingScript, map[string]any{"pid": pid, "rating": rating})
}

func (m *MusicApp) UpdateTrackInfo(ctx context.Context, pid string, info models.TrackInfo) error {
	if info.IsEmpty() {
		return nil
	}
	return m.write(ctx, "update_track_info", updateInfoScript, map[string]any{"pid": pid, "info": info})
}

func (m *MusicApp) AddTrackToPlaylist(ctx context.Context, trackPID, playlistPID string) error {
	return m.write(ctx, "add_to_playlist", addToPlaylistScript, map[string]any{"track": trackPID, "playlist": playlistPID})
}

func (m *MusicApp) RemoveTrackFromPlaylist(ctx context.Context, trackPID, playlistPID string) error {
	return m.write(ctx, "remove_from_playlist", removeFromPlaylistScript, map[string]any{"track": trackPID, "playlist": playlistPID})
}

func (m *MusicApp) ReorderPlaylist(ctx context.Context, playlistPID string, trackPIDs []string) error {
	return m.write(ctx, "reorder_playlist", reorderPlaylistScript, map[string]any{"playlist": playlistPID, "tracks": trackPIDs})
}

func (m *MusicApp) PlayCount(ctx context.Context, pid string) (int, error) {
	var count int
	if err := m.read(ctx, "play_count", playCountScript, map[string]any{"pid": pid}, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (m *MusicApp) SetPlayCount(ctx context.Context, pid string, count int) error {
	return m.write(ctx, "set_play_count", setPlayCountScript, map[string]any{"pid": pid, "count": count})
}

// read runs a query script. An offline application is an error so callers never treat it as an empty library.
func (m *MusicApp) read(ctx context.Context, op, body string, args, out any) error {
	env, err := m.run(ctx, op, body, args)
	if err != nil {
		return err
	}
	if env.Offline {
		return fmt.Errorf("%w: %s is not running", shared.ErrServiceUnavailable, m.Name())
	}
	if len(env.Failed) > 0 {
		return fmt.Errorf("%w: %s: not found: %v", shared.ErrGateway, op, env.Failed)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %s: failed to decode response: %v", shared.ErrGateway, op, err)
	}
	return nil
}

// write runs a mutation script. Writes to an offline application are dropped.
func (m *MusicApp) write(ctx context.Context, op, body string, args any) error {
	env, err := m.run(ctx, op, body, args)
	if err != nil {
		return err
	}
	if env.Offline {
		m.logger.Debug("skipping write, application not running", "op", op)
		return nil
	}
	if len(env.Failed) > 0 {
		return fmt.Errorf("%w: %s: %d item(s) not applied: %v", shared.ErrGateway, op, len(env.Failed), env.Failed)
	}
	return nil
}

func (m *MusicApp) run(ctx context.Context, op, body string, args any) (*envelope, error) {
	script, err := buildScript(body, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrGateway, op, err)
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrTimeout, op, err)
	}

	started := time.Now()
	out, err := m.runner.Run(ctx, script)
	m.logger.Debug("script finished", "op", op, "duration", time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrGateway, op, err)
	}

	var env envelope
	if err := json.Unmarshal(bytes.TrimSpace(out), &env); err != nil {
		return nil, fmt.Errorf("%w: %s: malformed response: %v", shared.ErrGateway, op, err)
	}
	return &env, nil
}
