package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/factor8/TagDeck/internal/formatter"
	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
	"github.com/factor8/TagDeck/internal/tagcodec"
	"github.com/factor8/TagDeck/internal/tasks"
	"github.com/factor8/TagDeck/internal/watcher"
	"github.com/urfave/cli/v3"
)

// ImportLibrary replaces the local view of the library with a full read from the media library application.
func (r *Runner) ImportLibrary(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	progress, stop := r.followProgress(cmd.Bool("verbose"))
	run, err := r.engine.ImportLibrary(ctx, progress)
	stop()
	if err != nil {
		return fmt.Errorf("failed to import library: %w", err)
	}

	r.writeRun(run)
	return nil
}

// ImportFile imports an exported Library.xml.
func (r *Runner) ImportFile(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		path = r.config.Library.XMLPath
	}
	if path == "" {
		return fmt.Errorf("%w: no Library.xml path given and library.xml_path is empty", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	r.logger.Info("importing library file", "path", path)
	progress, stop := r.followProgress(cmd.Bool("verbose"))
	run, err := r.engine.ImportFile(ctx, shared.ExpandHome(path), progress)
	stop()
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}

	r.writeRun(run)
	return nil
}

// ImportAudio reads tracks straight from audio files.
func (r *Runner) ImportAudio(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("%w: at least one audio file path is required", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	progress, stop := r.followProgress(cmd.Bool("verbose"))
	run, err := r.engine.ImportAudioFiles(ctx, paths, progress)
	stop()
	if err != nil {
		return fmt.Errorf("failed to import audio files: %w", err)
	}

	r.writeRun(run)
	return nil
}

// Sync runs one incremental pass, or keeps syncing on library file changes with --watch.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	lookback := cmd.Duration("since")
	run, err := r.syncOnce(ctx, lookback)
	if err != nil {
		return err
	}

	if !cmd.Bool("watch") {
		if cmd.Bool("json") {
			return r.writeJSON(run, cmd.Bool("pretty"))
		}
		r.writeRun(run)
		return nil
	}

	r.writeRun(run)
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	w, err := r.startWatcher(ctx)
	if err != nil {
		return err
	}
	defer w.Stop()

	r.writePlain("Watching %d paths, press Ctrl+C to stop\n", len(w.Watched()))
	<-ctx.Done()
	return nil
}

// startWatcher runs an incremental pass every time the library files settle after a change.
func (r *Runner) startWatcher(ctx context.Context) (*watcher.Watcher, error) {
	w, err := watcher.New(r.config.Library.Debounce(), func() {
		run, err := r.syncOnce(ctx, 0)
		if err != nil {
			r.logger.Error("sync after library change failed", "error", err)
			return
		}
		if run.ID != "" {
			r.writeRun(run)
		}
	}, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.Start(watcher.DefaultOptions(r.config.Library)); err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}
	return w, nil
}

// syncOnce runs an incremental pass starting at the last recorded sync, or lookback ago when set.
func (r *Runner) syncOnce(ctx context.Context, lookback time.Duration) (*models.SyncRun, error) {
	since, err := r.engine.LastSync()
	if err != nil {
		return nil, fmt.Errorf("failed to read last sync: %w", err)
	}
	if lookback > 0 {
		since = time.Now().Add(-lookback)
	}

	r.logger.Info("syncing recent changes", "since", since)
	run, err := r.engine.SyncRecent(ctx, since, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to sync: %w", err)
	}
	return run, nil
}

// SyncRuns lists recorded passes.
func (r *Runner) SyncRuns(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	runs, err := r.library.SyncRuns(cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list sync runs: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Sync runs (%d)", len(runs)))
	for _, run := range runs {
		r.writePlain("%s  %-12s  tracks %d  fields %d  playlists %d/-%d  errors %d\n",
			run.StartedAt.Local().Format(time.DateTime), run.Kind,
			run.TracksUpdated, run.FieldsUpdated, run.PlaylistsUpdated, run.PlaylistsDeleted, len(run.Errors))
	}
	return nil
}

func (r *Runner) writeRun(run *models.SyncRun) {
	if run.ID == "" {
		r.writePlain("Sync already running, skipped\n")
		return
	}

	r.writePlain("\n")
	r.writePlainHeader(fmt.Sprintf("%s complete", run.Kind))
	r.writePlain("Tracks updated: %d\n", run.TracksUpdated)
	r.writePlain("Fields updated: %d\n", run.FieldsUpdated)
	r.writePlain("Playlists updated: %d\n", run.PlaylistsUpdated)
	r.writePlain("Playlists deleted: %d\n", run.PlaylistsDeleted)
	r.writePlain("Took: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))

	if len(run.Errors) > 0 {
		r.writePlain("\n%d errors:\n", len(run.Errors))
		for _, e := range run.Errors {
			r.writePlain("  - %s\n", e)
		}
	}
}

// TracksList lists tracks matching the search, tag and missing filters.
func (r *Runner) TracksList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	criteria := map[string]any{"search": cmd.String("search")}
	if cmd.Bool("missing") {
		criteria["missing"] = true
	}
	tracks, err := r.library.Tracks(criteria)
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}

	if tag := cmd.String("tag"); tag != "" {
		tracks = filterTag(tracks, tag)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Tracks (%d)", len(tracks)))
	for _, t := range tracks {
		r.writeTrackLine(t)
	}
	return nil
}

func filterTag(tracks []*models.Track, tag string) []*models.Track {
	out := tracks[:0]
	for _, t := range tracks {
		if tagcodec.Decode(t.CommentRaw).Has(tag) {
			out = append(out, t)
		}
	}
	return out
}

func (r *Runner) writeTrackLine(t *models.Track) {
	missing := ""
	if t.Missing {
		missing = " (missing)"
	}
	r.writePlain("%6d  %-50s %6s%s\n", t.ID, t.DisplayName(), formatter.FormatDuration(t.Duration), missing)
	if c := tagcodec.Decode(t.CommentRaw); c.Text != "" || len(c.Tags) > 0 {
		r.writePlain("        %s\n", t.CommentRaw)
	}
}

// TracksShow prints one track as JSON.
func (r *Runner) TracksShow(ctx context.Context, cmd *cli.Command) error {
	ids, err := parseIDs([]string{cmd.StringArg("id")})
	if err != nil {
		return err
	}
	if len(ids) != 1 {
		return fmt.Errorf("%w: one track id is required", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	track, err := r.library.Track(ids[0])
	if err != nil {
		return err
	}
	return r.writeJSON(track, true)
}

// TracksRating sets a track's rating.
func (r *Runner) TracksRating(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("%w: usage: tracks rating <id> <rating>", shared.ErrMissingArgument)
	}
	ids, err := parseIDs(cmd.Args().Slice())
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	if err := r.editor.UpdateRating(ctx, ids[0], int(ids[1])); err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	r.writePlain("✓ Rating of track %d set to %d\n", ids[0], ids[1])
	return nil
}

// TracksEdit applies the given track info flags.
func (r *Runner) TracksEdit(ctx context.Context, cmd *cli.Command) error {
	ids, err := parseIDs([]string{cmd.StringArg("id")})
	if err != nil {
		return err
	}
	if len(ids) != 1 {
		return fmt.Errorf("%w: one track id is required", shared.ErrMissingArgument)
	}

	var info models.TrackInfo
	for name, field := range map[string]**string{"title": &info.Title, "artist": &info.Artist, "album": &info.Album, "comment": &info.Comment} {
		if cmd.IsSet(name) {
			v := cmd.String(name)
			*field = &v
		}
	}
	if cmd.IsSet("bpm") {
		bpm := cmd.Int("bpm")
		info.BPM = &bpm
	}
	if info.IsEmpty() {
		return fmt.Errorf("%w: nothing to edit", shared.ErrMissingArgument)
	}

	if err := r.open(); err != nil {
		return err
	}
	if err := r.editor.UpdateTrackInfo(ctx, ids[0], info); err != nil {
		return fmt.Errorf("failed to edit track: %w", err)
	}
	r.writePlain("✓ Track %d updated\n", ids[0])
	return nil
}

// TracksCheckMissing stats every track's file.
func (r *Runner) TracksCheckMissing(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	progress, stop := r.followProgress(false)
	result, err := r.editor.CheckMissing(ctx, progress, tasks.CheckMissingOpts{NumWorkers: cmd.Int("workers")})
	stop()
	if err != nil {
		return fmt.Errorf("failed to check files: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlainHeader("File check")
	r.writePlain("Checked: %d\nFound: %d\nMissing: %d\nChanged: %d\nFailed: %d\n",
		result.Checked, result.Found, result.Missing, result.Changed, result.Failed)
	for _, t := range result.Tracks {
		r.writePlain("  - %s (%s)\n", t.DisplayName(), t.FilePath)
	}
	return nil
}

// PlaylistsList lists playlists and folders.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	criteria := map[string]any{}
	if cmd.IsSet("parent") {
		criteria["parent"] = cmd.String("parent")
	}
	playlists, err := r.library.Playlists(criteria)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
	for _, p := range playlists {
		if p.IsFolder {
			r.writePlain("%6d  %s/\n", p.ID, p.Name)
			continue
		}
		r.writePlain("%6d  %-40s %d tracks\n", p.ID, p.Name, len(p.TrackIDs))
	}
	return nil
}

// PlaylistsAdd appends tracks to a playlist.
func (r *Runner) PlaylistsAdd(ctx context.Context, cmd *cli.Command) error {
	ids, err := parseIDs(cmd.Args().Slice())
	if err != nil {
		return err
	}
	if len(ids) < 2 {
		return fmt.Errorf("%w: usage: playlists add <playlist-id> <track-id>...", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	result, err := r.editor.AddToPlaylist(ctx, ids[1:], ids[0])
	if err != nil {
		return fmt.Errorf("failed to add to playlist: %w", err)
	}
	r.writeBatch("Added", result)
	return nil
}

// PlaylistsCopy places target tracks after the source track in the source's playlists.
func (r *Runner) PlaylistsCopy(ctx context.Context, cmd *cli.Command) error {
	targets, err := parseIDs([]string{cmd.String("targets")})
	if err != nil {
		return err
	}
	playlists, err := parseIDs([]string{cmd.String("playlists")})
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	opts := tasks.CopyOptions{
		Rating:    cmd.Bool("rating"),
		PlayCount: cmd.Bool("play-count"),
		Comment:   cmd.Bool("comment"),
	}
	result, err := r.editor.CopyPlaylistMemberships(ctx, cmd.Int64("source"), targets, playlists, opts)
	if err != nil {
		return fmt.Errorf("failed to copy playlist memberships: %w", err)
	}
	r.writeBatch("Copied", result)
	return nil
}

func (r *Runner) writeBatch(verb string, result *tasks.BatchResult) {
	r.writePlain("✓ %s: %d updated, %d unchanged, %d failed\n", verb, result.Updated, result.Unchanged, result.Failed)
}

// Stats summarizes the store.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	stats, err := r.library.Stats()
	if err != nil {
		return err
	}
	last, err := r.engine.LastSync()
	if err != nil {
		return fmt.Errorf("failed to read last sync: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			*tasks.Stats
			LastSync time.Time `json:"last_sync"`
		}{stats, last}, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Library")
	r.writePlain("Tracks: %d (%d missing)\nPlaylists: %d\nTags: %d\n", stats.Tracks, stats.Missing, stats.Playlists, stats.Tags)
	if last.IsZero() {
		r.writePlain("Last sync: never\n")
	} else {
		r.writePlain("Last sync: %s\n", last.Local().Format(time.DateTime))
	}
	return nil
}
