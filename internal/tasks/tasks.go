package tasks

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/factor8/TagDeck/internal/audiofile"
	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/repositories"
	"github.com/factor8/TagDeck/internal/services"
	"github.com/factor8/TagDeck/internal/shared"
)

// maxRecordedErrors bounds the per-item errors kept on a sync run; the rest are only logged.
const maxRecordedErrors = 50

// SyncEngine reconciles the external library into the local store.
//
// Only one pass runs at a time. A full import attempted while busy fails with [shared.ErrSyncInProgress];
// an incremental pass attempted while busy returns an empty run.
type SyncEngine struct {
	store   *repositories.Store
	gateway services.Gateway
	probe   Prober
	logger  *log.Logger
	busy    atomic.Bool
	now     func() time.Time
}

// Prober reads an audio file into a track.
type Prober interface {
	Probe(path string) (*models.Track, error)
}

var _ Prober = (*audiofile.Taglib)(nil)

// NewSyncEngine creates a SyncEngine. probe may be nil when file imports are not needed.
func NewSyncEngine(store *repositories.Store, gateway services.Gateway, probe Prober, logger *log.Logger) *SyncEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SyncEngine{
		store:   store,
		gateway: gateway,
		probe:   probe,
		logger:  shared.WithLogger(logger, "component", "sync"),
		now:     time.Now,
	}
}

// Busy reports whether a pass is running.
func (e *SyncEngine) Busy() bool {
	return e.busy.Load()
}

// LastSync returns the start time of the latest recorded pass.
func (e *SyncEngine) LastSync() (time.Time, error) {
	var last time.Time
	err := e.store.Do(func() error {
		var err error
		last, err = e.store.SyncRuns.LastStarted()
		return err
	})
	return last, err
}

// SyncRecent runs the three reconciliation phases. A zero since means "since the last recorded pass".
//
// Phase failures are logged and collected on the returned run; they never stop later phases.
func (e *SyncEngine) SyncRecent(ctx context.Context, since time.Time, progress chan<- ProgressUpdate) (*models.SyncRun, error) {
	if !e.busy.CompareAndSwap(false, true) {
		e.logger.Debug("sync skipped, another pass is running")
		return &models.SyncRun{Kind: models.SyncIncremental}, nil
	}
	defer e.busy.Store(false)

	if since.IsZero() {
		last, err := e.LastSync()
		if err != nil {
			return nil, err
		}
		since = last
	}

	run := e.newRun(models.SyncIncremental)
	e.logger.Info("sync started", "since", since.Format(time.RFC3339))

	sendProgress(progress, fetchChangesUpdate(e.gateway.Name()))
	deltaOK := e.syncTrackChanges(ctx, since, run)

	sendProgress(progress, diffFieldsUpdate(e.gateway.Name()))
	e.syncFields(ctx, run)

	sendProgress(progress, diffPlaylistsUpdate(e.gateway.Name()))
	if playlists, err := e.gateway.PlaylistSnapshot(ctx); err != nil {
		e.fail(run, "playlist snapshot", err)
	} else {
		e.reconcilePlaylists(playlists, run)
	}

	// A failed delta must not move the next lower bound past changes that were never read.
	if deltaOK {
		e.finish(run)
	} else {
		run.FinishedAt = e.now()
	}
	sendProgress(progress, finishedUpdate(run))
	e.logger.Info("sync finished", "tracks", run.TracksUpdated, "fields", run.FieldsUpdated,
		"playlists", run.PlaylistsUpdated, "deleted", run.PlaylistsDeleted, "errors", len(run.Errors))
	return run, nil
}

// ImportLibrary replaces the local view with every track and playlist of the external library.
func (e *SyncEngine) ImportLibrary(ctx context.Context, progress chan<- ProgressUpdate) (*models.SyncRun, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, shared.ErrSyncInProgress
	}
	defer e.busy.Store(false)

	run := e.newRun(models.SyncFullImport)

	tracks, err := e.gateway.LibraryTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read library tracks: %w", err)
	}
	e.importTracks(tracks, run, progress)

	playlists, err := e.gateway.PlaylistSnapshot(ctx)
	if err != nil {
		e.fail(run, "playlist snapshot", err)
	} else {
		sendProgress(progress, importPlaylistsUpdate(len(playlists)))
		e.reconcilePlaylists(playlists, run)
	}

	e.finish(run)
	sendProgress(progress, finishedUpdate(run))
	return run, nil
}

// ImportFile imports tracks and playlists from an exported library property list.
func (e *SyncEngine) ImportFile(ctx context.Context, path string, progress chan<- ProgressUpdate) (*models.SyncRun, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, shared.ErrSyncInProgress
	}
	defer e.busy.Store(false)

	lib, err := services.ReadLibraryXML(path)
	if err != nil {
		return nil, err
	}

	run := e.newRun(models.SyncFileImport)
	e.importTracks(lib.Tracks, run, progress)

	sendProgress(progress, importPlaylistsUpdate(len(lib.Playlists)))
	e.reconcilePlaylists(lib.Playlists, run)

	e.finish(run)
	sendProgress(progress, finishedUpdate(run))
	e.logger.Info("library file imported", "path", path, "tracks", run.TracksUpdated, "playlists", run.PlaylistsUpdated)
	return run, nil
}

// ImportAudioFiles adds audio files the external library does not know about. They are stored
// without a persistent id; paths already in the store are skipped.
func (e *SyncEngine) ImportAudioFiles(ctx context.Context, paths []string, progress chan<- ProgressUpdate) (*models.SyncRun, error) {
	if e.probe == nil {
		return nil, fmt.Errorf("%w: no audio file reader configured", shared.ErrNotImplemented)
	}
	if !e.busy.CompareAndSwap(false, true) {
		return nil, shared.ErrSyncInProgress
	}
	defer e.busy.Store(false)

	run := e.newRun(models.SyncFileImport)
	for i, path := range paths {
		if ctx.Err() != nil {
			e.fail(run, "import files", ctx.Err())
			break
		}

		track, err := e.probe.Probe(path)
		if err != nil {
			e.fail(run, path, err)
			continue
		}
		sendProgress(progress, importTracksUpdate(i+1, len(paths), track))

		err = e.store.Do(func() error {
			existing, err := e.store.Tracks.List(map[string]any{"file_path": path})
			if err != nil || len(existing) > 0 {
				return err
			}
			if err := e.store.Tracks.Create(track); err != nil {
				return err
			}
			run.TracksUpdated++
			return nil
		})
		if err != nil {
			e.fail(run, path, err)
		}
	}

	e.finish(run)
	sendProgress(progress, finishedUpdate(run))
	return run, nil
}

// syncTrackChanges is phase 1. It reports whether the delta could be read.
func (e *SyncEngine) syncTrackChanges(ctx context.Context, since time.Time, run *models.SyncRun) bool {
	tracks, err := e.gateway.ChangesSince(ctx, since)
	if err != nil {
		e.fail(run, "changed tracks", err)
		return false
	}

	for i := range tracks {
		e.upsertTrack(&tracks[i], run)
	}
	return true
}

// syncFields is phase 2: rating and BPM are not covered by the delta, so compare a full snapshot.
func (e *SyncEngine) syncFields(ctx context.Context, run *models.SyncRun) {
	external, err := e.gateway.SnapshotFields(ctx)
	if err != nil {
		e.fail(run, "field snapshot", err)
		return
	}

	var local map[string]models.FieldSnapshot
	if err := e.store.Do(func() error {
		local, err = e.store.Tracks.FieldSnapshot()
		return err
	}); err != nil {
		e.fail(run, "field snapshot", err)
		return
	}

	for _, ext := range external {
		stored, ok := local[ext.PersistentID]
		if !ok || (stored.Rating == ext.Rating && stored.BPM == ext.BPM) {
			continue
		}

		err := e.store.Do(func() error { return e.store.Tracks.UpdateSnapshotFields(ext) })
		if err != nil {
			e.fail(run, ext.PersistentID, err)
			continue
		}
		run.FieldsUpdated++
	}
}

// reconcilePlaylists is phase 3: drop playlists that disappeared, then upsert the ones whose
// state differs from the stored snapshot. Member lists are filtered to known tracks first.
func (e *SyncEngine) reconcilePlaylists(external []models.Playlist, run *models.SyncRun) {
	if err := checkAcyclic(external); err != nil {
		e.fail(run, "playlist snapshot", err)
		return
	}

	var (
		known map[string]struct{}
		local map[string]models.Playlist
	)
	err := e.store.Do(func() error {
		var err error
		if known, err = e.store.Tracks.KnownPersistentIDs(); err != nil {
			return err
		}
		local, err = e.store.Playlists.Snapshot()
		return err
	})
	if err != nil {
		e.fail(run, "playlist snapshot", err)
		return
	}

	present := make(map[string]struct{}, len(external))
	for _, p := range external {
		present[p.PersistentID] = struct{}{}
	}

	for pid := range local {
		if _, ok := present[pid]; ok {
			continue
		}
		if err := e.store.Do(func() error { return e.store.Playlists.DeleteByPersistentID(pid) }); err != nil {
			e.fail(run, pid, err)
			continue
		}
		run.PlaylistsDeleted++
	}

	for _, p := range external {
		p.TrackIDs = filterKnown(p.TrackIDs, known)
		if p.IsFolder {
			p.TrackIDs = nil
		}

		if stored, ok := local[p.PersistentID]; ok && stored.SameState(p) {
			continue
		}

		if err := e.store.Do(func() error { return e.store.Playlists.Upsert(&p) }); err != nil {
			e.fail(run, p.PersistentID, err)
			continue
		}
		run.PlaylistsUpdated++
	}
}

func (e *SyncEngine) importTracks(tracks []models.Track, run *models.SyncRun, progress chan<- ProgressUpdate) {
	sendProgress(progress, importTracksUpdate(0, len(tracks), nil))
	for i := range tracks {
		sendProgress(progress, importTracksUpdate(i+1, len(tracks), &tracks[i]))
		e.upsertTrack(&tracks[i], run)
	}
}

func (e *SyncEngine) upsertTrack(track *models.Track, run *models.SyncRun) {
	var changed bool
	err := e.store.Do(func() error {
		var err error
		changed, err = e.store.Tracks.Upsert(track)
		return err
	})
	if err != nil {
		e.fail(run, track.PersistentID, err)
		return
	}
	if changed {
		run.TracksUpdated++
	}
}

func (e *SyncEngine) newRun(kind models.SyncKind) *models.SyncRun {
	return &models.SyncRun{
		ID:        shared.GenerateID(),
		Kind:      kind,
		StartedAt: e.now(),
	}
}

func (e *SyncEngine) finish(run *models.SyncRun) {
	run.FinishedAt = e.now()
	if err := e.store.Do(func() error { return e.store.SyncRuns.Create(run) }); err != nil {
		e.logger.Error("failed to record sync run", "id", run.ID, "error", err)
	}
}

func (e *SyncEngine) fail(run *models.SyncRun, item string, err error) {
	e.logger.Warn("sync step failed", "run", run.ID, "item", item, "error", err)
	if len(run.Errors) < maxRecordedErrors {
		run.Errors = append(run.Errors, fmt.Sprintf("%s: %v", item, err))
	}
}

func filterKnown(pids []string, known map[string]struct{}) []string {
	var out []string
	for _, pid := range pids {
		if _, ok := known[pid]; ok {
			out = append(out, pid)
		}
	}
	return out
}

// checkAcyclic rejects snapshots whose parent links do not form a forest.
func checkAcyclic(playlists []models.Playlist) error {
	parent := make(map[string]string, len(playlists))
	for _, p := range playlists {
		parent[p.PersistentID] = p.ParentPersistentID
	}

	for _, p := range playlists {
		cur := p.ParentPersistentID
		for steps := 0; cur != ""; steps++ {
			if cur == p.PersistentID || steps > len(playlists) {
				return fmt.Errorf("%w: %s", shared.ErrCyclicPlaylist, p.PersistentID)
			}
			cur = parent[cur]
		}
	}
	return nil
}
