package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
)

// PlaylistRepository implements models.Repository[*models.Playlist].
//
// Membership is stored as an ordered list of track persistent ids in playlist_tracks.
// Every write replaces the whole list so positions stay dense.
type PlaylistRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Playlist] = (*PlaylistRepository)(nil)

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Upsert inserts the playlist or replaces the row with the same persistent id, including its membership.
func (r *PlaylistRepository) Upsert(playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return withTx(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO playlists (persistent_id, parent_persistent_id, name, is_folder)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(persistent_id) DO UPDATE SET
				parent_persistent_id = excluded.parent_persistent_id,
				name = excluded.name,
				is_folder = excluded.is_folder
		`, playlist.PersistentID, playlist.ParentPersistentID, playlist.Name, boolInt(playlist.IsFolder))
		if err != nil {
			return fmt.Errorf("%w: failed to upsert playlist %s: %v", shared.ErrStore, playlist.PersistentID, err)
		}

		if err := tx.QueryRow("SELECT id FROM playlists WHERE persistent_id = ?", playlist.PersistentID).Scan(&playlist.ID); err != nil {
			return fmt.Errorf("%w: failed to read playlist id: %v", shared.ErrStore, err)
		}

		return replaceMembers(tx, playlist.ID, playlist.TrackIDs)
	})
}

// Get retrieves a playlist with its members by local ID.
func (r *PlaylistRepository) Get(id int64) (*models.Playlist, error) {
	row := r.db.QueryRow("SELECT id, persistent_id, parent_persistent_id, name, is_folder FROM playlists WHERE id = ?", id)
	return r.load(row, fmt.Sprintf("id %d", id))
}

// GetByPersistentID retrieves a playlist with its members by external persistent id.
func (r *PlaylistRepository) GetByPersistentID(pid string) (*models.Playlist, error) {
	row := r.db.QueryRow("SELECT id, persistent_id, parent_persistent_id, name, is_folder FROM playlists WHERE persistent_id = ?", pid)
	return r.load(row, "persistent id "+pid)
}

func (r *PlaylistRepository) load(row *sql.Row, ref string) (*models.Playlist, error) {
	playlist, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, ref)
	}
	if err != nil {
		return nil, err
	}

	members, err := r.members(playlist.ID)
	if err != nil {
		return nil, err
	}
	playlist.TrackIDs = members
	return playlist, nil
}

// Delete removes a playlist and its membership by local ID.
func (r *PlaylistRepository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete playlist %d: %v", shared.ErrStore, id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: id %d", shared.ErrPlaylistNotFound, id)
	}
	return nil
}

// DeleteByPersistentID removes a playlist and its membership by persistent id.
func (r *PlaylistRepository) DeleteByPersistentID(pid string) error {
	result, err := r.db.Exec("DELETE FROM playlists WHERE persistent_id = ?", pid)
	if err != nil {
		return fmt.Errorf("%w: failed to delete playlist %s: %v", shared.ErrStore, pid, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: persistent id %s", shared.ErrPlaylistNotFound, pid)
	}
	return nil
}

// List retrieves playlists with their members, ordered by name.
//
// Supported criteria: "parent" (string persistent id, "" for top level), "contains" (track persistent id),
// "folders" (bool).
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.Playlist, error) {
	query := "SELECT id, persistent_id, parent_persistent_id, name, is_folder FROM playlists WHERE 1 = 1"
	args := []any{}

	if parent, ok := criteria["parent"].(string); ok {
		query += " AND parent_persistent_id = ?"
		args = append(args, parent)
	}

	if pid, ok := criteria["contains"].(string); ok && pid != "" {
		query += " AND id IN (SELECT playlist_id FROM playlist_tracks WHERE track_persistent_id = ?)"
		args = append(args, pid)
	}

	if folders, ok := criteria["folders"].(bool); ok {
		query += " AND is_folder = ?"
		args = append(args, boolInt(folders))
	}

	query += " ORDER BY name COLLATE NOCASE, id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query playlists: %v", shared.ErrStore, err)
	}

	var playlists []*models.Playlist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	members, err := r.allMembers()
	if err != nil {
		return nil, err
	}
	for _, p := range playlists {
		p.TrackIDs = members[p.ID]
	}

	return playlists, nil
}

// Snapshot returns every stored playlist keyed by persistent id.
func (r *PlaylistRepository) Snapshot() (map[string]models.Playlist, error) {
	playlists, err := r.List(nil)
	if err != nil {
		return nil, err
	}

	snapshot := make(map[string]models.Playlist, len(playlists))
	for _, p := range playlists {
		snapshot[p.PersistentID] = *p
	}
	return snapshot, nil
}

// AddTracks appends pids that are not already members. It returns the pids actually added.
func (r *PlaylistRepository) AddTracks(id int64, pids []string) ([]string, error) {
	var added []string
	err := withTx(r.db, func(tx *sql.Tx) error {
		current, isFolder, err := membersTx(tx, id)
		if err != nil {
			return err
		}
		if isFolder {
			return fmt.Errorf("%w: playlist %d is a folder", shared.ErrInvalidInput, id)
		}

		for _, pid := range pids {
			if pid == "" || slices.Contains(current, pid) {
				continue
			}
			current = append(current, pid)
			added = append(added, pid)
		}
		if len(added) == 0 {
			return nil
		}
		return replaceMembers(tx, id, current)
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// InsertTrackAfter places pid right after anchor, or appends it when anchor is not a member.
// It reports whether pid was added; an existing member is left where it is.
func (r *PlaylistRepository) InsertTrackAfter(id int64, pid, anchor string) (bool, error) {
	var inserted bool
	err := withTx(r.db, func(tx *sql.Tx) error {
		current, isFolder, err := membersTx(tx, id)
		if err != nil {
			return err
		}
		if isFolder {
			return fmt.Errorf("%w: playlist %d is a folder", shared.ErrInvalidInput, id)
		}
		if slices.Contains(current, pid) {
			return nil
		}

		at := len(current)
		if i := slices.Index(current, anchor); i >= 0 {
			at = i + 1
		}
		inserted = true
		return replaceMembers(tx, id, slices.Insert(current, at, pid))
	})
	return inserted, err
}

// RemoveTracks removes every occurrence of pids from the playlist.
func (r *PlaylistRepository) RemoveTracks(id int64, pids []string) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		current, _, err := membersTx(tx, id)
		if err != nil {
			return err
		}
		kept := slices.DeleteFunc(current, func(pid string) bool { return slices.Contains(pids, pid) })
		return replaceMembers(tx, id, kept)
	})
}

func (r *PlaylistRepository) members(id int64) ([]string, error) {
	rows, err := r.db.Query("SELECT track_persistent_id FROM playlist_tracks WHERE playlist_id = ? ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query playlist members: %v", shared.ErrStore, err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *PlaylistRepository) allMembers() (map[int64][]string, error) {
	rows, err := r.db.Query("SELECT playlist_id, track_persistent_id FROM playlist_tracks ORDER BY playlist_id, position")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query playlist members: %v", shared.ErrStore, err)
	}
	defer rows.Close()

	members := make(map[int64][]string)
	for rows.Next() {
		var (
			id  int64
			pid string
		)
		if err := rows.Scan(&id, &pid); err != nil {
			return nil, fmt.Errorf("failed to scan playlist member: %w", err)
		}
		members[id] = append(members[id], pid)
	}
	return members, rows.Err()
}

func membersTx(q querier, id int64) ([]string, bool, error) {
	var isFolder int
	err := q.QueryRow("SELECT is_folder FROM playlists WHERE id = ?", id).Scan(&isFolder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("%w: id %d", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to read playlist %d: %v", shared.ErrStore, id, err)
	}

	rows, err := q.Query("SELECT track_persistent_id FROM playlist_tracks WHERE playlist_id = ? ORDER BY position", id)
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to query playlist members: %v", shared.ErrStore, err)
	}
	defer rows.Close()

	members, err := scanMembers(rows)
	return members, isFolder != 0, err
}

func replaceMembers(q querier, id int64, pids []string) error {
	if _, err := q.Exec("DELETE FROM playlist_tracks WHERE playlist_id = ?", id); err != nil {
		return fmt.Errorf("%w: failed to clear playlist members: %v", shared.ErrStore, err)
	}
	for pos, pid := range pids {
		if _, err := q.Exec("INSERT INTO playlist_tracks (playlist_id, track_persistent_id, position) VALUES (?, ?, ?)", id, pid, pos); err != nil {
			return fmt.Errorf("%w: failed to insert playlist member: %v", shared.ErrStore, err)
		}
	}
	return nil
}

func scanMembers(rows *sql.Rows) ([]string, error) {
	var pids []string
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("failed to scan playlist member: %w", err)
		}
		pids = append(pids, pid)
	}
	return pids, rows.Err()
}

func scanPlaylist(row rowScanner) (*models.Playlist, error) {
	var (
		p        models.Playlist
		isFolder int
	)
	err := row.Scan(&p.ID, &p.PersistentID, &p.ParentPersistentID, &p.Name, &isFolder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}
	p.IsFolder = isFolder != 0
	return &p, nil
}
