package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
)

const trackColumns = `id, persistent_id, file_path, artist, title, album, comment_raw, duration, format,
	size, bit_rate, modified_at, rating, date_added, bpm, missing`

// TrackRepository implements models.Repository[*models.Track].
//
// Tracks are keyed locally by an integer id and externally by persistent id.
// External passes upsert by persistent id; local edits address tracks by id.
type TrackRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Track] = (*TrackRepository)(nil)

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a track and sets its local ID.
func (r *TrackRepository) Create(track *models.Track) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result, err := r.db.Exec(`
		INSERT INTO tracks (persistent_id, file_path, artist, title, album, comment_raw, duration, format,
			size, bit_rate, modified_at, rating, date_added, bpm, missing)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		track.PersistentID, track.FilePath, track.Artist, track.Title, track.Album, track.CommentRaw,
		track.Duration, track.Format, track.Size, track.BitRate, track.ModifiedAt, track.Rating,
		track.DateAdded, track.BPM, boolInt(track.Missing),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert track: %v", shared.ErrStore, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: failed to read track id: %v", shared.ErrStore, err)
	}
	track.ID = id
	return nil
}

// Get retrieves a track by local ID.
func (r *TrackRepository) Get(id int64) (*models.Track, error) {
	row := r.db.QueryRow("SELECT "+trackColumns+" FROM tracks WHERE id = ?", id)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", shared.ErrTrackNotFound, id)
	}
	return track, err
}

// GetByPersistentID retrieves a track by its external persistent id.
func (r *TrackRepository) GetByPersistentID(pid string) (*models.Track, error) {
	if pid == "" {
		return nil, fmt.Errorf("%w: empty persistent id", shared.ErrTrackNotFound)
	}
	row := r.db.QueryRow("SELECT "+trackColumns+" FROM tracks WHERE persistent_id = ?", pid)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: persistent id %s", shared.ErrTrackNotFound, pid)
	}
	return track, err
}

// Upsert inserts track or overwrites the externally sourced fields of the row with the same persistent id.
//
// The local ID and missing flag of an existing row are preserved and copied back into track.
// It reports whether a write happened; a row already equal to track is left alone.
func (r *TrackRepository) Upsert(track *models.Track) (bool, error) {
	if track.PersistentID == "" {
		return false, fmt.Errorf("%w: upsert requires a persistent id", shared.ErrInvalidInput)
	}

	existing, err := r.GetByPersistentID(track.PersistentID)
	if errors.Is(err, shared.ErrTrackNotFound) {
		return true, r.Create(track)
	}
	if err != nil {
		return false, err
	}

	track.ID = existing.ID
	track.Missing = existing.Missing
	if existing.SameExternal(*track) {
		return false, nil
	}

	if err := track.Validate(); err != nil {
		return false, fmt.Errorf("validation failed: %w", err)
	}

	_, err = r.db.Exec(`
		UPDATE tracks
		SET file_path = ?, artist = ?, title = ?, album = ?, comment_raw = ?, duration = ?, format = ?,
			size = ?, bit_rate = ?, modified_at = ?, rating = ?, date_added = ?, bpm = ?
		WHERE id = ?
	`,
		track.FilePath, track.Artist, track.Title, track.Album, track.CommentRaw, track.Duration, track.Format,
		track.Size, track.BitRate, track.ModifiedAt, track.Rating, track.DateAdded, track.BPM, track.ID,
	)
	if err != nil {
		return false, fmt.Errorf("%w: failed to update track %s: %v", shared.ErrStore, track.PersistentID, err)
	}
	return true, nil
}

// UpdateComment replaces the raw comment field of one track.
func (r *TrackRepository) UpdateComment(id int64, raw string) error {
	return r.exec(id, "UPDATE tracks SET comment_raw = ? WHERE id = ?", raw, id)
}

// UpdateRating sets the 0-100 rating of one track.
func (r *TrackRepository) UpdateRating(id int64, rating int) error {
	if rating < 0 || rating > 100 {
		return fmt.Errorf("%w: rating %d out of range 0-100", shared.ErrInvalidInput, rating)
	}
	return r.exec(id, "UPDATE tracks SET rating = ? WHERE id = ?", rating, id)
}

// UpdateSnapshotFields writes the rating and BPM reported by the external library.
func (r *TrackRepository) UpdateSnapshotFields(snap models.FieldSnapshot) error {
	result, err := r.db.Exec("UPDATE tracks SET rating = ?, bpm = ? WHERE persistent_id = ?", snap.Rating, snap.BPM, snap.PersistentID)
	if err != nil {
		return fmt.Errorf("%w: failed to update fields of %s: %v", shared.ErrStore, snap.PersistentID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: persistent id %s", shared.ErrTrackNotFound, snap.PersistentID)
	}
	return nil
}

// UpdateInfo applies a partial edit to one track.
func (r *TrackRepository) UpdateInfo(id int64, info models.TrackInfo) error {
	if info.IsEmpty() {
		return nil
	}

	track, err := r.Get(id)
	if err != nil {
		return err
	}
	info.Apply(track)
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return r.exec(id, `
		UPDATE tracks SET title = ?, artist = ?, album = ?, comment_raw = ?, bpm = ? WHERE id = ?
	`, track.Title, track.Artist, track.Album, track.CommentRaw, track.BPM, id)
}

// SetMissing records whether the track's file is present on disk.
func (r *TrackRepository) SetMissing(id int64, missing bool) error {
	return r.exec(id, "UPDATE tracks SET missing = ? WHERE id = ?", boolInt(missing), id)
}

// Delete removes a track by local ID.
func (r *TrackRepository) Delete(id int64) error {
	return r.exec(id, "DELETE FROM tracks WHERE id = ?", id)
}

// List retrieves tracks ordered by artist, album and title.
//
// Supported criteria: "missing" (bool), "search" (substring of artist, title or album),
// "file_path" (string), "ids" ([]int64), "persistent_ids" ([]string).
func (r *TrackRepository) List(criteria map[string]any) ([]*models.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE 1 = 1"
	args := []any{}

	if missing, ok := criteria["missing"].(bool); ok {
		query += " AND missing = ?"
		args = append(args, boolInt(missing))
	}

	if search, ok := criteria["search"].(string); ok && search != "" {
		query += " AND (artist LIKE ? OR title LIKE ? OR album LIKE ?)"
		like := "%" + search + "%"
		args = append(args, like, like, like)
	}

	if path, ok := criteria["file_path"].(string); ok && path != "" {
		query += " AND file_path = ?"
		args = append(args, path)
	}

	if ids, ok := criteria["ids"].([]int64); ok {
		if len(ids) == 0 {
			return nil, nil
		}
		query += " AND id IN (" + placeholders(len(ids)) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}

	if pids, ok := criteria["persistent_ids"].([]string); ok {
		if len(pids) == 0 {
			return nil, nil
		}
		query += " AND persistent_id IN (" + placeholders(len(pids)) + ")"
		for _, pid := range pids {
			args = append(args, pid)
		}
	}

	query += " ORDER BY artist COLLATE NOCASE, album COLLATE NOCASE, title COLLATE NOCASE, id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query tracks: %v", shared.ErrStore, err)
	}
	defer rows.Close()

	var tracks []*models.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// Comments returns the raw comment field of every track.
func (r *TrackRepository) Comments() ([]string, error) {
	rows, err := r.db.Query("SELECT comment_raw FROM tracks WHERE comment_raw <> ''")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query comments: %v", shared.ErrStore, err)
	}
	defer rows.Close()

	var comments []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, raw)
	}
	return comments, rows.Err()
}

// FieldSnapshot returns the stored (rating, bpm) pair for every track with a persistent id.
func (r *TrackRepository) FieldSnapshot() (map[string]models.FieldSnapshot, error) {
	rows, err := r.db.Query("SELECT persistent_id, rating, bpm FROM tracks WHERE persistent_id <> ''")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query field snapshot: %v", shared.ErrStore, err)
	}
	defer rows.Close()

	snapshot := make(map[string]models.FieldSnapshot)
	for rows.Next() {
		var s models.FieldSnapshot
		if err := rows.Scan(&s.PersistentID, &s.Rating, &s.BPM); err != nil {
			return nil, fmt.Errorf("failed to scan field snapshot: %w", err)
		}
		snapshot[s.PersistentID] = s
	}
	return snapshot, rows.Err()
}

// KnownPersistentIDs returns the set of persistent ids present in the store.
func (r *TrackRepository) KnownPersistentIDs() (map[string]struct{}, error) {
	rows, err := r.db.Query("SELECT persistent_id FROM tracks WHERE persistent_id <> ''")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query persistent ids: %v", shared.ErrStore, err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("failed to scan persistent id: %w", err)
		}
		known[pid] = struct{}{}
	}
	return known, rows.Err()
}

// Count returns the number of stored tracks.
func (r *TrackRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM tracks").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: failed to count tracks: %v", shared.ErrStore, err)
	}
	return n, nil
}

func (r *TrackRepository) exec(id int64, query string, args ...any) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("%w: track %d: %v", shared.ErrStore, id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: id %d", shared.ErrTrackNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*models.Track, error) {
	var (
		t       models.Track
		missing int
	)

	err := row.Scan(
		&t.ID, &t.PersistentID, &t.FilePath, &t.Artist, &t.Title, &t.Album, &t.CommentRaw, &t.Duration, &t.Format,
		&t.Size, &t.BitRate, &t.ModifiedAt, &t.Rating, &t.DateAdded, &t.BPM, &missing,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	t.Missing = missing != 0
	return &t, nil
}
