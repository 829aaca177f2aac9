package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
)

// SyncRunRepository records the history of sync and import passes.
//
// The start time of the latest pass is the default lower bound of the next incremental sync.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create records a finished pass, generating an ID when none is set.
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	_, err := r.db.Exec(`
		INSERT INTO sync_runs (id, kind, started_at, finished_at, tracks_updated, fields_updated,
			playlists_updated, playlists_deleted, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, string(run.Kind), run.StartedAt.Unix(), run.FinishedAt.Unix(), run.TracksUpdated, run.FieldsUpdated,
		run.PlaylistsUpdated, run.PlaylistsDeleted, strings.Join(run.Errors, "\n"),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert sync run: %v", shared.ErrStore, err)
	}
	return nil
}

// LastStarted returns the start time of the most recent pass, or the zero time if none ran yet.
func (r *SyncRunRepository) LastStarted() (time.Time, error) {
	var started sql.NullInt64
	if err := r.db.QueryRow("SELECT MAX(started_at) FROM sync_runs").Scan(&started); err != nil {
		return time.Time{}, fmt.Errorf("%w: failed to read last sync: %v", shared.ErrStore, err)
	}
	if !started.Valid {
		return time.Time{}, nil
	}
	return time.Unix(started.Int64, 0), nil
}

// Latest returns the most recent pass.
func (r *SyncRunRepository) Latest() (*models.SyncRun, error) {
	runs, err := r.List(map[string]any{"limit": 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no sync has run yet", shared.ErrInvalidInput)
	}
	return runs[0], nil
}

// List retrieves passes newest first.
//
// Supported criteria: "kind" (models.SyncKind), "limit" (int).
func (r *SyncRunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `
		SELECT id, kind, started_at, finished_at, tracks_updated, fields_updated, playlists_updated,
			playlists_deleted, errors
		FROM sync_runs
		WHERE 1 = 1
	`
	args := []any{}

	if kind, ok := criteria["kind"].(models.SyncKind); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}

	query += " ORDER BY started_at DESC, rowid DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query sync runs: %v", shared.ErrStore, err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Get retrieves one pass by ID.
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	row := r.db.QueryRow(`
		SELECT id, kind, started_at, finished_at, tracks_updated, fields_updated, playlists_updated,
			playlists_deleted, errors
		FROM sync_runs WHERE id = ?
	`, id)
	run, err := scanSyncRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sync run %s not found", shared.ErrInvalidInput, id)
	}
	return run, err
}

func scanSyncRun(row rowScanner) (*models.SyncRun, error) {
	var (
		run               models.SyncRun
		kind, errs        string
		started, finished int64
	)
	err := row.Scan(&run.ID, &kind, &started, &finished, &run.TracksUpdated, &run.FieldsUpdated,
		&run.PlaylistsUpdated, &run.PlaylistsDeleted, &errs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	run.Kind = models.SyncKind(kind)
	run.StartedAt = time.Unix(started, 0)
	run.FinishedAt = time.Unix(finished, 0)
	if errs != "" {
		run.Errors = strings.Split(errs, "\n")
	}
	return &run, nil
}
