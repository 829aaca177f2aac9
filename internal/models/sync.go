package models

import (
	"fmt"
	"time"
)

// SyncKind names the kind of pass recorded in the sync history.
type SyncKind string

const (
	SyncIncremental SyncKind = "incremental"
	SyncFullImport  SyncKind = "full_import"
	SyncFileImport  SyncKind = "file_import"
)

// SyncRun is one recorded sync or import pass.
type SyncRun struct {
	ID               string    `json:"id"`
	Kind             SyncKind  `json:"kind"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	TracksUpdated    int       `json:"tracks_updated"`
	FieldsUpdated    int       `json:"fields_updated"`
	PlaylistsUpdated int       `json:"playlists_updated"`
	PlaylistsDeleted int       `json:"playlists_deleted"`
	Errors           []string  `json:"errors,omitempty"`
}

func (r *SyncRun) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("sync run id is required")
	}
	switch r.Kind {
	case SyncIncremental, SyncFullImport, SyncFileImport:
	default:
		return fmt.Errorf("unknown sync kind %q", r.Kind)
	}
	if r.FinishedAt.Before(r.StartedAt) {
		return fmt.Errorf("sync run finished before it started")
	}
	return nil
}

// Changed reports whether the pass wrote anything.
func (r SyncRun) Changed() int {
	return r.TracksUpdated + r.FieldsUpdated + r.PlaylistsUpdated + r.PlaylistsDeleted
}
