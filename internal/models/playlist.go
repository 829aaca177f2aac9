package models

import (
	"fmt"
	"slices"
)

// Playlist is a playlist or folder mirrored from the external library.
//
// TrackIDs holds member persistent ids in playback order. Folders never carry members.
type Playlist struct {
	ID                 int64    `json:"id"`
	PersistentID       string   `json:"persistent_id"`
	ParentPersistentID string   `json:"parent_persistent_id,omitempty"`
	Name               string   `json:"name"`
	IsFolder           bool     `json:"is_folder"`
	TrackIDs           []string `json:"track_ids"`
}

// Validate checks identity and the folder membership rule.
func (p *Playlist) Validate() error {
	if p.PersistentID == "" {
		return fmt.Errorf("playlist persistent id is required")
	}
	if p.ParentPersistentID == p.PersistentID {
		return fmt.Errorf("playlist %s cannot be its own parent", p.PersistentID)
	}
	if p.IsFolder && len(p.TrackIDs) > 0 {
		return fmt.Errorf("folder %s cannot contain tracks", p.PersistentID)
	}
	return nil
}

// SameState reports whether p and o agree on name, folder flag, parent and ordered membership.
func (p Playlist) SameState(o Playlist) bool {
	return p.Name == o.Name &&
		p.IsFolder == o.IsFolder &&
		p.ParentPersistentID == o.ParentPersistentID &&
		slices.Equal(p.TrackIDs, o.TrackIDs)
}

// Contains reports whether pid is a member of p.
func (p Playlist) Contains(pid string) bool {
	return slices.Contains(p.TrackIDs, pid)
}
