// package services defines the [Gateway] to the external media library application
package services

import (
	"context"
	"time"

	"github.com/factor8/TagDeck/internal/models"
)

// Gateway is the capability interface to the external media library.
//
// Every call is independent and best-effort: there are no transactions, and a write may silently no-op.
// Read calls fail with [shared.ErrServiceUnavailable] when the library cannot be reached so that callers
// never mistake "unreachable" for "empty".
type Gateway interface {
	// ChangesSince returns tracks whose modification marker is at or after since.
	// Rating and BPM edits do not move the marker.
	ChangesSince(ctx context.Context, since time.Time) ([]models.Track, error)

	// SnapshotFields returns the (rating, bpm) pair of every library track.
	SnapshotFields(ctx context.Context) ([]models.FieldSnapshot, error)

	// PlaylistSnapshot returns every user playlist and folder, excluding the implicit library playlist.
	PlaylistSnapshot(ctx context.Context) ([]models.Playlist, error)

	// LibraryTracks returns every file track in the library.
	LibraryTracks(ctx context.Context) ([]models.Track, error)

	UpdateComment(ctx context.Context, pid, comment string) error
	// BatchUpdateComments is equivalent to calling UpdateComment for each entry, in fewer round trips.
	BatchUpdateComments(ctx context.Context, updates []models.CommentUpdate) error
	UpdateRating(ctx context.Context, pid string, rating int) error
	UpdateTrackInfo(ctx context.Context, pid string, info models.TrackInfo) error

	AddTrackToPlaylist(ctx context.Context, trackPID, playlistPID string) error
	RemoveTrackFromPlaylist(ctx context.Context, trackPID, playlistPID string) error
	// ReorderPlaylist rewrites the playlist so its members appear in the given order.
	ReorderPlaylist(ctx context.Context, playlistPID string, trackPIDs []string) error

	PlayCount(ctx context.Context, pid string) (int, error)
	SetPlayCount(ctx context.Context, pid string, count int) error

	// Name returns the name of the external library (e.g., "Apple Music")
	Name() string
}
