package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Store and file errors
	ErrStore            = fmt.Errorf("store operation failed")
	ErrTagFile          = fmt.Errorf("tag file operation failed")
	ErrTrackNotFound    = fmt.Errorf("track not found")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrTagGroupNotFound = fmt.Errorf("tag group not found")

	// External library errors
	ErrGateway            = fmt.Errorf("external library request failed")
	ErrServiceUnavailable = fmt.Errorf("external library unavailable")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Sync and history errors
	ErrSyncInProgress = fmt.Errorf("sync already in progress")
	ErrCyclicPlaylist = fmt.Errorf("playlist parent graph contains a cycle")
	ErrNothingToUndo  = fmt.Errorf("nothing to undo")
	ErrNothingToRedo  = fmt.Errorf("nothing to redo")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
