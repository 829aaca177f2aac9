package tasks

import (
	"fmt"

	"github.com/factor8/TagDeck/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchChanges Phase = iota
	DiffFields
	DiffPlaylists
	ImportTracks
	ImportPlaylists
	CheckFiles
	Finished
)

func (p Phase) String() string {
	switch p {
	case FetchChanges:
		return "fetch_changes"
	case DiffFields:
		return "diff_fields"
	case DiffPlaylists:
		return "diff_playlists"
	case ImportTracks:
		return "import_tracks"
	case ImportPlaylists:
		return "import_playlists"
	case CheckFiles:
		return "check_files"
	case Finished:
		return "finished"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchChangesUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchChanges,
		Step:    1,
		Total:   3,
		Message: fmt.Sprintf("Fetching changed tracks from %s...", name),
	}
}

func diffFieldsUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DiffFields,
		Step:    2,
		Total:   3,
		Message: fmt.Sprintf("Comparing ratings and BPM with %s...", name),
	}
}

func diffPlaylistsUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DiffPlaylists,
		Step:    3,
		Total:   3,
		Message: fmt.Sprintf("Comparing playlists with %s...", name),
	}
}

func importTracksUpdate(step, total int, tr *models.Track) ProgressUpdate {
	if tr == nil {
		return ProgressUpdate{
			Phase:   ImportTracks,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("Importing %d tracks...", total),
		}
	}
	return ProgressUpdate{
		Phase:   ImportTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, tr.DisplayName()),
	}
}

func importPlaylistsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Importing %d playlists...", total),
	}
}

func checkFileUpdate(step, total int, tr models.Track, missing bool) ProgressUpdate {
	mark := "✓"
	if missing {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   CheckFiles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s", step, total, mark, tr.DisplayName()),
		Data:    tr,
	}
}

func finishedUpdate(run *models.SyncRun) ProgressUpdate {
	return ProgressUpdate{
		Phase: Finished,
		Step:  1,
		Total: 1,
		Message: fmt.Sprintf("Done: %d tracks, %d fields, %d playlists updated, %d playlists deleted",
			run.TracksUpdated, run.FieldsUpdated, run.PlaylistsUpdated, run.PlaylistsDeleted),
		Data: run,
	}
}
