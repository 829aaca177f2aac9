// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a tag editor over the local library:
//  1. [TrackListView] : Browse tracks with their tags, filter with /
//  2. [TagListView] : Browse tags with usage counts and pick one to narrow the track list
//  3. [TagInputView] : Type a tag to add to or remove from the selected track
//  4. [HistoryView] : Show the undo and redo stacks of this session
//
// Edits go through the [tasks.Editor], so undo (u) and redo (r) work across every view
// for the lifetime of the program. Sync (s) runs an incremental pass and streams its
// progress into the status line.
//
// The (view) [Model] implements the standard Init/Update/View pattern, receiving messages via the Msg union type.
package ui
