// Package repositories implements SQLite persistence for the local track cache.
//
// Key Implementations:
//   - [Store] : the single lock around the database handle plus every repository
//   - [TrackRepository] : tracks keyed by local id and by external persistent id, with the (rating, bpm) snapshot query
//   - [PlaylistRepository] : playlists and folders with ordered membership, and the playlist graph snapshot query
//   - [TagGroupRepository] : display groups for derived tags
//   - [SyncRunRepository] : history of sync and import passes
//
// Writes from the external library are upserts keyed by persistent id and report whether anything changed,
// so a repeated sync with no external edits performs no writes.
package repositories
