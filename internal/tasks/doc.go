// Package tasks keeps audio files, the local store and the external library convergent.
//
// # Core Operations
//
// The [SyncEngine] reconciles external library state into the local store:
//
//  1. [SyncEngine.SyncRecent] : Incremental pass in three phases
//     - Upserts tracks the library reports as changed since the last pass
//     - Diffs a full rating/BPM snapshot, since those edits do not move the change marker
//     - Reconciles playlists: deletes ones that disappeared, upserts ones whose state differs
//
//  2. [SyncEngine.ImportLibrary] : Full import of every library track and playlist
//
//  3. [SyncEngine.ImportFile] : Import from an exported library property list
//
// The [Editor] applies user edits in a fixed order: compute, tag file, local store, external library.
// File or store failures abort the item; external library failures are logged and discarded.
// Reversible edits are recorded on a [History] and replayed by [Editor.Undo] and [Editor.Redo].
//
// # Progress Reporting
//
// Long operations accept a channel of [ProgressUpdate]. Sends never block; a full or nil channel
// drops the update.
//
// # Locking
//
// Every store access goes through [repositories.Store.Do]. File and external library I/O never
// happens under that lock. [History] has its own lock, always taken after the store lock.
package tasks
