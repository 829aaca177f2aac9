// Package models defines the entities that flow between the audio file, the local store and the external library.
//
//   - [Track] : one audio file with its external persistent id and the raw, tag-encoded comment field
//   - [Playlist] : a playlist or folder with its ordered member persistent ids
//   - [Tag] and [TagGroup] : tags derived from every track's comment, with optional display grouping
//   - [FieldSnapshot] : the (rating, bpm) pair the external library reports per track
//   - [TrackInfo] : a partial edit where only non-nil fields change
//
// All persisted entities implement [Model]. The [Repository] interface defines the shared read and delete operations.
package models
