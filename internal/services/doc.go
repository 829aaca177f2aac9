// Package services talks to the external media library.
//
// # Gateway
//
// The [Gateway] interface is everything the sync engine and the edit pipeline need from the
// external library: delta and snapshot reads plus best-effort single-item and batched writes.
//
// # Apple Music Implementation
//
// [MusicApp] drives the Music application with JavaScript for Automation scripts run through a
// [ScriptRunner] (osascript in production). Arguments are embedded as JSON literals and every result is
// returned as JSON. Calls are paced by a [rate.Limiter]. When Music is not running, writes are dropped
// and reads fail with [shared.ErrServiceUnavailable].
//
// # Library XML
//
// [ReadLibraryXML] parses an exported "Library.xml" property list into tracks and playlists for imports
// that do not need the application to be running.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrGateway] : a script failed or returned malformed data
//   - [shared.ErrServiceUnavailable] : the library application is not running or is disabled
//   - [shared.ErrInvalidInput] : the library file could not be parsed
package services
