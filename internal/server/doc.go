// Package server exposes the editor, the sync engine and library queries as a local JSON API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /api/tracks/{id}"), so requests
// with the wrong method get 405 from the mux itself.
//
// # API
//
// [API] implements [Handler] and serves everything below /api/. Request and response bodies are JSON.
// Errors are returned as {"error": "..."} with a status derived from the wrapped sentinel:
//
//	ErrTrackNotFound, ErrPlaylistNotFound, ErrTagGroupNotFound  → 404
//	ErrInvalidInput, ErrMissingArgument, ErrInvalidArgument     → 400
//	ErrSyncInProgress, ErrNothingToUndo, ErrNothingToRedo       → 409
//
// Undo and redo act on the history of the running process, so they are only meaningful on a long-lived server.
//
// # Progress Streaming
//
// GET /api/sync/stream runs an incremental sync and streams its progress as Server-Sent Events:
// one "progress" event per phase and a final "done" event carrying the recorded run.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
