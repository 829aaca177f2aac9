package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
	"github.com/factor8/TagDeck/internal/tagcodec"
	"github.com/factor8/TagDeck/internal/tasks"
)

// API serves the editor, the sync engine and library queries under /api/.
type API struct {
	editor  *tasks.Editor
	engine  *tasks.SyncEngine
	library *tasks.Library
	logger  *log.Logger
	router  *BasicRouter
}

var _ Handler = (*API)(nil)

// NewAPI creates an API and registers its routes.
func NewAPI(editor *tasks.Editor, engine *tasks.SyncEngine, library *tasks.Library, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	a := &API{
		editor:  editor,
		engine:  engine,
		library: library,
		logger:  shared.WithLogger(logger, "component", "api"),
		router:  NewBasicRouter(),
	}

	r := a.router
	r.HandleFunc("GET", "/api/stats", a.stats)

	r.HandleFunc("GET", "/api/tracks", a.listTracks)
	r.HandleFunc("GET", "/api/tracks/{id}", a.getTrack)
	r.HandleFunc("PATCH", "/api/tracks/{id}", a.updateTrackInfo)
	r.HandleFunc("PUT", "/api/tracks/{id}/comment", a.writeComment)
	r.HandleFunc("PUT", "/api/tracks/{id}/text", a.setCommentText)
	r.HandleFunc("PUT", "/api/tracks/{id}/rating", a.updateRating)
	r.HandleFunc("POST", "/api/tracks/{id}/copy-memberships", a.copyMemberships)
	r.HandleFunc("POST", "/api/tracks/check-missing", a.checkMissing)

	r.HandleFunc("GET", "/api/playlists", a.listPlaylists)
	r.HandleFunc("GET", "/api/playlists/{id}", a.getPlaylist)
	r.HandleFunc("POST", "/api/playlists/{id}/tracks", a.addToPlaylist)

	r.HandleFunc("GET", "/api/tags", a.listTags)
	r.HandleFunc("POST", "/api/tags/add", a.addTag)
	r.HandleFunc("POST", "/api/tags/remove", a.removeTag)
	r.HandleFunc("POST", "/api/tags/rename", a.renameTag)
	r.HandleFunc("GET", "/api/tag-groups", a.listTagGroups)
	r.HandleFunc("POST", "/api/tag-groups", a.createTagGroup)
	r.HandleFunc("PUT", "/api/tag-groups/assign", a.assignTag)
	r.HandleFunc("DELETE", "/api/tag-groups/{name}", a.deleteTagGroup)

	r.HandleFunc("POST", "/api/sync", a.sync)
	r.HandleFunc("GET", "/api/sync/stream", a.syncStream)
	r.HandleFunc("GET", "/api/sync/runs", a.syncRuns)
	r.HandleFunc("POST", "/api/import/library", a.importLibrary)
	r.HandleFunc("POST", "/api/import/file", a.importFile)

	r.HandleFunc("GET", "/api/history", a.history)
	r.HandleFunc("POST", "/api/undo", a.undo)
	r.HandleFunc("POST", "/api/redo", a.redo)
	return a
}

func (a *API) Routes() []string { return []string{"/api/"} }

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps a wrapped sentinel to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrTrackNotFound),
		errors.Is(err, shared.ErrPlaylistNotFound),
		errors.Is(err, shared.ErrTagGroupNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrSyncInProgress),
		errors.Is(err, shared.ErrNothingToUndo),
		errors.Is(err, shared.ErrNothingToRedo):
		return http.StatusConflict
	case errors.Is(err, shared.ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an id", shared.ErrInvalidArgument, r.PathValue("id"))
	}
	return id, nil
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.library.Stats()
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) listTracks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := map[string]any{"search": q.Get("search")}
	if v := q.Get("missing"); v != "" {
		missing, err := strconv.ParseBool(v)
		if err != nil {
			a.fail(w, fmt.Errorf("%w: missing must be a boolean", shared.ErrInvalidArgument))
			return
		}
		criteria["missing"] = missing
	}

	tracks, err := a.library.Tracks(criteria)
	if err != nil {
		a.fail(w, err)
		return
	}

	if tag := q.Get("tag"); tag != "" {
		filtered := make([]*models.Track, 0, len(tracks))
		for _, t := range tracks {
			if tagcodec.Decode(t.CommentRaw).Has(tag) {
				filtered = append(filtered, t)
			}
		}
		tracks = filtered
	}
	if tracks == nil {
		tracks = []*models.Track{}
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (a *API) getTrack(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	track, err := a.library.Track(id)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

func (a *API) updateTrackInfo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var info models.TrackInfo
	if err := decode(r, &info); err != nil {
		a.fail(w, err)
		return
	}
	if err := a.editor.UpdateTrackInfo(r.Context(), id, info); err != nil {
		a.fail(w, err)
		return
	}
	a.getTrack(w, r)
}

func (a *API) writeComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var body struct {
		Comment string `json:"comment"`
	}
	if err := decode(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	if err := a.editor.WriteComment(r.Context(), id, body.Comment); err != nil {
		a.fail(w, err)
		return
	}
	a.getTrack(w, r)
}

func (a *API) setCommentText(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := decode(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	if err := a.editor.SetCommentText(r.Context(), id, body.Text); err != nil {
		a.fail(w, err)
		return
	}
	a.getTrack(w, r)
}

func (a *API) updateRating(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var body struct {
		Rating int `json:"rating"`
	}
	if err := decode(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	if err := a.editor.UpdateRating(r.Context(), id, body.Rating); err != nil {
		a.fail(w, err)
		return
	}
	a.getTrack(w, r)
}

func (a *API) copyMemberships(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var body struct {
		Targets   []int64           `json:"targets"`
		Playlists []int64           `json:"playlists"`
		Options   tasks.CopyOptions `json:"options"`
	}
	if err := decode(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	result, err := a.editor.CopyPlaylistMemberships(r.Context(), id, body.Targets, body.Playlists, body.Options)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) checkMissing(w http.ResponseWriter, r *http.Request) {
	result, err := a.editor.CheckMissing(r.Context(), nil, tasks.CheckMissingOpts{})
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) listPlaylists(w http.ResponseWriter, r *http.Request) {
	criteria := map[string]any{}
	if r.URL.Query().Has("parent") {
		criteria["parent"] = r.URL.Query().Get("parent")
	}
	playlists, err := a.library.Playlists(criteria)
	if err != nil {
		a.fail(w, err)
		return
	}
	if playlists == nil {
		playlists = []*models.Playlist{}
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (a *API) getPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	playlist, err := a.library.Playlist(id)
	if err != nil {
		a.fail(w, err)
		return
	}
	tracks, err := a.library.PlaylistTracks(playlist)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*models.Playlist
		Tracks []*models.Track `json:"tracks"`
	}{playlist, tracks})
}

func (a *API) addToPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	var body struct {
		TrackIDs []int64 `json:"track_ids"`
	}
	if err := decode(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	result, err := a.editor.AddToPlaylist(r.Context(), body.TrackIDs, id)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := a.library.Tags()
	if err != nil {
		a.fail(w, err)
		return
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

type tagRequest struct {
	Tag      string  `json:"tag"`
	TrackIDs []int64 `json:"track_ids"`
}

func (a *API) addTag(w http.ResponseWriter, r *http.Request) {
	var body tagRequest
	if err := decode(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	result, err := a.editor.BatchAddTag(r.Context(), body.TrackIDs, body.Tag)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) removeTag(w http.ResponseWriter, r *http.Request) {
	var body tagRequest
	if err := decode(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	result, err := a.editor.BatchRemoveTag(r.Context(), body.TrackIDs, body.Tag)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) renameTag(w http.ResponseWriter, r *http.Request) {
	var body struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := decode(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	result, err := a.editor.RenameTag(r.Context(), body.From, body.To)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) listTagGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := a.library.TagGroups()
	if err != nil {
		a.fail(w, err)
		return
	}
	if groups == nil {
		groups = []*models.TagGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (a *API) createTagGroup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := decode(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	group, err := a.library.CreateTagGroup(body.Name, body.Color)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (a *API) assignTag(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tag   string `json:"tag"`
		Group string `json:"group"`
	}
	if err := decode(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	if err := a.library.AssignTag(body.Tag, body.Group); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteTagGroup(w http.ResponseWriter, r *http.Request) {
	if err := a.library.DeleteTagGroup(r.PathValue("name")); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) sync(w http.ResponseWriter, r *http.Request) {
	since, err := sinceParam(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	run, err := a.engine.SyncRecent(r.Context(), since, nil)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// sinceParam reads an optional RFC 3339 "since" query parameter.
func sinceParam(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("since")
	if v == "" {
		return time.Time{}, nil
	}
	since, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: since must be RFC 3339", shared.ErrInvalidArgument)
	}
	return since, nil
}

type progressEvent struct {
	Phase   string `json:"phase"`
	Step    int    `json:"step"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

func (a *API) syncStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.fail(w, fmt.Errorf("%w: streaming unsupported", shared.ErrNotImplemented))
		return
	}
	since, err := sinceParam(r)
	if err != nil {
		a.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	progress := make(chan tasks.ProgressUpdate, 16)
	type outcome struct {
		run *models.SyncRun
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		run, err := a.engine.SyncRecent(r.Context(), since, progress)
		close(progress)
		done <- outcome{run, err}
	}()

	for update := range progress {
		writeEvent(w, "progress", progressEvent{
			Phase:   update.Phase.String(),
			Step:    update.Step,
			Total:   update.Total,
			Message: update.Message,
		})
		flusher.Flush()
	}

	res := <-done
	if res.err != nil {
		writeEvent(w, "error", errorBody{Error: res.err.Error()})
	} else {
		writeEvent(w, "done", res.run)
	}
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(`{}`)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func (a *API) syncRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			a.fail(w, fmt.Errorf("%w: limit must be a positive integer", shared.ErrInvalidArgument))
			return
		}
		limit = n
	}
	runs, err := a.library.SyncRuns(limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	if runs == nil {
		runs = []*models.SyncRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *API) importLibrary(w http.ResponseWriter, r *http.Request) {
	run, err := a.engine.ImportLibrary(r.Context(), nil)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *API) importFile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path string `json:"path"`
	}
	if err := decode(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	if body.Path == "" {
		a.fail(w, fmt.Errorf("%w: path is required", shared.ErrMissingArgument))
		return
	}
	run, err := a.engine.ImportFile(r.Context(), shared.ExpandHome(body.Path), nil)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type historyEntry struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func entries(actions []tasks.Action) []historyEntry {
	out := make([]historyEntry, len(actions))
	for i, a := range actions {
		out[i] = historyEntry{ID: a.ID(), Description: a.Describe(), CreatedAt: a.Created()}
	}
	return out
}

func (a *API) history(w http.ResponseWriter, r *http.Request) {
	undo, redo := a.editor.History().Entries()
	writeJSON(w, http.StatusOK, struct {
		Undo []historyEntry `json:"undo"`
		Redo []historyEntry `json:"redo"`
	}{entries(undo), entries(redo)})
}

func (a *API) undo(w http.ResponseWriter, r *http.Request) {
	msg, err := a.editor.Undo(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: msg})
}

func (a *API) redo(w http.ResponseWriter, r *http.Request) {
	msg, err := a.editor.Redo(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: msg})
}
