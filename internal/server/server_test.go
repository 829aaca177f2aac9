package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/repositories"
	"github.com/factor8/TagDeck/internal/shared"
	"github.com/factor8/TagDeck/internal/tasks"
	tu "github.com/factor8/TagDeck/internal/testing"
)

type apiFixture struct {
	handler http.Handler
	store   *repositories.Store
	files   *tu.FakeTagFile
	gateway *tu.MockGateway
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	store := repositories.NewStore(db)
	t.Cleanup(func() { store.Close() })

	logger := shared.NewLogger(io.Discard)
	files := tu.NewFakeTagFile()
	gateway := &tu.MockGateway{}
	editor := tasks.NewEditor(store, files, gateway, nil, logger)
	engine := tasks.NewSyncEngine(store, gateway, nil, logger)
	api := NewAPI(editor, engine, tasks.NewLibrary(store), logger)

	return &apiFixture{
		handler: New("127.0.0.1:0", api, logger).Handler(),
		store:   store,
		files:   files,
		gateway: gateway,
	}
}

func (f *apiFixture) seed(t *testing.T, pid, comment string) int64 {
	t.Helper()
	track := models.Track{PersistentID: pid, FilePath: "/m/" + pid + ".mp3", Title: pid, CommentRaw: comment}
	if err := f.store.Do(func() error { return f.store.Tracks.Create(&track) }); err != nil {
		t.Fatalf("failed to seed track: %v", err)
	}
	f.files.Comments[track.FilePath] = comment
	return track.ID
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestAPI(t *testing.T) {
	t.Run("lists tracks filtered by tag", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seed(t, "A", "x && House")
		f.seed(t, "B", "y && Techno")

		rec := f.do(t, "GET", "/api/tracks?tag=house", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
		if body := rec.Body.String(); !strings.Contains(body, `"persistent_id":"A"`) || strings.Contains(body, `"persistent_id":"B"`) {
			t.Errorf("unexpected tracks %s", body)
		}
	})

	t.Run("unknown track is 404", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := f.do(t, "GET", "/api/tracks/999", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("non numeric id is 400", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := f.do(t, "GET", "/api/tracks/abc", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("wrong method is 405", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := f.do(t, "DELETE", "/api/tracks", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("batch tag then undo", func(t *testing.T) {
		f := newAPIFixture(t)
		a := f.seed(t, "A", "")
		b := f.seed(t, "B", "note")

		rec := f.do(t, "POST", "/api/tags/add", fmt.Sprintf(`{"tag":"Peak","track_ids":[%d,%d]}`, a, b))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
		if !strings.Contains(rec.Body.String(), `"updated":2`) {
			t.Errorf("expected 2 updates, got %s", rec.Body)
		}
		if got := f.files.Comment("/m/B.mp3"); got != "note && Peak" {
			t.Errorf("expected file comment to be tagged, got %q", got)
		}

		rec = f.do(t, "GET", "/api/history", "")
		if !strings.Contains(rec.Body.String(), "Tag Change (2 tracks)") {
			t.Errorf("expected history entry, got %s", rec.Body)
		}

		rec = f.do(t, "POST", "/api/undo", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Undo Tag Change (2 tracks)") {
			t.Fatalf("unexpected undo response %d: %s", rec.Code, rec.Body)
		}
		if got := f.files.Comment("/m/B.mp3"); got != "note" {
			t.Errorf("expected comment restored, got %q", got)
		}

		rec = f.do(t, "POST", "/api/undo", "")
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409 on empty history, got %d", rec.Code)
		}

		rec = f.do(t, "POST", "/api/redo", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Redo Tag Change (2 tracks)") {
			t.Errorf("unexpected redo response %d: %s", rec.Code, rec.Body)
		}
	})

	t.Run("comment text with delimiter is rejected", func(t *testing.T) {
		f := newAPIFixture(t)
		id := f.seed(t, "A", "")

		rec := f.do(t, "PUT", fmt.Sprintf("/api/tracks/%d/text", id), `{"text":"a && b"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body)
		}
	})

	t.Run("unknown body field is rejected", func(t *testing.T) {
		f := newAPIFixture(t)
		id := f.seed(t, "A", "")

		rec := f.do(t, "PUT", fmt.Sprintf("/api/tracks/%d/rating", id), `{"stars":5}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rating update returns the track", func(t *testing.T) {
		f := newAPIFixture(t)
		id := f.seed(t, "A", "")

		rec := f.do(t, "PUT", fmt.Sprintf("/api/tracks/%d/rating", id), `{"rating":80}`)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"rating":80`) {
			t.Errorf("unexpected response %d: %s", rec.Code, rec.Body)
		}
		if len(f.gateway.CallsTo("UpdateRating")) != 1 {
			t.Error("expected rating to be mirrored")
		}
	})

	t.Run("tag groups", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seed(t, "A", "x && House")

		if rec := f.do(t, "POST", "/api/tag-groups", `{"name":"Genre","color":"#ff0000"}`); rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
		}
		if rec := f.do(t, "PUT", "/api/tag-groups/assign", `{"tag":"house","group":"Genre"}`); rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body)
		}

		rec := f.do(t, "GET", "/api/tags", "")
		if !strings.Contains(rec.Body.String(), `"name":"Genre"`) {
			t.Errorf("expected grouped tag, got %s", rec.Body)
		}

		if rec := f.do(t, "DELETE", "/api/tag-groups/Nope", ""); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("sync returns the run", func(t *testing.T) {
		f := newAPIFixture(t)
		f.gateway.Changes = []models.Track{{PersistentID: "N", FilePath: "/m/n.mp3", Title: "New"}}

		rec := f.do(t, "POST", "/api/sync", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"tracks_updated":1`) {
			t.Errorf("unexpected response %d: %s", rec.Code, rec.Body)
		}

		if rec := f.do(t, "POST", "/api/sync?since=yesterday", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for bad since, got %d", rec.Code)
		}
	})

	t.Run("sync stream sends progress and done", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, "GET", "/api/sync/stream", "")
		if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
			t.Fatalf("expected event stream, got %q", ct)
		}
		body := rec.Body.String()
		for _, want := range []string{`event: progress`, `"phase":"fetch_changes"`, `"phase":"diff_playlists"`, `event: done`} {
			if !strings.Contains(body, want) {
				t.Errorf("expected %q in stream, got %s", want, body)
			}
		}
	})

	t.Run("import file requires a path", func(t *testing.T) {
		f := newAPIFixture(t)
		if rec := f.do(t, "POST", "/api/import/file", `{}`); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", shared.ErrTrackNotFound), http.StatusNotFound},
		{shared.ErrTagGroupNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: bad", shared.ErrInvalidInput), http.StatusBadRequest},
		{shared.ErrSyncInProgress, http.StatusConflict},
		{shared.ErrNothingToRedo, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestBasicRouter(t *testing.T) {
	t.Run("middleware runs in the order it was added", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.HandleFunc("GET", "/ping", func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ping", nil))
		if got := strings.Join(order, ","); got != "first,second,handler" {
			t.Errorf("unexpected order %s", got)
		}
	})

	t.Run("recover turns panics into 500", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(Recover(shared.NewLogger(io.Discard)))
		router.HandleFunc("GET", "/panic", func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/panic", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestServerRun(t *testing.T) {
	logger := shared.NewLogger(io.Discard)
	srv := New("127.0.0.1:0", NewAPI(nil, nil, nil, logger), logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := srv.Run(ctx); err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}
