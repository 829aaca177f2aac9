package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
	"github.com/google/go-cmp/cmp"
)

// fakeRunner returns canned output and records every script it was given.
type fakeRunner struct {
	outputs []string
	err     error
	scripts []string
}

func (f *fakeRunner) Run(ctx context.Context, script string) ([]byte, error) {
	f.scripts = append(f.scripts, script)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.outputs) == 0 {
		return []byte(`{"data":null,"failed":[]}`), nil
	}
	out := f.outputs[0]
	if len(f.outputs) > 1 {
		f.outputs = f.outputs[1:]
	}
	return []byte(out), nil
}

func newTestMusicApp(outputs ...string) (*MusicApp, *fakeRunner) {
	runner := &fakeRunner{outputs: outputs}
	return NewMusicApp(runner, 0, nil), runner
}

func TestMusicApp(t *testing.T) {
	ctx := context.Background()

	t.Run("Name", func(t *testing.T) {
		app, _ := newTestMusicApp()
		if app.Name() != "Apple Music" {
			t.Errorf("expected 'Apple Music', got %s", app.Name())
		}
	})

	t.Run("ChangesSince", func(t *testing.T) {
		t.Run("Decodes Tracks", func(t *testing.T) {
			app, runner := newTestMusicApp(`{"data":[
				{"pid":"A1","path":"/Users/me/Music/a.mp3","artist":"Artist","title":"Song","comment":"Nice && Dance",
				 "duration":241.5,"size":1000,"bitRate":320,"modified":1700000000,"rating":80,"added":1600000000,"bpm":124},
				{"pid":"","path":"/Users/me/Music/b.mp3"}
			],"failed":[]}`)

			since := time.Unix(1690000000, 0)
			tracks, err := app.ChangesSince(ctx, since)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			want := []models.Track{{
				PersistentID: "A1",
				FilePath:     "/Users/me/Music/a.mp3",
				Artist:       "Artist",
				Title:        "Song",
				CommentRaw:   "Nice && Dance",
				Duration:     241.5,
				Format:       "mp3",
				Size:         1000,
				BitRate:      320,
				ModifiedAt:   1700000000,
				Rating:       80,
				DateAdded:    1600000000,
				BPM:          124,
			}}
			if diff := cmp.Diff(want, tracks); diff != "" {
				t.Errorf("tracks mismatch (-want +got):\n%s", diff)
			}

			if !strings.Contains(runner.scripts[0], `"since":1690000000`) {
				t.Error("expected since to be embedded as epoch seconds")
			}
			if !strings.Contains(runner.scripts[0], `"all":false`) {
				t.Error("expected incremental query")
			}
		})

		t.Run("Offline Is An Error", func(t *testing.T) {
			app, _ := newTestMusicApp(`{"offline":true}`)
			_, err := app.ChangesSince(ctx, time.Now())
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})

		t.Run("Runner Failure", func(t *testing.T) {
			runner := &fakeRunner{err: errors.New("boom")}
			app := NewMusicApp(runner, 0, nil)
			_, err := app.ChangesSince(ctx, time.Now())
			if !errors.Is(err, shared.ErrGateway) {
				t.Errorf("expected ErrGateway, got %v", err)
			}
		})

		t.Run("Malformed Output", func(t *testing.T) {
			app, _ := newTestMusicApp(`execution error: -1728`)
			_, err := app.ChangesSince(ctx, time.Now())
			if !errors.Is(err, shared.ErrGateway) {
				t.Errorf("expected ErrGateway, got %v", err)
			}
		})
	})

	t.Run("LibraryTracks Requests Everything", func(t *testing.T) {
		app, runner := newTestMusicApp(`{"data":[],"failed":[]}`)
		if _, err := app.LibraryTracks(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(runner.scripts[0], `"all":true`) {
			t.Error("expected full library query")
		}
	})

	t.Run("SnapshotFields", func(t *testing.T) {
		app, _ := newTestMusicApp(`{"data":[{"pid":"A1","rating":60,"bpm":128},{"pid":"B2","rating":0,"bpm":0}],"failed":[]}`)
		snapshot, err := app.SnapshotFields(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []models.FieldSnapshot{
			{PersistentID: "A1", Rating: 60, BPM: 128},
			{PersistentID: "B2"},
		}
		if diff := cmp.Diff(want, snapshot); diff != "" {
			t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("PlaylistSnapshot", func(t *testing.T) {
		app, _ := newTestMusicApp(`{"data":[
			{"pid":"F1","parent":"","name":"Sets","folder":true,"tracks":["X"]},
			{"pid":"P1","parent":"F1","name":"Warmup","folder":false,"tracks":["A1","B2"]}
		],"failed":[]}`)

		playlists, err := app.PlaylistSnapshot(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []models.Playlist{
			{PersistentID: "F1", Name: "Sets", IsFolder: true},
			{PersistentID: "P1", ParentPersistentID: "F1", Name: "Warmup", TrackIDs: []string{"A1", "B2"}},
		}
		if diff := cmp.Diff(want, playlists); diff != "" {
			t.Errorf("playlists mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Writes", func(t *testing.T) {
		t.Run("Offline Writes Are Dropped", func(t *testing.T) {
			app, _ := newTestMusicApp(`{"offline":true}`)
			if err := app.UpdateComment(ctx, "A1", "x"); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})

		t.Run("Unresolved Items Are Reported", func(t *testing.T) {
			app, _ := newTestMusicApp(`{"data":null,"failed":["A1"]}`)
			err := app.UpdateRating(ctx, "A1", 40)
			if !errors.Is(err, shared.ErrGateway) {
				t.Errorf("expected ErrGateway, got %v", err)
			}
		})

		t.Run("Arguments Are JSON Encoded", func(t *testing.T) {
			app, runner := newTestMusicApp()
			comment := `He said "hi" && 'bye'; Tag`
			if err := app.UpdateComment(ctx, "A1", comment); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(runner.scripts[0], `"comment":"He said \"hi\" && 'bye'; Tag"`) {
				t.Errorf("expected escaped comment in script, got %s", runner.scripts[0])
			}
		})

		t.Run("Empty Track Info Skips Script", func(t *testing.T) {
			app, runner := newTestMusicApp()
			if err := app.UpdateTrackInfo(ctx, "A1", models.TrackInfo{}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(runner.scripts) != 0 {
				t.Errorf("expected no scripts, got %d", len(runner.scripts))
			}
		})

		t.Run("Batch Is Chunked", func(t *testing.T) {
			app, runner := newTestMusicApp()
			updates := make([]models.CommentUpdate, batchSize+1)
			for i := range updates {
				updates[i] = models.CommentUpdate{PersistentID: "A", Comment: "c"}
			}
			if err := app.BatchUpdateComments(ctx, updates); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(runner.scripts) != 2 {
				t.Errorf("expected 2 scripts, got %d", len(runner.scripts))
			}
		})

		t.Run("Batch Keeps Going After Failure", func(t *testing.T) {
			app, runner := newTestMusicApp(`{"data":null,"failed":["A"]}`, `{"data":null,"failed":[]}`)
			updates := make([]models.CommentUpdate, batchSize+1)
			err := app.BatchUpdateComments(ctx, updates)
			if !errors.Is(err, shared.ErrGateway) {
				t.Errorf("expected ErrGateway, got %v", err)
			}
			if len(runner.scripts) != 2 {
				t.Errorf("expected both chunks to run, got %d", len(runner.scripts))
			}
		})
	})

	t.Run("PlayCount", func(t *testing.T) {
		app, _ := newTestMusicApp(`{"data":17,"failed":[]}`)
		count, err := app.PlayCount(ctx, "A1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if count != 17 {
			t.Errorf("expected 17, got %d", count)
		}
	})

	t.Run("Canceled Context", func(t *testing.T) {
		runner := &fakeRunner{}
		app := NewMusicApp(runner, 0.001, nil)
		// drain the single burst token
		_ = app.UpdateRating(ctx, "A1", 20)

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		if err := app.UpdateRating(canceled, "A1", 20); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})
}

func TestOffline(t *testing.T) {
	ctx := context.Background()
	gw := NewGateway(shared.GatewayConfig{Enabled: false}, nil)

	if _, err := gw.PlaylistSnapshot(ctx); !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
	if _, err := gw.SnapshotFields(ctx); !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
	if err := gw.UpdateComment(ctx, "A1", "x"); err != nil {
		t.Errorf("expected dropped write, got %v", err)
	}
}

func TestBuildScript(t *testing.T) {
	script, err := buildScript("return args.n;", map[string]any{"n": 3})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(script, `const args = {"n":3};`) {
		t.Error("expected arguments literal")
	}
	if !strings.HasPrefix(script, "(() => {") || !strings.HasSuffix(script, "})()") {
		t.Error("expected script to be a single expression")
	}

	script, _ = buildScript("return 1;", nil)
	if !strings.Contains(script, "const args = null;") {
		t.Error("expected null arguments")
	}
}
