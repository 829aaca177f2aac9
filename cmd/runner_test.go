package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/repositories"
	"github.com/factor8/TagDeck/internal/shared"
	tu "github.com/factor8/TagDeck/internal/testing"
	"github.com/google/go-cmp/cmp"
	"github.com/urfave/cli/v3"
)

type runnerFixture struct {
	runner  *Runner
	store   *repositories.Store
	files   *tu.FakeTagFile
	gateway *tu.MockGateway
	output  *bytes.Buffer
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	f := &runnerFixture{
		store:   repositories.NewStore(db),
		files:   tu.NewFakeTagFile(),
		gateway: &tu.MockGateway{},
		output:  &bytes.Buffer{},
	}
	t.Cleanup(func() { f.store.Close() })

	logger := shared.NewLogger(nil)
	logger.SetLevel(log.FatalLevel)
	f.runner = NewRunner(RunnerOpts{
		Store:   f.store,
		Gateway: f.gateway,
		Files:   f.files,
		Logger:  logger,
		Output:  f.output,
	})
	return f
}

func (f *runnerFixture) seed(t *testing.T, tracks ...models.Track) {
	t.Helper()
	for i := range tracks {
		if err := f.store.Do(func() error { return f.store.Tracks.Create(&tracks[i]) }); err != nil {
			t.Fatalf("failed to seed track: %v", err)
		}
	}
}

func (f *runnerFixture) run(t *testing.T, args ...string) error {
	t.Helper()
	f.output.Reset()
	app := &cli.Command{Name: "tagdeck", Commands: f.runner.register()}
	return app.Run(context.Background(), append([]string{"tagdeck"}, args...))
}

func (f *runnerFixture) comment(t *testing.T, pid string) string {
	t.Helper()
	var track *models.Track
	err := f.store.Do(func() error {
		var err error
		track, err = f.store.Tracks.GetByPersistentID(pid)
		return err
	})
	if err != nil {
		t.Fatalf("failed to load track %s: %v", pid, err)
	}
	return track.CommentRaw
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			gateway := &tu.MockGateway{}
			files := tu.NewFakeTagFile()

			runner := NewRunner(RunnerOpts{
				Config:  config,
				Logger:  logger,
				Output:  output,
				Gateway: gateway,
				Files:   files,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.gateway != gateway {
				t.Error("expected gateway to be set")
			}
			if runner.files != files {
				t.Error("expected files to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("services are built lazily", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.store != nil || runner.editor != nil {
				t.Error("expected no store before first use")
			}
			if err := runner.Close(); err != nil {
				t.Errorf("expected closing an unopened runner to succeed, got %v", err)
			}
		})
	})

	t.Run("open", func(t *testing.T) {
		t.Run("uses injected dependencies", func(t *testing.T) {
			f := newRunnerFixture(t)
			if err := f.runner.open(); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if f.runner.editor == nil || f.runner.engine == nil || f.runner.library == nil {
				t.Fatal("expected task services to be built")
			}
			if f.runner.gateway != f.gateway {
				t.Error("expected injected gateway to be kept")
			}
		})

		t.Run("creates the database file", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Database.Path = filepath.Join(t.TempDir(), "tagdeck.db")
			runner := NewRunner(RunnerOpts{Config: config, Gateway: &tu.MockGateway{}, Files: tu.NewFakeTagFile()})
			t.Cleanup(func() { runner.Close() })

			if err := runner.open(); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			tu.AssertFileExists(t, config.Database.Path)
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		var names []string
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names = append(names, cmd.Name)
		}

		want := []string{"setup", "import", "sync", "tracks", "tags", "playlists", "export", "stats", "serve", "tui"}
		if diff := cmp.Diff(want, names); diff != "" {
			t.Errorf("commands mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []int64
		wantErr bool
	}{
		{name: "empty"},
		{name: "positional", args: []string{"1", "2"}, want: []int64{1, 2}},
		{name: "comma separated", args: []string{"1,2", " 3 "}, want: []int64{1, 2, 3}},
		{name: "blank parts skipped", args: []string{"4,,5,"}, want: []int64{4, 5}},
		{name: "not a number", args: []string{"1", "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIDs(tt.args)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCommands(t *testing.T) {
	tracks := func() []models.Track {
		return []models.Track{
			{PersistentID: "A", FilePath: "/m/a.mp3", Artist: "Artist A", Title: "Alpha", CommentRaw: "warm && Deep"},
			{PersistentID: "B", FilePath: "/m/b.mp3", Artist: "Artist B", Title: "Beta", CommentRaw: "Deep"},
		}
	}

	t.Run("tags add writes every store", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.seed(t, tracks()...)

		if err := f.run(t, "tags", "add", "Peak", "1,2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := f.comment(t, "A"); got != "warm && Deep; Peak" {
			t.Errorf("unexpected comment %q", got)
		}
		if got := f.files.Comment("/m/b.mp3"); !strings.HasSuffix(got, "Peak") {
			t.Errorf("expected tag file write, got %q", got)
		}
		if len(f.gateway.Calls) == 0 {
			t.Error("expected external library to be updated")
		}
		if !strings.Contains(f.output.String(), "2 updated") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("tags add without ids fails", func(t *testing.T) {
		f := newRunnerFixture(t)
		if err := f.run(t, "tags", "add", "Peak"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("tags rename", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.seed(t, tracks()...)

		if err := f.run(t, "tags", "rename", "Deep", "Dub"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := f.comment(t, "A"); got != "warm && Dub" {
			t.Errorf("unexpected comment %q", got)
		}
	})

	t.Run("tags list as JSON", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.seed(t, tracks()...)

		if err := f.run(t, "tags", "list", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var tags []models.Tag
		if err := json.Unmarshal(f.output.Bytes(), &tags); err != nil {
			t.Fatalf("invalid JSON %q: %v", f.output.String(), err)
		}
		if len(tags) != 1 || tags[0].Name != "Deep" || tags[0].UsageCount != 1 {
			t.Errorf("unexpected tags %+v", tags)
		}
	})

	t.Run("tracks list filters by tag", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.seed(t, tracks()...)

		if err := f.run(t, "tracks", "list", "--tag", "deep", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var got []models.Track
		if err := json.Unmarshal(f.output.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON %q: %v", f.output.String(), err)
		}
		if len(got) != 1 || got[0].PersistentID != "A" {
			t.Errorf("unexpected tracks %+v", got)
		}
	})

	t.Run("tracks rating rejects bad ids", func(t *testing.T) {
		f := newRunnerFixture(t)
		if err := f.run(t, "tracks", "rating", "one", "80"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("export tags as markdown", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.seed(t, tracks()...)

		if err := f.run(t, "export", "tags"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "| Deep | 1 |") {
			t.Errorf("unexpected export %q", f.output.String())
		}
	})

	t.Run("export rejects unknown format", func(t *testing.T) {
		f := newRunnerFixture(t)
		if err := f.run(t, "export", "tags", "--format", "xml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("stats", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.seed(t, tracks()...)

		if err := f.run(t, "stats"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := f.output.String()
		if !strings.Contains(out, "Tracks: 2 (0 missing)") || !strings.Contains(out, "Last sync: never") {
			t.Errorf("unexpected stats %q", out)
		}
	})

	t.Run("sync records a run", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.gateway.Changes = tracks()

		if err := f.run(t, "sync"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := f.run(t, "sync", "runs", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var runs []models.SyncRun
		if err := json.Unmarshal(f.output.Bytes(), &runs); err != nil {
			t.Fatalf("invalid JSON %q: %v", f.output.String(), err)
		}
		if len(runs) != 1 || runs[0].TracksUpdated != 2 {
			t.Errorf("unexpected runs %+v", runs)
		}
	})
}
