package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/factor8/TagDeck/internal/audiofile"
	"github.com/factor8/TagDeck/internal/repositories"
	"github.com/factor8/TagDeck/internal/services"
	"github.com/factor8/TagDeck/internal/shared"
	"github.com/factor8/TagDeck/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The store and the task services are opened on first use so that commands like setup run without a database.
type Runner struct {
	config  *shared.Config
	store   *repositories.Store
	gateway services.Gateway
	files   audiofile.TagFile
	prober  tasks.Prober
	logger  *log.Logger
	output  io.Writer

	editor  *tasks.Editor
	engine  *tasks.SyncEngine
	library *tasks.Library
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Store   *repositories.Store
	Gateway services.Gateway
	Files   audiofile.TagFile
	Prober  tasks.Prober
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		store:   opts.Store,
		gateway: opts.Gateway,
		files:   opts.Files,
		prober:  opts.Prober,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

// SetLogger replaces the logger used by the runner and by services it has yet to open.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// open connects the store and builds the task services.
func (r *Runner) open() error {
	if r.editor != nil {
		return nil
	}

	if r.store == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		r.store = repositories.NewStore(db)
	}

	if r.gateway == nil {
		r.gateway = services.NewGateway(r.config.Gateway, r.logger)
	}
	if r.files == nil {
		codec := audiofile.NewTaglib()
		r.files = codec
		if r.prober == nil {
			r.prober = codec
		}
	}

	history := tasks.NewHistory(r.config.History.Limit)
	r.editor = tasks.NewEditor(r.store, r.files, r.gateway, history, r.logger)
	r.engine = tasks.NewSyncEngine(r.store, r.gateway, r.prober, r.logger)
	r.library = tasks.NewLibrary(r.store)
	return nil
}

// Close releases the store.
func (r *Runner) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, importCommand, syncCommand, tracksCommand, tagsCommand, playlistsCommand,
		exportCommand, statsCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// followProgress prints updates until the returned stop function is called.
func (r *Runner) followProgress(verbose bool) (chan tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			switch update.Phase {
			case tasks.ImportTracks, tasks.CheckFiles:
				if verbose || update.Step == update.Total {
					r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
				}
			case tasks.Finished:
				r.writePlain("✓ %s\n", update.Message)
			default:
				r.writePlain("• %s\n", update.Message)
			}
		}
	}()

	return progress, func() {
		close(progress)
		<-done
	}
}

// parseIDs parses positional or comma separated track and playlist ids.
func parseIDs(args []string) ([]int64, error) {
	var ids []int64
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not an id", shared.ErrInvalidArgument, part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
