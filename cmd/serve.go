package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/factor8/TagDeck/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the JSON API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cmd.Bool("watch") {
		w, err := r.startWatcher(ctx)
		if err != nil {
			return err
		}
		defer w.Stop()
	}

	api := server.NewAPI(r.editor, r.engine, r.library, r.logger)
	r.writePlain("Serving on http://%s, press Ctrl+C to stop\n", addr)
	if err := server.New(addr, api, r.logger).Run(ctx); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}
