package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/factor8/TagDeck/internal/shared"
	"github.com/factor8/TagDeck/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive track browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, closer := shared.NewQuietLogger(r.config.Log)
	defer closer.Close()
	r.SetLogger(fileLogger)

	if err := r.open(); err != nil {
		return err
	}

	model := ui.NewModel(ctx, r.library, r.editor, r.engine)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
