package main

import (
	"context"
	"fmt"
	"os"

	"github.com/factor8/TagDeck/internal/formatter"
	"github.com/factor8/TagDeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// ExportPlaylist writes a playlist report as CSV, Markdown or text.
func (r *Runner) ExportPlaylist(ctx context.Context, cmd *cli.Command) error {
	ids, err := parseIDs([]string{cmd.StringArg("id")})
	if err != nil {
		return err
	}
	if len(ids) != 1 {
		return fmt.Errorf("%w: one playlist id is required", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	playlist, err := r.library.Playlist(ids[0])
	if err != nil {
		return err
	}
	tracks, err := r.library.PlaylistTracks(playlist)
	if err != nil {
		return fmt.Errorf("failed to load playlist tracks: %w", err)
	}
	output := cmd.String("output")

	switch format := cmd.String("format"); format {
	case "csv":
		result, err := formatter.WriteCSVExport(playlist, tracks, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d tracks to %s and %s\n", len(tracks), result.TracksFile, result.MetadataFile)
	case "md", "markdown":
		path, err := formatter.WriteMarkdownExport(playlist, tracks, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d tracks to %s\n", len(tracks), path)
	case "txt", "text":
		path, err := formatter.WriteTextExport(playlist, tracks, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d tracks to %s\n", len(tracks), path)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
	return nil
}

// ExportTracks writes stored tracks as CSV.
func (r *Runner) ExportTracks(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	tracks, err := r.library.Tracks(map[string]any{"search": cmd.String("search")})
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}
	data, err := formatter.TracksToCSV(tracks)
	if err != nil {
		return err
	}
	return r.writeExport(data, cmd.String("output"))
}

// ExportTags writes the tag list as CSV or Markdown.
func (r *Runner) ExportTags(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	tags, err := r.library.Tags()
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}

	var data []byte
	switch format := cmd.String("format"); format {
	case "csv":
		if data, err = formatter.TagsToCSV(tags); err != nil {
			return err
		}
	case "md", "markdown":
		data = formatter.TagsToMarkdown(tags)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
	return r.writeExport(data, cmd.String("output"))
}

func (r *Runner) writeExport(data []byte, path string) error {
	if path == "" {
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.writePlain("✓ Exported to %s\n", path)
	return nil
}
