// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func outputFlags(pretty bool) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: pretty,
		},
	}
}

// setupCommand handles config and database initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write the default configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// importCommand handles full imports into the local store.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import tracks and playlists into the local store",
		Commands: []*cli.Command{
			{
				Name:   "library",
				Usage:  "Import every track and playlist from the media library application",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Print every imported track"}},
				Action: r.ImportLibrary,
			},
			{
				Name:      "file",
				Usage:     "Import an exported Library.xml (defaults to library.xml_path)",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Print every imported track"}},
				Action:    r.ImportFile,
			},
			{
				Name:      "audio",
				Usage:     "Import audio files read directly from disk",
				ArgsUsage: "<path>...",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Print every imported track"}},
				Action:    r.ImportAudio,
			},
		},
	}
}

// syncCommand handles incremental reconciliation with the media library application.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Pull recent changes from the media library application",
		Flags: append([]cli.Flag{
			&cli.DurationFlag{
				Name:  "since",
				Usage: "Look back this far instead of using the last recorded sync",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Keep running and sync whenever the library files change",
			},
		}, outputFlags(true)...),
		Action: r.Sync,
		Commands: []*cli.Command{
			{
				Name:  "runs",
				Usage: "List recorded sync and import passes",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to list",
						Value: 20,
					},
				}, outputFlags(true)...),
				Action: r.SyncRuns,
			},
		},
	}
}

// tracksCommand handles track queries and single track edits.
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tracks",
		Aliases: []string{"t"},
		Usage:   "Query and edit tracks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored tracks",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Match artist, title or album"},
					&cli.StringFlag{Name: "tag", Usage: "Only tracks carrying this tag"},
					&cli.BoolFlag{Name: "missing", Usage: "Only tracks whose file is missing"},
				}, outputFlags(false)...),
				Action: r.TracksList,
			},
			{
				Name:      "show",
				Usage:     "Show one track",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.TracksShow,
			},
			{
				Name:      "rating",
				Usage:     "Set a track's rating (0-100)",
				ArgsUsage: "<id> <rating>",
				Action:    r.TracksRating,
			},
			{
				Name:      "edit",
				Usage:     "Edit title, artist, album, BPM or comment",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "artist"},
					&cli.StringFlag{Name: "album"},
					&cli.StringFlag{Name: "comment"},
					&cli.IntFlag{Name: "bpm"},
				},
				Action: r.TracksEdit,
			},
			{
				Name:  "check-missing",
				Usage: "Check every track's file and record which are missing",
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "workers", Usage: "Concurrent file checks", Value: 8},
				}, outputFlags(true)...),
				Action: r.TracksCheckMissing,
			},
		},
	}
}

// tagsCommand handles tag edits and tag groups.
func tagsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List and edit tags",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List every tag with its usage count",
				Flags:  outputFlags(false),
				Action: r.TagsList,
			},
			{
				Name:      "add",
				Usage:     "Add a tag to tracks",
				ArgsUsage: "<tag> <track-id>...",
				Action:    r.TagsAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a tag from tracks",
				ArgsUsage: "<tag> <track-id>...",
				Action:    r.TagsRemove,
			},
			{
				Name:      "rename",
				Usage:     "Rename a tag on every track carrying it",
				ArgsUsage: "<from> <to>",
				Action:    r.TagsRename,
			},
			{
				Name:      "write",
				Usage:     "Replace a track's raw comment field",
				ArgsUsage: "<track-id> <comment>",
				Action:    r.TagsWrite,
			},
			{
				Name:      "text",
				Usage:     "Replace a track's free-text comment, keeping its tags",
				ArgsUsage: "<track-id> <text>",
				Action:    r.TagsText,
			},
			{
				Name:  "groups",
				Usage: "Manage tag groups",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List tag groups",
						Flags:  outputFlags(false),
						Action: r.TagGroupsList,
					},
					{
						Name:      "create",
						Usage:     "Create a tag group",
						Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
						Flags:     []cli.Flag{&cli.StringFlag{Name: "color", Usage: "Display color, e.g. #ff8800"}},
						Action:    r.TagGroupsCreate,
					},
					{
						Name:      "assign",
						Usage:     "Move a tag into a group (an empty group ungroups it)",
						ArgsUsage: "<tag> [group]",
						Action:    r.TagGroupsAssign,
					},
					{
						Name:      "delete",
						Usage:     "Delete a tag group",
						Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
						Action:    r.TagGroupsDelete,
					},
				},
			},
		},
	}
}

// playlistsCommand handles playlist queries and membership edits.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Query and edit playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List playlists and folders",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "parent", Usage: "Only children of this folder persistent id"},
				}, outputFlags(false)...),
				Action: r.PlaylistsList,
			},
			{
				Name:      "add",
				Usage:     "Append tracks to a playlist",
				ArgsUsage: "<playlist-id> <track-id>...",
				Action:    r.PlaylistsAdd,
			},
			{
				Name:  "copy",
				Usage: "Place target tracks after a source track in the source's playlists",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "source", Usage: "Source track id", Required: true},
					&cli.StringFlag{Name: "targets", Usage: "Comma separated target track ids", Required: true},
					&cli.StringFlag{Name: "playlists", Usage: "Comma separated playlist ids (default: every playlist with the source)"},
					&cli.BoolFlag{Name: "rating", Usage: "Also copy the rating"},
					&cli.BoolFlag{Name: "play-count", Usage: "Also copy the play count"},
					&cli.BoolFlag{Name: "comment", Usage: "Also copy the comment field"},
				},
				Action: r.PlaylistsCopy,
			},
		},
	}
}

// exportCommand handles CSV, Markdown and text reports.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export playlists, tracks and tags",
		Commands: []*cli.Command{
			{
				Name:      "playlist",
				Usage:     "Export a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "csv, md or txt", Value: "csv"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output base path, directory or file"},
				},
				Action: r.ExportPlaylist,
			},
			{
				Name:  "tracks",
				Usage: "Export tracks as CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Match artist, title or album"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file (default: stdout)"},
				},
				Action: r.ExportTracks,
			},
			{
				Name:  "tags",
				Usage: "Export the tag list",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "csv or md", Value: "md"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file (default: stdout)"},
				},
				Action: r.ExportTags,
			},
		},
	}
}

func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Summarize the local store",
		Flags:  outputFlags(true),
		Action: r.Stats,
	}
}

// serveCommand runs the local JSON API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON API on the configured address",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default: server.host:server.port)"},
			&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Sync whenever the library files change"},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive tagging.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive track browser",
		Action:  r.TUI,
	}
}
