package services

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/factor8/TagDeck/internal/models"
	"github.com/factor8/TagDeck/internal/shared"
)

// Offline is the gateway used when the external library is disabled in configuration.
// Reads fail with [shared.ErrServiceUnavailable] and writes are dropped.
type Offline struct{}

var _ Gateway = Offline{}

func (Offline) Name() string { return "offline" }

func (o Offline) unavailable() error {
	return fmt.Errorf("%w: external library is disabled", shared.ErrServiceUnavailable)
}

func (o Offline) ChangesSince(context.Context, time.Time) ([]models.Track, error) {
	return nil, o.unavailable()
}

func (o Offline) SnapshotFields(context.Context) ([]models.FieldSnapshot, error) {
	return nil, o.unavailable()
}

func (o Offline) PlaylistSnapshot(context.Context) ([]models.Playlist, error) {
	return nil, o.unavailable()
}

func (o Offline) LibraryTracks(context.Context) ([]models.Track, error) {
	return nil, o.unavailable()
}

func (o Offline) PlayCount(context.Context, string) (int, error) {
	return 0, o.unavailable()
}

func (Offline) UpdateComment(context.Context, string, string) error               { return nil }
func (Offline) BatchUpdateComments(context.Context, []models.CommentUpdate) error { return nil }
func (Offline) UpdateRating(context.Context, string, int) error                   { return nil }
func (Offline) UpdateTrackInfo(context.Context, string, models.TrackInfo) error   { return nil }
func (Offline) AddTrackToPlaylist(context.Context, string, string) error          { return nil }
func (Offline) RemoveTrackFromPlaylist(context.Context, string, string) error     { return nil }
func (Offline) ReorderPlaylist(context.Context, string, []string) error           { return nil }
func (Offline) SetPlayCount(context.Context, string, int) error                   { return nil }

// NewGateway builds the gateway described by cfg.
func NewGateway(cfg shared.GatewayConfig, logger *log.Logger) Gateway {
	if !cfg.Enabled {
		return Offline{}
	}
	runner := Osascript{Path: cfg.Osascript, Timeout: cfg.Timeout()}
	return NewMusicApp(runner, cfg.RateLimit, logger)
}
