package reconcile

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/eralumin/playlistarr/navidrome"
)

// Materializer rebuilds server playlists
type Materializer struct {
	server Server
	logger *log.Logger
}

// NewMaterializer creates a Materializer
func NewMaterializer(server Server, logger *log.Logger) *Materializer {
	return &Materializer{server: server, logger: logger}
}

// Materialize makes the playlist called name contain exactly tracks, in order. The playlist is
// found by case-insensitive name or created public, cleared, then filled, even with nothing.
// When the add fails after the clear the playlist stays empty until the next run.
func (m *Materializer) Materialize(ctx context.Context, name string, tracks []navidrome.Track) error {
	playlist, err := m.server.PlaylistByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to find playlist %s: %w", name, err)
	}
	if playlist == nil {
		if playlist, err = m.server.CreatePlaylist(ctx, name); err != nil {
			return fmt.Errorf("failed to create playlist %s: %w", name, err)
		}
	}

	if err := m.server.ClearPlaylist(ctx, playlist.ID); err != nil {
		return fmt.Errorf("failed to clear playlist %s: %w", name, err)
	}

	trackIDs := lo.Map(tracks, func(track navidrome.Track, _ int) string { return track.ID })
	if err := m.server.AddTracksToPlaylist(ctx, playlist.ID, trackIDs); err != nil {
		return fmt.Errorf("failed to fill playlist %s: %w", name, err)
	}

	if len(trackIDs) == 0 {
		m.logger.Info("no local tracks for playlist, left empty", "playlist", name)
	} else {
		m.logger.Info("playlist updated", "playlist", name, "tracks", len(trackIDs))
	}
	return nil
}
