package reconcile

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/eralumin/playlistarr/navidrome"
)

// LocalTrackMatcher finds tracks in the local library
type LocalTrackMatcher struct {
	server Server
	logger *log.Logger
}

// NewLocalTrackMatcher creates a LocalTrackMatcher
func NewLocalTrackMatcher(server Server, logger *log.Logger) *LocalTrackMatcher {
	return &LocalTrackMatcher{server: server, logger: logger}
}

// Find searches the server once and takes the first result. A missing track is common right
// after its album was added, so it is only reported at info level.
func (m *LocalTrackMatcher) Find(ctx context.Context, artist, title string) (*navidrome.Track, bool) {
	track, err := m.server.SearchTrack(ctx, artist, title)
	if err != nil {
		m.logger.Warn("failed to search local library", "track", title, "artist", artist, "err", err)
		return nil, false
	}
	if track == nil {
		m.logger.Info("track not in local library", "track", title, "artist", artist)
		return nil, false
	}

	m.logger.Debug("found local track", "track", title, "artist", artist, "id", track.ID)
	return track, true
}
