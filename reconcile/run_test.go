package reconcile

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eralumin/playlistarr/lidarr"
	"github.com/eralumin/playlistarr/logging"
	"github.com/eralumin/playlistarr/spotify"
)

type world struct {
	catalog *fakeCatalog
	library *fakeLibrary
	server  *fakeServer
	lookup  *fakeLookup
	opts    Options
}

// newWorld sets up an included "focus" category holding one playlist, "Focus", with two
// tracks: the first is in the local library, the second is not.
func newWorld() *world {
	w := &world{
		catalog: &fakeCatalog{
			byCategory: map[string][]spotify.Playlist{
				"focus": {playlist("p1", "Focus",
					track("s1", "One More Time", "Discovery", "Daft Punk"),
					track("s2", "Magic", "Ghost Stories", "Coldplay"),
				)},
			},
		},
		library: newFakeLibrary(),
		server:  newFakeServer(),
		lookup:  newFakeLookup(),
		opts: Options{
			QualityProfileName:  "HQ",
			MetadataProfileName: "Standard",
			Discovery: DiscoveryOptions{
				IncludedCategories:    []string{"focus"},
				ArtistPlaylistLimit:   5,
				CategoryPlaylistLimit: 5,
			},
		},
	}

	w.library.artists["daft punk"] = &lidarr.Artist{ID: 1, Name: "Daft Punk", Monitored: true}
	w.library.albums[1] = []lidarr.Album{{ID: 11, Title: "Discovery", ForeignAlbumID: "rg-discovery", Monitored: true}}
	w.server.addTrack("t1", "Daft Punk", "One More Time")

	w.lookup.albums["Ghost Stories|Coldplay"] = "rg-ghost"
	w.lookup.artists["Coldplay"] = "mb-coldplay"
	return w
}

func (w *world) reconciler() *Reconciler {
	return New(w.catalog, w.library, w.server, w.lookup, w.opts, logging.Discard())
}

func TestRun(t *testing.T) {
	w := newWorld()

	summary, err := w.reconciler().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"t1"}, w.server.membersOf("Focus"))
	assert.Equal(t, []string{
		"PlaylistByName(Focus)",
		"CreatePlaylist(Focus)",
		"ClearPlaylist(pl-1)",
		"AddTracksToPlaylist(pl-1,[t1])",
	}, w.server.calls[len(w.server.calls)-4:])

	require.Len(t, w.library.created, 1)
	assert.Equal(t, "Ghost Stories", w.library.created[0].Title)
	assert.Equal(t, "rg-ghost", w.library.created[0].ForeignAlbumID)
	assert.Equal(t, "/music/Coldplay", w.library.options[0].ArtistPath)
	assert.Equal(t, 2, w.library.options[0].QualityProfileID)

	_, err = uuid.Parse(summary.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Playlists)
	assert.Equal(t, 2, summary.Tracks)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 1, summary.Missing)
	assert.Equal(t, 1, summary.Created)
	assert.Zero(t, summary.Monitored)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 1, w.lookup.resets)
}

func TestRunIsIdempotent(t *testing.T) {
	w := newWorld()
	reconciler := w.reconciler()

	_, err := reconciler.Run(context.Background())
	require.NoError(t, err)
	first := append([]string(nil), w.server.membersOf("Focus")...)

	summary, err := reconciler.Run(context.Background())
	require.NoError(t, err)
	second := w.server.membersOf("Focus")

	assert.Equal(t, first, second)
	assert.Len(t, w.server.playlists, 1, "the playlist is reused, not duplicated")
	assert.Len(t, w.library.created, 1, "albums added by the first run are not added again")
	assert.Zero(t, summary.Created)
	assert.Equal(t, 2, w.lookup.resets)
}

func TestRunNoRedundantWrites(t *testing.T) {
	w := newWorld()
	w.catalog.byCategory["focus"] = []spotify.Playlist{playlist("p1", "Focus",
		track("s1", "One More Time", "Discovery", "Daft Punk"),
		track("s3", "Digital Love", "Discovery", "Daft Punk"),
	)}

	summary, err := w.reconciler().Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, w.library.writes())
	assert.Zero(t, summary.Created)
	assert.Zero(t, summary.Monitored)
}

func TestRunMonitorsExistingAlbum(t *testing.T) {
	w := newWorld()
	w.library.albums[1][0].Monitored = false

	summary, err := w.reconciler().Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, w.library.writes(), "SetAlbumMonitored(Discovery)")
	assert.NotContains(t, w.library.writes(), "CreateAlbum(Discovery)")
	assert.Equal(t, 1, summary.Monitored)
}

func TestRunMissingTracksDoNotAbort(t *testing.T) {
	w := newWorld()
	w.catalog.byCategory["focus"] = []spotify.Playlist{playlist("p1", "Focus",
		track("s2", "Magic", "Ghost Stories", "Coldplay"),
		track("s4", "Song", "Obscure Demo", "Nobody"),
		track("s1", "One More Time", "Discovery", "Daft Punk"),
	)}
	w.library.createErr = errBoom

	summary, err := w.reconciler().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"t1"}, w.server.membersOf("Focus"))
	assert.Equal(t, 3, summary.Tracks)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 2, summary.Missing)
	assert.Equal(t, 2, summary.Failed)
	assert.NotContains(t, w.server.calls, "SearchTrack(Nobody,Song)", "tracks without a canonical id are not looked up")
}

func TestRunAbortsOnUnknownProfile(t *testing.T) {
	w := newWorld()
	w.library.quality = []lidarr.Profile{{ID: 1, Name: "Any"}}

	_, err := w.reconciler().Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	assert.Empty(t, w.catalog.calls, "no discovery")
	assert.Empty(t, w.server.calls)
	assert.Empty(t, w.library.writes())
}

func TestRunRootFolder(t *testing.T) {
	t.Run("Configured", func(t *testing.T) {
		w := newWorld()
		w.opts.RootFolder = "/data/music"

		_, err := w.reconciler().Run(context.Background())
		require.NoError(t, err)

		assert.NotContains(t, w.library.calls, "RootFolder")
		assert.Equal(t, "/data/music/Coldplay", w.library.options[0].ArtistPath)
	})

	t.Run("None", func(t *testing.T) {
		w := newWorld()
		w.library.root = ""

		summary, err := w.reconciler().Run(context.Background())
		require.NoError(t, err)

		assert.Empty(t, w.library.created)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, []string{"t1"}, w.server.membersOf("Focus"))
	})
}

func TestRunMaterializationFailure(t *testing.T) {
	w := newWorld()
	w.server.addErr = errBoom

	summary, err := w.reconciler().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
}

func TestRunCancelled(t *testing.T) {
	w := newWorld()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.reconciler().Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, w.server.writes())
}
