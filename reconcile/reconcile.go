// Package reconcile mirrors Spotify playlists into the local music stack. For every track of a
// discovered playlist it makes sure Lidarr wants the album, then rebuilds a Navidrome playlist
// from the tracks that are already in the local library.
package reconcile

import (
	"context"

	"github.com/eralumin/playlistarr/lidarr"
	"github.com/eralumin/playlistarr/navidrome"
	"github.com/eralumin/playlistarr/spotify"
)

// Catalog is the source of playlists
type Catalog interface {
	Categories(ctx context.Context, offset, limit int) ([]spotify.Category, error)
	PlaylistsForArtist(ctx context.Context, name string, limit int) ([]spotify.Playlist, error)
	PlaylistsForCategory(ctx context.Context, categoryID string, limit int) ([]spotify.Playlist, error)
}

// Library tracks which artists and albums are wanted
type Library interface {
	QualityProfiles(ctx context.Context) ([]lidarr.Profile, error)
	MetadataProfiles(ctx context.Context) ([]lidarr.Profile, error)
	RootFolder(ctx context.Context) (string, error)
	ArtistByName(ctx context.Context, name string) (*lidarr.Artist, error)
	ArtistAlbums(ctx context.Context, artistID int) ([]lidarr.Album, error)
	AlbumByTitleArtist(ctx context.Context, title, artist string) (*lidarr.Album, error)
	CreateAlbum(ctx context.Context, album lidarr.Album, opts lidarr.CreateOptions) (*lidarr.Album, error)
	SetAlbumMonitored(ctx context.Context, album lidarr.Album) error
}

// Server hosts the local library and its playlists
type Server interface {
	Artists(ctx context.Context) ([]navidrome.Artist, error)
	PlaylistByName(ctx context.Context, name string) (*navidrome.Playlist, error)
	CreatePlaylist(ctx context.Context, name string) (*navidrome.Playlist, error)
	ClearPlaylist(ctx context.Context, playlistID string) error
	AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error
	SearchTrack(ctx context.Context, artist, title string) (*navidrome.Track, error)
}

// Lookup resolves canonical MusicBrainz identifiers
type Lookup interface {
	AlbumID(ctx context.Context, title, artist string) (string, error)
	ArtistID(ctx context.Context, name string) (string, error)
}

// resetter is implemented by lookups that memoize results; they are reset at the start of
// every run
type resetter interface {
	Reset()
}
