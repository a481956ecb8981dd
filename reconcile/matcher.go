package reconcile

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/eralumin/playlistarr/lidarr"
	"github.com/eralumin/playlistarr/spotify"
	"github.com/eralumin/playlistarr/textmatch"
)

// CatalogMatcher maps a Spotify track onto the Lidarr album it belongs to
type CatalogMatcher struct {
	library Library
	lookup  Lookup
	logger  *log.Logger
}

// NewCatalogMatcher creates a CatalogMatcher
func NewCatalogMatcher(library Library, lookup Lookup, logger *log.Logger) *CatalogMatcher {
	return &CatalogMatcher{library: library, lookup: lookup, logger: logger}
}

// Match always returns an album to reconcile:
//  1. the matching album of the artist when the artist is in the library and monitored,
//  2. else the result of Lidarr's album search (in the library or a lookup candidate),
//  3. else a new monitored album whose MusicBrainz ids come from the lookup.
//
// Failed lookups are logged and treated as misses, so the result may lack a ForeignAlbumID.
func (m *CatalogMatcher) Match(ctx context.Context, track spotify.Track) lidarr.Album {
	title := track.Album.Title
	artistName := track.Album.Artist.Name

	artist, err := m.library.ArtistByName(ctx, artistName)
	if err != nil {
		m.logger.Warn("failed to look artist up in library", "artist", artistName, "err", err)
		artist = nil
	}

	if artist != nil && artist.ID != 0 && artist.Monitored {
		if album, ok := m.artistAlbum(ctx, *artist, title); ok {
			return album
		}
	}

	album, err := m.library.AlbumByTitleArtist(ctx, title, artistName)
	if err != nil {
		m.logger.Warn("failed to search album in library", "album", title, "artist", artistName, "err", err)
	}
	if err == nil && album != nil {
		if album.Artist.Name == "" && artist != nil {
			album.Artist = *artist
		}
		return *album
	}

	return m.newAlbum(ctx, artist, title, artistName)
}

func (m *CatalogMatcher) artistAlbum(ctx context.Context, artist lidarr.Artist, title string) (lidarr.Album, bool) {
	albums, err := m.library.ArtistAlbums(ctx, artist.ID)
	if err != nil {
		m.logger.Warn("failed to list artist albums", "artist", artist.Name, "err", err)
		return lidarr.Album{}, false
	}

	album, ok := lo.Find(albums, func(a lidarr.Album) bool {
		return textmatch.SameTitle(a.Title, title)
	})
	if !ok {
		return lidarr.Album{}, false
	}

	if album.Artist.Name == "" {
		album.Artist = artist
	}
	return album, true
}

func (m *CatalogMatcher) newAlbum(ctx context.Context, artist *lidarr.Artist, title, artistName string) lidarr.Album {
	newArtist := lidarr.Artist{Name: artistName, Monitored: false}
	if artist != nil {
		newArtist = *artist
	}

	if newArtist.ForeignArtistID == "" {
		id, err := m.lookup.ArtistID(ctx, artistName)
		if err != nil {
			m.logger.Warn("no canonical artist id", "artist", artistName, "err", err)
		}
		newArtist.ForeignArtistID = id
	}

	albumID, err := m.lookup.AlbumID(ctx, title, artistName)
	if err != nil {
		m.logger.Warn("no canonical album id", "album", title, "artist", artistName, "err", err)
	}

	return lidarr.Album{
		Title:          title,
		ForeignAlbumID: albumID,
		Monitored:      true,
		Artist:         newArtist,
	}
}
