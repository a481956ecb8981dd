package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eralumin/playlistarr/lidarr"
	"github.com/eralumin/playlistarr/logging"
)

func TestMatchMonitoredArtistAlbum(t *testing.T) {
	library := newFakeLibrary()
	daftPunk := &lidarr.Artist{ID: 1, Name: "Daft Punk", ForeignArtistID: "mb-daft", Monitored: true}
	library.artists["daft punk"] = daftPunk
	library.albums[1] = []lidarr.Album{
		{ID: 10, Title: "Homework", ForeignAlbumID: "rg-homework", Monitored: true, ArtistID: 1},
		{ID: 11, Title: "Discovery", ForeignAlbumID: "rg-discovery", Monitored: true, ArtistID: 1},
	}
	lookup := newFakeLookup()

	album := NewCatalogMatcher(library, lookup, logging.Discard()).
		Match(context.Background(), track("t1", "One More Time", "Discovery", "Daft Punk"))

	assert.Equal(t, 11, album.ID)
	assert.True(t, album.Monitored)
	assert.Equal(t, "Daft Punk", album.Artist.Name)
	assert.NotContains(t, library.calls, "AlbumByTitleArtist(Discovery,Daft Punk)")
	assert.Empty(t, lookup.calls)
}

func TestMatchToleratesEditionSuffixes(t *testing.T) {
	library := newFakeLibrary()
	library.artists["daft punk"] = &lidarr.Artist{ID: 1, Name: "Daft Punk", Monitored: true}
	library.albums[1] = []lidarr.Album{
		{ID: 12, Title: "Random Access Memories", ForeignAlbumID: "rg-ram", Monitored: true},
	}

	album := NewCatalogMatcher(library, newFakeLookup(), logging.Discard()).
		Match(context.Background(), track("t1", "Get Lucky", "Random Access Memories (10th Anniversary Edition)", "Daft Punk"))

	assert.Equal(t, 12, album.ID)
}

func TestMatchFallsBackToAlbumSearch(t *testing.T) {
	tests := []struct {
		name   string
		artist *lidarr.Artist
	}{
		{"Unknown Artist", nil},
		{"Unmonitored Artist", &lidarr.Artist{ID: 2, Name: "Justice", Monitored: false}},
		{"Monitored Artist Without The Album", &lidarr.Artist{ID: 2, Name: "Justice", Monitored: true}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			library := newFakeLibrary()
			if test.artist != nil {
				library.artists["justice"] = test.artist
			}
			library.lookups["Cross|Justice"] = &lidarr.Album{
				Title:          "Cross",
				ForeignAlbumID: "rg-cross",
				Artist:         lidarr.Artist{Name: "Justice", ForeignArtistID: "mb-justice"},
			}
			lookup := newFakeLookup()

			album := NewCatalogMatcher(library, lookup, logging.Discard()).
				Match(context.Background(), track("t1", "Genesis", "Cross", "Justice"))

			assert.Zero(t, album.ID)
			assert.Equal(t, "rg-cross", album.ForeignAlbumID)
			assert.Equal(t, "mb-justice", album.Artist.ForeignArtistID)
			assert.Empty(t, lookup.calls)
		})
	}
}

func TestMatchReturnsUnmonitoredLibraryAlbum(t *testing.T) {
	library := newFakeLibrary()
	library.lookups["Cross|Justice"] = &lidarr.Album{ID: 20, Title: "Cross", ForeignAlbumID: "rg-cross", Monitored: false}

	album := NewCatalogMatcher(library, newFakeLookup(), logging.Discard()).
		Match(context.Background(), track("t1", "Genesis", "Cross", "Justice"))

	assert.Equal(t, 20, album.ID)
	assert.False(t, album.Monitored)
}

func TestMatchBuildsNewAlbum(t *testing.T) {
	library := newFakeLibrary()
	lookup := newFakeLookup()
	lookup.albums["Ghost Stories|Coldplay"] = "rg-ghost"
	lookup.artists["Coldplay"] = "mb-coldplay"

	album := NewCatalogMatcher(library, lookup, logging.Discard()).
		Match(context.Background(), track("t1", "Magic", "Ghost Stories", "Coldplay"))

	assert.Equal(t, lidarr.Album{
		Title:          "Ghost Stories",
		ForeignAlbumID: "rg-ghost",
		Monitored:      true,
		Artist: lidarr.Artist{
			Name:            "Coldplay",
			ForeignArtistID: "mb-coldplay",
			Monitored:       false,
		},
	}, album)
}

func TestMatchBuildsNewAlbumForKnownArtist(t *testing.T) {
	library := newFakeLibrary()
	library.artists["coldplay"] = &lidarr.Artist{ID: 5, Name: "Coldplay", ForeignArtistID: "mb-coldplay", Path: "/music/Coldplay"}
	lookup := newFakeLookup()
	lookup.albums["Ghost Stories|Coldplay"] = "rg-ghost"

	album := NewCatalogMatcher(library, lookup, logging.Discard()).
		Match(context.Background(), track("t1", "Magic", "Ghost Stories", "Coldplay"))

	assert.Equal(t, 5, album.Artist.ID)
	assert.Equal(t, "/music/Coldplay", album.Artist.Path)
	assert.Equal(t, "rg-ghost", album.ForeignAlbumID)
	assert.NotContains(t, lookup.calls, "ArtistID(Coldplay)")
}

func TestMatchWithoutCanonicalID(t *testing.T) {
	album := NewCatalogMatcher(newFakeLibrary(), newFakeLookup(), logging.Discard()).
		Match(context.Background(), track("t1", "Song", "Obscure Demo", "Nobody"))

	assert.Zero(t, album.ID)
	assert.Empty(t, album.ForeignAlbumID)
	assert.True(t, album.Monitored)
	assert.Equal(t, "Nobody", album.Artist.Name)
}
