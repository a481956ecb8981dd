package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/eralumin/playlistarr/lidarr"
	"github.com/eralumin/playlistarr/navidrome"
	"github.com/eralumin/playlistarr/spotify"
)

var errBoom = errors.New("boom")

type fakeCatalog struct {
	categories       []spotify.Category
	ignoreOffset     bool
	categoriesErr    error
	byArtist         map[string][]spotify.Playlist
	byCategory       map[string][]spotify.Playlist
	categoryErrs     map[string]error
	categoryRequests int
	calls            []string
}

func (f *fakeCatalog) Categories(ctx context.Context, offset, limit int) ([]spotify.Category, error) {
	f.categoryRequests++
	f.calls = append(f.calls, fmt.Sprintf("Categories(%d,%d)", offset, limit))
	if f.categoriesErr != nil {
		return nil, f.categoriesErr
	}
	if f.ignoreOffset {
		offset = 0
	}
	if offset >= len(f.categories) {
		return nil, nil
	}
	return f.categories[offset:min(offset+limit, len(f.categories))], nil
}

func (f *fakeCatalog) PlaylistsForArtist(ctx context.Context, name string, limit int) ([]spotify.Playlist, error) {
	f.calls = append(f.calls, "PlaylistsForArtist("+name+")")
	playlists := f.byArtist[name]
	return playlists[:min(limit, len(playlists))], nil
}

func (f *fakeCatalog) PlaylistsForCategory(ctx context.Context, categoryID string, limit int) ([]spotify.Playlist, error) {
	f.calls = append(f.calls, "PlaylistsForCategory("+categoryID+")")
	if err := f.categoryErrs[categoryID]; err != nil {
		return nil, err
	}
	playlists := f.byCategory[categoryID]
	return playlists[:min(limit, len(playlists))], nil
}

type fakeLibrary struct {
	quality    []lidarr.Profile
	metadata   []lidarr.Profile
	root       string
	artists    map[string]*lidarr.Artist // lower-cased name
	albums     map[int][]lidarr.Album    // artist id
	lookups    map[string]*lidarr.Album  // "title|artist"
	createErr  error
	monitorErr error
	nextID     int

	calls     []string
	created   []lidarr.Album
	options   []lidarr.CreateOptions
	monitored []lidarr.Album
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		quality:  []lidarr.Profile{{ID: 1, Name: "Any"}, {ID: 2, Name: "HQ"}},
		metadata: []lidarr.Profile{{ID: 7, Name: "Standard"}},
		root:     "/music",
		artists:  make(map[string]*lidarr.Artist),
		albums:   make(map[int][]lidarr.Album),
		lookups:  make(map[string]*lidarr.Album),
		nextID:   100,
	}
}

func (f *fakeLibrary) writes() []string {
	var writes []string
	for _, call := range f.calls {
		if strings.HasPrefix(call, "CreateAlbum") || strings.HasPrefix(call, "SetAlbumMonitored") {
			writes = append(writes, call)
		}
	}
	return writes
}

func (f *fakeLibrary) QualityProfiles(ctx context.Context) ([]lidarr.Profile, error) {
	f.calls = append(f.calls, "QualityProfiles")
	return f.quality, nil
}

func (f *fakeLibrary) MetadataProfiles(ctx context.Context) ([]lidarr.Profile, error) {
	f.calls = append(f.calls, "MetadataProfiles")
	return f.metadata, nil
}

func (f *fakeLibrary) RootFolder(ctx context.Context) (string, error) {
	f.calls = append(f.calls, "RootFolder")
	return f.root, nil
}

func (f *fakeLibrary) ArtistByName(ctx context.Context, name string) (*lidarr.Artist, error) {
	f.calls = append(f.calls, "ArtistByName("+name+")")
	artist, ok := f.artists[strings.ToLower(name)]
	if !ok {
		return nil, nil
	}
	copied := *artist
	return &copied, nil
}

func (f *fakeLibrary) ArtistAlbums(ctx context.Context, artistID int) ([]lidarr.Album, error) {
	f.calls = append(f.calls, fmt.Sprintf("ArtistAlbums(%d)", artistID))
	return slices.Clone(f.albums[artistID]), nil
}

func (f *fakeLibrary) AlbumByTitleArtist(ctx context.Context, title, artist string) (*lidarr.Album, error) {
	f.calls = append(f.calls, "AlbumByTitleArtist("+title+","+artist+")")
	album, ok := f.lookups[title+"|"+artist]
	if !ok {
		return nil, nil
	}
	copied := *album
	return &copied, nil
}

func (f *fakeLibrary) CreateAlbum(ctx context.Context, album lidarr.Album, opts lidarr.CreateOptions) (*lidarr.Album, error) {
	f.calls = append(f.calls, "CreateAlbum("+album.Title+")")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, album)
	f.options = append(f.options, opts)

	// the album is tracked from now on
	f.nextID++
	stored := album
	stored.ID = f.nextID
	stored.Monitored = true
	f.lookups[album.Title+"|"+album.Artist.Name] = &stored
	return &stored, nil
}

func (f *fakeLibrary) SetAlbumMonitored(ctx context.Context, album lidarr.Album) error {
	f.calls = append(f.calls, "SetAlbumMonitored("+album.Title+")")
	if f.monitorErr != nil {
		return f.monitorErr
	}
	f.monitored = append(f.monitored, album)
	return nil
}

type fakeServer struct {
	artists     []navidrome.Artist
	artistsErr  error
	tracks      map[string]navidrome.Track // "artist|title"
	searchErr   error
	playlists   []*navidrome.Playlist
	members     map[string][]string // playlist id -> track ids
	clearErr    error
	addErr      error
	nextID      int
	calls       []string
	searchCalls int
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		tracks:  make(map[string]navidrome.Track),
		members: make(map[string][]string),
	}
}

func (f *fakeServer) addTrack(id, artist, title string) {
	f.tracks[artist+"|"+title] = navidrome.Track{ID: id, Title: title, Artist: artist}
}

func (f *fakeServer) writes() []string {
	var writes []string
	for _, call := range f.calls {
		if !strings.HasPrefix(call, "Artists") && !strings.HasPrefix(call, "PlaylistByName") && !strings.HasPrefix(call, "SearchTrack") {
			writes = append(writes, call)
		}
	}
	return writes
}

func (f *fakeServer) membersOf(name string) []string {
	for _, p := range f.playlists {
		if strings.EqualFold(p.Name, name) {
			return f.members[p.ID]
		}
	}
	return nil
}

func (f *fakeServer) Artists(ctx context.Context) ([]navidrome.Artist, error) {
	f.calls = append(f.calls, "Artists")
	return f.artists, f.artistsErr
}

func (f *fakeServer) PlaylistByName(ctx context.Context, name string) (*navidrome.Playlist, error) {
	f.calls = append(f.calls, "PlaylistByName("+name+")")
	for _, p := range f.playlists {
		if strings.EqualFold(p.Name, name) {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeServer) CreatePlaylist(ctx context.Context, name string) (*navidrome.Playlist, error) {
	f.calls = append(f.calls, "CreatePlaylist("+name+")")
	f.nextID++
	playlist := &navidrome.Playlist{ID: fmt.Sprintf("pl-%d", f.nextID), Name: name, Public: true}
	f.playlists = append(f.playlists, playlist)
	copied := *playlist
	return &copied, nil
}

func (f *fakeServer) ClearPlaylist(ctx context.Context, playlistID string) error {
	f.calls = append(f.calls, "ClearPlaylist("+playlistID+")")
	if f.clearErr != nil {
		return f.clearErr
	}
	f.members[playlistID] = nil
	return nil
}

func (f *fakeServer) AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	f.calls = append(f.calls, fmt.Sprintf("AddTracksToPlaylist(%s,%v)", playlistID, trackIDs))
	if f.addErr != nil {
		return f.addErr
	}
	f.members[playlistID] = append(f.members[playlistID], trackIDs...)
	return nil
}

func (f *fakeServer) SearchTrack(ctx context.Context, artist, title string) (*navidrome.Track, error) {
	f.searchCalls++
	f.calls = append(f.calls, "SearchTrack("+artist+","+title+")")
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	track, ok := f.tracks[artist+"|"+title]
	if !ok {
		return nil, nil
	}
	return &track, nil
}

type fakeLookup struct {
	albums  map[string]string // "title|artist"
	artists map[string]string
	resets  int
	calls   []string
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{albums: make(map[string]string), artists: make(map[string]string)}
}

func (f *fakeLookup) AlbumID(ctx context.Context, title, artist string) (string, error) {
	f.calls = append(f.calls, "AlbumID("+title+","+artist+")")
	id, ok := f.albums[title+"|"+artist]
	if !ok {
		return "", errors.New("no musicbrainz match")
	}
	return id, nil
}

func (f *fakeLookup) ArtistID(ctx context.Context, name string) (string, error) {
	f.calls = append(f.calls, "ArtistID("+name+")")
	id, ok := f.artists[name]
	if !ok {
		return "", errors.New("no musicbrainz match")
	}
	return id, nil
}

func (f *fakeLookup) Reset() {
	f.resets++
}

func track(id, title, album, artist string) spotify.Track {
	return spotify.Track{
		ID:    id,
		Title: title,
		Album: spotify.Album{
			ID:     "album-" + album,
			Title:  album,
			Artist: spotify.Artist{ID: "artist-" + artist, Name: artist},
		},
	}
}

func playlist(id, name string, tracks ...spotify.Track) spotify.Playlist {
	return spotify.Playlist{ID: id, Name: name, Tracks: tracks}
}
