package spotify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/eralumin/playlistarr/config"
	"github.com/eralumin/playlistarr/logging"
)

// Spotify returns at most 100 playlist items per request
const tracksPageSize = 100

// ErrNotAuthenticated is returned when the client is used before Authenticate
var ErrNotAuthenticated = errors.New("spotify client is not authenticated")

// Client wraps the Spotify API client
type Client struct {
	client   *spotify.Client
	config   config.SpotifyConfig
	tokenURL string
	apiURL   string
	logger   *log.Logger
}

// Artist represents the first credited artist of a track
type Artist struct {
	ID   string
	Name string
}

// Album represents the album a track appears on
type Album struct {
	ID     string
	Title  string
	Artist Artist
}

// Track represents a track from a Spotify playlist
type Track struct {
	ID    string
	Title string
	Album Album
}

// Playlist represents a playlist hydrated with all of its tracks
type Playlist struct {
	ID     string
	Name   string
	Tracks []Track
}

// Category represents a browse category
type Category struct {
	ID   string
	Name string
}

// Option configures a Client
type Option func(*Client)

// WithTokenURL replaces the accounts service token endpoint
func WithTokenURL(tokenURL string) Option {
	return func(c *Client) { c.tokenURL = tokenURL }
}

// WithAPIURL replaces the Web API base URL. It must end with a slash.
func WithAPIURL(apiURL string) Option {
	return func(c *Client) { c.apiURL = apiURL }
}

// WithLogger sets the logger
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logging.Component(logger, "spotify") }
}

// NewClient creates a new Spotify client. Authenticate must be called before any lookup.
func NewClient(cfg config.SpotifyConfig, opts ...Option) *Client {
	c := &Client{
		config:   cfg,
		tokenURL: spotifyauth.TokenURL,
		logger:   logging.Component(nil, "spotify"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate obtains an app token with the client credentials flow. The token is refreshed
// automatically for as long as ctx lives.
func (c *Client) Authenticate(ctx context.Context) error {
	credentials := &clientcredentials.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		TokenURL:     c.tokenURL,
	}

	// Fetch the first token eagerly so bad credentials fail here
	if _, err := credentials.Token(ctx); err != nil {
		return fmt.Errorf("failed to exchange token: %w", err)
	}

	var opts []spotify.ClientOption
	if c.apiURL != "" {
		opts = append(opts, spotify.WithBaseURL(c.apiURL))
	}
	c.client = spotify.New(credentials.Client(ctx), opts...)

	c.logger.Info("authenticated with Spotify")
	return nil
}

// Categories returns one page of browse categories
func (c *Client) Categories(ctx context.Context, offset, limit int) ([]Category, error) {
	if c.client == nil {
		return nil, ErrNotAuthenticated
	}

	page, err := c.client.GetCategories(ctx, spotify.Offset(offset), spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get categories (offset %d): %w", offset, err)
	}

	return lo.Map(page.Categories, func(category spotify.Category, _ int) Category {
		return Category{ID: category.ID, Name: category.Name}
	}), nil
}

// PlaylistsForArtist searches playlists matching an artist name
func (c *Client) PlaylistsForArtist(ctx context.Context, name string, limit int) ([]Playlist, error) {
	if c.client == nil {
		return nil, ErrNotAuthenticated
	}
	if limit <= 0 {
		return nil, nil
	}

	result, err := c.client.Search(ctx, name, spotify.SearchTypePlaylist, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to search playlists for artist %s: %w", name, err)
	}
	if result.Playlists == nil {
		return nil, nil
	}

	c.logger.Debug("found playlists for artist", "artist", name, "count", len(result.Playlists.Playlists))
	return c.hydrate(ctx, result.Playlists.Playlists), nil
}

// PlaylistsForCategory returns the playlists of a browse category
func (c *Client) PlaylistsForCategory(ctx context.Context, categoryID string, limit int) ([]Playlist, error) {
	if c.client == nil {
		return nil, ErrNotAuthenticated
	}
	if limit <= 0 {
		return nil, nil
	}

	page, err := c.client.GetCategoryPlaylists(ctx, categoryID, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get playlists for category %s: %w", categoryID, err)
	}

	c.logger.Debug("found playlists for category", "category", categoryID, "count", len(page.Playlists))
	return c.hydrate(ctx, page.Playlists), nil
}

// hydrate loads the tracks of every playlist. Search can return null entries, which decode
// to playlists without an id and are skipped, as are playlists whose tracks cannot be read.
func (c *Client) hydrate(ctx context.Context, simple []spotify.SimplePlaylist) []Playlist {
	var playlists []Playlist
	for _, sp := range simple {
		if sp.ID == "" {
			continue
		}

		tracks, err := c.playlistTracks(ctx, sp.ID)
		if err != nil {
			c.logger.Warn("skipping playlist", "playlist", sp.Name, "err", err)
			continue
		}

		c.logger.Info("loaded playlist", "playlist", sp.Name, "tracks", len(tracks))
		playlists = append(playlists, Playlist{
			ID:     string(sp.ID),
			Name:   strings.TrimSpace(sp.Name),
			Tracks: tracks,
		})
	}
	return playlists
}

// playlistTracks fetches all tracks from a playlist
func (c *Client) playlistTracks(ctx context.Context, playlistID spotify.ID) ([]Track, error) {
	var tracks []Track
	page := 1

	// Iterate through all tracks in the playlist
	for {
		playlistTracks, err := c.client.GetPlaylistTracks(ctx, playlistID, spotify.Offset((page-1)*tracksPageSize), spotify.Limit(tracksPageSize))
		if err != nil {
			return nil, fmt.Errorf("failed to get playlist tracks (page %d): %w", page, err)
		}

		for _, item := range playlistTracks.Tracks {
			if track, ok := convertTrack(item.Track); ok {
				tracks = append(tracks, track)
			}
		}

		// Check if we've processed all tracks
		if len(playlistTracks.Tracks) < tracksPageSize {
			break
		}
		page++
	}

	return tracks, nil
}

// convertTrack converts a Spotify track, keeping only its first artist. Local files and
// removed tracks have no id or artist and are dropped.
func convertTrack(track spotify.FullTrack) (Track, bool) {
	if track.ID == "" || len(track.Artists) == 0 {
		return Track{}, false
	}

	artist := Artist{
		ID:   string(track.Artists[0].ID),
		Name: track.Artists[0].Name,
	}

	return Track{
		ID:    string(track.ID),
		Title: track.Name,
		Album: Album{
			ID:     string(track.Album.ID),
			Title:  track.Album.Name,
			Artist: artist,
		},
	}, true
}
