// Package navidrome is a client for the Subsonic API served by Navidrome. It covers the
// artists, playlists and search calls needed to mirror playlists into the local library.
package navidrome

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/eralumin/playlistarr/config"
	"github.com/eralumin/playlistarr/logging"
)

const DefaultHTTPTimeout = 30 * time.Second

// ErrSubsonic is wrapped by every error reported inside a Subsonic response envelope
var ErrSubsonic = errors.New("subsonic error")

// Client wraps the Subsonic API
type Client struct {
	baseURL    string
	session    Session
	httpClient *http.Client
	logger     *log.Logger
}

// Artist represents an artist of the local library
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track represents a song of the local library
type Track struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

// Playlist represents a playlist on the server
type Playlist struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Public    bool   `json:"public"`
	SongCount int    `json:"songCount"`
}

type artistIndex struct {
	Name   string   `json:"name"`
	Artist []Artist `json:"artist"`
}

type artistsResponse struct {
	Artists struct {
		Index []artistIndex `json:"index"`
	} `json:"artists"`
}

type playlistsResponse struct {
	Playlists struct {
		Playlist []Playlist `json:"playlist"`
	} `json:"playlists"`
}

type playlistResponse struct {
	Playlist Playlist `json:"playlist"`
}

type searchResponse struct {
	SearchResult3 struct {
		Song []Track `json:"song"`
	} `json:"searchResult3"`
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger sets the logger
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logging.Component(logger, "navidrome") }
}

// NewClient creates a new Navidrome client
func NewClient(cfg config.NavidromeConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    cfg.URL,
		session:    NewSession(cfg.Username, cfg.Password),
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		logger:     logging.Component(nil, "navidrome"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Artists lists every artist of the library, flattened out of the alphabetical index
func (c *Client) Artists(ctx context.Context) ([]Artist, error) {
	var resp artistsResponse
	if err := c.call(ctx, "getArtists", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get artists: %w", err)
	}

	return lo.FlatMap(resp.Artists.Index, func(index artistIndex, _ int) []Artist {
		return index.Artist
	}), nil
}

// Playlists lists the playlists visible to the user
func (c *Client) Playlists(ctx context.Context) ([]Playlist, error) {
	var resp playlistsResponse
	if err := c.call(ctx, "getPlaylists", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get playlists: %w", err)
	}
	return resp.Playlists.Playlist, nil
}

// PlaylistByName finds a playlist by case-insensitive name. It returns nil when there is none.
func (c *Client) PlaylistByName(ctx context.Context, name string) (*Playlist, error) {
	playlists, err := c.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	playlist, ok := lo.Find(playlists, func(p Playlist) bool {
		return strings.EqualFold(p.Name, name)
	})
	if !ok {
		return nil, nil
	}
	return &playlist, nil
}

// CreatePlaylist creates an empty public playlist
func (c *Client) CreatePlaylist(ctx context.Context, name string) (*Playlist, error) {
	var resp playlistResponse
	if err := c.call(ctx, "createPlaylist", url.Values{"name": {name}}, &resp); err != nil {
		return nil, fmt.Errorf("failed to create playlist %s: %w", name, err)
	}

	playlist := resp.Playlist
	if playlist.ID == "" {
		return nil, fmt.Errorf("failed to create playlist %s: response carries no playlist id", name)
	}

	params := url.Values{"playlistId": {playlist.ID}, "public": {"true"}}
	if err := c.call(ctx, "updatePlaylist", params, nil); err != nil {
		return nil, fmt.Errorf("failed to make playlist %s public: %w", name, err)
	}
	playlist.Public = true

	c.logger.Info("created playlist", "playlist", name, "id", playlist.ID)
	return &playlist, nil
}

// ClearPlaylist removes every song from a playlist. createPlaylist called with an existing
// playlist id replaces its songs with the (here empty) list given.
func (c *Client) ClearPlaylist(ctx context.Context, playlistID string) error {
	c.logger.Debug("clearing playlist", "id", playlistID)

	if err := c.call(ctx, "createPlaylist", url.Values{"playlistId": {playlistID}}, nil); err != nil {
		return fmt.Errorf("failed to clear playlist %s: %w", playlistID, err)
	}
	return nil
}

// AddTracksToPlaylist appends songs to a playlist in the given order
func (c *Client) AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	c.logger.Debug("adding tracks to playlist", "id", playlistID, "tracks", len(trackIDs))

	params := url.Values{"playlistId": {playlistID}, "songIdToAdd": trackIDs}
	if err := c.call(ctx, "updatePlaylist", params, nil); err != nil {
		return fmt.Errorf("failed to add %d tracks to playlist %s: %w", len(trackIDs), playlistID, err)
	}
	return nil
}

// SearchTrack runs a free-text song search for artist and title and returns the first song,
// or nil when nothing matched
func (c *Client) SearchTrack(ctx context.Context, artist, title string) (*Track, error) {
	params := url.Values{
		"query":       {artist + " " + title},
		"songCount":   {"1"},
		"artistCount": {"0"},
		"albumCount":  {"0"},
	}

	var resp searchResponse
	if err := c.call(ctx, "search3", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to search %s by %s: %w", title, artist, err)
	}

	if len(resp.SearchResult3.Song) == 0 {
		return nil, nil
	}
	return &resp.SearchResult3.Song[0], nil
}

// call invokes a Subsonic method, checks the response envelope and decodes its content
// into out when set
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	query := c.session.Params()
	for key, values := range params {
		query[key] = values
	}

	reqURL := fmt.Sprintf("%s/rest/%s?%s", c.baseURL, method, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d: %s", method, resp.StatusCode, string(body))
	}

	if !gjson.ValidBytes(body) {
		return fmt.Errorf("%s returned invalid json: %s", method, string(body))
	}

	envelope := gjson.GetBytes(body, "subsonic-response")
	if status := envelope.Get("status").String(); status != "ok" {
		return fmt.Errorf("%w %d on %s: %s", ErrSubsonic, envelope.Get("error.code").Int(), method, envelope.Get("error.message").String())
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(envelope.Raw), out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return nil
}
