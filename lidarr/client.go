// Package lidarr talks to the Lidarr v1 API: profiles, root folders, artist and album lookups,
// and the two writes the reconciler needs (add an album, monitor an album).
package lidarr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/eralumin/playlistarr/config"
	"github.com/eralumin/playlistarr/logging"
	"github.com/eralumin/playlistarr/textmatch"
)

const DefaultHTTPTimeout = 30 * time.Second

// ErrUnexpectedStatus is wrapped by every error caused by a non-success response
var ErrUnexpectedStatus = errors.New("unexpected lidarr response status")

// Client wraps the Lidarr API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *log.Logger
}

// Profile is a quality or metadata profile
type Profile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RootFolder is a library location artists are created under
type RootFolder struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

// Artist is an artist known to Lidarr. ID is zero for lookup results that are not in the library.
type Artist struct {
	ID              int    `json:"id,omitempty"`
	Name            string `json:"artistName"`
	ForeignArtistID string `json:"foreignArtistId"`
	Disambiguation  string `json:"disambiguation,omitempty"`
	Monitored       bool   `json:"monitored"`
	Path            string `json:"path,omitempty"`
}

// Album is an album known to Lidarr. ID is zero when the album is not tracked yet;
// ForeignAlbumID is its MusicBrainz release-group id.
type Album struct {
	ID             int    `json:"id,omitempty"`
	Title          string `json:"title"`
	ForeignAlbumID string `json:"foreignAlbumId"`
	Monitored      bool   `json:"monitored"`
	ArtistID       int    `json:"artistId,omitempty"`
	Artist         Artist `json:"artist"`
}

// CreateOptions places a new album and, when needed, its artist in the library
type CreateOptions struct {
	QualityProfileID  int
	MetadataProfileID int
	RootFolderPath    string
	ArtistPath        string
}

type createArtistRequest struct {
	ID                int              `json:"id,omitempty"`
	ForeignArtistID   string           `json:"foreignArtistId"`
	ArtistName        string           `json:"artistName"`
	QualityProfileID  int              `json:"qualityProfileId"`
	MetadataProfileID int              `json:"metadataProfileId"`
	RootFolderPath    string           `json:"rootFolderPath"`
	Path              string           `json:"path"`
	Monitored         bool             `json:"monitored"`
	AddOptions        artistAddOptions `json:"addOptions"`
}

type artistAddOptions struct {
	Monitor                string `json:"monitor"`
	SearchForMissingAlbums bool   `json:"searchForMissingAlbums"`
}

type createAlbumRequest struct {
	ForeignAlbumID string              `json:"foreignAlbumId"`
	Title          string              `json:"title"`
	Monitored      bool                `json:"monitored"`
	AnyReleaseOk   bool                `json:"anyReleaseOk"`
	Artist         createArtistRequest `json:"artist"`
	AddOptions     albumAddOptions     `json:"addOptions"`
}

type albumAddOptions struct {
	SearchForNewAlbum bool `json:"searchForNewAlbum"`
}

type monitorRequest struct {
	AlbumIDs  []int `json:"albumIds"`
	Monitored bool  `json:"monitored"`
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger sets the logger
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logging.Component(logger, "lidarr") }
}

// NewClient creates a new Lidarr client
func NewClient(cfg config.LidarrConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		logger:     logging.Component(nil, "lidarr"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QualityProfiles lists the quality profiles
func (c *Client) QualityProfiles(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	if err := c.do(ctx, http.MethodGet, "qualityprofile", nil, nil, &profiles, http.StatusOK); err != nil {
		return nil, fmt.Errorf("failed to get quality profiles: %w", err)
	}
	return profiles, nil
}

// MetadataProfiles lists the metadata profiles
func (c *Client) MetadataProfiles(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	if err := c.do(ctx, http.MethodGet, "metadataprofile", nil, nil, &profiles, http.StatusOK); err != nil {
		return nil, fmt.Errorf("failed to get metadata profiles: %w", err)
	}
	return profiles, nil
}

// RootFolder returns the path of the first configured root folder, or "" when there is none
func (c *Client) RootFolder(ctx context.Context) (string, error) {
	var folders []RootFolder
	if err := c.do(ctx, http.MethodGet, "rootfolder", nil, nil, &folders, http.StatusOK); err != nil {
		return "", fmt.Errorf("failed to get root folders: %w", err)
	}
	if len(folders) == 0 {
		return "", nil
	}
	return folders[0].Path, nil
}

// ArtistByName looks an artist up by name. It returns nil when no result carries that name.
// Among namesakes, the one already in the library wins.
func (c *Client) ArtistByName(ctx context.Context, name string) (*Artist, error) {
	var artists []Artist
	query := url.Values{"term": {name}}
	if err := c.do(ctx, http.MethodGet, "artist/lookup", query, nil, &artists, http.StatusOK); err != nil {
		return nil, fmt.Errorf("failed to look up artist %s: %w", name, err)
	}

	named := lo.Filter(artists, func(a Artist, _ int) bool {
		return textmatch.SameName(a.Name, name)
	})
	if len(named) == 0 {
		return nil, nil
	}

	artist, ok := lo.Find(named, func(a Artist) bool { return a.ID != 0 })
	if !ok {
		artist = named[0]
	}
	return &artist, nil
}

// ArtistAlbums lists the albums of an artist in the library
func (c *Client) ArtistAlbums(ctx context.Context, artistID int) ([]Album, error) {
	var albums []Album
	query := url.Values{"artistId": {strconv.Itoa(artistID)}}
	if err := c.do(ctx, http.MethodGet, "album", query, nil, &albums, http.StatusOK); err != nil {
		return nil, fmt.Errorf("failed to get albums of artist %d: %w", artistID, err)
	}
	return albums, nil
}

// AlbumByTitleArtist searches an album by title and artist name. The result is either an album
// in the library or a lookup candidate with ID zero; nil means nothing matched both names.
func (c *Client) AlbumByTitleArtist(ctx context.Context, title, artist string) (*Album, error) {
	var albums []Album
	query := url.Values{"term": {title + " " + artist}}
	if err := c.do(ctx, http.MethodGet, "album/lookup", query, nil, &albums, http.StatusOK); err != nil {
		return nil, fmt.Errorf("failed to look up album %s by %s: %w", title, artist, err)
	}

	byArtist := lo.Filter(albums, func(a Album, _ int) bool {
		return textmatch.SameName(a.Artist.Name, artist)
	})

	// Exact titles first, then the tolerant comparison
	if i := slices.IndexFunc(byArtist, func(a Album) bool { return a.Title == title }); i >= 0 {
		return &byArtist[i], nil
	}
	if i := slices.IndexFunc(byArtist, func(a Album) bool { return textmatch.SameTitle(a.Title, title) }); i >= 0 {
		return &byArtist[i], nil
	}
	return nil, nil
}

// CreateAlbum adds a monitored album, creating its artist unmonitored when the artist is not in
// the library yet, and asks Lidarr to search for it
func (c *Client) CreateAlbum(ctx context.Context, album Album, opts CreateOptions) (*Album, error) {
	req := createAlbumRequest{
		ForeignAlbumID: album.ForeignAlbumID,
		Title:          album.Title,
		Monitored:      true,
		Artist: createArtistRequest{
			ID:                album.Artist.ID,
			ForeignArtistID:   album.Artist.ForeignArtistID,
			ArtistName:        album.Artist.Name,
			QualityProfileID:  opts.QualityProfileID,
			MetadataProfileID: opts.MetadataProfileID,
			RootFolderPath:    opts.RootFolderPath,
			Path:              opts.ArtistPath,
			Monitored:         album.Artist.Monitored,
			AddOptions: artistAddOptions{
				Monitor: "none",
			},
		},
		AddOptions: albumAddOptions{SearchForNewAlbum: true},
	}

	var created Album
	if err := c.do(ctx, http.MethodPost, "album", nil, req, &created, http.StatusOK, http.StatusCreated); err != nil {
		return nil, fmt.Errorf("failed to add album %s by %s: %w", album.Title, album.Artist.Name, err)
	}

	c.logger.Info("album added", "album", album.Title, "artist", album.Artist.Name)
	return &created, nil
}

// SetAlbumMonitored flips an album in the library to monitored
func (c *Client) SetAlbumMonitored(ctx context.Context, album Album) error {
	req := monitorRequest{AlbumIDs: []int{album.ID}, Monitored: true}
	if err := c.do(ctx, http.MethodPut, "album/monitor", nil, req, nil, http.StatusOK, http.StatusAccepted); err != nil {
		return fmt.Errorf("failed to monitor album %s by %s: %w", album.Title, album.Artist.Name, err)
	}

	c.logger.Info("album monitored", "album", album.Title, "artist", album.Artist.Name)
	return nil
}

// do sends a request to /api/v1/<path>, encoding body as JSON when set and decoding the
// response into out when set. Any status outside expected is an error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, expected ...int) error {
	reqURL := fmt.Sprintf("%s/api/v1/%s", c.baseURL, path)
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if !slices.Contains(expected, resp.StatusCode) {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrUnexpectedStatus, method, path, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
