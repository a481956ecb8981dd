package musicbrainz

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/karlseguin/ccache/v3"
	"golang.org/x/time/rate"

	"github.com/eralumin/playlistarr/logging"
	"github.com/eralumin/playlistarr/textmatch"
)

const (
	DefaultBaseURL     = "https://musicbrainz.org/ws/2"
	DefaultHTTPTimeout = 10 * time.Second
	DefaultProjectURL  = "https://github.com/eralumin/playlistarr"

	// MusicBrainz allows one request per second per client
	DefaultRateLimit = rate.Limit(1)

	searchLimit = 5
	cacheTTL    = time.Hour
	maxRetries  = 3
)

// ErrNotFound is returned when a search has no results
var ErrNotFound = errors.New("no musicbrainz match")

// Client looks up canonical MusicBrainz identifiers for albums and artists
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	cache      *ccache.Cache[string]
	newBackOff func() backoff.BackOff
	logger     *log.Logger
}

// ReleaseGroup represents a MusicBrainz release group (an album across its editions)
type ReleaseGroup struct {
	ID    string `xml:"id,attr"`
	Title string `xml:"title"`
}

// Artist represents a MusicBrainz artist
type Artist struct {
	ID             string `xml:"id,attr"`
	Name           string `xml:"name"`
	Disambiguation string `xml:"disambiguation"`
}

// ReleaseGroupSearchResponse represents the response from the release-group search API
type ReleaseGroupSearchResponse struct {
	ReleaseGroupList struct {
		ReleaseGroups []ReleaseGroup `xml:"release-group"`
	} `xml:"release-group-list"`
}

// ArtistSearchResponse represents the response from the artist search API
type ArtistSearchResponse struct {
	ArtistList struct {
		Artists []Artist `xml:"artist"`
	} `xml:"artist-list"`
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another MusicBrainz mirror
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithRateLimit replaces the default one request per second limit
func WithRateLimit(limit rate.Limit) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, 1) }
}

// WithBackOff replaces the policy used to retry rate-limited (503) responses
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = newBackOff }
}

// WithLogger sets the logger
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logging.Component(logger, "musicbrainz") }
}

// NewClient creates a new MusicBrainz client. contact is advertised in the User-Agent as
// MusicBrainz asks; it defaults to the project URL.
func NewClient(contact string, opts ...Option) *Client {
	if contact == "" {
		contact = DefaultProjectURL
	}

	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultHTTPTimeout,
		},
		userAgent:  fmt.Sprintf("playlistarr/1.0 (%s)", contact),
		limiter:    rate.NewLimiter(DefaultRateLimit, 1),
		cache:      ccache.New(ccache.Configure[string]().MaxSize(1000).ItemsToPrune(50)),
		newBackOff: defaultBackOff,
		logger:     logging.Component(nil, "musicbrainz"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 10 * time.Second
	return b
}

// Reset forgets every memoized identifier. It is called at the start of each run so that no
// lookup result outlives the run that produced it.
func (c *Client) Reset() {
	c.cache.Clear()
}

// AlbumID returns the release-group id for an album title by the given artist
func (c *Client) AlbumID(ctx context.Context, title, artist string) (string, error) {
	if title == "" || artist == "" {
		return "", fmt.Errorf("album title and artist cannot be empty")
	}

	key := "album\x00" + strings.ToLower(title) + "\x00" + strings.ToLower(artist)
	return c.memoize(key, func() (string, error) {
		query := fmt.Sprintf("releasegroup:%s AND artist:%s", quote(title), quote(artist))

		var searchResp ReleaseGroupSearchResponse
		if err := c.search(ctx, "release-group", query, &searchResp); err != nil {
			return "", err
		}

		groups := searchResp.ReleaseGroupList.ReleaseGroups
		if len(groups) == 0 {
			return "", fmt.Errorf("%w: album %q by %q", ErrNotFound, title, artist)
		}

		// Results are ordered by score; prefer the first whose title really matches
		for _, group := range groups {
			if textmatch.SameTitle(group.Title, title) {
				return group.ID, nil
			}
		}
		return groups[0].ID, nil
	})
}

// ArtistID returns the MusicBrainz artist id for an artist name
func (c *Client) ArtistID(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("artist name cannot be empty")
	}

	key := "artist\x00" + strings.ToLower(name)
	return c.memoize(key, func() (string, error) {
		var searchResp ArtistSearchResponse
		if err := c.search(ctx, "artist", "artist:"+quote(name), &searchResp); err != nil {
			return "", err
		}

		artists := searchResp.ArtistList.Artists
		if len(artists) == 0 {
			return "", fmt.Errorf("%w: artist %q", ErrNotFound, name)
		}

		for _, artist := range artists {
			if textmatch.SameName(artist.Name, name) {
				return artist.ID, nil
			}
		}
		return artists[0].ID, nil
	})
}

// memoize caches successful lookups under key
func (c *Client) memoize(key string, lookup func() (string, error)) (string, error) {
	if item := c.cache.Get(key); item != nil && !item.Expired() {
		return item.Value(), nil
	}

	id, err := lookup()
	if err != nil {
		return "", err
	}

	c.cache.Set(key, id, cacheTTL)
	return id, nil
}

// search runs a Lucene query against an entity search endpoint and decodes the XML result.
// 503 responses mean the client is being throttled and are retried with backoff.
func (c *Client) search(ctx context.Context, entity, query string, out any) error {
	params := url.Values{}
	params.Add("query", query)
	params.Add("fmt", "xml")
	params.Add("limit", fmt.Sprint(searchLimit))

	reqURL := fmt.Sprintf("%s/%s/?%s", c.baseURL, entity, params.Encode())

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		// Set required headers for MusicBrainz API
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/xml")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to make request: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusServiceUnavailable {
			c.logger.Debug("rate limited, backing off", "entity", entity)
			return fmt.Errorf("rate limited by MusicBrainz (503)")
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("MusicBrainz API returned status %d: %s", resp.StatusCode, string(body)))
		}

		if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode XML response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), maxRetries), ctx)
	return backoff.Retry(operation, policy)
}

var phraseEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quote wraps a value in a Lucene phrase, escaping embedded backslashes and quotes
func quote(s string) string {
	return `"` + phraseEscaper.Replace(s) + `"`
}
