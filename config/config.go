package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Default limits applied when the corresponding variable is not set
const (
	DefaultArtistPlaylistLimit   = 5
	DefaultCategoryPlaylistLimit = 5
	DefaultRandomCategoryLimit   = 5
	DefaultLogLevel              = "info"
)

// Keys lists every recognized configuration key, in the order they are read
var Keys = []string{
	"SPOTIFY_CLIENT_ID",
	"SPOTIFY_CLIENT_SECRET",
	"SPOTIFY_INCLUDED_CATEGORIES",
	"SPOTIFY_EXCLUDED_CATEGORIES",
	"LIDARR_URL",
	"LIDARR_API_KEY",
	"LIDARR_ROOT_FOLDER",
	"QUALITY_PROFILE_NAME",
	"METADATA_PROFILE_NAME",
	"NAVIDROME_URL",
	"NAVIDROME_USERNAME",
	"NAVIDROME_PASSWORD",
	"MUSICBRAINZ_CONTACT",
	"ARTIST_PLAYLIST_LIMIT",
	"CATEGORY_PLAYLIST_LIMIT",
	"RANDOM_CATEGORY_LIMIT",
	"SCHEDULE",
	"RUN_ONCE",
	"LOG_LEVEL",
}

// Config holds all configuration values
type Config struct {
	Spotify     SpotifyConfig
	Lidarr      LidarrConfig
	Navidrome   NavidromeConfig
	MusicBrainz MusicBrainzConfig
	Playlists   PlaylistsConfig
	Schedule    string
	RunOnce     bool
	LogLevel    string
}

// SpotifyConfig holds Spotify API credentials
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

// LidarrConfig holds the library manager connection and profile names
type LidarrConfig struct {
	URL                 string
	APIKey              string
	RootFolder          string // optional, defaults to Lidarr's first root folder
	QualityProfileName  string
	MetadataProfileName string
}

// NavidromeConfig holds the streaming server connection
type NavidromeConfig struct {
	URL      string
	Username string
	Password string
}

// MusicBrainzConfig holds the contact advertised in the MusicBrainz User-Agent
type MusicBrainzConfig struct {
	Contact string
}

// PlaylistsConfig controls playlist discovery
type PlaylistsConfig struct {
	IncludedCategories    []string // lower-cased
	ExcludedCategories    []string // lower-cased
	ArtistPlaylistLimit   int
	CategoryPlaylistLimit int
	RandomCategoryLimit   int
}

// Load loads configuration following the specified order:
// 1. Start with defaults
// 2. Load from OS environment variables (only if they exist)
// 3. Load from .env file (only if it exists and values exist)
func Load() (*Config, error) {
	return LoadWithOverrides("", nil)
}

// LoadWithOverrides loads configuration like Load, reading envFile instead of .env when it is
// not empty, and then applies CLI flag overrides
func LoadWithOverrides(envFile string, overrides map[string]string) (*Config, error) {
	config := &Config{}

	config.initializeDefaults()

	var errs []error
	errs = append(errs, config.loadFromOSEnv()...)
	errs = append(errs, config.loadFromEnvFile(envFile)...)
	errs = append(errs, config.applyOverrides(overrides)...)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// initializeDefaults sets up the initial configuration with default values
func (c *Config) initializeDefaults() {
	c.Playlists = PlaylistsConfig{
		ArtistPlaylistLimit:   DefaultArtistPlaylistLimit,
		CategoryPlaylistLimit: DefaultCategoryPlaylistLimit,
		RandomCategoryLimit:   DefaultRandomCategoryLimit,
	}
	c.LogLevel = DefaultLogLevel
}

// loadFromOSEnv loads configuration from OS environment variables (only if they exist)
func (c *Config) loadFromOSEnv() []error {
	var errs []error
	for _, key := range Keys {
		if value := os.Getenv(key); value != "" {
			if err := c.set(key, value); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// loadFromEnvFile loads configuration from the env file (only if it exists and values exist)
func (c *Config) loadFromEnvFile(path string) []error {
	var (
		values map[string]string
		err    error
	)
	if path == "" {
		values, err = godotenv.Read()
	} else {
		values, err = godotenv.Read(path)
	}
	if err != nil {
		// A missing default .env is normal; an explicitly requested file must exist
		if path != "" {
			return []error{fmt.Errorf("failed to read env file %s: %w", path, err)}
		}
		return nil
	}

	var errs []error
	for _, key := range Keys {
		// Real environment variables take precedence over the file
		if os.Getenv(key) != "" {
			continue
		}
		if value := values[key]; value != "" {
			if err := c.set(key, value); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// applyOverrides applies CLI flag overrides to the configuration (only if they exist)
func (c *Config) applyOverrides(overrides map[string]string) []error {
	var errs []error
	for key, value := range overrides {
		if value == "" {
			continue
		}
		if err := c.set(key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// set assigns a single key. Unknown keys are ignored.
func (c *Config) set(key, value string) error {
	value = strings.TrimSpace(value)

	var err error
	switch key {
	case "SPOTIFY_CLIENT_ID":
		c.Spotify.ClientID = value
	case "SPOTIFY_CLIENT_SECRET":
		c.Spotify.ClientSecret = value
	case "SPOTIFY_INCLUDED_CATEGORIES":
		c.Playlists.IncludedCategories = parseCategoryList(value)
	case "SPOTIFY_EXCLUDED_CATEGORIES":
		c.Playlists.ExcludedCategories = parseCategoryList(value)
	case "LIDARR_URL":
		c.Lidarr.URL = strings.TrimSuffix(value, "/")
	case "LIDARR_API_KEY":
		c.Lidarr.APIKey = value
	case "LIDARR_ROOT_FOLDER":
		c.Lidarr.RootFolder = value
	case "QUALITY_PROFILE_NAME":
		c.Lidarr.QualityProfileName = value
	case "METADATA_PROFILE_NAME":
		c.Lidarr.MetadataProfileName = value
	case "NAVIDROME_URL":
		c.Navidrome.URL = strings.TrimSuffix(value, "/")
	case "NAVIDROME_USERNAME":
		c.Navidrome.Username = value
	case "NAVIDROME_PASSWORD":
		c.Navidrome.Password = value
	case "MUSICBRAINZ_CONTACT":
		c.MusicBrainz.Contact = value
	case "ARTIST_PLAYLIST_LIMIT":
		c.Playlists.ArtistPlaylistLimit, err = parseLimit(key, value)
	case "CATEGORY_PLAYLIST_LIMIT":
		c.Playlists.CategoryPlaylistLimit, err = parseLimit(key, value)
	case "RANDOM_CATEGORY_LIMIT":
		c.Playlists.RandomCategoryLimit, err = parseLimit(key, value)
	case "SCHEDULE":
		c.Schedule = value
	case "RUN_ONCE":
		c.RunOnce, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid %s '%s': %w", key, value, err)
		}
	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)
	}

	return err
}

// parseCommaSeparatedList parses a comma-separated string into a slice of trimmed strings
func parseCommaSeparatedList(input string) []string {
	if input == "" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(input, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}

// parseCategoryList parses a comma-separated category list, lower-casing every entry
func parseCategoryList(input string) []string {
	items := parseCommaSeparatedList(input)
	for i, item := range items {
		items[i] = strings.ToLower(item)
	}
	return items
}

// parseLimit parses a non-negative playlist or category limit
func parseLimit(key, value string) (int, error) {
	limit, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", key, value, err)
	}
	if limit < 0 {
		return 0, fmt.Errorf("invalid %s '%s': must not be negative", key, value)
	}
	return limit, nil
}

// validate checks that all required configuration values are present
func (c *Config) validate() error {
	var missingFields []string

	required := []struct {
		key   string
		value string
	}{
		{"SPOTIFY_CLIENT_ID", c.Spotify.ClientID},
		{"SPOTIFY_CLIENT_SECRET", c.Spotify.ClientSecret},
		{"LIDARR_URL", c.Lidarr.URL},
		{"LIDARR_API_KEY", c.Lidarr.APIKey},
		{"QUALITY_PROFILE_NAME", c.Lidarr.QualityProfileName},
		{"METADATA_PROFILE_NAME", c.Lidarr.MetadataProfileName},
		{"NAVIDROME_URL", c.Navidrome.URL},
		{"NAVIDROME_USERNAME", c.Navidrome.Username},
		{"NAVIDROME_PASSWORD", c.Navidrome.Password},
	}
	for _, field := range required {
		if field.value == "" {
			missingFields = append(missingFields, field.key)
		}
	}

	if c.Schedule == "" && !c.RunOnce {
		missingFields = append(missingFields, "SCHEDULE (or RUN_ONCE)")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration values:\n%s\n\nSet these values via environment variables, .env file, or CLI flags", strings.Join(missingFields, "\n"))
	}

	return nil
}
