package reconcile

import (
	"context"
	"iter"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/eralumin/playlistarr/spotify"
)

// Spotify returns at most 50 categories per page
const maxCategoryPage = 50

// DiscoveryOptions controls which playlists are discovered
type DiscoveryOptions struct {
	IncludedCategories    []string
	ExcludedCategories    []string // lower-cased
	ArtistPlaylistLimit   int
	CategoryPlaylistLimit int
	RandomCategoryLimit   int
}

// Discovery finds the playlists to mirror
type Discovery struct {
	catalog Catalog
	library Library
	server  Server
	opts    DiscoveryOptions
	logger  *log.Logger
}

// NewDiscovery creates a Discovery
func NewDiscovery(catalog Catalog, library Library, server Server, opts DiscoveryOptions, logger *log.Logger) *Discovery {
	return &Discovery{
		catalog: catalog,
		library: library,
		server:  server,
		opts:    opts,
		logger:  logger,
	}
}

// Discover lazily yields the playlists of three passes in order: playlists for every monitored
// artist of the local library, playlists of the included categories, then playlists of
// categories taken from the catalog's own listing. Listing errors are logged and the pass moves
// on to the next item.
func (d *Discovery) Discover(ctx context.Context) iter.Seq[spotify.Playlist] {
	return func(yield func(spotify.Playlist) bool) {
		passes := []func(context.Context, func(spotify.Playlist) bool) bool{
			d.byArtist,
			d.byIncludedCategory,
			d.byRandomCategory,
		}
		for _, pass := range passes {
			if ctx.Err() != nil || !pass(ctx, yield) {
				return
			}
		}
	}
}

func (d *Discovery) byArtist(ctx context.Context, yield func(spotify.Playlist) bool) bool {
	artists, err := d.server.Artists(ctx)
	if err != nil {
		d.logger.Error("failed to list local artists", "err", err)
		return true
	}

	for _, local := range artists {
		if ctx.Err() != nil {
			return false
		}

		artist, err := d.library.ArtistByName(ctx, local.Name)
		if err != nil {
			d.logger.Warn("failed to look artist up in library", "artist", local.Name, "err", err)
			continue
		}
		if artist == nil || artist.ID == 0 || !artist.Monitored {
			d.logger.Debug("skipping artist that is not monitored", "artist", local.Name)
			continue
		}

		d.logger.Info("fetching playlists for monitored artist", "artist", local.Name)
		playlists, err := d.catalog.PlaylistsForArtist(ctx, local.Name, d.opts.ArtistPlaylistLimit)
		if err != nil {
			d.logger.Error("failed to fetch playlists for artist", "artist", local.Name, "err", err)
			continue
		}
		if !yieldAll(playlists, yield) {
			return false
		}
	}
	return true
}

func (d *Discovery) byIncludedCategory(ctx context.Context, yield func(spotify.Playlist) bool) bool {
	for _, category := range d.opts.IncludedCategories {
		if ctx.Err() != nil {
			return false
		}

		d.logger.Info("fetching playlists for included category", "category", category)
		playlists, err := d.catalog.PlaylistsForCategory(ctx, category, d.opts.CategoryPlaylistLimit)
		if err != nil {
			d.logger.Error("failed to fetch playlists for category", "category", category, "err", err)
			continue
		}
		if !yieldAll(playlists, yield) {
			return false
		}
	}
	return true
}

func (d *Discovery) byRandomCategory(ctx context.Context, yield func(spotify.Playlist) bool) bool {
	for _, category := range d.Categories(ctx) {
		if ctx.Err() != nil {
			return false
		}

		d.logger.Info("fetching playlists for category", "category", category.Name)
		playlists, err := d.catalog.PlaylistsForCategory(ctx, category.ID, d.opts.CategoryPlaylistLimit)
		if err != nil {
			d.logger.Error("failed to fetch playlists for category", "category", category.Name, "err", err)
			continue
		}
		if !yieldAll(playlists, yield) {
			return false
		}
	}
	return true
}

// Categories pages through the catalog's categories and returns up to RandomCategoryLimit of
// them, skipping excluded names and names already taken (compared lower-cased). It stops early
// when a page is empty or brings no name it has not seen, so a catalog with fewer categories than
// the limit cannot keep it looping.
func (d *Discovery) Categories(ctx context.Context) []spotify.Category {
	limit := d.opts.RandomCategoryLimit
	if limit <= 0 {
		return nil
	}
	pageSize := min(limit, maxCategoryPage)

	var selected []spotify.Category
	seen := make(map[string]bool)
	offset := 0

	for ctx.Err() == nil {
		page, err := d.catalog.Categories(ctx, offset, pageSize)
		if err != nil {
			d.logger.Error("failed to fetch categories", "offset", offset, "err", err)
			break
		}
		if len(page) == 0 {
			d.logger.Debug("no more categories to fetch")
			break
		}
		offset += len(page)

		fresh := 0
		for _, category := range page {
			name := strings.ToLower(category.Name)
			if seen[name] {
				continue
			}
			seen[name] = true
			fresh++

			if slices.Contains(d.opts.ExcludedCategories, name) {
				d.logger.Debug("skipping excluded category", "category", category.Name)
				continue
			}

			selected = append(selected, category)
			if len(selected) >= limit {
				return selected
			}
		}

		if fresh == 0 {
			break
		}
	}

	return selected
}

func yieldAll(playlists []spotify.Playlist, yield func(spotify.Playlist) bool) bool {
	for _, playlist := range playlists {
		if !yield(playlist) {
			return false
		}
	}
	return true
}
