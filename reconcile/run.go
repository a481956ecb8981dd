package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/eralumin/playlistarr/logging"
	"github.com/eralumin/playlistarr/navidrome"
	"github.com/eralumin/playlistarr/spotify"
)

// Options configures a Reconciler
type Options struct {
	QualityProfileName  string
	MetadataProfileName string
	RootFolder          string // empty means Lidarr's first root folder
	Discovery           DiscoveryOptions
}

// Summary counts what a run did
type Summary struct {
	RunID     string
	Playlists int
	Tracks    int
	Matched   int // tracks found in the local library
	Missing   int // tracks not found in the local library
	Created   int // albums added to Lidarr
	Monitored int // albums flipped to monitored
	Failed    int // album or playlist updates that failed
	Duration  time.Duration
}

// Reconciler runs reconciliations. It keeps no state between runs.
type Reconciler struct {
	catalog Catalog
	library Library
	server  Server
	lookup  Lookup
	opts    Options
	logger  *log.Logger
}

// New creates a Reconciler
func New(catalog Catalog, library Library, server Server, lookup Lookup, opts Options, logger *log.Logger) *Reconciler {
	return &Reconciler{
		catalog: catalog,
		library: library,
		server:  server,
		lookup:  lookup,
		opts:    opts,
		logger:  logging.Component(logger, "reconcile"),
	}
}

// Run resolves the profiles, then for every discovered playlist reconciles the album of each
// track with Lidarr, looks the track up in Navidrome and rebuilds the Navidrome playlist from the
// tracks found. Only an unresolvable profile or a cancelled context make it return an error;
// every other failure is logged and counted.
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: uuid.NewString()}
	logger := r.logger.With("run", summary.RunID)

	if lookup, ok := r.lookup.(resetter); ok {
		lookup.Reset()
	}

	logger.Info("starting run")

	profiles, err := NewProfileResolver(r.library).Resolve(ctx, r.opts.QualityProfileName, r.opts.MetadataProfileName)
	if err != nil {
		logger.Error("failed to resolve profiles, aborting run", "err", err)
		summary.Duration = time.Since(start)
		return summary, fmt.Errorf("failed to resolve profiles: %w", err)
	}
	logger.Debug("resolved profiles", "quality", profiles.Quality.ID, "metadata", profiles.Metadata.ID)

	placement := Placement{Profiles: profiles, RootFolder: r.rootFolder(ctx, logger)}

	var (
		discovery    = NewDiscovery(r.catalog, r.library, r.server, r.opts.Discovery, logger.With("step", "discovery"))
		matcher      = NewCatalogMatcher(r.library, r.lookup, logger.With("step", "match"))
		reconciler   = NewLibraryReconciler(r.library, logger.With("step", "library"))
		local        = NewLocalTrackMatcher(r.server, logger.With("step", "local"))
		materializer = NewMaterializer(r.server, logger.With("step", "playlist"))
	)

	for playlist := range discovery.Discover(ctx) {
		summary.Playlists++
		logger.Info("processing playlist", "playlist", playlist.Name, "tracks", len(playlist.Tracks))

		var found []navidrome.Track
		for _, track := range playlist.Tracks {
			if ctx.Err() != nil {
				break
			}
			if t, ok := r.reconcileTrack(ctx, track, placement, matcher, reconciler, local, &summary); ok {
				found = append(found, *t)
			}
		}
		if ctx.Err() != nil {
			break
		}

		if err := materializer.Materialize(ctx, playlist.Name, found); err != nil {
			logger.Error("failed to materialize playlist", "playlist", playlist.Name, "err", err)
			summary.Failed++
		}
	}

	summary.Duration = time.Since(start)
	if err := ctx.Err(); err != nil {
		logger.Warn("run interrupted", "err", err)
		return summary, err
	}

	logger.Info("run complete",
		"playlists", summary.Playlists,
		"tracks", summary.Tracks,
		"matched", summary.Matched,
		"missing", summary.Missing,
		"created", summary.Created,
		"monitored", summary.Monitored,
		"failed", summary.Failed,
		"duration", summary.Duration.Round(time.Millisecond),
	)
	return summary, nil
}

// reconcileTrack reconciles the album of a track and looks the track up locally. A track whose
// album could not be given a canonical id is not looked up.
func (r *Reconciler) reconcileTrack(
	ctx context.Context,
	track spotify.Track,
	placement Placement,
	matcher *CatalogMatcher,
	reconciler *LibraryReconciler,
	local *LocalTrackMatcher,
	summary *Summary,
) (*navidrome.Track, bool) {
	summary.Tracks++

	album := matcher.Match(ctx, track)
	outcome, err := reconciler.Reconcile(ctx, album, placement)
	switch outcome {
	case OutcomeCreated:
		summary.Created++
	case OutcomeMonitored:
		summary.Monitored++
	case OutcomeFailed:
		summary.Failed++
	}

	if errors.Is(err, ErrNoCanonicalID) {
		summary.Missing++
		return nil, false
	}

	t, ok := local.Find(ctx, track.Album.Artist.Name, track.Title)
	if !ok {
		summary.Missing++
		return nil, false
	}
	summary.Matched++
	return t, true
}

// rootFolder returns the configured root folder or else Lidarr's first one. Without either,
// album creations fail individually.
func (r *Reconciler) rootFolder(ctx context.Context, logger *log.Logger) string {
	if r.opts.RootFolder != "" {
		return r.opts.RootFolder
	}

	root, err := r.library.RootFolder(ctx)
	if err != nil {
		logger.Warn("failed to get root folder", "err", err)
		return ""
	}
	if root == "" {
		logger.Warn("Lidarr has no root folder, new albums cannot be added")
	}
	return root
}
