package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/charmbracelet/log"

	"github.com/eralumin/playlistarr/lidarr"
)

var (
	// ErrNoCanonicalID is returned for a new album without a MusicBrainz id, which Lidarr cannot add
	ErrNoCanonicalID = errors.New("album has no canonical id")
	// ErrNoRootFolder is returned when a new album has no root folder to be created under
	ErrNoRootFolder = errors.New("no root folder")
)

// Outcome is what reconciling an album did
type Outcome int

const (
	OutcomeUnchanged Outcome = iota
	OutcomeMonitored
	OutcomeCreated
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeMonitored:
		return "monitored"
	case OutcomeCreated:
		return "created"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Placement is where and how new albums are added
type Placement struct {
	Profiles   Profiles
	RootFolder string
}

// LibraryReconciler makes sure Lidarr wants an album
type LibraryReconciler struct {
	library Library
	logger  *log.Logger
}

// NewLibraryReconciler creates a LibraryReconciler
func NewLibraryReconciler(library Library, logger *log.Logger) *LibraryReconciler {
	return &LibraryReconciler{library: library, logger: logger}
}

// Reconcile leaves a monitored album alone, monitors a tracked but unmonitored one and creates
// an untracked one. It never unmonitors and never retries. Failures are logged and returned
// with OutcomeFailed.
func (r *LibraryReconciler) Reconcile(ctx context.Context, album lidarr.Album, placement Placement) (Outcome, error) {
	logger := r.logger.With("album", album.Title, "artist", album.Artist.Name)

	switch {
	case album.ID != 0 && album.Monitored:
		logger.Debug("album already monitored")
		return OutcomeUnchanged, nil

	case album.ID != 0:
		logger.Info("album exists but is not monitored, monitoring it")
		if err := r.library.SetAlbumMonitored(ctx, album); err != nil {
			logger.Error("failed to monitor album", "err", err)
			return OutcomeFailed, err
		}
		return OutcomeMonitored, nil
	}

	if album.ForeignAlbumID == "" {
		err := fmt.Errorf("%w: %s by %s", ErrNoCanonicalID, album.Title, album.Artist.Name)
		logger.Error("cannot add album", "err", err)
		return OutcomeFailed, err
	}
	if placement.RootFolder == "" {
		err := fmt.Errorf("%w for %s by %s", ErrNoRootFolder, album.Title, album.Artist.Name)
		logger.Error("cannot add album", "err", err)
		return OutcomeFailed, err
	}

	logger.Info("adding album")
	_, err := r.library.CreateAlbum(ctx, album, lidarr.CreateOptions{
		QualityProfileID:  placement.Profiles.Quality.ID,
		MetadataProfileID: placement.Profiles.Metadata.ID,
		RootFolderPath:    placement.RootFolder,
		ArtistPath:        ArtistFolder(placement.RootFolder, album.Artist),
	})
	if err != nil {
		logger.Error("failed to add album", "err", err)
		return OutcomeFailed, err
	}
	return OutcomeCreated, nil
}

// ArtistFolder is the folder of an artist under root: the artist's existing path when Lidarr
// has one, else the artist name, suffixed with its disambiguation when known so that namesakes
// do not share a folder
func ArtistFolder(root string, artist lidarr.Artist) string {
	if artist.Path != "" {
		return artist.Path
	}

	name := artist.Name
	if artist.Disambiguation != "" {
		name = fmt.Sprintf("%s (%s)", name, artist.Disambiguation)
	}
	return path.Join(root, name)
}
