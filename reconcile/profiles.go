package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/eralumin/playlistarr/lidarr"
)

// ErrProfileNotFound is returned when a configured profile name does not exist in Lidarr
var ErrProfileNotFound = errors.New("profile not found")

// Profiles are the quality and metadata profiles new albums are created with
type Profiles struct {
	Quality  lidarr.Profile
	Metadata lidarr.Profile
}

// ProfileResolver resolves profile names to profiles
type ProfileResolver struct {
	library Library
}

// NewProfileResolver creates a ProfileResolver
func NewProfileResolver(library Library) *ProfileResolver {
	return &ProfileResolver{library: library}
}

// Resolve looks both profiles up by exact, case-sensitive name. There is no fallback: a
// misspelled name fails the run.
func (r *ProfileResolver) Resolve(ctx context.Context, qualityName, metadataName string) (Profiles, error) {
	qualityProfiles, err := r.library.QualityProfiles(ctx)
	if err != nil {
		return Profiles{}, err
	}
	quality, ok := findProfile(qualityProfiles, qualityName)
	if !ok {
		return Profiles{}, fmt.Errorf("quality %w: %q", ErrProfileNotFound, qualityName)
	}

	metadataProfiles, err := r.library.MetadataProfiles(ctx)
	if err != nil {
		return Profiles{}, err
	}
	metadata, ok := findProfile(metadataProfiles, metadataName)
	if !ok {
		return Profiles{}, fmt.Errorf("metadata %w: %q", ErrProfileNotFound, metadataName)
	}

	return Profiles{Quality: quality, Metadata: metadata}, nil
}

func findProfile(profiles []lidarr.Profile, name string) (lidarr.Profile, bool) {
	return lo.Find(profiles, func(p lidarr.Profile) bool { return p.Name == name })
}
