package github

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// FallbackPageSize bounds the recent-releases fallback search to a single
// page. No further pagination: a usable archive older than this is stale
// enough that failing loudly is the better outcome.
const FallbackPageSize = 30

// ResolveAsset returns the first asset in API order whose name equals want.
// API list order is authoritative and never re-sorted.
func ResolveAsset(repo Repo, release *ReleaseMetadata, want string) (*ReleaseAsset, error) {
	for i := range release.Assets {
		if release.Assets[i].Name == want {
			return &release.Assets[i], nil
		}
	}
	return nil, &AssetNotFoundError{
		Repo:      repo,
		Tag:       release.Tag,
		Want:      want,
		Available: release.AssetNames(),
	}
}

// ResolveArchiveAsset picks the first asset whose name ends in suffix from
// the release identified by tag.
//
// When tag is the freshness marker and the latest release carries no
// suffix-matching asset, recent releases are walked most-recent-first,
// skipping drafts and prereleases, and the first one with a match is
// adopted. A freshly published "latest" release is visible through the API
// before its build artifacts finish uploading; without the fallback a
// legitimate new tag would look like it has no archive at all.
func (c *Client) ResolveArchiveAsset(ctx context.Context, repo Repo, tag, suffix string) (*ReleaseAsset, error) {
	release, err := c.GetRelease(ctx, repo, tag)
	if err != nil {
		return nil, err
	}

	if asset := firstWithSuffix(release, suffix); asset != nil {
		return asset, nil
	}

	if tag != TagLatest {
		return nil, &AssetNotFoundError{
			Repo:      repo,
			Tag:       release.Tag,
			Want:      "*" + suffix,
			Available: release.AssetNames(),
		}
	}

	c.logger.WithFields(logrus.Fields{
		"repo":   repo.String(),
		"tag":    release.Tag,
		"suffix": suffix,
	}).Info("Latest release has no matching archive, searching recent releases")

	recent, err := c.ListRecentReleases(ctx, repo, FallbackPageSize)
	if err != nil {
		return nil, err
	}

	for _, rel := range recent {
		if rel.Draft || rel.Prerelease {
			continue
		}
		if asset := firstWithSuffix(rel, suffix); asset != nil {
			c.logger.WithFields(logrus.Fields{
				"repo": repo.String(),
				"tag":  rel.Tag,
			}).Info("Falling back to earlier release")
			return asset, nil
		}
	}

	return nil, &AssetNotFoundError{
		Repo:      repo,
		Tag:       tag,
		Want:      "*" + suffix,
		Available: release.AssetNames(),
	}
}

// firstWithSuffix returns the first suffix-matching asset in API order,
// or nil. Assets with an empty download URL are never usable.
func firstWithSuffix(release *ReleaseMetadata, suffix string) *ReleaseAsset {
	for i := range release.Assets {
		a := &release.Assets[i]
		if strings.HasSuffix(a.Name, suffix) && a.URL != "" {
			return a
		}
	}
	return nil
}
