// Package github is a read-only client for the GitHub release directory:
// it fetches release metadata and resolves the assets other components
// download. Only tag names, draft/prerelease flags, and asset name, URL,
// and digest fields are consumed.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	gogithub "github.com/google/go-github/v74/github"
	"github.com/sirupsen/logrus"
)

// DefaultUserAgent is the User-Agent header sent with API requests.
const DefaultUserAgent = "depfetch/1.0"

// Config holds everything a client call needs. There is no ambient state:
// token, user agent, and endpoint travel with the client explicitly.
type Config struct {
	// Token is an optional bearer token. It raises rate limits and is
	// required for private repositories.
	Token string
	// UserAgent overrides DefaultUserAgent when non-empty.
	UserAgent string
	// BaseURL overrides the public API endpoint (GitHub Enterprise,
	// test servers). Must end with a slash when set.
	BaseURL string
}

// Client is a read-only release directory client.
type Client struct {
	gh     *gogithub.Client
	logger *logrus.Entry
}

// NewClient creates a release directory client from explicit configuration.
func NewClient(cfg Config) (*Client, error) {
	gh := gogithub.NewClient(nil)
	if cfg.Token != "" {
		gh = gh.WithAuthToken(cfg.Token)
	}

	gh.UserAgent = DefaultUserAgent
	if cfg.UserAgent != "" {
		gh.UserAgent = cfg.UserAgent
	}

	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse API base URL: %w", err)
		}
		gh.BaseURL = base
	}

	return &Client{
		gh:     gh,
		logger: logrus.WithField("component", "github-client"),
	}, nil
}

// GetRelease fetches a single release, by concrete tag or by the freshness
// marker TagLatest.
func (c *Client) GetRelease(ctx context.Context, repo Repo, tag string) (*ReleaseMetadata, error) {
	c.logger.WithFields(logrus.Fields{
		"repo": repo.String(),
		"tag":  tag,
	}).Debug("Fetching release metadata")

	var (
		rel *gogithub.RepositoryRelease
		err error
	)
	if tag == TagLatest {
		rel, _, err = c.gh.Repositories.GetLatestRelease(ctx, repo.Owner, repo.Name)
	} else {
		rel, _, err = c.gh.Repositories.GetReleaseByTag(ctx, repo.Owner, repo.Name, tag)
	}
	if err != nil {
		return nil, &ResolutionError{Repo: repo, Tag: tag, Err: err}
	}

	return releaseMetadata(rel), nil
}

// ListRecentReleases returns up to perPage recent releases in API order,
// most recent first. A single page is fetched; the fallback search is
// deliberately bounded and never paginates further.
func (c *Client) ListRecentReleases(ctx context.Context, repo Repo, perPage int) ([]*ReleaseMetadata, error) {
	rels, _, err := c.gh.Repositories.ListReleases(ctx, repo.Owner, repo.Name,
		&gogithub.ListOptions{PerPage: perPage})
	if err != nil {
		return nil, &ResolutionError{Repo: repo, Tag: TagLatest, Err: err}
	}

	out := make([]*ReleaseMetadata, len(rels))
	for i, rel := range rels {
		out[i] = releaseMetadata(rel)
	}
	return out, nil
}

// releaseMetadata converts an API release into our read-only snapshot.
// Missing optional fields collapse to zero values: an absent or non-sha256
// digest becomes an empty SHA256, and a sibling "<name>.asc" asset, when
// present, becomes the asset's SignatureURL.
func releaseMetadata(rel *gogithub.RepositoryRelease) *ReleaseMetadata {
	sigURLs := make(map[string]string)
	for _, a := range rel.Assets {
		if trimmed, ok := strings.CutSuffix(a.GetName(), ".asc"); ok && trimmed != "" {
			sigURLs[trimmed] = a.GetBrowserDownloadURL()
		}
	}

	meta := &ReleaseMetadata{
		Tag:        rel.GetTagName(),
		Draft:      rel.GetDraft(),
		Prerelease: rel.GetPrerelease(),
	}
	for _, a := range rel.Assets {
		asset := ReleaseAsset{
			Name:         a.GetName(),
			URL:          a.GetBrowserDownloadURL(),
			SignatureURL: sigURLs[a.GetName()],
		}
		if hex, ok := ParseSHA256Digest(a.GetDigest()); ok {
			asset.SHA256 = hex
		}
		meta.Assets = append(meta.Assets, asset)
	}
	return meta
}
