package github

import (
	"fmt"
	"strings"
)

// ReleaseAsset is one downloadable file attached to a release.
// Immutable once constructed; consumed exactly once by the downloader.
type ReleaseAsset struct {
	Name string
	URL  string
	// SHA256 is the hex digest published by the API, empty when the
	// release predates digest support or uses another algorithm.
	SHA256 string
	// SignatureURL points at a detached .asc signature asset when the
	// release publishes one alongside the archive.
	SignatureURL string
}

// ReleaseMetadata is a read-only snapshot of one release.
type ReleaseMetadata struct {
	Tag        string
	Draft      bool
	Prerelease bool
	Assets     []ReleaseAsset
}

// AssetNames returns the names of all assets in API order, for diagnostics.
func (r *ReleaseMetadata) AssetNames() []string {
	names := make([]string, len(r.Assets))
	for i, a := range r.Assets {
		names[i] = a.Name
	}
	return names
}

// Repo identifies a GitHub repository as an owner/name pair.
type Repo struct {
	Owner string
	Name  string
}

// SplitRepo parses an "owner/name" identifier.
func SplitRepo(id string) (Repo, error) {
	owner, name, ok := strings.Cut(id, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repo{}, fmt.Errorf("invalid repository %q: want owner/name", id)
	}
	return Repo{Owner: owner, Name: name}, nil
}

// String returns the owner/name form.
func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// TagLatest is the freshness marker meaning "most recent published release".
const TagLatest = "latest"
