package github

import (
	"fmt"
	"strings"
)

// ResolutionError means a release could not be fetched: unknown tag,
// unreachable API, or a malformed response.
type ResolutionError struct {
	Repo Repo
	Tag  string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve release %s@%s: %v", e.Repo, e.Tag, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// AssetNotFoundError means no asset matched the naming rule, possibly after
// the recency fallback was exhausted. Available carries the asset names that
// were actually present so a failed run can be diagnosed without re-running.
type AssetNotFoundError struct {
	Repo      Repo
	Tag       string
	Want      string
	Available []string
}

func (e *AssetNotFoundError) Error() string {
	available := "<none>"
	if len(e.Available) > 0 {
		available = strings.Join(e.Available, ", ")
	}
	return fmt.Sprintf("no asset matching %q in %s@%s (assets: %s)",
		e.Want, e.Repo, e.Tag, available)
}
