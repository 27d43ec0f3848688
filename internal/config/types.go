// Package config parses the optional depfetch.lua manifest in a sandboxed
// Lua VM. Manifests are declarative: they name the upstream sources, the
// ABIs to fetch, and the destination tree, and may branch on the read-only
// host table injected before they run.
package config

import (
	"fmt"

	"github.com/codexm-app/depfetch/internal/github"
	"github.com/codexm-app/depfetch/internal/platform"
)

// Defaults used when the manifest (or a field of it) is absent.
const (
	DefaultCodexRepo   = "DioNanos/codex-termux"
	DefaultCodexTag    = "latest"
	DefaultRipgrepRepo = "microsoft/ripgrep-prebuilt"
	DefaultRipgrepTag  = "v15.0.0"
	DefaultOutputDir   = "packages/codexm-native/android/src/main/assets/codex"
)

// SourceSpec names one upstream release source.
type SourceSpec struct {
	Repo string `json:"repo"`
	Tag  string `json:"tag"`
}

// Manifest is the complete depfetch configuration.
type Manifest struct {
	Codex      SourceSpec `json:"codex"`
	Ripgrep    SourceSpec `json:"ripgrep"`
	ABIs       []string   `json:"abis,omitempty"`
	OutputDir  string     `json:"output_dir,omitempty"`
	KeyringDir string     `json:"keyring_dir,omitempty"`
}

// Default returns a manifest with every field at its default.
func Default() *Manifest {
	return &Manifest{
		Codex:     SourceSpec{Repo: DefaultCodexRepo, Tag: DefaultCodexTag},
		Ripgrep:   SourceSpec{Repo: DefaultRipgrepRepo, Tag: DefaultRipgrepTag},
		ABIs:      []string{platform.DefaultABI.String()},
		OutputDir: DefaultOutputDir,
	}
}

// Validate checks that the manifest can drive a run.
func (m *Manifest) Validate() error {
	if _, err := github.SplitRepo(m.Codex.Repo); err != nil {
		return fmt.Errorf("codex.repo: %w", err)
	}
	if m.Codex.Tag == "" {
		return fmt.Errorf("codex.tag must not be empty")
	}
	if _, err := github.SplitRepo(m.Ripgrep.Repo); err != nil {
		return fmt.Errorf("ripgrep.repo: %w", err)
	}
	if m.Ripgrep.Tag == "" {
		return fmt.Errorf("ripgrep.tag must not be empty")
	}
	if len(m.ABIs) == 0 {
		return fmt.Errorf("abis must name at least one ABI")
	}
	for _, abi := range m.ABIs {
		if abi == "" {
			return fmt.Errorf("abis must not contain empty entries")
		}
	}
	if m.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	return nil
}
