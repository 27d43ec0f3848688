package binary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/codexm-app/depfetch/internal/github"
	"github.com/codexm-app/depfetch/internal/platform"
)

// ArchiveSuffix identifies the codex-termux archive asset, whose exact file
// name is not predictable across releases.
const ArchiveSuffix = ".tgz"

// Resolver is the release directory surface the manager needs. Satisfied by
// *github.Client; tests substitute a stub.
type Resolver interface {
	GetRelease(ctx context.Context, repo github.Repo, tag string) (*github.ReleaseMetadata, error)
	ResolveArchiveAsset(ctx context.Context, repo github.Repo, tag, suffix string) (*github.ReleaseAsset, error)
}

// Source names one upstream release source.
type Source struct {
	Repo github.Repo
	Tag  string
}

// Config holds everything a Manager needs. No ambient state: token, repos,
// and destinations all arrive here.
type Config struct {
	// OutputDir is the root of the per-ABI destination tree.
	OutputDir string
	// Codex is the codex-termux release source.
	Codex Source
	// Ripgrep is the ripgrep-prebuilt release source.
	Ripgrep Source
	// KeepGoing continues with remaining ABIs after a failed pass. The
	// run still reports failure at the end; errors are never dropped.
	KeepGoing bool

	Resolver   Resolver
	Downloader *Downloader
	Verifier   *Verifier
	Extractor  *Extractor
}

// Manager drives one fetch pipeline pass per requested ABI: resolve the
// codex archive, download and verify it, extract codex and codex-exec, then
// do the same for the independently sourced rg binary.
type Manager struct {
	cfg    Config
	logger *logrus.Entry
}

// NewManager creates a manager from explicit configuration.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("OutputDir is required")
	}
	if cfg.Resolver == nil || cfg.Downloader == nil || cfg.Extractor == nil {
		return nil, fmt.Errorf("resolver, downloader, and extractor are required")
	}
	if cfg.Verifier == nil {
		cfg.Verifier = NewVerifier("")
	}
	return &Manager{
		cfg:    cfg,
		logger: logrus.WithField("component", "manager"),
	}, nil
}

// FetchAll processes each ABI in order, strictly sequentially. Every pass
// is independent: one failure aborts the run unless KeepGoing is set, in
// which case remaining ABIs proceed and the joined failures are returned.
func (m *Manager) FetchAll(ctx context.Context, abis []platform.ABI) ([]*Result, error) {
	var (
		results []*Result
		errs    []error
	)
	for _, abi := range abis {
		result, err := m.fetchABI(ctx, abi)
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			err = fmt.Errorf("abi %s: %w", abi, err)
			if !m.cfg.KeepGoing {
				return results, err
			}
			m.logger.WithError(err).Error("Pass failed, continuing with remaining ABIs")
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// fetchABI runs one complete pipeline pass. Temporary downloads live in a
// pass-scoped directory that is removed on the way out, success or failure,
// so repeated runs never accumulate partial artifacts.
func (m *Manager) fetchABI(ctx context.Context, abi platform.ABI) (*Result, error) {
	outDir := filepath.Join(m.cfg.OutputDir, abi.String())
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "depfetch-"+abi.String()+"-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	result := &Result{
		ABI:       abi,
		Extracted: make(map[Tool]string),
		Skipped:   make(map[Tool]string),
	}
	logger := m.logger.WithField("abi", abi.String())

	if platform.SupportsCodex(abi) {
		if err := m.fetchCodex(ctx, logger, tmpDir, outDir, result); err != nil {
			return result, err
		}
	} else {
		reason := fmt.Sprintf("no codex-termux source for %s", abi)
		result.Skipped[ToolCodex] = reason
		result.Skipped[ToolCodexExec] = reason
		logger.WithField("reason", reason).Info("Skipping codex extraction")
	}

	if target, ok := platform.RipgrepTarget(abi); ok {
		if err := m.fetchRipgrep(ctx, logger, target, tmpDir, outDir, result); err != nil {
			return result, err
		}
	} else {
		reason := fmt.Sprintf("no ripgrep target triple for %s", abi)
		result.Skipped[ToolRipgrep] = reason
		logger.WithField("reason", reason).Info("Skipping rg extraction")
	}

	for tool, path := range result.Extracted {
		if info, err := os.Stat(path); err == nil {
			logger.WithFields(logrus.Fields{
				"tool":  tool.String(),
				"bytes": info.Size(),
			}).Info("Extracted")
		}
	}
	return result, nil
}

// fetchCodex resolves, downloads, verifies, and extracts the dual-binary
// codex archive into outDir.
func (m *Manager) fetchCodex(ctx context.Context, logger *logrus.Entry, tmpDir, outDir string, result *Result) error {
	asset, err := m.cfg.Resolver.ResolveArchiveAsset(ctx, m.cfg.Codex.Repo, m.cfg.Codex.Tag, ArchiveSuffix)
	if err != nil {
		return err
	}

	archivePath, err := m.fetchVerified(ctx, logger, asset, tmpDir)
	if err != nil {
		return err
	}

	paths, err := m.cfg.Extractor.ExtractTools(archivePath, outDir)
	if err != nil {
		return err
	}
	result.Extracted[ToolCodex] = paths.Primary
	result.Extracted[ToolCodexExec] = paths.Secondary
	return nil
}

// fetchRipgrep resolves the exact ripgrep asset for the ABI's target triple
// and extracts the single rg executable into outDir.
func (m *Manager) fetchRipgrep(ctx context.Context, logger *logrus.Entry, target, tmpDir, outDir string, result *Result) error {
	release, err := m.cfg.Resolver.GetRelease(ctx, m.cfg.Ripgrep.Repo, m.cfg.Ripgrep.Tag)
	if err != nil {
		return err
	}

	assetName := platform.RipgrepAssetName(release.Tag, target)
	asset, err := github.ResolveAsset(m.cfg.Ripgrep.Repo, release, assetName)
	if err != nil {
		return err
	}

	archivePath, err := m.fetchVerified(ctx, logger, asset, tmpDir)
	if err != nil {
		return err
	}

	rgPath, err := m.cfg.Extractor.ExtractNamed(archivePath, outDir, ToolRipgrep.String())
	if err != nil {
		return err
	}
	result.Extracted[ToolRipgrep] = rgPath
	return nil
}

// fetchVerified downloads one asset into the pass's temp dir, verifying the
// published digest while streaming and, when configured and available, the
// detached GPG signature. Extraction must never run on unverified bytes, so
// every failure here is terminal for the pass.
func (m *Manager) fetchVerified(ctx context.Context, logger *logrus.Entry, asset *github.ReleaseAsset, tmpDir string) (string, error) {
	logger.WithFields(logrus.Fields{
		"asset": asset.Name,
		"url":   asset.URL,
	}).Info("Downloading")

	archivePath := filepath.Join(tmpDir, asset.Name)
	if _, err := m.cfg.Downloader.Download(ctx, asset.URL, archivePath, asset.SHA256); err != nil {
		return "", err
	}

	if m.cfg.Verifier.Enabled() {
		if asset.SignatureURL == "" {
			logger.WithField("asset", asset.Name).Debug("Release publishes no signature, skipping GPG check")
			return archivePath, nil
		}
		sigPath := archivePath + ".asc"
		if _, err := m.cfg.Downloader.Download(ctx, asset.SignatureURL, sigPath, ""); err != nil {
			return "", fmt.Errorf("download signature: %w", err)
		}
		if err := m.cfg.Verifier.VerifySignature(archivePath, sigPath); err != nil {
			return "", err
		}
	}
	return archivePath, nil
}
