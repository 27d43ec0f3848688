package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/codexm-app/depfetch/internal/binary"
	"github.com/codexm-app/depfetch/internal/config"
	"github.com/codexm-app/depfetch/internal/github"
	"github.com/codexm-app/depfetch/internal/platform"
	"github.com/codexm-app/depfetch/internal/transaction"
)

// fetchOptions collects the flag-level configuration surface. Values here
// override the manifest, which overrides built-in defaults.
type fetchOptions struct {
	abis        []string
	codexRepo   string
	codexTag    string
	ripgrepRepo string
	ripgrepTag  string
	outputDir   string
	manifest    string
	keyringDir  string
	keepGoing   bool
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "depfetch",
		Short: "Fetch verified prebuilt binaries into per-ABI asset directories",
		Long: `depfetch resolves GitHub releases for the codex-termux and
ripgrep-prebuilt projects, downloads their archives with streaming SHA-256
verification, and extracts the codex, codex-exec, and rg executables into
one destination directory per requested Android ABI.

A bearer token is read from GITHUB_TOKEN or GH_TOKEN when present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&opts.abis, "abi", nil, "Android ABI to fetch (repeatable, default arm64-v8a)")
	flags.StringVar(&opts.codexRepo, "codex-repo", config.DefaultCodexRepo, "codex-termux GitHub repository")
	flags.StringVar(&opts.codexTag, "codex-tag", config.DefaultCodexTag, "codex-termux release tag")
	flags.StringVar(&opts.ripgrepRepo, "ripgrep-repo", config.DefaultRipgrepRepo, "ripgrep-prebuilt GitHub repository")
	flags.StringVar(&opts.ripgrepTag, "ripgrep-tag", config.DefaultRipgrepTag, "ripgrep-prebuilt release tag")
	flags.StringVar(&opts.outputDir, "out", "", "destination root for per-ABI directories")
	flags.StringVar(&opts.manifest, "manifest", "depfetch.lua", "path to the Lua manifest")
	flags.StringVar(&opts.keyringDir, "keyring-dir", "", "directory of GPG public keys for signature verification")
	flags.BoolVar(&opts.keepGoing, "keep-going", false, "continue with remaining ABIs after a failure")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the depfetch version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("depfetch %s\n", Version)
		},
	}
}

func runFetch(cmd *cobra.Command, opts *fetchOptions) error {
	if opts.verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logger := logrus.WithField("component", "cli")
	ctx := context.Background()

	manifest, err := resolveManifest(ctx, cmd, opts)
	if err != nil {
		return err
	}

	codexRepo, err := github.SplitRepo(manifest.Codex.Repo)
	if err != nil {
		return err
	}
	ripgrepRepo, err := github.SplitRepo(manifest.Ripgrep.Repo)
	if err != nil {
		return err
	}

	client, err := github.NewClient(github.Config{Token: githubToken()})
	if err != nil {
		return err
	}

	lock, err := transaction.AcquireLock(manifest.OutputDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.WithError(err).Warn("Could not release fetch lock")
		}
	}()

	manager, err := binary.NewManager(binary.Config{
		OutputDir:  manifest.OutputDir,
		Codex:      binary.Source{Repo: codexRepo, Tag: manifest.Codex.Tag},
		Ripgrep:    binary.Source{Repo: ripgrepRepo, Tag: manifest.Ripgrep.Tag},
		KeepGoing:  opts.keepGoing,
		Resolver:   client,
		Downloader: binary.NewDownloader(githubToken()),
		Verifier:   binary.NewVerifier(manifest.KeyringDir),
		Extractor:  binary.NewExtractor(),
	})
	if err != nil {
		return err
	}

	abis := make([]platform.ABI, len(manifest.ABIs))
	for i, abi := range manifest.ABIs {
		abis[i] = platform.ABI(abi)
	}

	results, err := manager.FetchAll(ctx, abis)
	for _, result := range results {
		for tool, reason := range result.Skipped {
			logger.WithFields(logrus.Fields{
				"abi":  result.ABI.String(),
				"tool": tool.String(),
			}).Info("Skipped: " + reason)
		}
	}
	return err
}

// resolveManifest loads the Lua manifest and overlays any flags the user
// set explicitly. Precedence: flag, then environment, then manifest.
func resolveManifest(ctx context.Context, cmd *cobra.Command, opts *fetchOptions) (*config.Manifest, error) {
	parser := config.NewParser(platform.NewDetector())
	manifest, err := parser.ParseFile(ctx, opts.manifest)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("codex-repo") {
		manifest.Codex.Repo = opts.codexRepo
	}
	if flags.Changed("codex-tag") {
		manifest.Codex.Tag = opts.codexTag
	}
	if flags.Changed("ripgrep-repo") {
		manifest.Ripgrep.Repo = opts.ripgrepRepo
	}
	if flags.Changed("ripgrep-tag") {
		manifest.Ripgrep.Tag = opts.ripgrepTag
	}
	if flags.Changed("keyring-dir") {
		manifest.KeyringDir = opts.keyringDir
	}
	if len(opts.abis) > 0 {
		manifest.ABIs = opts.abis
	}

	switch {
	case flags.Changed("out"):
		manifest.OutputDir = opts.outputDir
	case os.Getenv("DEPFETCH_OUTPUT_DIR") != "":
		manifest.OutputDir = os.Getenv("DEPFETCH_OUTPUT_DIR")
	}

	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// githubToken reads the optional bearer token from the environment.
func githubToken() string {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}
	return os.Getenv("GH_TOKEN")
}
