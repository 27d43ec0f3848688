package binary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/codexm-app/depfetch/internal/github"
	"github.com/codexm-app/depfetch/internal/platform"
)

// stubResolver satisfies Resolver without touching the network.
type stubResolver struct {
	archiveAsset *github.ReleaseAsset
	archiveErr   error
	release      *github.ReleaseMetadata
	releaseErr   error
}

func (s *stubResolver) GetRelease(ctx context.Context, repo github.Repo, tag string) (*github.ReleaseMetadata, error) {
	if s.releaseErr != nil {
		return nil, s.releaseErr
	}
	return s.release, nil
}

func (s *stubResolver) ResolveArchiveAsset(ctx context.Context, repo github.Repo, tag, suffix string) (*github.ReleaseAsset, error) {
	if s.archiveErr != nil {
		return nil, s.archiveErr
	}
	return s.archiveAsset, nil
}

// fileSHA256 returns the hex digest of a file on disk.
func fileSHA256(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		t.Fatalf("hash %s: %v", path, err)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// newTestFixtures builds a codex dual-binary archive and a ripgrep archive,
// serves both over a local server, and returns a resolver wired to them.
func newTestFixtures(t *testing.T) *stubResolver {
	t.Helper()

	codexArchive := createTestTarGz(t, []tarEntry{
		{name: "codex-termux/bin/codex", data: elfBytes(11 * mib)},
		{name: "codex-termux/bin/codex-exec", data: elfBytes(10 * mib)},
		{name: "codex-termux/LICENSE", data: []byte("MIT")},
	})
	rgArchive := createTestTarGz(t, []tarEntry{
		{name: "ripgrep-v15.0.0/rg", data: elfBytes(200_001)},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/codex.tgz", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, codexArchive)
	})
	mux.HandleFunc("/rg.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, rgArchive)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	rgAssetName := platform.RipgrepAssetName("v15.0.0", "aarch64-unknown-linux-musl")
	return &stubResolver{
		archiveAsset: &github.ReleaseAsset{
			Name:   "codex-termux-arm64.tgz",
			URL:    server.URL + "/codex.tgz",
			SHA256: fileSHA256(t, codexArchive),
		},
		release: &github.ReleaseMetadata{
			Tag: "v15.0.0",
			Assets: []github.ReleaseAsset{
				{
					Name:   rgAssetName,
					URL:    server.URL + "/rg.tar.gz",
					SHA256: fileSHA256(t, rgArchive),
				},
			},
		},
	}
}

func newTestManager(t *testing.T, resolver Resolver, outputDir string, keepGoing bool) *Manager {
	t.Helper()
	return newTestManagerWithVerifier(t, resolver, outputDir, keepGoing, nil)
}

func newTestManagerWithVerifier(t *testing.T, resolver Resolver, outputDir string, keepGoing bool, verifier *Verifier) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		OutputDir:  outputDir,
		Codex:      Source{Repo: github.Repo{Owner: "DioNanos", Name: "codex-termux"}, Tag: "latest"},
		Ripgrep:    Source{Repo: github.Repo{Owner: "microsoft", Name: "ripgrep-prebuilt"}, Tag: "v15.0.0"},
		KeepGoing:  keepGoing,
		Resolver:   resolver,
		Downloader: NewDownloader(""),
		Verifier:   verifier,
		Extractor:  NewExtractor(),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestFetchAllFullPass(t *testing.T) {
	resolver := newTestFixtures(t)
	outputDir := t.TempDir()
	m := newTestManager(t, resolver, outputDir, false)

	results, err := m.FetchAll(context.Background(), []platform.ABI{"arm64-v8a"})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	abiDir := filepath.Join(outputDir, "arm64-v8a")
	checkExecutableFile(t, filepath.Join(abiDir, "codex"), 11*mib)
	checkExecutableFile(t, filepath.Join(abiDir, "codex-exec"), 10*mib)
	checkExecutableFile(t, filepath.Join(abiDir, "rg"), 200_001)

	if len(results[0].Extracted) != 3 {
		t.Errorf("Extracted has %d entries, want 3", len(results[0].Extracted))
	}
	if len(results[0].Skipped) != 0 {
		t.Errorf("Skipped = %v, want none", results[0].Skipped)
	}
}

func TestFetchAllUnsupportedABISkips(t *testing.T) {
	resolver := newTestFixtures(t)
	m := newTestManager(t, resolver, t.TempDir(), false)

	results, err := m.FetchAll(context.Background(), []platform.ABI{"x86"})
	if err != nil {
		t.Fatalf("FetchAll: skips must not fail the run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if len(results[0].Extracted) != 0 {
		t.Errorf("Extracted = %v, want none for an unmapped ABI", results[0].Extracted)
	}
	for _, tool := range []Tool{ToolCodex, ToolCodexExec, ToolRipgrep} {
		if results[0].Skipped[tool] == "" {
			t.Errorf("no skip reason reported for %s", tool)
		}
	}
}

func TestFetchAllAbortsOnFailure(t *testing.T) {
	resolver := newTestFixtures(t)
	resolver.archiveErr = errors.New("api unreachable")
	m := newTestManager(t, resolver, t.TempDir(), false)

	_, err := m.FetchAll(context.Background(), []platform.ABI{"arm64-v8a", "x86"})
	if err == nil {
		t.Fatal("expected the run to fail")
	}
}

func TestFetchAllKeepGoing(t *testing.T) {
	resolver := newTestFixtures(t)
	resolver.archiveErr = errors.New("api unreachable")
	m := newTestManager(t, resolver, t.TempDir(), true)

	results, err := m.FetchAll(context.Background(), []platform.ABI{"arm64-v8a", "x86"})
	if err == nil {
		t.Fatal("keep-going must still report the failure")
	}
	// The unmapped second ABI is still processed (as skips).
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestFetchAllDigestMismatchStopsExtraction(t *testing.T) {
	resolver := newTestFixtures(t)
	resolver.archiveAsset.SHA256 = "0000000000000000000000000000000000000000000000000000000000000000"
	outputDir := t.TempDir()
	m := newTestManager(t, resolver, outputDir, false)

	_, err := m.FetchAll(context.Background(), []platform.ABI{"arm64-v8a"})
	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("error = %v, want IntegrityError", err)
	}

	// Unverified bytes must never reach the destination.
	abiDir := filepath.Join(outputDir, "arm64-v8a")
	for _, name := range []string{"codex", "codex-exec", "rg"} {
		if _, err := os.Stat(filepath.Join(abiDir, name)); !os.IsNotExist(err) {
			t.Errorf("%s was extracted from an unverified archive", name)
		}
	}
}

// newSignedFixtures is newTestFixtures plus a detached signature over the
// codex archive, served next to it the way GitHub serves .asc assets.
func newSignedFixtures(t *testing.T, signer *openpgp.Entity) *stubResolver {
	t.Helper()

	codexArchive := createTestTarGz(t, []tarEntry{
		{name: "codex-termux/bin/codex", data: elfBytes(11 * mib)},
		{name: "codex-termux/bin/codex-exec", data: elfBytes(10 * mib)},
	})
	rgArchive := createTestTarGz(t, []tarEntry{
		{name: "ripgrep-v15.0.0/rg", data: elfBytes(200_001)},
	})
	sigPath := signDetached(t, signer, codexArchive, true)

	mux := http.NewServeMux()
	mux.HandleFunc("/codex.tgz", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, codexArchive)
	})
	mux.HandleFunc("/codex.tgz.asc", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, sigPath)
	})
	mux.HandleFunc("/rg.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, rgArchive)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	rgAssetName := platform.RipgrepAssetName("v15.0.0", "aarch64-unknown-linux-musl")
	return &stubResolver{
		archiveAsset: &github.ReleaseAsset{
			Name:         "codex-termux-arm64.tgz",
			URL:          server.URL + "/codex.tgz",
			SHA256:       fileSHA256(t, codexArchive),
			SignatureURL: server.URL + "/codex.tgz.asc",
		},
		release: &github.ReleaseMetadata{
			Tag: "v15.0.0",
			Assets: []github.ReleaseAsset{
				{
					Name:   rgAssetName,
					URL:    server.URL + "/rg.tar.gz",
					SHA256: fileSHA256(t, rgArchive),
				},
			},
		},
	}
}

func TestFetchAllVerifiesSignatures(t *testing.T) {
	signer := newSigningEntity(t)
	resolver := newSignedFixtures(t, signer)
	outputDir := t.TempDir()
	m := newTestManagerWithVerifier(t, resolver, outputDir, false, NewVerifier(writeKeyringDir(t, signer)))

	results, err := m.FetchAll(context.Background(), []platform.ABI{"arm64-v8a"})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(results) != 1 || len(results[0].Extracted) != 3 {
		t.Fatalf("results = %+v, want one full pass", results)
	}
	checkExecutableFile(t, filepath.Join(outputDir, "arm64-v8a", "codex"), 11*mib)
}

func TestFetchAllRejectsUntrustedSignature(t *testing.T) {
	signer := newSigningEntity(t)
	resolver := newSignedFixtures(t, signer)
	outputDir := t.TempDir()

	// Trust a different key than the one that signed the archive.
	m := newTestManagerWithVerifier(t, resolver, outputDir, false,
		NewVerifier(writeKeyringDir(t, newSigningEntity(t))))

	_, err := m.FetchAll(context.Background(), []platform.ABI{"arm64-v8a"})
	if err == nil {
		t.Fatal("expected the pass to fail on an untrusted signature")
	}

	// A signature failure must stop extraction cold.
	abiDir := filepath.Join(outputDir, "arm64-v8a")
	for _, name := range []string{"codex", "codex-exec", "rg"} {
		if _, err := os.Stat(filepath.Join(abiDir, name)); !os.IsNotExist(err) {
			t.Errorf("%s was extracted despite a failed signature check", name)
		}
	}
}

func TestFetchAllCleansTempDirs(t *testing.T) {
	resolver := newTestFixtures(t)
	tmpRoot := t.TempDir()
	t.Setenv("TMPDIR", tmpRoot)

	m := newTestManager(t, resolver, t.TempDir(), false)
	if _, err := m.FetchAll(context.Background(), []platform.ABI{"arm64-v8a"}); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	entries, err := os.ReadDir(tmpRoot)
	if err != nil {
		t.Fatalf("read temp root: %v", err)
	}
	for _, entry := range entries {
		t.Errorf("leftover temp artifact: %s", entry.Name())
	}
}
