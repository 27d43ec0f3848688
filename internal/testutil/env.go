// Package testutil provides utilities for testing depfetch in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupTestEnv isolates a test from the invoking environment. Tests must
// never pick up a real GitHub token (it would change rate-limit behavior
// and could hit the live API) or write into a developer's assets tree.
// Cleanup is handled by t.TempDir and t.Setenv.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "")
	t.Setenv("DEPFETCH_OUTPUT_DIR", filepath.Join(tmpDir, "assets"))

	if err := os.MkdirAll(filepath.Join(tmpDir, "assets"), 0o750); err != nil {
		t.Fatalf("failed to create test output directory: %v", err)
	}

	return tmpDir
}
