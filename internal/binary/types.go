package binary

import "github.com/codexm-app/depfetch/internal/platform"

// Tool names the executables this fetcher knows how to recover.
type Tool string

const (
	// ToolCodex is the primary agent binary inside the codex-termux archive.
	ToolCodex Tool = "codex"
	// ToolCodexExec is the companion exec binary bundled with codex.
	ToolCodexExec Tool = "codex-exec"
	// ToolRipgrep is the rg binary from the ripgrep-prebuilt releases.
	ToolRipgrep Tool = "rg"
)

// String returns the canonical on-disk name of the tool.
func (t Tool) String() string {
	return string(t)
}

// primaryNames and secondaryNames are the basename hints tried before the
// size-ranking fallback. Upstream has shipped both dash and underscore
// spellings of the exec binary.
var (
	primaryNames   = map[string]bool{"codex": true}
	secondaryNames = map[string]bool{"codex-exec": true, "codex_exec": true}
)

const (
	// minToolSize excludes shell wrappers, licenses, and metadata when
	// scanning the codex archive: only full native executables qualify.
	minToolSize = 10 * 1024 * 1024
	// minNamedSize is the floor for single-binary extraction. A
	// same-named placeholder below it is never accepted.
	minNamedSize = 100_000
)

// ToolPaths reports where dual-binary extraction placed its results.
type ToolPaths struct {
	Primary   string
	Secondary string
}

// Result describes one completed platform pass.
type Result struct {
	ABI platform.ABI
	// Extracted maps each tool that was produced to its final path.
	Extracted map[Tool]string
	// Skipped maps each tool that was not attempted to the reason why.
	Skipped map[Tool]string
}
