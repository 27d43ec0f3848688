// Package platform maps Android ABI identifiers to upstream artifact
// sources and exposes host facts to Lua manifests.
package platform

import (
	"fmt"
	"strings"
)

// ABI is an Android application binary interface identifier, e.g.
// "arm64-v8a". Each requested ABI drives one independent fetch pass.
type ABI string

// DefaultABI is the only ABI fetched when none are requested.
const DefaultABI ABI = "arm64-v8a"

// String returns the ABI identifier.
func (a ABI) String() string {
	return string(a)
}

// codexABIs lists the ABIs for which a working codex-termux release source
// is known. Other ABIs still get their remaining tools; the codex step is
// skipped with a reported reason.
var codexABIs = map[ABI]bool{
	"arm64-v8a": true,
}

// SupportsCodex reports whether a codex-termux source exists for the ABI.
func SupportsCodex(abi ABI) bool {
	return codexABIs[abi]
}

// ripgrepTargets maps ABIs to the target triples ripgrep-prebuilt publishes.
var ripgrepTargets = map[ABI]string{
	"arm64-v8a": "aarch64-unknown-linux-musl",
}

// RipgrepTarget returns the ripgrep-prebuilt target triple for the ABI.
func RipgrepTarget(abi ABI) (string, bool) {
	target, ok := ripgrepTargets[abi]
	return target, ok
}

// RipgrepAssetName builds the exact asset file name ripgrep-prebuilt uses
// for a release tag and target triple. Asset naming embeds the version
// without its leading "v".
func RipgrepAssetName(tag, target string) string {
	version := strings.TrimPrefix(tag, "v")
	return fmt.Sprintf("ripgrep-v%s-%s.tar.gz", version, target)
}
