// Package binary downloads, verifies, and extracts the prebuilt native
// executables (codex, codex-exec, rg) that get packaged into the app's
// per-ABI asset directories.
//
// # Integrity Model
//
// Every asset is fetched from an upstream GitHub release and is only
// trusted after verification:
//   - SHA-256: computed while streaming the download and compared against
//     the digest the release API publishes for the asset. A mismatch is
//     fatal and the bytes are never extracted.
//   - GPG (optional): when a keyring directory is configured and the
//     release carries a detached .asc signature, the signature is checked
//     before extraction.
//
// # Extraction Heuristics
//
// The codex-termux archive does not guarantee stable member names, so
// extraction is content-based: regular-file members are filtered by a
// minimum size and by the ELF magic in their first four bytes, then the
// primary and secondary executables are picked by basename when a known
// name is present and by size rank when it is not. Selection is a pure
// function over member descriptors (see select.go) so it can be tested
// against synthetic archives.
//
// # Components
//
//   - Manager: one pipeline pass per ABI (resolve, download, verify, extract)
//   - Downloader: streaming HTTP download with incremental hashing
//   - Verifier: optional detached-signature verification
//   - Extractor: gzip-tar scanning and member extraction
package binary
