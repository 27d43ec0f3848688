package binary

import "fmt"

// IntegrityError means the downloaded bytes do not match the digest the
// release published. The file on disk must not be consumed downstream.
type IntegrityError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("sha256 mismatch for %s:\nexpected: %s\nactual:   %s",
		e.Path, e.Expected, e.Actual)
}

// NoExecutableError means an archive was scanned end to end and no member
// survived the size and magic-byte filters (and, for named extraction, the
// basename check).
type NoExecutableError struct {
	Archive string
	Want    string // wanted basename, empty for heuristic scans
}

func (e *NoExecutableError) Error() string {
	if e.Want != "" {
		return fmt.Sprintf("no executable named %q found in %s", e.Want, e.Archive)
	}
	return fmt.Sprintf("no executable members found in %s", e.Archive)
}

// AmbiguousArchiveError means the archive does not contain enough distinct
// qualifying executables to satisfy dual extraction. This usually indicates
// the upstream archive layout changed.
type AmbiguousArchiveError struct {
	Archive string
	Reason  string
}

func (e *AmbiguousArchiveError) Error() string {
	return fmt.Sprintf("cannot pick two executables from %s: %s", e.Archive, e.Reason)
}
