package github

import "strings"

// ParseSHA256Digest extracts the hex portion of an API digest string of the
// form "sha256:<hex>". Digests using any other algorithm, and empty or
// malformed strings, are treated as absent.
func ParseSHA256Digest(digest string) (string, bool) {
	digest = strings.TrimSpace(digest)
	hex, ok := strings.CutPrefix(digest, "sha256:")
	if !ok {
		return "", false
	}
	hex = strings.TrimSpace(hex)
	if hex == "" {
		return "", false
	}
	return hex, true
}
