package binary

import (
	"errors"
	"path"
)

// elfMagic is the leading byte sequence of a native executable on the
// target platform family.
var elfMagic = [4]byte{0x7f, 'E', 'L', 'F'}

// Member describes one regular-file archive member: its internal name, its
// size, and its first four bytes. Members are transient scan artifacts;
// selection never touches the archive itself.
type Member struct {
	Name  string
	Size  int64
	Magic [4]byte
}

// IsELF reports whether the member's header bytes carry the ELF magic.
func (m Member) IsELF() bool {
	return m.Magic == elfMagic
}

var (
	errNoExecutables = errors.New("no executable members")
	errNoSecondary   = errors.New("fewer than two distinct executables")
)

// SelectExecutables picks the primary and secondary executables from a
// member list, returning indices into members. It is a pure function over
// member descriptors so synthetic lists can exercise every branch.
//
// Candidates must be ELF and at least minToolSize bytes. The primary is the
// largest candidate whose basename is a known primary name, falling back to
// the largest candidate overall; the secondary is chosen the same way from
// the remainder. Basenames are tried first because they are the most
// reliable signal when present, but upstream archive layouts drift, so size
// ranking keeps extraction working when the names do not match.
func SelectExecutables(members []Member) (primary, secondary int, err error) {
	var candidates []int
	for i, m := range members {
		if m.Size >= minToolSize && m.IsELF() {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return -1, -1, errNoExecutables
	}

	primary = largestNamed(members, candidates, primaryNames, -1)
	if primary < 0 {
		primary = largest(members, candidates, -1)
	}

	secondary = largestNamed(members, candidates, secondaryNames, primary)
	if secondary < 0 {
		secondary = largest(members, candidates, primary)
	}
	if secondary < 0 || secondary == primary {
		return -1, -1, errNoSecondary
	}

	return primary, secondary, nil
}

// selectNamed returns the index of the first member whose basename equals
// want, whose size exceeds minSize, and whose header is ELF. A name match
// alone is never sufficient.
func selectNamed(members []Member, want string, minSize int64) (int, error) {
	for i, m := range members {
		if path.Base(m.Name) == want && m.Size > minSize && m.IsELF() {
			return i, nil
		}
	}
	return -1, errNoExecutables
}

// largestNamed returns the candidate with the largest size whose basename
// is in names, excluding the index skip. Ties keep the earliest member.
// Returns -1 when nothing matches.
func largestNamed(members []Member, candidates []int, names map[string]bool, skip int) int {
	best := -1
	for _, i := range candidates {
		if i == skip || !names[path.Base(members[i].Name)] {
			continue
		}
		if best < 0 || members[i].Size > members[best].Size {
			best = i
		}
	}
	return best
}

// largest returns the largest candidate excluding skip, or -1.
func largest(members []Member, candidates []int, skip int) int {
	best := -1
	for _, i := range candidates {
		if i == skip {
			continue
		}
		if best < 0 || members[i].Size > members[best].Size {
			best = i
		}
	}
	return best
}
