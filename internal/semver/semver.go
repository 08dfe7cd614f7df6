package semver

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a dotted numeric version such as "16.5.10" or "1.12".
// Missing components compare as zero, so "1.12" equals "1.12.0".
type Version struct {
	Major    int
	Minor    int
	Patch    int
	Revision int
}

// Parse reads a version with two to four numeric components.
// Handles formats like "1.12", "v16.5.10", " 16.5.10 \r" and "1.2.3.4".
// A pre-release suffix ("1.2.3-beta") is ignored for ordering purposes.
func Parse(v string) (Version, error) {
	raw := v
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "v")
	if idx := strings.IndexByte(v, '-'); idx > 0 {
		v = v[:idx]
	}

	fields := strings.Split(v, ".")
	if len(fields) < 2 || len(fields) > 4 {
		return Version{}, fmt.Errorf("invalid version %q: want 2 to 4 components", raw)
	}

	parts := make([]int, 4)
	for i, s := range fields {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version %q: component %q is not a number", raw, s)
		}
		parts[i] = n
	}
	return Version{Major: parts[0], Minor: parts[1], Patch: parts[2], Revision: parts[3]}, nil
}

// MustParse is Parse for compile-time constants; it panics on malformed input.
func MustParse(v string) Version {
	ver, err := Parse(v)
	if err != nil {
		panic(err)
	}
	return ver
}

// Compare compares two versions.
// Returns -1 if a < b, 0 if a == b, +1 if a > b.
func Compare(a, b Version) int {
	as := [4]int{a.Major, a.Minor, a.Patch, a.Revision}
	bs := [4]int{b.Major, b.Minor, b.Patch, b.Revision}
	for i := range as {
		if as[i] != bs[i] {
			if as[i] < bs[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return Compare(v, other) < 0
}

// AtLeast reports whether v is at or above min.
func (v Version) AtLeast(min Version) bool {
	return Compare(v, min) >= 0
}

// String renders the version with the revision only when it is set.
func (v Version) String() string {
	if v.Revision != 0 {
		return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Revision)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// CompareStrings parses and compares two version strings. Unparseable
// strings sort before parseable ones and compare lexically among themselves.
func CompareStrings(a, b string) int {
	av, aErr := Parse(a)
	bv, bErr := Parse(b)
	switch {
	case aErr != nil && bErr != nil:
		return strings.Compare(a, b)
	case aErr != nil:
		return -1
	case bErr != nil:
		return 1
	}
	return Compare(av, bv)
}
