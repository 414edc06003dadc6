// Package version parses DSM style firmware version strings.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidVersion is returned when a version string does not follow the
// major.minor[-build] layout
var ErrInvalidVersion = errors.New("invalid version")

// Version is the (major, minor, build) triple of a firmware version
type Version struct {
	Major    int  `json:"major"`
	Minor    int  `json:"minor"`
	Build    int  `json:"build"`
	HasBuild bool `json:"-"`
}

// New returns a version with an explicit build number
func New(major, minor, build int) Version {
	return Version{Major: major, Minor: minor, Build: build, HasBuild: true}
}

// Parse parses raw into a Version.
//
// The build number follows the last hyphen. The major number precedes the
// first dot and the minor number runs up to the next dot, so "6.1.3-15252"
// yields 6, 1, 15252. Every numeric segment must consist of ASCII digits
// only. On failure the returned Version is nil.
func Parse(raw string) (*Version, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidVersion)
	}

	v := Version{}
	if i := strings.LastIndexByte(s, '-'); i >= 0 {
		build, err := parseSegment(s[i+1:])
		if err != nil {
			return nil, fmt.Errorf("%w %q: build: %v", ErrInvalidVersion, raw, err)
		}
		v.Build = build
		v.HasBuild = true
		s = s[:i]
	}

	majorStr, rest, found := strings.Cut(s, ".")
	if !found {
		return nil, fmt.Errorf("%w %q: missing minor", ErrInvalidVersion, raw)
	}

	major, err := parseSegment(majorStr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: major: %v", ErrInvalidVersion, raw, err)
	}

	minorStr, suffix, _ := strings.Cut(rest, ".")
	minor, err := parseSegment(minorStr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: minor: %v", ErrInvalidVersion, raw, err)
	}

	// Trailing dotted parts are ignored but must still be numeric
	if suffix != "" {
		for _, part := range strings.Split(suffix, ".") {
			if _, err := parseSegment(part); err != nil {
				return nil, fmt.Errorf("%w %q: suffix: %v", ErrInvalidVersion, raw, err)
			}
		}
	}

	v.Major = major
	v.Minor = minor
	return &v, nil
}

// MustParse is like Parse but panics on error
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return *v
}

func parseSegment(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty segment")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("non-digit %q", s[i])
		}
	}
	return strconv.Atoi(s)
}

// String returns the version as major.minor-build
func (v Version) String() string {
	if !v.HasBuild {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d.%d-%d", v.Major, v.Minor, v.Build)
}

// ProductVersion returns the value sent as productversion to package servers
func (v Version) ProductVersion() string {
	return fmt.Sprintf("%d.%d-%d", v.Major, v.Minor, v.Build)
}

// IsZero reports whether no component is set
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0 && v.Build == 0
}
