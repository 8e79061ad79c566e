// SPDX-License-Identifier: MPL-2.0

// Package semver implements the minimal semantic version model used for
// manifest entries and tool-reported package versions: exactly three numeric
// components with optional build metadata. Prerelease tags, version ranges,
// and constraint operators are out of scope.
package semver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidVersion is returned by Parse for any string that is not a
// well-formed major.minor.patch[+metadata] version.
var ErrInvalidVersion = errors.New("invalid version")

// versionRegex matches strict three-component versions with optional metadata.
var versionRegex = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:\+([0-9A-Za-z\-\.]+))?$`)

// Version is a parsed semantic version. Values are immutable once constructed.
type Version struct {
	Major    uint64
	Minor    uint64
	Patch    uint64
	Metadata string
}

// Parse parses a version string of the form "major.minor.patch" with an
// optional "+metadata" suffix. Any other shape, including non-numeric or
// missing components, fails with ErrInvalidVersion.
func Parse(s string) (Version, error) {
	matches := versionRegex.FindStringSubmatch(s)
	if matches == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	var v Version
	var err error

	v.Major, err = strconv.ParseUint(matches[1], 10, 64)
	if err != nil {
		return Version{}, fmt.Errorf("%w: major component of %q: %v", ErrInvalidVersion, s, err)
	}
	v.Minor, err = strconv.ParseUint(matches[2], 10, 64)
	if err != nil {
		return Version{}, fmt.Errorf("%w: minor component of %q: %v", ErrInvalidVersion, s, err)
	}
	v.Patch, err = strconv.ParseUint(matches[3], 10, 64)
	if err != nil {
		return Version{}, fmt.Errorf("%w: patch component of %q: %v", ErrInvalidVersion, s, err)
	}
	v.Metadata = matches[4]

	return v, nil
}

// String returns the canonical "major.minor.patch" form. Metadata is omitted;
// manifest lines and comparisons only ever use the numeric triple.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// StringWithMetadata returns the full textual form including the "+metadata"
// suffix when present.
func (v Version) StringWithMetadata() string {
	if v.Metadata == "" {
		return v.String()
	}
	return v.String() + "+" + v.Metadata
}

// Compare orders two versions numerically by (major, minor, patch).
// Returns -1 if a < b, 0 if equal, 1 if a > b. Metadata never participates
// in ordering.
func Compare(a, b Version) int {
	if a.Major != b.Major {
		if a.Major < b.Major {
			return -1
		}
		return 1
	}
	if a.Minor != b.Minor {
		if a.Minor < b.Minor {
			return -1
		}
		return 1
	}
	if a.Patch != b.Patch {
		if a.Patch < b.Patch {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports whether a orders strictly before b.
func Less(a, b Version) bool {
	return Compare(a, b) < 0
}
