// SPDX-License-Identifier: MPL-2.0

// Package pkgspec extracts canonical package names from user-supplied
// specifier strings. Supported shapes:
//   - bare name:    "flask"
//   - pinned:       "flask==2.0.1", "flask>=1.0", "flask@2.0.1"
//   - scoped:       "@scope/name", "@scope/name@1.0.0"
//   - source URL:   "git+https://host/org/repo.git@ref"
//
// Name extraction and version-token extraction are deliberately independent:
// neither validates the other, and version tokens must be checked against
// the semver package before being trusted.
package pkgspec

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// scopedRegex matches "@scope/name" with an optional trailing "@version".
	// Internal dots and hyphens are part of the name, never a truncation point.
	scopedRegex = regexp.MustCompile(`^(@[\w.-]+/[\w.-]+)(?:@.*)?$`)

	// plainRegex matches a bare name, optionally followed by a version or
	// comparator suffix. The name stops at the first of '@', '=', '<', '>',
	// '~', '^', or whitespace; whatever follows must be a comparator-led
	// suffix, so "flask ==2.0.1" extracts but "bad spec with spaces" does not.
	plainRegex = regexp.MustCompile(`^([\w.-]+)\s*(?:[@=<>~^].*)?$`)
)

// ExtractName returns the canonical package name embedded in raw, or false
// when no name can be recovered. First match wins: scoped form, then plain
// name, then source URL.
func ExtractName(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	if strings.HasPrefix(raw, "@") {
		if m := scopedRegex.FindStringSubmatch(raw); m != nil {
			return m[1], true
		}
		return "", false
	}

	if m := plainRegex.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}

	if name, ok := repoNameFromURL(raw); ok {
		return name, true
	}

	return "", false
}

// ExtractVersionToken strips every leading non-digit rune from raw and
// returns the remainder verbatim. The result is a best-effort heuristic,
// not a validated version; callers must parse it with semver.Parse before
// trusting it.
func ExtractVersionToken(raw string) (string, bool) {
	token := strings.TrimLeftFunc(raw, func(r rune) bool {
		return !unicode.IsDigit(r)
	})
	if token == "" {
		return "", false
	}
	return token, true
}

// repoNameFromURL recovers the repository name from a source URL of the
// shape "(git+)?https?://host/org/repo(.git)?(@ref)?".
func repoNameFromURL(raw string) (string, bool) {
	s := strings.TrimPrefix(raw, "git+")

	rest, ok := strings.CutPrefix(s, "https://")
	if !ok {
		rest, ok = strings.CutPrefix(s, "http://")
	}
	if !ok {
		return "", false
	}

	// A trailing "@ref" sits after the path; the host part never contains '@'
	// in the supported forms.
	if idx := strings.LastIndex(rest, "@"); idx >= 0 {
		rest = rest[:idx]
	}

	rest = strings.TrimSuffix(rest, ".git")
	rest = strings.TrimSuffix(rest, "/")

	idx := strings.LastIndex(rest, "/")
	if idx < 0 || idx == len(rest)-1 {
		return "", false
	}

	name := rest[idx+1:]
	if name == "" {
		return "", false
	}
	return name, true
}
