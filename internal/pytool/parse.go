// SPDX-License-Identifier: MPL-2.0

package pytool

import (
	"fmt"
	"strings"
)

// ListEntry is one row of the tool's package listing. Versions are kept as
// raw text here; callers decide how strictly to validate them.
type ListEntry struct {
	Name    string
	Version string
}

// OutdatedEntry is one row of the tool's outdated-packages report.
type OutdatedEntry struct {
	Name    string
	Current string
	Latest  string
}

// ParseList parses pip's tabular "list" output: two header lines, then one
// "name ... version" row per package. The first whitespace-delimited field
// is the name and the last is the version.
func ParseList(out string) ([]ListEntry, error) {
	var entries []ListEntry
	for i, line := range strings.Split(out, "\n") {
		if i < 2 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("malformed list row %q", strings.TrimSpace(line))
		}
		entries = append(entries, ListEntry{
			Name:    fields[0],
			Version: fields[len(fields)-1],
		})
	}
	return entries, nil
}

// ParseOutdated parses pip's "list --outdated" output: two header lines,
// then "name current latest type" rows (whitespace-delimited).
func ParseOutdated(out string) ([]OutdatedEntry, error) {
	var entries []OutdatedEntry
	for i, line := range strings.Split(out, "\n") {
		if i < 2 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("malformed outdated row %q", strings.TrimSpace(line))
		}
		entries = append(entries, OutdatedEntry{
			Name:    fields[0],
			Current: fields[1],
			Latest:  fields[2],
		})
	}
	return entries, nil
}

// ParseShowVersion extracts the version from pip's "show" key:value block
// by locating the line with the "Version:" label.
func ParseShowVersion(out string) (string, error) {
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "Version:"); ok {
			version := strings.TrimSpace(rest)
			if version == "" {
				return "", fmt.Errorf("empty Version field in tool output")
			}
			return version, nil
		}
	}
	return "", fmt.Errorf("no Version field in tool output")
}

// IsNotInstalledMessage reports whether a tool message indicates that the
// package was not installed to begin with, which uninstall treats as an
// expected outcome rather than a failure.
func IsNotInstalledMessage(s string) bool {
	return strings.Contains(s, "not installed")
}
