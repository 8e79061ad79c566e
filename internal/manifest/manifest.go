// SPDX-License-Identifier: MPL-2.0

// Package manifest owns the on-disk dependency manifest: one "name==X.Y.Z"
// line per declared package, trailing newline, UTF-8. Nothing else reads or
// writes the file directly.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"venvman/internal/semver"
)

// Requirement is one manifest entry: a canonical package name pinned to a
// parsed version. The manifest holds at most one Requirement per name.
type Requirement struct {
	Name    string
	Version semver.Version
}

// String returns the manifest line form, without the trailing newline.
func (r Requirement) String() string {
	return r.Name + "==" + r.Version.String()
}

// Store reads and rewrites one manifest file.
type Store struct {
	path   string
	logger *log.Logger
}

// NewStore creates a Store bound to the given manifest path.
func NewStore(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the manifest file path.
func (s *Store) Path() string {
	return s.path
}

// Read loads every well-formed requirement from the manifest. The read is
// total: a missing file yields an empty manifest, and blank or malformed
// lines are skipped with a warning. Callers never see an error for content
// problems.
func (s *Store) Read() []Requirement {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("manifest not found, assuming no dependencies", "path", s.path)
		} else {
			s.logger.Warn("manifest unreadable, assuming no dependencies", "path", s.path, "err", err)
		}
		return nil
	}

	var reqs []Requirement
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name, versionText, ok := strings.Cut(line, "==")
		name = strings.TrimSpace(name)
		versionText = strings.TrimSpace(versionText)
		if !ok || name == "" || versionText == "" {
			s.logger.Warn("skipping malformed manifest line", "path", s.path, "line", i+1, "text", line)
			continue
		}

		version, err := semver.Parse(versionText)
		if err != nil {
			s.logger.Warn("skipping manifest line with bad version", "path", s.path, "line", i+1, "text", line, "err", err)
			continue
		}

		reqs = append(reqs, Requirement{Name: name, Version: version})
	}

	return reqs
}

// Write replaces the manifest with exactly the given requirements, one line
// each in insertion order, with a trailing newline. The write is a full
// overwrite through a temp file and rename, never an append.
func (s *Store) Write(reqs []Requirement) error {
	var b strings.Builder
	for _, r := range reqs {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}

// Upsert removes any stale entry for r.Name and appends r, preserving the
// relative order of the remaining entries.
func Upsert(reqs []Requirement, r Requirement) []Requirement {
	out := Remove(reqs, r.Name)
	return append(out, r)
}

// Remove drops the entry for name, if present.
func Remove(reqs []Requirement, name string) []Requirement {
	out := reqs[:0:0]
	for _, existing := range reqs {
		if existing.Name != name {
			out = append(out, existing)
		}
	}
	return out
}

// Find returns the requirement for name and whether it exists.
func Find(reqs []Requirement, name string) (Requirement, bool) {
	for _, r := range reqs {
		if r.Name == name {
			return r, true
		}
	}
	return Requirement{}, false
}
