// SPDX-License-Identifier: MPL-2.0

package reconcile

import (
	"venvman/internal/semver"
)

// Kind classifies the result of one per-package operation.
type Kind int

const (
	// Installed means the package was installed and recorded.
	Installed Kind = iota
	// Uninstalled means the package was removed from the environment.
	Uninstalled
	// AlreadyAbsent means uninstall found nothing to remove; this is an
	// expected outcome, not a failure.
	AlreadyAbsent
	// Failed means the package's operation did not complete.
	Failed
)

// String returns the human-readable kind name.
func (k Kind) String() string {
	switch k {
	case Installed:
		return "installed"
	case Uninstalled:
		return "uninstalled"
	case AlreadyAbsent:
		return "already absent"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the per-package result of a batch operation. Outcomes are
// index-aligned with the batch's input specs.
type Outcome struct {
	// Spec is the raw input specifier for this item.
	Spec string
	// Name is the canonical package name, empty when extraction failed.
	Name string
	// Kind classifies the result.
	Kind Kind
	// Version is the installed version, set only for Installed outcomes.
	Version semver.Version
	// Err is the per-package failure, set only for Failed outcomes.
	Err error
}

// Succeeded reports whether the outcome is anything but a failure.
func (o Outcome) Succeeded() bool {
	return o.Kind != Failed
}

// AnyFailed reports whether at least one outcome in the batch failed.
func AnyFailed(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Kind == Failed {
			return true
		}
	}
	return false
}
