// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"venvman/internal/reconcile"
)

// renderOutcome formats one per-package outcome for the batch summary.
func renderOutcome(o reconcile.Outcome) string {
	switch o.Kind {
	case reconcile.Installed:
		return fmt.Sprintf("%s Installed %s %s", SuccessStyle.Render("✓"), PkgStyle.Render(o.Name), o.Version)
	case reconcile.Uninstalled:
		return fmt.Sprintf("%s Uninstalled %s", SuccessStyle.Render("✓"), PkgStyle.Render(o.Name))
	case reconcile.AlreadyAbsent:
		return fmt.Sprintf("%s %s is not installed, nothing to do", WarningStyle.Render("•"), PkgStyle.Render(o.Name))
	case reconcile.Failed:
		subject := o.Name
		if subject == "" {
			subject = o.Spec
		}
		return fmt.Sprintf("%s %s: %v", ErrorStyle.Render("✗"), subject, o.Err)
	default:
		return fmt.Sprintf("? %s", o.Spec)
	}
}

// printOutcomes writes successful outcomes to out and failures to errOut,
// and reports whether any outcome failed.
func printOutcomes(out, errOut io.Writer, outcomes []reconcile.Outcome) bool {
	for _, o := range outcomes {
		if o.Kind == reconcile.Failed {
			fmt.Fprintln(errOut, renderOutcome(o))
		} else {
			fmt.Fprintln(out, renderOutcome(o))
		}
	}
	return reconcile.AnyFailed(outcomes)
}
