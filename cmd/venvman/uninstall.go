// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// uninstallCmd removes packages and their manifest entries
var uninstallCmd = &cobra.Command{
	Use:   "uninstall <package>...",
	Short: "Remove packages from the virtual environment",
	Long: `Remove one or more packages from the project's virtual environment and
drop them from the manifest.

Removing a package that is not installed is reported but is not an
error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUninstallCmd,
}

func runUninstallCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireEnv(); err != nil {
		return err
	}

	outcomes, err := a.engine.Uninstall(cmd.Context(), args)
	if err != nil {
		return err
	}

	if failed := printOutcomes(os.Stdout, os.Stderr, outcomes); failed {
		return &ExitError{Code: 1}
	}
	return nil
}
