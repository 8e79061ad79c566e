// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// installCmd installs packages and records them in the manifest
var installCmd = &cobra.Command{
	Use:   "install [package...]",
	Short: "Install packages into the virtual environment",
	Long: `Install one or more packages into the project's virtual environment
and pin their installed versions in the manifest.

Specifiers may be plain names (flask), pinned versions (flask==2.0.1),
scoped names (@scope/name), or source URLs
(git+https://host/org/repo.git@ref).

With no arguments, every package pinned in the manifest is installed,
recreating the environment's recorded state.`,
	RunE: runInstallCmd,
}

func runInstallCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireEnv(); err != nil {
		return err
	}

	specs := args
	if len(specs) == 0 {
		// Restore mode: materialize the manifest's pins into the env.
		for _, req := range a.store.Read() {
			specs = append(specs, req.String())
		}
		if len(specs) == 0 {
			fmt.Println(SubtitleStyle.Render("Manifest is empty, nothing to install."))
			return nil
		}
	}

	outcomes, err := a.engine.Install(cmd.Context(), specs)
	if err != nil {
		return err
	}

	if failed := printOutcomes(os.Stdout, os.Stderr, outcomes); failed {
		return &ExitError{Code: 1}
	}
	return nil
}
