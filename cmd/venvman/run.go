// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

// runCmd executes a script inside the virtual environment
var runCmd = &cobra.Command{
	Use:   "run <script> [args...]",
	Short: "Run a Python script inside the virtual environment",
	Long: `Run a script with the project's interpreter, with the virtual
environment activated. The script's exit code becomes venvman's exit
code.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRunCmd,
}

func init() {
	// Everything after the script belongs to the script, not to venvman.
	runCmd.Flags().SetInterspersed(false)
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireEnv(); err != nil {
		return err
	}

	if code := a.tool.Run(cmd.Context(), args...); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
