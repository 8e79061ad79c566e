// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// updateCmd upgrades outdated packages
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Upgrade outdated packages to their latest versions",
	Long: `Query the environment for outdated packages, reinstall each at its
latest version, and refresh the pinned versions in the manifest.`,
	Args: cobra.NoArgs,
	RunE: runUpdateCmd,
}

func runUpdateCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireEnv(); err != nil {
		return err
	}

	results, err := a.engine.Update(cmd.Context())
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println(SubtitleStyle.Render("Everything is up to date."))
		return nil
	}

	anyFailed := false
	for _, r := range results {
		if r.Err != nil {
			anyFailed = true
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", ErrorStyle.Render("✗"), r.Name, r.Err)
			continue
		}
		fmt.Printf("%s Updated %s %s -> %s\n", SuccessStyle.Render("✓"), PkgStyle.Render(r.Name), r.Current, r.Latest)
	}

	if anyFailed {
		return &ExitError{Code: 1}
	}
	return nil
}
