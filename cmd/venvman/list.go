// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// listCmd prints the installed packages
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages",
	Long: `List every package installed in the project's virtual environment with
its version. The tooling's own bookkeeping packages are hidden.`,
	Args: cobra.NoArgs,
	RunE: runListCmd,
}

func runListCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireEnv(); err != nil {
		return err
	}

	pkgs, err := a.engine.List(cmd.Context())
	if err != nil {
		return err
	}

	if len(pkgs) == 0 {
		fmt.Println(SubtitleStyle.Render("No packages installed."))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION")
	for _, p := range pkgs {
		fmt.Fprintf(w, "%s\t%s\n", p.Name, p.Version)
	}
	return w.Flush()
}
