// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"venvman/internal/config"
	"venvman/internal/scaffold"
)

var (
	initParentDir string

	// initCmd scaffolds a new project
	initCmd = &cobra.Command{
		Use:   "init <name>",
		Short: "Create a new project with a virtual environment",
		Long: `Create a new project directory containing a virtual environment, an
empty dependency manifest, starter files, and an initialized git
repository.

Creation is all-or-nothing: if any step fails, everything created so
far is removed again.`,
		Args: cobra.ExactArgs(1),
		RunE: runInitCmd,
	}
)

func init() {
	initCmd.Flags().StringVarP(&initParentDir, "path", "p", "", "parent directory for the project (default: current directory)")
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(initParentDir, cfgFile)
	if err != nil {
		return err
	}

	projectDir, err := scaffold.Create(cmd.Context(), scaffold.Options{
		Name:      args[0],
		ParentDir: initParentDir,
		Settings:  settings,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s Created %s\n", SuccessStyle.Render("✓"), projectDir)
	fmt.Println()
	fmt.Println(SubtitleStyle.Render("Next steps:"))
	fmt.Printf("  1. cd %s\n", args[0])
	fmt.Println("  2. venvman install <package> to add dependencies")
	fmt.Println("  3. venvman run main.py to run the entry point")

	return nil
}
