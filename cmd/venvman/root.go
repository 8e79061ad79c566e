// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"venvman/internal/config"
	"venvman/internal/issue"
	"venvman/internal/manifest"
	"venvman/internal/pytool"
	"venvman/internal/reconcile"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// logger is the shared diagnostics logger; all warnings and errors go
	// to stderr, keeping stdout for command results.
	logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "venvman",
		Short: "Manage a per-project Python virtual environment",
		Long: TitleStyle.Render("venvman") + SubtitleStyle.Render(" - per-project virtual environments and pinned dependencies") + `

venvman keeps one virtual environment per project and records every
installed package in a requirements manifest, so a project can be
recreated exactly on another machine.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Create a project:        venvman init myproj
  2. Install dependencies:    venvman install flask==2.0.1
  3. Run inside the venv:     venvman run main.py`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(log.DebugLevel)
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./venvman.toml)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(updateCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		// fang renders the error message itself; suggestions and the
		// verbose chain are ours to print.
		var ae *issue.ActionableError
		if errors.As(err, &ae) && (len(ae.Suggestions) > 0 || verbose) {
			fmt.Fprintln(os.Stderr, formatErrorForDisplay(err, verbose))
		}

		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display. If the error is
// an ActionableError, it uses the Format method; in verbose mode that shows
// the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// app bundles the per-invocation dependencies built from the project
// directory and resolved settings.
type app struct {
	settings config.Settings
	store    *manifest.Store
	tool     *pytool.Tool
	engine   *reconcile.Engine
}

// newApp resolves settings for the current project directory and wires the
// store, tool, and engine.
func newApp() (*app, error) {
	projectDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	settings, err := config.Load(projectDir, cfgFile)
	if err != nil {
		return nil, err
	}

	store := manifest.NewStore(manifestPath(projectDir, settings), logger)
	tool := pytool.New(projectDir, settings, logger)
	engine := reconcile.NewEngine(store, tool, settings, logger)

	return &app{settings: settings, store: store, tool: tool, engine: engine}, nil
}

// requireEnv fails with an actionable error when the project has no virtual
// environment yet.
func (a *app) requireEnv() error {
	if a.tool.EnvExists() {
		return nil
	}
	return issue.New("find virtual environment").
		WithResource(a.tool.VenvDir()).
		WithSuggestion("Run 'venvman init <name>' to create a project, or run venvman from the project directory")
}

func manifestPath(projectDir string, settings config.Settings) string {
	return filepath.Join(projectDir, settings.ManifestFile)
}
