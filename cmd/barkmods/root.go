// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "barkmods",
		Short: "Mod package manager for BarkEngine",
		Long: TitleStyle.Render("barkmods") + SubtitleStyle.Render(" - Mod package manager for BarkEngine") + `

barkmods builds, installs and inspects BarkEngine mod packages, checks
them against the engine version, runs their sandboxed mod.lua scripts
and serves the community mod catalog.

` + SubtitleStyle.Render("Examples:") + `
  barkmods mod list                       List installed mods and compatibility
  barkmods mod run --scripts              Scan and run mod scripts
  barkmods mod build --name "My Mod" -f tex.png
  barkmods catalog serve                  Serve the community catalog
  barkmods config show                    Show current configuration`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.cfgFile, "config", "", "config file (default is $HOME/.config/barkmods/config.cue)")

	rootCmd.AddCommand(newModCommand(app))
	rootCmd.AddCommand(newCatalogCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
