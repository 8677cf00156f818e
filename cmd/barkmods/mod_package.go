// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"barkmods-cli/internal/issue"
	"barkmods-cli/pkg/compat"
	"barkmods-cli/pkg/manifest"
	"barkmods-cli/pkg/modpkg"
)

func newModBuildCommand(app *App) *cobra.Command {
	var (
		name          string
		author        string
		engineVersion string
		files         []string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Author a new mod package into the store",
		Long: fmt.Sprintf(`Author a new mod package into the store.

The package is written as <name>.zip with an info.json manifest followed by
the attached files, each stored under its base name. Up to %d files may be
attached; add a file named mod.lua to give the mod a script.

The engine version defaults to the installed engine's version.`, modpkg.MaxAttachments),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(newServiceError(err, issue.ConfigLoadFailedId))
			}

			var set modpkg.AttachmentSet
			if _, err := set.Add(files...); err != nil {
				return app.fail(fmt.Errorf("attach files: %w", err))
			}

			store := app.modStore(cfg)
			path, err := store.Build(modpkg.BuildOptions{
				Name:          name,
				Author:        author,
				EngineVersion: engineVersion,
				ValidVersions: compat.AuthoringVersions(app.hostVersion(cfg)),
				Attachments:   set.Paths(),
			})
			if err != nil {
				return app.fail(err)
			}

			app.printf("%s Built %s\n", successIcon, CmdStyle.Render(path))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "mod name (required)")
	cmd.Flags().StringVar(&author, "author", "", "mod author (default \"Unknown\")")
	cmd.Flags().StringVar(&engineVersion, "engine-version", "", "target engine version (default: installed engine version)")
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "file to attach (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newModInstallCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "install <package.zip>...",
		Short: "Copy mod packages into the store",
		Long: `Copy mod packages into the store under their manifest name.

Packages without a readable info.json are refused. An installed package with
the same mod name is replaced.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(newServiceError(err, issue.ConfigLoadFailedId))
			}
			store := app.modStore(cfg)
			return app.forEach(args, func(src string) (string, error) {
				dest, err := store.Install(src)
				if err != nil {
					return "", err
				}
				return "Installed " + CmdStyle.Render(filepath.Base(dest)), nil
			})
		},
	}
}

func newModRemoveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <mod name>...",
		Short: "Remove installed mods by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(newServiceError(err, issue.ConfigLoadFailedId))
			}
			store := app.modStore(cfg)
			return app.forEach(args, func(name string) (string, error) {
				if err := store.Remove(name); err != nil {
					return "", err
				}
				return "Removed " + CmdStyle.Render(name), nil
			})
		},
	}
}

// forEach applies fn to every argument, reporting each outcome. One failure
// does not stop the rest; the command then exits non-zero.
func (a *App) forEach(args []string, fn func(arg string) (string, error)) error {
	var failed []error
	for _, arg := range args {
		msg, err := fn(arg)
		if err != nil {
			a.printf("%s %s: %v\n", errorIcon, arg, err)
			failed = append(failed, err)
			continue
		}
		a.printf("%s %s\n", successIcon, msg)
	}
	switch len(failed) {
	case 0:
		return nil
	case 1:
		return a.fail(&ExitError{Code: 1, Err: failed[0]})
	default:
		return &ExitError{Code: 1, Err: fmt.Errorf("%d of %d failed: %w", len(failed), len(args), errors.Join(failed...))}
	}
}

func newModInspectCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <package.zip | mod name>",
		Short: "Show a package's manifest, entries and compatibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(newServiceError(err, issue.ConfigLoadFailedId))
			}

			path := args[0]
			if _, statErr := os.Stat(path); statErr != nil {
				if path, err = app.modStore(cfg).PackagePath(args[0]); err != nil {
					return app.fail(err)
				}
			}
			p, err := modpkg.Open(path)
			if err != nil {
				return app.fail(err)
			}
			defer func() { _ = p.Close() }() // read-only; close error is non-critical

			m, err := p.Manifest()
			if err != nil {
				return app.fail(err)
			}
			verdict := compat.Check(m, app.hostVersion(cfg))
			digest, err := p.Digest()
			if err != nil {
				return app.fail(err)
			}
			_, hasScript, _ := p.Script()

			app.println(TitleStyle.Render(m.Name))
			app.println()
			app.printf("%s: %s\n", CmdStyle.Render("File"), p.Path())
			app.printf("%s: %s\n", CmdStyle.Render("Author"), m.Author)
			app.printf("%s: %s\n", CmdStyle.Render("Engine version"), m.EngineVersion)
			app.printf("%s: %s\n", CmdStyle.Render("Status"), verdictStyle(verdict).Render(verdict.String()))
			app.printf("%s: %v\n", CmdStyle.Render("Script"), hasScript)
			app.printf("%s: %s\n", CmdStyle.Render("BLAKE3"), SubtitleStyle.Render(digest))
			app.println()
			app.printf("%s:\n", CmdStyle.Render("Entries"))
			for _, entry := range p.Entries() {
				app.printf("  - %s\n", entry)
			}
			return nil
		},
	}
}

func newModExtractCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <mod name> <dir>",
		Short: "Extract an installed package's entries into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(newServiceError(err, issue.ConfigLoadFailedId))
			}
			written, err := app.modStore(cfg).Extract(args[0], args[1])
			if err != nil {
				return app.fail(err)
			}
			for _, path := range written {
				app.printf("%s %s\n", successIcon, path)
			}
			return nil
		},
	}
}

func newModValidateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <package.zip | info.json>",
		Short: "Validate a manifest against the manifest schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := readManifestSource(path)
			if err != nil {
				return app.fail(err)
			}
			if err := manifest.Lint(data, path); err != nil {
				app.printf("%s %s\n", errorIcon, path)
				return app.fail(newServiceError(err, issue.ManifestInvalidId))
			}
			app.printf("%s %s is valid\n", successIcon, path)
			return nil
		},
	}
}

// readManifestSource returns info.json bytes from a package or a bare file.
func readManifestSource(path string) ([]byte, error) {
	if !strings.EqualFold(filepath.Ext(path), modpkg.Extension) {
		return os.ReadFile(path)
	}
	p, err := modpkg.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = p.Close() }() // read-only; close error is non-critical
	return p.RawManifest()
}

func verdictStyle(v compat.Verdict) lipgloss.Style {
	switch v.Kind {
	case compat.Match:
		return SuccessStyle
	case compat.Mismatch:
		return WarningStyle
	default:
		return SubtitleStyle
	}
}
