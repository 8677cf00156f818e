// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"barkmods-cli/internal/config"
	"barkmods-cli/internal/issue"
	"barkmods-cli/internal/modstore"
	"barkmods-cli/internal/scripthost"
	"barkmods-cli/pkg/compat"
)

// scanFlags holds the `mod run` options.
type scanFlags struct {
	scripts       bool
	trustHostCode bool
}

// newModCommand creates the `barkmods mod` command tree.
func newModCommand(app *App) *cobra.Command {
	modCmd := &cobra.Command{
		Use:   "mod",
		Short: "Manage installed mod packages",
		Long: `Manage installed mod packages.

Packages live in the mod store directory (store_dir, default "mods") as
<mod name>.zip files holding an info.json manifest, an optional mod.lua
script and attachments.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	modCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List installed mods and their compatibility",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runScan(cmd.Context(), false, scanFlags{})
		},
	})

	var run scanFlags
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Scan installed mods and run their scripts",
		Long: `Scan installed mods and run each mod.lua in a fresh sandbox.

Scripts run only when scripts.enabled is set in the configuration or
--scripts is given. A failing script is reported and the scan continues.

--trust-host-code lets scripts call run_arbitrary_host_code, which runs shell
code with your privileges. Only use it with mods you trust.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runScan(cmd.Context(), true, run)
		},
	}
	runCmd.Flags().BoolVar(&run.scripts, "scripts", false, "run mod scripts even when scripts.enabled is off")
	runCmd.Flags().BoolVar(&run.trustHostCode, "trust-host-code", false, "allow scripts to run host shell code")
	modCmd.AddCommand(runCmd)

	modCmd.AddCommand(newModBuildCommand(app))
	modCmd.AddCommand(newModInstallCommand(app))
	modCmd.AddCommand(newModRemoveCommand(app))
	modCmd.AddCommand(newModInspectCommand(app))
	modCmd.AddCommand(newModExtractCommand(app))
	modCmd.AddCommand(newModValidateCommand(app))

	return modCmd
}

func (a *App) runScan(ctx context.Context, execute bool, flags scanFlags) error {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return a.fail(newServiceError(err, issue.ConfigLoadFailedId))
	}

	opts := modstore.ScanOptions{Host: a.hostVersion(cfg)}
	if execute {
		host, err := a.scriptHost(cfg, flags)
		if err != nil {
			return a.fail(err)
		}
		opts.Scripts = host
	}

	store := a.modStore(cfg)
	result, err := store.Scan(ctx, opts)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return a.fail(newServiceError(
				issue.NewErrorContext().
					WithOperation("scan mod store").
					WithResource(store.Dir()).
					WithSuggestion("Install a mod with 'barkmods mod install <package.zip>'").
					WithSuggestion("Set store_dir in the configuration to your engine's mods folder").
					Wrap(err).
					BuildError(),
				issue.StoreNotFoundId))
		}
		if result == nil {
			return a.fail(err)
		}
		// Canceled: report what was visited.
		a.renderScan(result, opts.Host, execute)
		return err
	}

	a.renderScan(result, opts.Host, execute)
	return nil
}

func (a *App) scriptHost(cfg *config.Config, flags scanFlags) (*scripthost.Host, error) {
	if !cfg.Scripts.Enabled && !flags.scripts {
		return nil, issue.NewErrorContext().
			WithOperation("run mod scripts").
			WithSuggestion("Pass --scripts").
			WithSuggestion("Set scripts.enabled: true in the configuration").
			Wrap(errors.New("mod scripts are disabled")).
			BuildError()
	}

	trust := cfg.Scripts.TrustHostCode || flags.trustHostCode
	if trust {
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+
			"host code is trusted; mod scripts can run shell commands with your privileges")
	}
	return scripthost.New(scripthost.Options{
		Logger:        a.logger("scripthost"),
		Shell:         newTerminalShell(a.stdin, a.stdout),
		TrustHostCode: trust,
		HostCodeDir:   cfg.StoreDir,
	}), nil
}

func (a *App) renderScan(result *modstore.ScanResult, host compat.HostVersion, execute bool) {
	a.println(TitleStyle.Render("Installed Mods") + " " + SubtitleStyle.Render("(engine "+host.String()+")"))
	a.println()

	if len(result.Entries) == 0 {
		a.printf("%s No mods installed\n", infoIcon)
		return
	}

	headers := []string{"NAME", "AUTHOR", "VERSION", "STATUS"}
	if execute {
		headers = append(headers, "SCRIPT")
	}
	t := newTable(headers...)
	for _, e := range result.Entries {
		row := []string{e.Name(), e.Author(), e.EngineVersion(), verdictCell(e)}
		if execute {
			row = append(row, stateCell(e))
		}
		t.addRow(row...)
	}
	t.render(a.stdout)

	a.println()
	summary := fmt.Sprintf("%d mod(s)", len(result.Entries))
	if n := result.Degraded(); n > 0 {
		summary += fmt.Sprintf(", %d unreadable", n)
	}
	if execute {
		summary += fmt.Sprintf(", %d script(s) run, %d failed",
			result.Count(modstore.ScriptExecuted), result.Count(modstore.ScriptFailed))
	}
	a.printf("%s %s\n", infoIcon, summary)

	if mismatched := countVerdict(result, compat.Mismatch); mismatched > 0 {
		a.printf("%s %d mod(s) target a different engine version\n", warnIcon, mismatched)
		if a.verbose {
			renderServiceError(a.stderr, newServiceError(errVersionMismatch, issue.VersionMismatchId), a.markdownStyle, a.logger("issue"))
		}
	}
}

// errVersionMismatch tags the advisory mismatch hint; scans never fail on it.
var errVersionMismatch = errors.New("engine version mismatch")

func countVerdict(result *modstore.ScanResult, kind compat.Kind) int {
	n := 0
	for _, e := range result.Entries {
		if !e.Degraded && e.Verdict.Kind == kind {
			n++
		}
	}
	return n
}

func verdictCell(e modstore.Entry) string {
	if e.Degraded {
		return ErrorStyle.Render(e.Reason)
	}
	return verdictStyle(e.Verdict).Render(e.Verdict.String())
}

func stateCell(e modstore.Entry) string {
	switch e.State {
	case modstore.ScriptExecuted:
		return SuccessStyle.Render(e.State.String())
	case modstore.ScriptFailed:
		return ErrorStyle.Render(e.State.String())
	case modstore.Skipped:
		if e.Degraded {
			return SubtitleStyle.Render("-")
		}
		return SubtitleStyle.Render(e.Reason)
	default:
		return SubtitleStyle.Render(e.State.String())
	}
}
