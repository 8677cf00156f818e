// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"barkmods-cli/internal/config"
	"barkmods-cli/internal/issue"
)

// newConfigCommand creates the `barkmods config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage barkmods configuration",
		Long: `Manage barkmods configuration.

Configuration is read from config.cue in:
  - Linux: ~/.config/barkmods/
  - macOS: ~/Library/Application Support/barkmods/
  - Windows: %APPDATA%\barkmods\
then from ./config.cue. BARKMODS_* environment variables override file
values (e.g. BARKMODS_STORE_DIR, BARKMODS_SCRIPTS_ENABLED).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfig(cmd.Context())
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig("", force)
			if err != nil {
				return app.fail(err)
			}
			app.printf("%s Configuration file: %s\n", successIcon, CmdStyle.Render(path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(newServiceError(err, issue.ConfigLoadFailedId))
			}
			app.printf("%s", config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func (a *App) showConfig(ctx context.Context) error {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return a.fail(newServiceError(err, issue.ConfigLoadFailedId))
	}

	key := CmdStyle.Render
	value := SuccessStyle.Render

	a.println(TitleStyle.Render("Current Configuration"))
	a.println()
	if cfg.Source != "" {
		a.printf("%s: %s\n", key("Config file"), cfg.Source)
	} else {
		a.printf("%s: %s\n", key("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	a.println()

	a.printf("%s: %s\n", key("store_dir"), value(cfg.StoreDir))
	a.printf("%s: %s\n", key("host_config"), value(cfg.HostConfig))
	a.printf("  engine version: %s\n", value(a.hostVersion(cfg).String()))

	a.println()
	a.printf("%s:\n", key("scripts"))
	a.printf("  enabled: %s\n", value(fmt.Sprint(cfg.Scripts.Enabled)))
	trust := value(fmt.Sprint(cfg.Scripts.TrustHostCode))
	if cfg.Scripts.TrustHostCode {
		trust = WarningStyle.Render("true")
	}
	a.printf("  trust_host_code: %s\n", trust)

	a.println()
	a.printf("%s:\n", key("catalog"))
	a.printf("  db_path: %s\n", value(cfg.Catalog.DBPath))
	a.printf("  upload_dir: %s\n", value(cfg.Catalog.UploadDir))
	a.printf("  screenshot_dir: %s\n", value(cfg.Catalog.ScreenshotDir))
	a.printf("  password_file: %s\n", value(cfg.Catalog.PasswordFile))
	a.printf("  max_upload_bytes: %s\n", value(fmt.Sprint(cfg.Catalog.MaxUploadBytes)))
	a.printf("  addr: %s\n", value(cfg.Catalog.Addr))

	a.println()
	a.printf("%s:\n", key("ui"))
	a.printf("  verbose: %s\n", value(fmt.Sprint(cfg.UI.Verbose)))

	return nil
}
