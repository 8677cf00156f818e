// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"barkmods-cli/internal/catalog"
	"barkmods-cli/internal/catalogserver"
	"barkmods-cli/internal/config"
	"barkmods-cli/internal/issue"
	"barkmods-cli/pkg/modpkg"
)

// newCatalogCommand creates the `barkmods catalog` command tree.
func newCatalogCommand(app *App) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Serve and manage the community mod catalog",
		Long: `Serve and manage the community mod catalog.

The catalog keeps one SQLite table of uploaded mods (catalog.db_path) and
stores package files under catalog.upload_dir. Deleting entries requires
the password from catalog.password_file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	catalogCmd.AddCommand(newCatalogServeCommand(app))
	catalogCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List catalog entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withCatalog(cmd.Context(), func(svc *catalog.Service, _ *config.Config) error {
				return app.listCatalog(cmd.Context(), svc)
			})
		},
	})
	catalogCmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return app.withCatalog(cmd.Context(), func(svc *catalog.Service, _ *config.Config) error {
				return app.showCatalogEntry(cmd.Context(), svc, id)
			})
		},
	})
	catalogCmd.AddCommand(newCatalogUploadCommand(app))
	catalogCmd.AddCommand(newCatalogDeleteCommand(app))

	return catalogCmd
}

func newCatalogServeCommand(app *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return app.withCatalog(ctx, func(svc *catalog.Service, cfg *config.Config) error {
				if addr == "" {
					addr = cfg.Catalog.Addr
				}
				srv, err := catalogserver.New(catalogserver.Options{
					Service:        svc,
					Addr:           addr,
					MaxUploadBytes: cfg.Catalog.MaxUploadBytes,
					Logger:         app.logger("catalog"),
				})
				if err != nil {
					return err
				}
				if err := srv.Start(ctx); err != nil {
					return app.fail(err)
				}
				app.printf("%s Serving catalog on %s\n", successIcon, CmdStyle.Render(srv.URL()))
				return srv.Wait(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: catalog.addr)")
	return cmd
}

func newCatalogUploadCommand(app *App) *cobra.Command {
	var (
		description  string
		dependencies string
		screenshot   string
	)
	cmd := &cobra.Command{
		Use:   "upload <package.zip>",
		Short: "Add a mod package to the catalog",
		Long: `Add a mod package to the catalog.

The mod name, author and engine version are read from the package's
info.json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return app.withCatalog(ctx, func(svc *catalog.Service, _ *config.Config) error {
				mod, err := uploadPackage(ctx, svc, args[0], description, dependencies, screenshot)
				if err != nil {
					var missing *catalog.MissingFieldError
					if errors.As(err, &missing) {
						return app.fail(newServiceError(err, issue.UploadRejectedId))
					}
					return app.fail(err)
				}
				app.printf("%s Uploaded %s as #%d\n", successIcon, CmdStyle.Render(mod.Name), mod.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "mod description, markdown (required)")
	cmd.Flags().StringVar(&dependencies, "dependencies", "", "free-form dependency list")
	cmd.Flags().StringVar(&screenshot, "screenshot", "", "screenshot image to attach")
	return cmd
}

func uploadPackage(ctx context.Context, svc *catalog.Service, path, description, dependencies, screenshot string) (catalog.Mod, error) {
	p, err := modpkg.Open(path)
	if err != nil {
		return catalog.Mod{}, err
	}
	m, err := p.Manifest()
	closeErr := p.Close()
	if err != nil {
		return catalog.Mod{}, err
	}
	if closeErr != nil {
		return catalog.Mod{}, closeErr
	}

	file, err := os.Open(path)
	if err != nil {
		return catalog.Mod{}, err
	}
	defer func() { _ = file.Close() }()

	req := catalog.UploadRequest{
		Name:         m.Name,
		Author:       m.Author,
		Version:      m.EngineVersion,
		Description:  description,
		Dependencies: dependencies,
		FileName:     filepath.Base(path),
		File:         file,
	}
	if screenshot != "" {
		shot, err := os.Open(screenshot)
		if err != nil {
			return catalog.Mod{}, err
		}
		defer func() { _ = shot.Close() }()
		req.Screenshot = shot
		req.ScreenshotName = filepath.Base(screenshot)
	}
	return svc.Upload(ctx, req)
}

func newCatalogDeleteCommand(app *App) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a catalog entry and its files",
		Long: `Delete a catalog entry and its files.

The password must match catalog.password_file. Without --password it is read
from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return app.withCatalog(ctx, func(svc *catalog.Service, _ *config.Config) error {
				if password == "" {
					fmt.Fprint(app.stderr, "Password: ")
					line, _ := bufio.NewReader(app.stdin).ReadString('\n')
					password = strings.TrimRight(line, "\r\n")
				}
				if err := svc.Delete(ctx, id, password); err != nil {
					return app.fail(err)
				}
				app.printf("%s Deleted #%d\n", successIcon, id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "catalog password")
	return cmd
}

// withCatalog opens the catalog database for one command and closes it after.
func (a *App) withCatalog(ctx context.Context, fn func(*catalog.Service, *config.Config) error) error {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return a.fail(newServiceError(err, issue.ConfigLoadFailedId))
	}
	logger := a.logger("catalog")

	store, err := catalog.Open(ctx, cfg.Catalog.DBPath)
	if err != nil {
		return a.fail(newServiceError(
			issue.NewErrorContext().
				WithOperation("open catalog").
				WithResource(cfg.Catalog.DBPath).
				WithSuggestion("Check that catalog.db_path points to a writable location").
				Wrap(err).
				BuildError(),
			issue.CatalogUnavailableId))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close catalog", "err", err)
		}
	}()

	password, err := config.LoadPassword(cfg.Catalog.PasswordFile)
	if err != nil {
		logger.Debug("deletion disabled", "password_file", cfg.Catalog.PasswordFile, "err", err)
	}

	svc, err := catalog.NewService(catalog.Options{
		Store:         store,
		UploadDir:     cfg.Catalog.UploadDir,
		ScreenshotDir: cfg.Catalog.ScreenshotDir,
		Password:      password,
		Logger:        logger,
	})
	if err != nil {
		return a.fail(err)
	}
	return fn(svc, cfg)
}

func (a *App) listCatalog(ctx context.Context, svc *catalog.Service) error {
	mods, err := svc.List(ctx)
	if err != nil {
		return a.fail(err)
	}

	a.println(TitleStyle.Render("Community Catalog"))
	a.println()
	if len(mods) == 0 {
		a.printf("%s No mods uploaded\n", infoIcon)
		return nil
	}

	t := newTable("ID", "NAME", "AUTHOR", "VERSION", "FILE", "UPLOADED")
	for _, m := range mods {
		uploaded := "-"
		if !m.CreatedAt.IsZero() {
			uploaded = m.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		t.addRow(strconv.FormatInt(m.ID, 10), m.Name, m.Author, m.Version, m.FileName, uploaded)
	}
	t.render(a.stdout)
	return nil
}

func (a *App) showCatalogEntry(ctx context.Context, svc *catalog.Service, id int64) error {
	m, err := svc.Get(ctx, id)
	if err != nil {
		return a.fail(err)
	}

	a.println(TitleStyle.Render(m.Name) + " " + SubtitleStyle.Render(fmt.Sprintf("#%d", m.ID)))
	a.println()
	a.printf("%s: %s\n", CmdStyle.Render("Author"), m.Author)
	a.printf("%s: %s\n", CmdStyle.Render("Engine version"), m.Version)
	a.printf("%s: %s\n", CmdStyle.Render("File"), m.FileName)
	if m.Dependencies != "" {
		a.printf("%s: %s\n", CmdStyle.Render("Dependencies"), m.Dependencies)
	}
	if m.Screenshot != "" {
		a.printf("%s: %s\n", CmdStyle.Render("Screenshot"), m.Screenshot)
	}
	if m.Digest != "" {
		a.printf("%s: %s\n", CmdStyle.Render("BLAKE3"), SubtitleStyle.Render(m.Digest))
	}

	rendered, err := glamour.Render(m.Description, a.markdownStyle)
	if err != nil {
		a.println()
		a.println(m.Description)
		return nil
	}
	a.printf("%s", rendered)
	return nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid catalog id %q", arg)
	}
	return id, nil
}
