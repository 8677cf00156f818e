// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"barkmods-cli/internal/config"
	"barkmods-cli/internal/issue"
	"barkmods-cli/internal/modstore"
	"barkmods-cli/pkg/compat"
)

// defaultMarkdownStyle is the glamour style for issue texts and catalog
// descriptions.
const defaultMarkdownStyle = "dark"

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// App wires CLI services and shared dependencies. Every Cobra handler
	// receives an App and builds its domain services through it.
	App struct {
		Config ConfigProvider

		stdin         io.Reader
		stdout        io.Writer
		stderr        io.Writer
		markdownStyle string

		// Set from persistent flags.
		verbose bool
		cfgFile string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config        ConfigProvider
		Stdin         io.Reader
		Stdout        io.Writer
		Stderr        io.Writer
		MarkdownStyle string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.MarkdownStyle == "" {
		deps.MarkdownStyle = defaultMarkdownStyle
	}

	return &App{
		Config:        deps.Config,
		stdin:         deps.Stdin,
		stdout:        deps.Stdout,
		stderr:        deps.Stderr,
		markdownStyle: deps.MarkdownStyle,
	}
}

// loadConfig loads the configuration for one invocation. ui.verbose applies
// when --verbose was not given.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.cfgFile})
	if err != nil {
		return nil, err
	}
	if !a.verbose {
		a.verbose = cfg.UI.Verbose
	}
	return cfg, nil
}

// logger returns a component logger writing to stderr.
func (a *App) logger(prefix string) *log.Logger {
	level := log.InfoLevel
	if a.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: prefix,
		Level:  level,
	})
}

func (a *App) modStore(cfg *config.Config) *modstore.Store {
	return modstore.New(modstore.Options{
		Dir:    cfg.StoreDir,
		Logger: a.logger("modstore"),
	})
}

// hostVersion reads the engine version. Failures degrade to UnknownHost with
// a warning.
func (a *App) hostVersion(cfg *config.Config) compat.HostVersion {
	host, err := config.LoadHostVersion(cfg.HostConfig)
	if err != nil {
		a.logger("config").Warn("engine version unknown", "host_config", cfg.HostConfig, "err", err)
		if a.verbose {
			renderServiceError(a.stderr, newServiceError(err, issue.HostVersionUnknownId), a.markdownStyle, a.logger("issue"))
		}
	}
	return host
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.stdout, args...)
}
