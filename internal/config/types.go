// SPDX-License-Identifier: MPL-2.0

package config

const (
	// DefaultStoreDir is the mod store, relative to the working directory.
	DefaultStoreDir = "mods"
	// DefaultHostConfig is the engine's own configuration file.
	DefaultHostConfig = "details.json"
	// DefaultMaxUploadBytes caps catalog uploads at 100 MiB.
	DefaultMaxUploadBytes int64 = 100 << 20
)

type (
	// Config is the barkmods application configuration.
	Config struct {
		// StoreDir holds installed mod packages.
		StoreDir string `json:"store_dir" mapstructure:"store_dir"`
		// HostConfig is the path of the engine's details.json.
		HostConfig string        `json:"host_config" mapstructure:"host_config"`
		Scripts    ScriptsConfig `json:"scripts" mapstructure:"scripts"`
		Catalog    CatalogConfig `json:"catalog" mapstructure:"catalog"`
		UI         UIConfig      `json:"ui" mapstructure:"ui"`

		// Source is the config file the values were read from, empty when
		// only defaults and environment applied.
		Source string `json:"-" mapstructure:"-"`
	}

	// ScriptsConfig controls mod script execution.
	ScriptsConfig struct {
		// Enabled runs mod.lua scripts during `mod run`.
		Enabled bool `json:"enabled" mapstructure:"enabled"`
		// TrustHostCode enables run_arbitrary_host_code. Turning it on lets any
		// installed mod run shell commands with the user's privileges.
		TrustHostCode bool `json:"trust_host_code" mapstructure:"trust_host_code"`
	}

	// CatalogConfig configures the community catalog server.
	CatalogConfig struct {
		DBPath         string `json:"db_path" mapstructure:"db_path"`
		UploadDir      string `json:"upload_dir" mapstructure:"upload_dir"`
		ScreenshotDir  string `json:"screenshot_dir" mapstructure:"screenshot_dir"`
		PasswordFile   string `json:"password_file" mapstructure:"password_file"`
		MaxUploadBytes int64  `json:"max_upload_bytes" mapstructure:"max_upload_bytes"`
		Addr           string `json:"addr" mapstructure:"addr"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		StoreDir:   DefaultStoreDir,
		HostConfig: DefaultHostConfig,
		Catalog: CatalogConfig{
			DBPath:         "mods.db",
			UploadDir:      "Data",
			ScreenshotDir:  "Data/screenshots",
			PasswordFile:   "password.json",
			MaxUploadBytes: DefaultMaxUploadBytes,
			Addr:           "127.0.0.1:5000",
		},
	}
}
