// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"barkmods-cli/internal/issue"
	"barkmods-cli/pkg/compat"
	"barkmods-cli/pkg/manifest"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := DefaultConfig()
	if cfg.StoreDir != want.StoreDir || cfg.HostConfig != want.HostConfig {
		t.Errorf("paths = %q/%q, want defaults", cfg.StoreDir, cfg.HostConfig)
	}
	if cfg.Scripts.Enabled || cfg.Scripts.TrustHostCode {
		t.Error("scripts and host code must be off by default")
	}
	if cfg.Catalog != want.Catalog {
		t.Errorf("Catalog = %+v, want %+v", cfg.Catalog, want.Catalog)
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, want empty", cfg.Source)
	}
}

func TestLoad_CUEFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "config.cue"), `
store_dir: "/srv/mods"
scripts: enabled: true
catalog: {
	max_upload_bytes: 1024
	addr: ":8080"
}
`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.StoreDir != "/srv/mods" || !cfg.Scripts.Enabled {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Scripts.TrustHostCode {
		t.Error("unset trust_host_code should keep its default")
	}
	if cfg.Catalog.MaxUploadBytes != 1024 || cfg.Catalog.Addr != ":8080" {
		t.Errorf("Catalog = %+v", cfg.Catalog)
	}
	if cfg.Catalog.DBPath != "mods.db" {
		t.Errorf("DBPath = %q, want default", cfg.Catalog.DBPath)
	}
	if cfg.Source != path {
		t.Errorf("Source = %q, want %q", cfg.Source, path)
	}
}

func TestLoad_SchemaViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "wrong type", content: `scripts: enabled: "yes"`, want: "scripts.enabled"},
		{name: "unknown field", content: `colour: "red"`, want: "colour"},
		{name: "non-positive limit", content: `catalog: max_upload_bytes: 0`, want: "max_upload_bytes"},
		{name: "syntax error", content: `store_dir: `, want: "config.cue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "config.cue"), tt.content)

			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatal("Load() should fail")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error should be actionable, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !ae.HasSuggestions() {
		t.Fatalf("Load() error = %v, want actionable error with suggestions", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BARKMODS_STORE_DIR", "/env/mods")
	t.Setenv("BARKMODS_SCRIPTS_TRUST_HOST_CODE", "true")

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.StoreDir != "/env/mods" {
		t.Errorf("StoreDir = %q, want env override", cfg.StoreDir)
	}
	if !cfg.Scripts.TrustHostCode {
		t.Error("TrustHostCode should come from the environment")
	}
}

func TestCreateDefaultConfig_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := CreateDefaultConfig(dir, false)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error: %v", err)
	}

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	want := DefaultConfig()
	want.Source = path
	if *cfg != *want {
		t.Errorf("Load(generated) = %+v, want %+v", cfg, want)
	}

	// An existing file is kept unless forced.
	writeFile(t, path, `store_dir: "custom"`)
	if _, err := CreateDefaultConfig(dir, false); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `store_dir: "custom"` {
		t.Error("CreateDefaultConfig overwrote an existing file without force")
	}
	if _, err := CreateDefaultConfig(dir, true); err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "trust_host_code: false") {
		t.Errorf("forced init should rewrite defaults:\n%s", data)
	}
}

func TestConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	got, err := ConfigDir()
	if err != nil || got != dir {
		t.Errorf("ConfigDir() = %q, %v; want %q", got, err, dir)
	}
}

func TestLoadHostVersion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name    string
		content *string
		want    compat.HostVersion
		wantErr bool
	}{
		{name: "plain", content: ptr(`{"barkengine_version": "1.0"}`), want: "1.0"},
		{name: "comments and trailing comma", content: ptr("{\n  // shipped with the engine\n  \"barkengine_version\": \"2.1\",\n}"), want: "2.1"},
		{name: "numeric keeps literal text", content: ptr(`{"barkengine_version": 1.0}`), want: "1.0"},
		{name: "integer", content: ptr(`{"barkengine_version": 2}`), want: "2"},
		{name: "wrong type", content: ptr(`{"barkengine_version": true}`), want: compat.UnknownHost, wantErr: true},
		{name: "missing key", content: ptr(`{"other": 1}`), want: compat.UnknownHost, wantErr: true},
		{name: "blank value", content: ptr(`{"barkengine_version": "  "}`), want: compat.UnknownHost, wantErr: true},
		{name: "invalid json", content: ptr(`{"barkengine_version": `), want: compat.UnknownHost, wantErr: true},
		{name: "missing file", want: compat.UnknownHost, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".json")
			if tt.content != nil {
				writeFile(t, path, *tt.content)
			}
			got, err := LoadHostVersion(path)
			if got != tt.want {
				t.Errorf("LoadHostVersion() = %q, want %q", got, tt.want)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadHostVersion() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadHostVersion_MatchesNumericManifest(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "details.json")
	writeFile(t, path, `{"barkengine_version": 1.0}`)
	host, err := LoadHostVersion(path)
	if err != nil {
		t.Fatal(err)
	}
	m, err := manifest.Decode([]byte(`{"mod name": "Fetch", "BarkEngine version": 1.0}`))
	if err != nil {
		t.Fatal(err)
	}
	if v := compat.Check(m, host); !v.OK() {
		t.Errorf("Check(host=%q, manifest=%q) = %s, want OK", host, m.EngineVersion, v)
	}
}

func TestLoadPassword(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeFile(t, filepath.Join(dir, "password.json"), `{"password": "hunter2"}`)
	empty := writeFile(t, filepath.Join(dir, "empty.json"), `{}`)

	got, err := LoadPassword(good)
	if err != nil || got != "hunter2" {
		t.Errorf("LoadPassword() = %q, %v", got, err)
	}
	if _, err := LoadPassword(empty); !errors.Is(err, ErrNoPassword) {
		t.Errorf("LoadPassword(empty) error = %v, want ErrNoPassword", err)
	}
	if _, err := LoadPassword(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadPassword(missing) error = %v, want os.ErrNotExist", err)
	}
}

func ptr(s string) *string { return &s }
