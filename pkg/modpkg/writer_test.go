// SPDX-License-Identifier: MPL-2.0

package modpkg

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"barkmods-cli/pkg/compat"
	"barkmods-cli/pkg/manifest"
)

func TestBuild_EndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := filepath.Join(dir, "mods")
	files := writeFiles(t, dir, 2)

	path, err := Build(BuildOptions{
		Name:          "Test Mod",
		Author:        "Alice",
		EngineVersion: "1.0",
		ValidVersions: []string{"1.0"},
		Attachments:   files,
		StoreDir:      store,
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if want := filepath.Join(store, "Test Mod.zip"); path != want {
		t.Errorf("Build() path = %q, want %q", path, want)
	}

	p := openPackage(t, path)
	if got, want := p.Entries(), []string{ManifestEntry, "filea.txt", "fileb.txt"}; !slices.Equal(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}

	m, err := p.Manifest()
	if err != nil {
		t.Fatalf("Manifest() error: %v", err)
	}
	want := manifest.Manifest{Name: "Test Mod", Author: "Alice", EngineVersion: "1.0"}
	if m != want {
		t.Errorf("Manifest() = %+v, want %+v", m, want)
	}
	if v := compat.Check(m, "1.0"); v.Kind != compat.Match {
		t.Errorf("Check() = %v, want Match", v)
	}

	// No temporary files left behind.
	entries, err := os.ReadDir(store)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("store holds %d files, want 1", len(entries))
	}
}

func TestBuild_Defaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	path, err := Build(BuildOptions{
		Name:          "  Defaults  ",
		ValidVersions: []string{"2.5", "2.4"},
		StoreDir:      dir,
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	m, err := openPackage(t, path).Manifest()
	if err != nil {
		t.Fatal(err)
	}
	// Authoring default is the first valid version, not manifest.Unknown.
	want := manifest.Manifest{Name: "Defaults", Author: manifest.Unknown, EngineVersion: "2.5"}
	if m != want {
		t.Errorf("Manifest() = %+v, want %+v", m, want)
	}
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := writeFiles(t, dir, 11)
	reserved := filepath.Join(dir, "sub", ManifestEntry)
	if err := os.MkdirAll(filepath.Dir(reserved), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(reserved, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opts BuildOptions
		want BuildErrorKind
	}{
		{name: "blank name", opts: BuildOptions{Name: "   "}, want: MissingName},
		{name: "path in name", opts: BuildOptions{Name: "../evil"}, want: InvalidName},
		{
			name: "version not offered",
			opts: BuildOptions{Name: "v", EngineVersion: "9.9", ValidVersions: []string{"1.0"}},
			want: UnsupportedVersion,
		},
		{
			name: "eleven attachments",
			opts: BuildOptions{Name: "many", Attachments: files},
			want: TooManyAttachments,
		},
		{
			name: "attachment shadows manifest",
			opts: BuildOptions{Name: "shadow", Attachments: []string{reserved}},
			want: ReservedEntry,
		},
		{
			name: "missing attachment",
			opts: BuildOptions{Name: "missing", Attachments: []string{filepath.Join(dir, "nope")}},
			want: IOFailure,
		},
		{
			name: "directory attachment",
			opts: BuildOptions{Name: "dir", Attachments: []string{filepath.Join(dir, "sub")}},
			want: IOFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := t.TempDir()
			tt.opts.StoreDir = store
			_, err := Build(tt.opts)
			if !IsBuildError(err, tt.want) {
				t.Fatalf("Build() error = %v, want kind %v", err, tt.want)
			}
			entries, readErr := os.ReadDir(store)
			if readErr != nil {
				t.Fatal(readErr)
			}
			if len(entries) != 0 {
				t.Errorf("rejected build left %d files in the store", len(entries))
			}
		})
	}
}

func TestBuild_TenAttachmentsAccepted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := writeFiles(t, dir, 10)
	// A duplicate input path does not count against the cap.
	files = append(files, files[0])

	path, err := Build(BuildOptions{Name: "ten", Attachments: files, StoreDir: filepath.Join(dir, "store")})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if got := len(openPackage(t, path).Attachments()); got != MaxAttachments {
		t.Errorf("Attachments() = %d entries, want %d", got, MaxAttachments)
	}
}

func TestBuild_BaseNameCollisionLastWins(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := filepath.Join(dir, "one", "data.txt")
	second := filepath.Join(dir, "two", "data.txt")
	for _, p := range []string{first, second} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(filepath.Base(filepath.Dir(p))), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var logs bytes.Buffer
	path, err := Build(BuildOptions{
		Name:        "collide",
		Attachments: []string{first, second},
		StoreDir:    filepath.Join(dir, "store"),
		Logger:      log.New(&logs),
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	p := openPackage(t, path)
	if got := p.Attachments(); !slices.Equal(got, []string{"data.txt"}) {
		t.Fatalf("Attachments() = %v, want one data.txt", got)
	}
	out := filepath.Join(dir, "out")
	if _, err := p.Extract("data.txt", out); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(out, "data.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "two" {
		t.Errorf("data.txt = %q, want content of the later file", data)
	}
	if !strings.Contains(logs.String(), "collision") {
		t.Errorf("expected a collision warning, logs: %s", logs.String())
	}
}

func TestBuild_OverwritesExisting(t *testing.T) {
	t.Parallel()

	store := t.TempDir()
	var logs bytes.Buffer
	logger := log.New(&logs)

	for _, author := range []string{"first", "second"} {
		if _, err := Build(BuildOptions{Name: "same", Author: author, StoreDir: store, Logger: logger}); err != nil {
			t.Fatalf("Build(%s) error: %v", author, err)
		}
	}

	m, err := openPackage(t, filepath.Join(store, "same.zip")).Manifest()
	if err != nil {
		t.Fatal(err)
	}
	if m.Author != "second" {
		t.Errorf("Author = %q, want second", m.Author)
	}
	if !strings.Contains(logs.String(), "replacing existing package") {
		t.Errorf("expected a replace warning, logs: %s", logs.String())
	}
}

func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := writeFiles(t, dir, 3)

	build := func(store string) []byte {
		t.Helper()
		path, err := Build(BuildOptions{Name: "det", Author: "a", EngineVersion: "1", Attachments: files, StoreDir: store})
		if err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	if !bytes.Equal(build(filepath.Join(dir, "s1")), build(filepath.Join(dir, "s2"))) {
		t.Error("identical inputs produced different archives")
	}
}

func TestBuildErrorUnwrap(t *testing.T) {
	t.Parallel()

	_, err := Build(BuildOptions{Name: ""})
	if !errors.Is(err, manifest.ErrMissingName) {
		t.Errorf("Build() error = %v, want to wrap manifest.ErrMissingName", err)
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"Fetch", "Bark Park 2", "v1.0"} {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) error: %v", name, err)
		}
	}
	for _, name := range []string{"", ".", "..", "../x", `a\b`, "a/b", "nul\x00"} {
		if err := ValidateName(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
}
