// SPDX-License-Identifier: MPL-2.0

package modstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"barkmods-cli/internal/issue"
	"barkmods-cli/internal/scripthost"
	"barkmods-cli/internal/testutil"
	"barkmods-cli/pkg/compat"
	"barkmods-cli/pkg/modpkg"
)

// buildMod authors a valid package into the store with an optional script.
func buildMod(t *testing.T, s *Store, name, version, script string) string {
	t.Helper()
	var attachments []string
	if script != "" {
		src := filepath.Join(t.TempDir(), modpkg.ScriptEntry)
		if err := os.WriteFile(src, []byte(script), 0o644); err != nil {
			t.Fatal(err)
		}
		attachments = append(attachments, src)
	}
	path, err := s.Build(modpkg.BuildOptions{Name: name, Author: "Alice", EngineVersion: version, Attachments: attachments})
	if err != nil {
		t.Fatalf("Build(%s) error: %v", name, err)
	}
	return path
}

func newStore(t *testing.T) (*Store, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	s := New(Options{Dir: filepath.Join(t.TempDir(), "mods"), Logger: log.New(&logs)})
	if err := s.Ensure(); err != nil {
		t.Fatal(err)
	}
	return s, &logs
}

func entryByFile(t *testing.T, r *ScanResult, fileName string) Entry {
	t.Helper()
	for _, e := range r.Entries {
		if e.FileName == fileName {
			return e
		}
	}
	t.Fatalf("no entry for %s in %+v", fileName, r.Entries)
	return Entry{}
}

func TestScan_MalformedAndValid(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	testutil.WriteZip(t, filepath.Join(s.Dir(), "broken.zip"), "readme.txt", "no manifest here")
	buildMod(t, s, "Good Mod", "1.0", "")

	result, err := s.Scan(context.Background(), ScanOptions{Host: "1.0"})
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("Scan() visited %d packages, want 2", len(result.Entries))
	}
	if result.Degraded() != 1 {
		t.Errorf("Degraded() = %d, want 1", result.Degraded())
	}

	broken := entryByFile(t, result, "broken.zip")
	if broken.State != Skipped || !broken.Degraded {
		t.Errorf("broken entry = %+v, want degraded Skipped", broken)
	}
	if broken.Reason != "incomplete/corrupted (no info.json)" {
		t.Errorf("Reason = %q", broken.Reason)
	}
	if broken.Name() != "broken.zip" || broken.Author() != "-" || broken.EngineVersion() != "-" {
		t.Errorf("degraded display = %q/%q/%q", broken.Name(), broken.Author(), broken.EngineVersion())
	}
	if broken.Verdict.Kind != compat.Unknown {
		t.Errorf("Verdict = %v, want Unknown", broken.Verdict)
	}

	good := entryByFile(t, result, "Good Mod.zip")
	if good.State != NoScript || good.Degraded {
		t.Errorf("good entry = %+v, want NoScript", good)
	}
	if good.Verdict.Kind != compat.Match {
		t.Errorf("Verdict = %v, want Match", good.Verdict)
	}
	if good.Name() != "Good Mod" || good.Author() != "Alice" {
		t.Errorf("display = %q/%q", good.Name(), good.Author())
	}
}

func TestScan_ScriptIsolation(t *testing.T) {
	t.Parallel()

	s, logs := newStore(t)
	buildMod(t, s, "Thrower", "1.0", `error("kaboom")`)
	buildMod(t, s, "Polite", "1.0", `print_debug("hello from " .. get_mod_name())`)

	host := scripthost.New(scripthost.Options{Logger: log.New(logs)})
	result, err := s.Scan(context.Background(), ScanOptions{Host: "1.0", Scripts: host})
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	thrower := entryByFile(t, result, "Thrower.zip")
	if thrower.State != ScriptFailed {
		t.Fatalf("Thrower state = %v, want ScriptFailed", thrower.State)
	}
	var scriptErr *scripthost.ScriptError
	if !errors.As(thrower.Err, &scriptErr) || !strings.Contains(scriptErr.Error(), "kaboom") {
		t.Errorf("Thrower error = %v", thrower.Err)
	}

	polite := entryByFile(t, result, "Polite.zip")
	if polite.State != ScriptExecuted {
		t.Errorf("Polite state = %v, want ScriptExecuted", polite.State)
	}
	if !strings.Contains(logs.String(), "hello from Polite") {
		t.Errorf("logs missing script output:\n%s", logs.String())
	}
	if result.Count(ScriptFailed) != 1 || result.Count(ScriptExecuted) != 1 {
		t.Errorf("counts failed=%d executed=%d", result.Count(ScriptFailed), result.Count(ScriptExecuted))
	}
}

func TestScan_ScriptsDisabled(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	buildMod(t, s, "Scripted", "2.0", `print_debug("x")`)

	result, err := s.Scan(context.Background(), ScanOptions{Host: "1.0"})
	if err != nil {
		t.Fatal(err)
	}
	e := entryByFile(t, result, "Scripted.zip")
	if e.State != Skipped || e.Reason != reasonScriptsDisabled || e.Degraded {
		t.Errorf("entry = %+v, want non-degraded Skipped(scripts disabled)", e)
	}
	if !e.HasScript {
		t.Error("HasScript should be true")
	}
	if e.Verdict.Kind != compat.Mismatch || e.Verdict.Expected != "1.0" || e.Verdict.Actual != "2.0" {
		t.Errorf("Verdict = %+v", e.Verdict)
	}
}

func TestScan_IgnoresOtherFilesAndFlagsJunk(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	if err := os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(s.Dir(), "folder.zip"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), "junk.zip"), []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := s.Scan(context.Background(), ScanOptions{Host: compat.UnknownHost})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("Scan() visited %v, want only junk.zip", result.Entries)
	}
	junk := result.Entries[0]
	if junk.State != Skipped || !junk.Degraded || junk.Reason != modpkg.ErrNotAnArchive.Error() {
		t.Errorf("junk entry = %+v", junk)
	}
}

func TestScan_UnknownHost(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	buildMod(t, s, "Any", "1.0", "")

	result, err := s.Scan(context.Background(), ScanOptions{Host: compat.UnknownHost})
	if err != nil {
		t.Fatal(err)
	}
	if v := result.Entries[0].Verdict; v.Kind != compat.Unknown {
		t.Errorf("Verdict = %v, want Unknown", v)
	}
}

func TestScan_Canceled(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	buildMod(t, s, "One", "1.0", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := s.Scan(ctx, ScanOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Scan() error = %v, want context.Canceled", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("canceled scan visited %d packages", len(result.Entries))
	}
}

func TestScan_MissingStore(t *testing.T) {
	t.Parallel()

	s := New(Options{Dir: filepath.Join(t.TempDir(), "absent")})
	if s.Exists() {
		t.Fatal("Exists() = true for a missing dir")
	}
	if _, err := s.Scan(context.Background(), ScanOptions{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Scan() error = %v, want os.ErrNotExist", err)
	}
}

func TestStore_InstallRemoveExtract(t *testing.T) {
	t.Parallel()

	s, logs := newStore(t)
	src := filepath.Join(t.TempDir(), "download.zip")
	testutil.WriteZip(t, src,
		modpkg.ManifestEntry, `{"mod name": "Downloaded", "mod author": "Bob", "BarkEngine version": "1.0"}`,
		"assets/tex.png", "png",
	)

	dest, err := s.Install(src)
	if err != nil {
		t.Fatalf("Install() error: %v", err)
	}
	if want, _ := s.PackagePath("Downloaded"); dest != want {
		t.Errorf("Install() = %q, want %q", dest, want)
	}

	// Installing again replaces and logs.
	if _, err := s.Install(src); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(logs.String(), "replacing existing package") {
		t.Errorf("expected replace warning:\n%s", logs.String())
	}

	out := filepath.Join(t.TempDir(), "out")
	written, err := s.Extract("Downloaded", out)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(written) != 2 {
		t.Errorf("Extract() wrote %v", written)
	}
	if _, err := os.Stat(filepath.Join(out, "assets", "tex.png")); err != nil {
		t.Errorf("attachment not extracted: %v", err)
	}

	if err := s.Remove("Downloaded"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if err := s.Remove("Downloaded"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove() error = %v, want ErrNotFound", err)
	}
	if _, err := s.Extract("Downloaded", out); !errors.Is(err, ErrNotFound) {
		t.Errorf("Extract(removed) error = %v, want ErrNotFound", err)
	}
}

func TestStore_InstallRefusesMalformed(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	src := filepath.Join(t.TempDir(), "bad.zip")
	testutil.WriteZip(t, src, "readme.txt", "nothing")

	_, err := s.Install(src)
	var malformed *modpkg.MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("Install() error = %v, want *MalformedError", err)
	}
	names, err := s.Names()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("store holds %v after a refused install", names)
	}
}

func TestStore_RejectsNamesOutsideStore(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	root := filepath.Dir(s.Dir())
	src := filepath.Join(t.TempDir(), "crafted.zip")
	testutil.WriteZip(t, src, modpkg.ManifestEntry, `{"mod name": "../escaped"}`)

	_, err := s.Install(src)
	if !errors.Is(err, modpkg.ErrInvalidName) {
		t.Fatalf("Install() error = %v, want ErrInvalidName", err)
	}
	var actionable *issue.ActionableError
	if !errors.As(err, &actionable) || !actionable.HasSuggestions() {
		t.Errorf("Install() error should carry suggestions: %#v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escaped.zip")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("package written outside the store: %v", err)
	}

	victim := testutil.WriteFile(t, filepath.Join(root, "victim.zip"), "keep me")
	for _, name := range []string{"../victim", `..\victim`, "..", "a\x00b"} {
		if err := s.Remove(name); !errors.Is(err, modpkg.ErrInvalidName) {
			t.Errorf("Remove(%q) error = %v, want ErrInvalidName", name, err)
		}
		if _, err := s.Open(name); !errors.Is(err, modpkg.ErrInvalidName) {
			t.Errorf("Open(%q) error = %v, want ErrInvalidName", name, err)
		}
		if _, err := s.Extract(name, t.TempDir()); !errors.Is(err, modpkg.ErrInvalidName) {
			t.Errorf("Extract(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
	if _, err := os.Stat(victim); err != nil {
		t.Errorf("file outside the store was touched: %v", err)
	}
}
