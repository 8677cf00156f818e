// SPDX-License-Identifier: MPL-2.0

// Package modstore manages the directory of installed mod packages and scans
// it, reading every package, checking its compatibility and optionally running
// its script.
package modstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"barkmods-cli/internal/issue"
	"barkmods-cli/pkg/modpkg"
)

// ErrNotFound is returned when no package with the requested name is installed.
var ErrNotFound = errors.New("mod not installed")

type (
	// Options configures a Store.
	Options struct {
		// Dir is the store directory.
		Dir    string
		Logger *log.Logger
	}

	// Store is a directory of <mod name>.zip packages. It assumes a single
	// writer.
	Store struct {
		dir    string
		logger *log.Logger
	}
)

// New creates a Store. The directory is not touched until needed.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{dir: opts.Dir, logger: logger}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Ensure creates the store directory when missing.
func (s *Store) Ensure() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create mod store %s: %w", s.dir, err)
	}
	return nil
}

// Exists reports whether the store directory exists.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}

// PackagePath returns where the package for the mod name lives. Names that
// would resolve outside the store are rejected with modpkg.ErrInvalidName.
func (s *Store) PackagePath(name string) (string, error) {
	if err := modpkg.ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, modpkg.FileName(name)), nil
}

// Build authors a new package into the store.
func (s *Store) Build(opts modpkg.BuildOptions) (string, error) {
	opts.StoreDir = s.dir
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	path, err := modpkg.Build(opts)
	if err != nil {
		return "", err
	}
	s.logger.Info("built package", "path", path, "attachments", len(opts.Attachments))
	return path, nil
}

// Install copies the package at src into the store under its manifest name.
// A package without a valid manifest is refused. An installed package with
// the same name is replaced and the replacement logged.
func (s *Store) Install(src string) (string, error) {
	p, err := modpkg.Open(src)
	if err != nil {
		return "", err
	}
	m, err := p.Manifest()
	closeErr := p.Close()
	if err != nil {
		return "", err
	}
	if closeErr != nil {
		return "", fmt.Errorf("close %s: %w", src, closeErr)
	}

	dest, err := s.PackagePath(m.Name)
	if err != nil {
		return "", issue.NewErrorContext().
			WithOperation("install mod").
			WithResource(src).
			WithSuggestion("Rebuild the package with 'barkmods mod build' and a name without path separators").
			Wrap(err).
			BuildError()
	}
	if err := s.Ensure(); err != nil {
		return "", err
	}
	if same, _ := samePath(src, dest); same {
		return dest, nil
	}
	if _, statErr := os.Stat(dest); statErr == nil {
		s.logger.Warn("replacing existing package", "mod", m.Name, "path", dest)
	}
	if err := copyFile(src, dest); err != nil {
		return "", fmt.Errorf("install %s: %w", src, err)
	}
	s.logger.Info("installed package", "mod", m.Name, "path", dest)
	return dest, nil
}

// Remove deletes the package installed under the mod name.
func (s *Store) Remove(name string) error {
	path, err := s.PackagePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("remove %s: %w", path, err)
	}
	s.logger.Info("removed package", "mod", name, "path", path)
	return nil
}

// Open opens the installed package for the mod name.
func (s *Store) Open(name string) (*modpkg.Package, error) {
	path, err := s.PackagePath(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return modpkg.Open(path)
}

// Extract materializes every entry of the installed package below destDir.
func (s *Store) Extract(name, destDir string) ([]string, error) {
	p, err := s.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = p.Close() }() // read-only; close error is non-critical

	return p.ExtractAll(destDir)
}

// Packages lists the package files in directory listing order, unsorted.
func (s *Store) Packages() ([]string, error) {
	dir, err := os.Open(s.dir)
	if err != nil {
		return nil, fmt.Errorf("open mod store: %w", err)
	}
	defer func() { _ = dir.Close() }()

	entries, err := dir.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("list mod store: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), modpkg.Extension) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Names returns the installed package filenames sorted, for display.
func (s *Store) Names() ([]string, error) {
	names, err := s.Packages()
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

func samePath(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}

// copyFile writes src to dst through a temporary file in dst's directory.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".install-*.zip.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath) // best-effort cleanup
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, dst)
}
