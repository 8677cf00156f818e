// SPDX-License-Identifier: MPL-2.0

package modpkg

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"barkmods-cli/pkg/manifest"
)

// Package is an opened mod archive. It is read-only and must be closed.
type Package struct {
	path  string
	rc    *zip.ReadCloser
	names []string
	// index maps entry names to their last occurrence, matching how zip
	// tools resolve duplicate names.
	index map[string]*zip.File
}

// Open opens the package at path and indexes its entries.
//
// Open fails only when the file cannot be opened or is not a zip container.
// A package without a manifest opens fine; Manifest then reports it.
func Open(path string) (*Package, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &OpenError{Path: path, Kind: OpenIOFailure, Err: err}
	}
	if info.IsDir() {
		return nil, &OpenError{Path: path, Kind: NotAnArchive, Err: fmt.Errorf("%w: is a directory", ErrNotAnArchive)}
	}

	rc, err := zip.OpenReader(path)
	// With GODEBUG=zipinsecurepath=0 a usable reader comes back alongside
	// ErrInsecurePath; extraction checks every path itself.
	if errors.Is(err, zip.ErrInsecurePath) && rc != nil {
		err = nil
	}
	if err != nil {
		if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrAlgorithm) || errors.Is(err, zip.ErrChecksum) {
			return nil, &OpenError{Path: path, Kind: NotAnArchive, Err: fmt.Errorf("%w: %w", ErrNotAnArchive, err)}
		}
		return nil, &OpenError{Path: path, Kind: OpenIOFailure, Err: err}
	}

	p := &Package{
		path:  path,
		rc:    rc,
		index: make(map[string]*zip.File, len(rc.File)),
	}
	for _, f := range rc.File {
		if _, seen := p.index[f.Name]; !seen {
			p.names = append(p.names, f.Name)
		}
		p.index[f.Name] = f
	}
	return p, nil
}

// Close releases the underlying file.
func (p *Package) Close() error {
	if p == nil || p.rc == nil {
		return nil
	}
	return p.rc.Close()
}

// Path returns the path the package was opened from.
func (p *Package) Path() string {
	return p.path
}

// FileName returns the base filename of the package.
func (p *Package) FileName() string {
	return filepath.Base(p.path)
}

// Entries lists every distinct entry name in archive order.
func (p *Package) Entries() []string {
	return append([]string(nil), p.names...)
}

// Attachments lists the file entries other than the manifest, in archive order.
// The script entry is an attachment like any other file.
func (p *Package) Attachments() []string {
	var out []string
	for _, name := range p.names {
		if name == ManifestEntry || strings.HasSuffix(name, "/") {
			continue
		}
		out = append(out, name)
	}
	return out
}

// HasManifest reports whether the manifest entry exists.
func (p *Package) HasManifest() bool {
	_, ok := p.index[ManifestEntry]
	return ok
}

// Manifest reads and decodes info.json.
//
// Every failure is returned as a *MalformedError so callers scanning a
// directory can record it and move on to the next package.
func (p *Package) Manifest() (manifest.Manifest, error) {
	f, ok := p.index[ManifestEntry]
	if !ok {
		return manifest.Manifest{}, &MalformedError{Path: p.path, Reason: MissingManifest, Err: ErrMissingManifest}
	}

	data, err := readEntry(f, manifest.MaxSize)
	if err != nil {
		return manifest.Manifest{}, &MalformedError{Path: p.path, Reason: UnreadableManifest, Err: err}
	}

	m, err := manifest.Decode(data)
	if err != nil {
		return manifest.Manifest{}, &MalformedError{Path: p.path, Reason: InvalidManifest, Err: err}
	}
	return m, nil
}

// RawManifest returns the undecoded info.json bytes.
func (p *Package) RawManifest() ([]byte, error) {
	f, ok := p.index[ManifestEntry]
	if !ok {
		return nil, &MalformedError{Path: p.path, Reason: MissingManifest, Err: ErrMissingManifest}
	}
	data, err := readEntry(f, manifest.MaxSize)
	if err != nil {
		return nil, &MalformedError{Path: p.path, Reason: UnreadableManifest, Err: err}
	}
	return data, nil
}

// Script returns the full source of mod.lua. ok is false when the package has
// no script entry.
func (p *Package) Script() (source string, ok bool, err error) {
	f, found := p.index[ScriptEntry]
	if !found {
		return "", false, nil
	}
	data, err := readEntry(f, MaxScriptSize)
	if err != nil {
		return "", true, fmt.Errorf("read %s from %s: %w", ScriptEntry, p.path, err)
	}
	return string(data), true, nil
}

// Extract writes one entry below destDir and returns the written path.
func (p *Package) Extract(name, destDir string) (string, error) {
	f, ok := p.index[name]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrEntryNotFound)
	}
	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return "", fmt.Errorf("resolve destination: %w", err)
	}
	return extractFile(f, absDest)
}

// ExtractAll writes every file entry below destDir, in archive order.
func (p *Package) ExtractAll(destDir string) ([]string, error) {
	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("resolve destination: %w", err)
	}
	if err := os.MkdirAll(absDest, 0o755); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	var written []string
	for _, name := range p.names {
		f := p.index[name]
		if f.FileInfo().IsDir() {
			continue
		}
		out, err := extractFile(f, absDest)
		if err != nil {
			return written, err
		}
		written = append(written, out)
	}
	return written, nil
}

// Digest returns the BLAKE3 digest of the package file.
func (p *Package) Digest() (string, error) {
	return Digest(p.path)
}

// readEntry reads a whole entry, refusing entries larger than limit.
func readEntry(f *zip.File, limit int64) (data []byte, err error) {
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%s: %w (%d bytes, max %d)", f.Name, ErrEntryTooLarge, f.UncompressedSize64, limit)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	data, err = io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s: %w (max %d bytes)", f.Name, ErrEntryTooLarge, limit)
	}
	return data, nil
}

// extractFile materializes f below absDest, rejecting names that escape it.
func extractFile(f *zip.File, absDest string) (destPath string, err error) {
	destPath = filepath.Join(absDest, filepath.FromSlash(f.Name))
	rel, relErr := filepath.Rel(absDest, destPath)
	if relErr != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(f.Name) {
		return "", fmt.Errorf("%s: %w", f.Name, ErrUnsafePath)
	}
	if f.FileInfo().IsDir() {
		return destPath, os.MkdirAll(destPath, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("create parent directory: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	//nolint:gosec // G110: packages come from the local store or an authenticated upload
	if _, err := io.Copy(out, rc); err != nil {
		return "", fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return destPath, nil
}
