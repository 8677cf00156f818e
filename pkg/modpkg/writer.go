// SPDX-License-Identifier: MPL-2.0

package modpkg

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"

	"barkmods-cli/pkg/manifest"
)

// manifestModTime is the timestamp stamped on the manifest entry so identical
// manifests produce identical archive bytes. It is the zip (DOS) epoch.
var manifestModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// BuildOptions describes a package to author.
type BuildOptions struct {
	// Name is required and becomes both the manifest name and the filename.
	Name string
	// Author defaults to manifest.Unknown.
	Author string
	// EngineVersion must be one of ValidVersions when that list is non-empty.
	// Blank selects ValidVersions[0].
	EngineVersion string
	// ValidVersions are the engine versions the author may target.
	ValidVersions []string
	// Attachments are source file paths, one entry each, named by base name.
	Attachments []string
	// StoreDir receives <Name>.zip. It is created when missing.
	StoreDir string
	// Logger receives overwrite warnings. Nil disables logging.
	Logger *log.Logger
}

type attachment struct {
	entry string
	path  string
	info  os.FileInfo
}

// FileName returns the store filename for a mod name.
func FileName(name string) string {
	return name + Extension
}

// ValidateName rejects mod names that would not stay a single file inside the
// store: path separators, NUL, "." and "..".
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

// Build writes a new package and returns its path.
//
// The manifest entry is written first, then attachments in the order given.
// Validation happens before anything touches the filesystem, so a rejected
// build leaves no file behind. An existing package with the same name is
// replaced.
func Build(opts BuildOptions) (string, error) {
	m, err := resolveManifest(opts)
	if err != nil {
		return "", err
	}

	var set AttachmentSet
	if _, err := set.Add(opts.Attachments...); err != nil {
		return "", &BuildError{
			Kind:   TooManyAttachments,
			Detail: fmt.Sprintf("%d given", len(opts.Attachments)),
			Err:    err,
		}
	}
	entries, err := resolveAttachments(set.Paths(), opts.Logger)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(opts.StoreDir, 0o755); err != nil {
		return "", &BuildError{Kind: IOFailure, Detail: opts.StoreDir, Err: err}
	}
	dest := filepath.Join(opts.StoreDir, FileName(m.Name))

	tmp, err := os.CreateTemp(opts.StoreDir, ".build-*.zip.tmp")
	if err != nil {
		return "", &BuildError{Kind: IOFailure, Detail: opts.StoreDir, Err: err}
	}
	tmpPath := tmp.Name()

	if err := writeArchive(tmp, m, entries); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath) // best-effort cleanup
		return "", &BuildError{Kind: IOFailure, Detail: dest, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", &BuildError{Kind: IOFailure, Detail: dest, Err: err}
	}
	// CreateTemp uses 0600; packages are shared files.
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return "", &BuildError{Kind: IOFailure, Detail: dest, Err: err}
	}

	if _, statErr := os.Stat(dest); statErr == nil && opts.Logger != nil {
		opts.Logger.Warn("replacing existing package", "mod", m.Name, "path", dest)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return "", &BuildError{Kind: IOFailure, Detail: dest, Err: err}
	}
	return dest, nil
}

// resolveManifest applies the authoring rules. The engine version fallback is
// the first valid version, not the codec's Unknown default.
func resolveManifest(opts BuildOptions) (manifest.Manifest, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return manifest.Manifest{}, &BuildError{Kind: MissingName, Err: manifest.ErrMissingName}
	}
	if err := ValidateName(name); err != nil {
		return manifest.Manifest{}, &BuildError{Kind: InvalidName, Detail: name, Err: err}
	}

	author := strings.TrimSpace(opts.Author)
	if author == "" {
		author = manifest.Unknown
	}

	version := strings.TrimSpace(opts.EngineVersion)
	switch {
	case version == "" && len(opts.ValidVersions) > 0:
		version = opts.ValidVersions[0]
	case version == "":
		version = manifest.Unknown
	case len(opts.ValidVersions) > 0 && !slices.Contains(opts.ValidVersions, version):
		return manifest.Manifest{}, &BuildError{
			Kind:   UnsupportedVersion,
			Detail: fmt.Sprintf("%s not in %s", version, strings.Join(opts.ValidVersions, ", ")),
		}
	}

	return manifest.Manifest{Name: name, Author: author, EngineVersion: version}, nil
}

// resolveAttachments stats every source and maps it to its entry name.
// paths must already be unique. When two sources share a base name the later
// one wins and the earlier one is dropped with a warning.
func resolveAttachments(paths []string, logger *log.Logger) ([]attachment, error) {
	var out []attachment
	for _, p := range paths {
		entry := filepath.Base(p)
		if entry == ManifestEntry {
			return nil, &BuildError{Kind: ReservedEntry, Detail: p}
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, &BuildError{Kind: IOFailure, Detail: p, Err: err}
		}
		if !info.Mode().IsRegular() {
			return nil, &BuildError{Kind: IOFailure, Detail: p, Err: errors.New("not a regular file")}
		}

		if i := slices.IndexFunc(out, func(a attachment) bool { return a.entry == entry }); i >= 0 {
			if logger != nil {
				logger.Warn("attachment name collision, later file wins", "entry", entry, "dropped", out[i].path, "kept", p)
			}
			out = slices.Delete(out, i, i+1)
		}
		out = append(out, attachment{entry: entry, path: p, info: info})
	}
	return out, nil
}

func writeArchive(w io.Writer, m manifest.Manifest, entries []attachment) (err error) {
	zw := zip.NewWriter(w)
	defer func() {
		if closeErr := zw.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	data, err := manifest.Encode(m)
	if err != nil {
		return err
	}
	mw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     ManifestEntry,
		Method:   zip.Deflate,
		Modified: manifestModTime,
	})
	if err != nil {
		return fmt.Errorf("create %s entry: %w", ManifestEntry, err)
	}
	if _, err := mw.Write(data); err != nil {
		return fmt.Errorf("write %s entry: %w", ManifestEntry, err)
	}

	for _, a := range entries {
		if err := writeAttachment(zw, a); err != nil {
			return err
		}
	}
	return nil
}

func writeAttachment(zw *zip.Writer, a attachment) (err error) {
	header, err := zip.FileInfoHeader(a.info)
	if err != nil {
		return fmt.Errorf("create header for %s: %w", a.path, err)
	}
	header.Name = a.entry
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", a.entry, err)
	}

	src, err := os.Open(a.path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("write entry %s: %w", a.entry, err)
	}
	return nil
}
