// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"barkmods-cli/pkg/modpkg"
)

var (
	// ErrWrongPassword is returned by Delete when the password does not match.
	ErrWrongPassword = errors.New("wrong password")
	// ErrDeleteDisabled is returned by Delete when no password is configured.
	ErrDeleteDisabled = errors.New("deletion disabled: no catalog password configured")
	// ErrInvalidFileName is returned for filenames that are empty or reduce to
	// a directory reference.
	ErrInvalidFileName = errors.New("invalid filename")
)

type (
	// Options configures a Service.
	Options struct {
		Store         *Store
		UploadDir     string
		ScreenshotDir string
		// Password guards Delete. Empty disables deletion.
		Password string
		Logger   *log.Logger
		// Now defaults to time.Now.
		Now func() time.Time
	}

	// Service implements catalog operations over a Store and the upload dirs.
	Service struct {
		store         *Store
		uploadDir     string
		screenshotDir string
		password      string
		logger        *log.Logger
		now           func() time.Time
	}

	// UploadRequest is one submitted mod.
	UploadRequest struct {
		Name         string
		Author       string
		Version      string
		Description  string
		Dependencies string
		// FileName is the client-supplied package filename. Only its base name
		// is kept.
		FileName string
		File     io.Reader
		// ScreenshotName and Screenshot are optional.
		ScreenshotName string
		Screenshot     io.Reader
	}

	// MissingFieldError names a required upload field that was blank.
	MissingFieldError struct {
		Field string
	}
)

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// NewService creates a Service and its storage directories.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("catalog store is required")
	}
	for _, dir := range []string{opts.UploadDir, opts.ScreenshotDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:         opts.Store,
		uploadDir:     opts.UploadDir,
		screenshotDir: opts.ScreenshotDir,
		password:      opts.Password,
		logger:        logger,
		now:           now,
	}, nil
}

// List returns every entry, newest first.
func (s *Service) List(ctx context.Context) ([]Mod, error) {
	return s.store.List(ctx)
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, id int64) (Mod, error) {
	return s.store.Get(ctx, id)
}

// Upload stores the package and optional screenshot, then records the entry.
// A stored file with the same name is overwritten.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (Mod, error) {
	if err := req.validate(); err != nil {
		return Mod{}, err
	}
	fileName, err := baseName(req.FileName)
	if err != nil {
		return Mod{}, err
	}

	digest, err := storeFile(filepath.Join(s.uploadDir, fileName), req.File)
	if err != nil {
		return Mod{}, fmt.Errorf("store %s: %w", fileName, err)
	}

	var screenshot string
	if req.Screenshot != nil && strings.TrimSpace(req.ScreenshotName) != "" {
		screenshot, err = baseName(req.ScreenshotName)
		if err != nil {
			return Mod{}, err
		}
		if _, err := storeFile(filepath.Join(s.screenshotDir, screenshot), req.Screenshot); err != nil {
			return Mod{}, fmt.Errorf("store screenshot %s: %w", screenshot, err)
		}
	}

	mod, err := s.store.Create(ctx, Mod{
		Name:         strings.TrimSpace(req.Name),
		Author:       strings.TrimSpace(req.Author),
		Version:      strings.TrimSpace(req.Version),
		Description:  req.Description,
		Dependencies: req.Dependencies,
		FileName:     fileName,
		Screenshot:   screenshot,
		Digest:       digest,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return Mod{}, err
	}
	s.logger.Info("mod uploaded", "id", mod.ID, "mod", mod.Name, "file", fileName, "digest", digest)
	return mod, nil
}

// Delete removes the entry, then its files unless another entry still
// references them. Files already gone are ignored.
func (s *Service) Delete(ctx context.Context, id int64, password string) error {
	if s.password == "" {
		return ErrDeleteDisabled
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) != 1 {
		s.logger.Warn("delete refused", "id", id, "reason", ErrWrongPassword)
		return ErrWrongPassword
	}

	mod, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	files, screenshots, err := s.store.References(ctx, mod.FileName, mod.Screenshot)
	if err != nil {
		s.logger.Warn("keeping files: reference count failed", "id", id, "err", err)
		return nil
	}
	if files == 0 {
		s.removeFile(filepath.Join(s.uploadDir, mod.FileName))
	}
	if mod.Screenshot != "" && screenshots == 0 {
		s.removeFile(filepath.Join(s.screenshotDir, mod.Screenshot))
	}
	s.logger.Info("mod deleted", "id", id, "mod", mod.Name)
	return nil
}

// FilePath resolves a stored package filename inside the upload dir.
func (s *Service) FilePath(fileName string) (string, error) {
	return resolve(s.uploadDir, fileName)
}

// ScreenshotPath resolves a stored screenshot filename inside the screenshot dir.
func (s *Service) ScreenshotPath(fileName string) (string, error) {
	return resolve(s.screenshotDir, fileName)
}

func (s *Service) removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("remove catalog file", "path", path, "err", err)
	}
}

func (r UploadRequest) validate() error {
	required := []struct {
		field, value string
	}{
		{"mod_name", r.Name},
		{"author", r.Author},
		{"version", r.Version},
		{"description", r.Description},
		{"mod_file", r.FileName},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &MissingFieldError{Field: f.field}
		}
	}
	if r.File == nil {
		return &MissingFieldError{Field: "mod_file"}
	}
	return nil
}

func resolve(dir, fileName string) (string, error) {
	name, err := baseName(fileName)
	if err != nil {
		return "", err
	}
	if name != fileName {
		return "", fmt.Errorf("%q: %w", fileName, ErrInvalidFileName)
	}
	return filepath.Join(dir, name), nil
}

// baseName strips any directory part from a client-supplied filename, for
// both slash styles.
func baseName(name string) (string, error) {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." || name == ".." {
		return "", ErrInvalidFileName
	}
	return name, nil
}

// storeFile writes r to path through a temp file and returns the content digest.
func storeFile(path string, r io.Reader) (digest string, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*.tmp")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath) // best-effort cleanup
		}
	}()

	digest, _, err = modpkg.DigestReader(io.TeeReader(r, tmp))
	if err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err = tmp.Close(); err != nil {
		return "", err
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return "", err
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return "", err
	}
	return digest, nil
}
