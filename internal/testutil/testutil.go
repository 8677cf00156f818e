// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

// WriteFile writes content to path, creating parent directories, and returns
// path.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// WriteZip writes a raw zip archive at path from name/body pairs, in order.
// It does not go through the package writer, so tests can build archives the
// writer would refuse (no manifest, odd entry names).
func WriteZip(t testing.TB, path string, pairs ...string) string {
	t.Helper()
	if len(pairs)%2 != 0 {
		t.Fatalf("WriteZip: odd number of name/body arguments")
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	zw := zip.NewWriter(f)
	for i := 0; i < len(pairs); i += 2 {
		w, err := zw.Create(pairs[i])
		if err != nil {
			t.Fatalf("failed to add %s to %s: %v", pairs[i], path, err)
		}
		if _, err := io.WriteString(w, pairs[i+1]); err != nil {
			t.Fatalf("failed to write %s to %s: %v", pairs[i], path, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish %s: %v", path, err)
	}
	MustClose(t, f)
	return path
}

// MustClose closes c and fails the test if closing fails.
func MustClose(t testing.TB, c io.Closer) {
	t.Helper()
	if err := c.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
}
