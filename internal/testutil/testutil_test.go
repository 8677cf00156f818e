// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
)

func TestWriteZip(t *testing.T) {
	t.Parallel()

	path := WriteZip(t, filepath.Join(t.TempDir(), "fixture.zip"),
		"info.json", `{"mod name": "Fixture"}`,
		"assets/a.txt", "a",
	)

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader() error: %v", err)
	}
	defer MustClose(t, r)

	if len(r.File) != 2 || r.File[0].Name != "info.json" || r.File[1].Name != "assets/a.txt" {
		t.Errorf("entries = %v", r.File)
	}
}

func TestWriteFile_CreatesParents(t *testing.T) {
	t.Parallel()

	path := WriteFile(t, filepath.Join(t.TempDir(), "a", "b", "c.txt"), "hi")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hi" {
		t.Errorf("content = %q", data)
	}
}

func TestFakeClock(t *testing.T) {
	t.Parallel()

	c := NewFakeClock(time.Time{})
	start := c.Now()
	if !start.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("default start = %v", start)
	}

	c.Advance(time.Hour)
	if got := c.Now().Sub(start); got != time.Hour {
		t.Errorf("after Advance(1h) elapsed = %v", got)
	}

	later := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Errorf("after Set() Now = %v", c.Now())
	}
}
