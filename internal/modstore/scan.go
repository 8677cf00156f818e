// SPDX-License-Identifier: MPL-2.0

package modstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"barkmods-cli/internal/scripthost"
	"barkmods-cli/pkg/compat"
	"barkmods-cli/pkg/manifest"
	"barkmods-cli/pkg/modpkg"
)

const (
	// Discovered is a package file found in the store but not yet opened.
	Discovered State = iota
	// Read means the manifest was decoded and the script, if any, loaded.
	Read
	// Skipped is terminal: the package could not be read, or it has a script
	// and scripts are disabled.
	Skipped
	// ScriptExecuted is terminal: the script ran to completion.
	ScriptExecuted
	// ScriptFailed is terminal: the script raised an error.
	ScriptFailed
	// NoScript is terminal: the package has no mod.lua.
	NoScript
)

// placeholder is shown for fields a degraded entry cannot provide.
const placeholder = "-"

// reasonScriptsDisabled marks packages whose script was not run.
const reasonScriptsDisabled = "scripts disabled"

type (
	// State is where a package is in the per-scan state machine.
	State int

	// ScanOptions configures Scan.
	ScanOptions struct {
		// Host is the running engine version.
		Host compat.HostVersion
		// Scripts runs mod.lua files when non-nil.
		Scripts *scripthost.Host
	}

	// Entry is the outcome of visiting one package.
	Entry struct {
		FileName string
		Path     string
		Manifest manifest.Manifest
		Verdict  compat.Verdict
		State    State
		// Reason explains a Skipped state.
		Reason string
		// Degraded marks packages whose manifest could not be read. They are
		// listed, not hidden.
		Degraded  bool
		HasScript bool
		// Err is the read or script error, if any.
		Err error
	}

	// ScanResult holds every visited package in scan order.
	ScanResult struct {
		Entries []Entry
	}
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Discovered:
		return "discovered"
	case Read:
		return "read"
	case Skipped:
		return "skipped"
	case ScriptExecuted:
		return "script executed"
	case ScriptFailed:
		return "script failed"
	case NoScript:
		return "no script"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s >= Skipped
}

// Name is the display name: the manifest name, or the filename when degraded.
func (e Entry) Name() string {
	if e.Degraded {
		return e.FileName
	}
	return e.Manifest.Name
}

// Author is the display author, "-" when degraded.
func (e Entry) Author() string {
	if e.Degraded {
		return placeholder
	}
	return e.Manifest.Author
}

// EngineVersion is the display engine version, "-" when degraded.
func (e Entry) EngineVersion() string {
	if e.Degraded {
		return placeholder
	}
	return e.Manifest.EngineVersion
}

// Count returns how many entries ended in state.
func (r *ScanResult) Count(state State) int {
	n := 0
	for _, e := range r.Entries {
		if e.State == state {
			n++
		}
	}
	return n
}

// Degraded returns how many entries could not be read.
func (r *ScanResult) Degraded() int {
	n := 0
	for _, e := range r.Entries {
		if e.Degraded {
			n++
		}
	}
	return n
}

// Scan visits every package once, sequentially, in directory listing order.
//
// Per-package failures are recorded on the entry and never stop the scan.
// Scan only returns an error when the store cannot be listed or ctx is done;
// in the latter case the result holds the packages visited so far.
func (s *Store) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	files, err := s.Packages()
	if err != nil {
		return nil, err
	}

	result := &ScanResult{Entries: make([]Entry, 0, len(files))}
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		entry := s.visit(ctx, name, opts)
		result.Entries = append(result.Entries, entry)
	}

	s.logger.Debug("scan complete",
		"packages", len(result.Entries),
		"degraded", result.Degraded(),
		"script_failed", result.Count(ScriptFailed))
	return result, nil
}

func (s *Store) visit(ctx context.Context, fileName string, opts ScanOptions) Entry {
	entry := Entry{
		FileName: fileName,
		Path:     filepath.Join(s.dir, fileName),
		State:    Discovered,
	}
	logger := s.logger.With("mod", fileName)

	source, ok := s.read(&entry, opts.Host)
	if !ok {
		if entry.State == Skipped {
			logger.Warn("skipping package", "reason", entry.Reason, "err", entry.Err)
		} else {
			logger.Error("read mod script", "err", entry.Err)
		}
		return entry
	}

	switch {
	case !entry.HasScript:
		entry.State = NoScript
	case opts.Scripts == nil:
		entry.State = Skipped
		entry.Reason = reasonScriptsDisabled
	default:
		m := entry.Manifest
		err := opts.Scripts.Execute(ctx, scripthost.ModContext{FileName: fileName, Manifest: &m}, source)
		if err != nil {
			entry.State = ScriptFailed
			entry.Err = err
			logger.Error("mod script failed", "err", err)
		} else {
			entry.State = ScriptExecuted
		}
	}

	logger.Debug("package visited", "state", entry.State, "verdict", entry.Verdict)
	return entry
}

// read moves entry from Discovered to Read, or to Skipped when the package
// cannot be read. It returns the script source when one exists.
func (s *Store) read(entry *Entry, host compat.HostVersion) (string, bool) {
	p, err := modpkg.Open(entry.Path)
	if err != nil {
		entry.skip(err, modpkg.ErrNotAnArchive.Error())
		var openErr *modpkg.OpenError
		if errors.As(err, &openErr) && openErr.Kind != modpkg.NotAnArchive {
			entry.Reason = "unreadable package"
		}
		return "", false
	}
	defer func() { _ = p.Close() }() // read-only; close error is non-critical

	m, err := p.Manifest()
	if err != nil {
		reason := "unreadable package"
		var malformed *modpkg.MalformedError
		if errors.As(err, &malformed) {
			reason = malformed.Reason.String()
		}
		entry.skip(err, reason)
		return "", false
	}

	source, hasScript, err := p.Script()
	entry.Manifest = m
	entry.Verdict = compat.Check(m, host)
	entry.HasScript = hasScript
	entry.State = Read
	if err != nil {
		entry.State = ScriptFailed
		entry.Err = err
		return "", false
	}
	return source, true
}

func (e *Entry) skip(err error, reason string) {
	e.State = Skipped
	e.Reason = reason
	e.Degraded = true
	e.Err = err
	e.Verdict = compat.Unverifiable(reason)
}
