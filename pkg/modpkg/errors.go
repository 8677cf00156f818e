// SPDX-License-Identifier: MPL-2.0

package modpkg

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAnArchive is wrapped by OpenError when the file is not a zip container.
	ErrNotAnArchive = errors.New("not a zip archive")
	// ErrMissingManifest is wrapped by MalformedError when info.json is absent.
	ErrMissingManifest = errors.New("no " + ManifestEntry + " in package")
	// ErrEntryTooLarge is returned when an entry exceeds its in-memory read limit.
	ErrEntryTooLarge = errors.New("entry too large")
	// ErrEntryNotFound is returned when a named entry does not exist.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrUnsafePath is returned when an entry would be extracted outside the destination.
	ErrUnsafePath = errors.New("entry path escapes destination directory")
	// ErrInvalidName is returned by ValidateName for names that cannot be a
	// store filename.
	ErrInvalidName = errors.New("mod name cannot be used as a package filename")
	// ErrAttachmentLimit is returned by AttachmentSet.Add once MaxAttachments is reached.
	ErrAttachmentLimit = fmt.Errorf("only %d attachments allowed per package", MaxAttachments)
)

// OpenErrorKind classifies an OpenError.
type OpenErrorKind int

const (
	// NotAnArchive means the file exists but is not a readable zip container.
	NotAnArchive OpenErrorKind = iota + 1
	// OpenIOFailure means the file could not be opened at all.
	OpenIOFailure
)

// String returns the kind name.
func (k OpenErrorKind) String() string {
	switch k {
	case NotAnArchive:
		return "not an archive"
	case OpenIOFailure:
		return "io failure"
	default:
		return fmt.Sprintf("OpenErrorKind(%d)", int(k))
	}
}

// OpenError is returned by Open.
type OpenError struct {
	Path string
	Kind OpenErrorKind
	Err  error
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("open package %s: %s: %v", e.Path, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *OpenError) Unwrap() error {
	return e.Err
}

// MalformedReason classifies a MalformedError.
type MalformedReason int

const (
	// MissingManifest means the package has no info.json entry.
	MissingManifest MalformedReason = iota + 1
	// UnreadableManifest means info.json could not be read (corrupt, too large).
	UnreadableManifest
	// InvalidManifest means info.json was read but failed to decode.
	InvalidManifest
)

// String returns the reason as shown in listings.
func (r MalformedReason) String() string {
	switch r {
	case MissingManifest:
		return "incomplete/corrupted (no " + ManifestEntry + ")"
	case UnreadableManifest:
		return "unreadable " + ManifestEntry
	case InvalidManifest:
		return "invalid " + ManifestEntry
	default:
		return fmt.Sprintf("MalformedReason(%d)", int(r))
	}
}

// MalformedError reports a package whose manifest is missing or invalid.
// It is a value to report per package, not a reason to stop a scan.
type MalformedError struct {
	Path   string
	Reason MalformedReason
	Err    error
}

// Error implements the error interface.
func (e *MalformedError) Error() string {
	if e.Err == nil || errors.Is(e.Err, ErrMissingManifest) {
		return fmt.Sprintf("malformed package %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("malformed package %s: %s: %v", e.Path, e.Reason, e.Err)
}

// Unwrap returns the underlying cause.
func (e *MalformedError) Unwrap() error {
	return e.Err
}

// BuildErrorKind classifies a BuildError.
type BuildErrorKind int

const (
	// MissingName means the mod name was blank.
	MissingName BuildErrorKind = iota + 1
	// InvalidName means the name cannot be used as a store filename.
	InvalidName
	// UnsupportedVersion means the engine version is not one of the valid versions.
	UnsupportedVersion
	// TooManyAttachments means more than MaxAttachments files were supplied.
	TooManyAttachments
	// ReservedEntry means an attachment would shadow the manifest entry.
	ReservedEntry
	// IOFailure wraps a filesystem error.
	IOFailure
)

// String returns the kind name.
func (k BuildErrorKind) String() string {
	switch k {
	case MissingName:
		return "missing name"
	case InvalidName:
		return "invalid name"
	case UnsupportedVersion:
		return "unsupported engine version"
	case TooManyAttachments:
		return "too many attachments"
	case ReservedEntry:
		return "reserved entry name"
	case IOFailure:
		return "io failure"
	default:
		return fmt.Sprintf("BuildErrorKind(%d)", int(k))
	}
}

// BuildError is returned by Build. Side effects of a failed IOFailure build
// are limited to the temporary file, which Build removes on a best-effort basis.
type BuildError struct {
	Kind BuildErrorKind
	// Detail names the offending value (name, version, attachment path).
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	msg := "build package: " + e.Kind.String()
	if e.Detail != "" {
		msg += fmt.Sprintf(" (%s)", e.Detail)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// IsBuildError reports whether err is a BuildError of the given kind.
func IsBuildError(err error, kind BuildErrorKind) bool {
	var be *BuildError
	return errors.As(err, &be) && be.Kind == kind
}
