// SPDX-License-Identifier: MPL-2.0

// Package compat classifies a mod manifest against the running BarkEngine version.
//
// Versions are opaque tokens compared by exact string equality; there is no
// semantic-version parsing and no range matching. A verdict is advisory: it is
// attached to listings and never blocks installing or enumerating a mod.
package compat

import (
	"fmt"
	"strings"

	"barkmods-cli/pkg/manifest"
)

const (
	// UnknownHost is the host version used when the engine configuration is
	// missing or unreadable.
	UnknownHost HostVersion = "Unknown"

	// PlaceholderVersion is offered to mod authors when the host version is unknown.
	PlaceholderVersion = "0.1-alpha"
)

const (
	// Match means the manifest targets the running engine version.
	Match Kind = iota + 1
	// Mismatch means the manifest targets another engine version.
	Mismatch
	// Unknown means compatibility could not be determined.
	Unknown
)

type (
	// HostVersion is the version token of the installed engine. It is loaded
	// once at startup and never changes for the lifetime of the process.
	HostVersion string

	// Kind is the three-way verdict classification.
	Kind int

	// Verdict is the derived, non-persisted result of a compatibility check.
	Verdict struct {
		Kind Kind
		// Expected is the host version (Mismatch only).
		Expected string
		// Actual is the manifest's engine version (Mismatch only).
		Actual string
		// Reason explains an Unknown verdict.
		Reason string
	}
)

// IsKnown reports whether the host version was determined.
func (v HostVersion) IsKnown() bool {
	s := strings.TrimSpace(string(v))
	return s != "" && s != string(UnknownHost)
}

// String returns the raw version token.
func (v HostVersion) String() string {
	return string(v)
}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Check compares m.EngineVersion with host.
func Check(m manifest.Manifest, host HostVersion) Verdict {
	if !host.IsKnown() {
		return Unverifiable("host version not determined")
	}
	if m.EngineVersion == string(host) {
		return Verdict{Kind: Match}
	}
	return Verdict{Kind: Mismatch, Expected: string(host), Actual: m.EngineVersion}
}

// Unverifiable builds an Unknown verdict, used for packages whose manifest
// could not be read.
func Unverifiable(reason string) Verdict {
	return Verdict{Kind: Unknown, Reason: reason}
}

// OK reports whether the verdict is a Match.
func (v Verdict) OK() bool {
	return v.Kind == Match
}

// String renders the status shown next to a mod in listings.
func (v Verdict) String() string {
	switch v.Kind {
	case Match:
		return "OK"
	case Mismatch:
		return "Version Mismatch! Expected " + v.Expected
	default:
		if v.Reason == "" {
			return "Unknown"
		}
		return "Unknown (" + v.Reason + ")"
	}
}

// AuthoringVersions lists the engine versions offered when building a new
// package: the host version when known, otherwise PlaceholderVersion so the
// authoring flow never fails for lack of configuration.
func AuthoringVersions(host HostVersion) []string {
	if host.IsKnown() {
		return []string{string(host)}
	}
	return []string{PlaceholderVersion}
}
