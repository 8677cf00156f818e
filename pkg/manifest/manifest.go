// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"strings"
)

const (
	// Unknown is the default value for a blank author or engine version.
	Unknown = "Unknown"

	// KeyName is the JSON key holding the mod name.
	KeyName = "mod name"
	// KeyAuthor is the JSON key holding the mod author.
	KeyAuthor = "mod author"
	// KeyEngineVersion is the JSON key holding the targeted BarkEngine version.
	KeyEngineVersion = "BarkEngine version"
)

// ErrMissingName is returned when a manifest has no usable name.
var ErrMissingName = errors.New("mod name is required")

// Manifest is the canonical descriptor of a mod.
//
// Field order matters: Encode relies on it for a stable key order.
type Manifest struct {
	// Name uniquely identifies the mod within a store.
	Name string `json:"mod name"`
	// Author defaults to Unknown.
	Author string `json:"mod author"`
	// EngineVersion is an opaque version token compared by exact equality.
	EngineVersion string `json:"BarkEngine version"`
}

// Normalize returns a copy with blank optional fields replaced by Unknown.
func (m Manifest) Normalize() Manifest {
	if strings.TrimSpace(m.Author) == "" {
		m.Author = Unknown
	}
	if strings.TrimSpace(m.EngineVersion) == "" {
		m.EngineVersion = Unknown
	}
	return m
}

// Validate checks the write-time invariant: the name must not be blank.
func (m Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrMissingName
	}
	return nil
}

// String renders the manifest as "name by author (BarkEngine version)".
func (m Manifest) String() string {
	return m.Name + " by " + m.Author + " (BarkEngine " + m.EngineVersion + ")"
}
