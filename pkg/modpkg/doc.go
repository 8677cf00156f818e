// SPDX-License-Identifier: MPL-2.0

// Package modpkg reads and writes BarkEngine mod packages.
//
// A package is a zip archive with:
//   - exactly one manifest entry, info.json, at the archive root (required);
//   - zero or more attachment entries named by their base filename;
//   - an optional mod.lua entry point executed by the script host.
//
// Reading never extracts anything to disk: the manifest and script are read
// from the archive's central directory into memory. Materializing entries is
// an explicit operation (Extract, ExtractAll).
//
// Writing enforces the authoring rules: a non-blank name, an engine version
// from the caller's list of valid versions and at most MaxAttachments
// attachments. Packages are written to a temporary file and renamed into
// place, so a crash never leaves a half-written archive under the final name.
package modpkg

const (
	// ManifestEntry is the fixed path of the manifest inside a package.
	ManifestEntry = "info.json"
	// ScriptEntry is the fixed path of the optional script entry point.
	ScriptEntry = "mod.lua"
	// Extension is the file extension of packages in a store directory.
	Extension = ".zip"

	// MaxAttachments caps the attachment entries accepted at authoring time.
	MaxAttachments = 10
	// MaxScriptSize bounds the in-memory read of ScriptEntry.
	MaxScriptSize int64 = 4 << 20
)
