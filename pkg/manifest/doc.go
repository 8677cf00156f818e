// SPDX-License-Identifier: MPL-2.0

// Package manifest defines the info.json descriptor carried by every mod package.
//
// A manifest names the mod, its author and the BarkEngine version it targets.
// The JSON keys contain spaces ("mod name", "mod author", "BarkEngine version")
// and must be kept exactly as-is so archives built by older tools keep loading.
//
// Decode is lenient about the optional fields: a missing or blank author or
// engine version becomes Unknown. The name is the only required field.
// Encode produces byte-for-byte reproducible output with a stable key order.
package manifest
