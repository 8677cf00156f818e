// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates JSON and CUE documents against embedded CUE schemas.
//
// Two barkmods documents carry a schema: the application config (config.cue)
// and mod manifests (info.json, linted by "mod validate"). JSON is a subset of
// CUE, so manifests compile without conversion.
//
//	//go:embed manifest_schema.cue
//	var schema []byte
//
//	_, err := cueutil.Validate(schema, data, "#Manifest", cueutil.WithFilename("info.json"))
package cueutil
