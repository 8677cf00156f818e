// SPDX-License-Identifier: MPL-2.0

// Package catalogserver exposes the mod catalog over HTTP.
//
// Routes:
//
//	GET  /api/mods               list entries, newest first
//	GET  /api/mods/{id}          one entry
//	POST /api/mods               multipart upload (mod_name, author, version,
//	                             description, dependencies, mod_file, screenshot)
//	POST /api/mods/{id}/delete   form field password
//	GET  /files/{filename}       package download
//	GET  /screenshots/{filename} screenshot
//
// Every response is JSON except downloads. Errors are {"error": "..."}.
package catalogserver
