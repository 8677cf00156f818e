// SPDX-License-Identifier: MPL-2.0

// Package migrations holds the catalog schema.
package migrations

import "embed"

// FS contains embedded SQLite migrations for the catalog store.
//
//go:embed *.sql
var FS embed.FS
