// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for barkmods.
//
// Commands receive an *App, the composition root holding the config provider
// and the output streams, and build domain services (mod store, script host,
// catalog) from the loaded configuration on each invocation.
package cmd
