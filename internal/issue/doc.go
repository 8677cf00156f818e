// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the package or file involved and
// remediation hints. Issue holds Markdown guidance for the problems mod users hit
// most often (malformed packages, version mismatches, failing scripts), rendered
// with glamour.
package issue
