// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test on error instead
// of returning it: fixture files (WriteFile, WriteZip), resource cleanup
// (MustClose) and a manually advanced clock (FakeClock).
package testutil
