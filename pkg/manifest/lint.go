// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	_ "embed"

	"barkmods-cli/pkg/cueutil"
)

// MaxSize is the largest info.json payload accepted by Lint and by package readers.
const MaxSize int64 = 1 << 20

//go:embed manifest_schema.cue
var schema []byte

// Lint checks a raw info.json payload against the manifest CUE schema and
// returns every problem with its JSON path. It is stricter than Decode about
// types and is meant for authoring-time feedback, not for loading packages.
func Lint(data []byte, filename string) error {
	if filename == "" {
		filename = "info.json"
	}
	_, err := cueutil.Validate(schema, data, "#Manifest",
		cueutil.WithFilename(filename),
		cueutil.WithMaxFileSize(MaxSize),
		cueutil.WithConcrete(true),
	)
	return err
}
