// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DecodeError reports an info.json payload that cannot be turned into a Manifest.
type DecodeError struct {
	// Field is the offending JSON key, empty when the whole payload is bad.
	Field string
	// Reason is a short human-readable description.
	Reason string
	// Err is the underlying cause (JSON syntax error, ErrMissingName, ...).
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	var sb strings.Builder
	sb.WriteString("decode manifest")
	if e.Field != "" {
		fmt.Fprintf(&sb, ": %q", e.Field)
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	if e.Err != nil && !errors.Is(e.Err, ErrMissingName) {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses an info.json payload.
//
// The payload must be a JSON object with a non-blank "mod name". A missing or
// blank author or engine version decodes to Unknown. Numbers are accepted for
// the string fields and kept as their literal text.
func Decode(data []byte) (Manifest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Manifest{}, &DecodeError{Reason: "payload is not a JSON object", Err: err}
	}

	name, err := stringField(fields, KeyName)
	if err != nil {
		return Manifest{}, err
	}
	if strings.TrimSpace(name) == "" {
		return Manifest{}, &DecodeError{Field: KeyName, Reason: "missing or blank", Err: ErrMissingName}
	}

	author, err := stringField(fields, KeyAuthor)
	if err != nil {
		return Manifest{}, err
	}
	version, err := stringField(fields, KeyEngineVersion)
	if err != nil {
		return Manifest{}, err
	}

	m := Manifest{Name: name, Author: author, EngineVersion: version}
	return m.Normalize(), nil
}

// Encode serializes m as 4-space indented JSON with a trailing newline.
// Key order is fixed (name, author, engine version) so identical manifests
// always produce identical bytes.
func Encode(m Manifest) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(m.Normalize()); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// stringField extracts a string-ish value. Absent and null keys yield "".
func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", &DecodeError{Field: key, Reason: "must be a string"}
}
