// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"

	"barkmods-cli/pkg/compat"
)

const (
	// HostVersionKey is the details.json key holding the engine version.
	HostVersionKey = "barkengine_version"
	// PasswordKey is the password.json key holding the catalog password.
	PasswordKey = "password"
)

// ErrNoPassword is returned when the password file has no usable password.
var ErrNoPassword = errors.New("no catalog password configured")

// LoadHostVersion reads the engine version from the host configuration file.
//
// The result is always usable: a missing file, a parse failure, or a missing
// or blank key all yield compat.UnknownHost. The error reports why, so callers
// can log it; it is never fatal.
//
// Numbers keep their literal text, matching how manifests are decoded, so a
// host file holding 1.0 compares equal to a manifest holding 1.0.
func LoadHostVersion(path string) (compat.HostVersion, error) {
	data, err := readJSONCBytes(path)
	if err != nil {
		return compat.UnknownHost, err
	}

	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return compat.UnknownHost, fmt.Errorf("parse %s: %w", path, err)
	}

	var version string
	switch raw := doc[HostVersionKey].(type) {
	case nil:
	case string:
		version = strings.TrimSpace(raw)
	case json.Number:
		version = raw.String()
	default:
		return compat.UnknownHost, fmt.Errorf("%s: %q must be a string or number", path, HostVersionKey)
	}
	if version == "" {
		return compat.UnknownHost, fmt.Errorf("%s: %q not set", path, HostVersionKey)
	}
	return compat.HostVersion(version), nil
}

// LoadPassword reads the catalog password from a password.json file.
func LoadPassword(path string) (string, error) {
	v, err := readJSONC(path)
	if err != nil {
		return "", err
	}
	password := v.GetString(PasswordKey)
	if password == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoPassword)
	}
	return password, nil
}

// readJSONC loads a small JSON document that may carry comments or trailing
// commas into a fresh viper instance.
func readJSONC(path string) (*viper.Viper, error) {
	data, err := readJSONCBytes(path)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

// readJSONCBytes reads path and strips comments and trailing commas.
func readJSONCBytes(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return jsonc.ToJSON(data), nil
}
