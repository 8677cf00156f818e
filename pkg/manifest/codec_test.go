// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    Manifest
		wantErr bool
	}{
		{
			name:    "all fields",
			payload: `{"mod name": "Test Mod", "mod author": "Alice", "BarkEngine version": "1.0"}`,
			want:    Manifest{Name: "Test Mod", Author: "Alice", EngineVersion: "1.0"},
		},
		{
			name:    "defaults for absent optional fields",
			payload: `{"mod name": "Solo"}`,
			want:    Manifest{Name: "Solo", Author: Unknown, EngineVersion: Unknown},
		},
		{
			name:    "defaults for blank optional fields",
			payload: `{"mod name": "Solo", "mod author": "  ", "BarkEngine version": ""}`,
			want:    Manifest{Name: "Solo", Author: Unknown, EngineVersion: Unknown},
		},
		{
			name:    "null optional fields",
			payload: `{"mod name": "Solo", "mod author": null}`,
			want:    Manifest{Name: "Solo", Author: Unknown, EngineVersion: Unknown},
		},
		{
			name:    "numeric engine version keeps literal",
			payload: `{"mod name": "Num", "BarkEngine version": 1.10}`,
			want:    Manifest{Name: "Num", Author: Unknown, EngineVersion: "1.10"},
		},
		{
			name:    "unknown keys ignored",
			payload: `{"mod name": "Extra", "description": "hi"}`,
			want:    Manifest{Name: "Extra", Author: Unknown, EngineVersion: Unknown},
		},
		{name: "missing name", payload: `{"mod author": "Alice"}`, wantErr: true},
		{name: "blank name", payload: `{"mod name": " \t"}`, wantErr: true},
		{name: "not json", payload: `mod name = x`, wantErr: true},
		{name: "json array", payload: `["mod name"]`, wantErr: true},
		{name: "empty payload", payload: ``, wantErr: true},
		{name: "name is an object", payload: `{"mod name": {"x": 1}}`, wantErr: true},
		{name: "author is a bool", payload: `{"mod name": "x", "mod author": true}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Decode([]byte(tt.payload))
			if tt.wantErr {
				var decodeErr *DecodeError
				if !errors.As(err, &decodeErr) {
					t.Fatalf("Decode() error = %v, want *DecodeError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecode_BlankNameWrapsErrMissingName(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"mod name": ""}`))
	if !errors.Is(err, ErrMissingName) {
		t.Fatalf("Decode() error = %v, want ErrMissingName", err)
	}
	if !strings.Contains(err.Error(), KeyName) {
		t.Errorf("error %q should name the field", err)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	t.Parallel()

	manifests := []Manifest{
		{Name: "Test Mod", Author: "Alice", EngineVersion: "1.0"},
		{Name: "Unicode ✓", Author: "Zoë", EngineVersion: "0.1-alpha"},
		{Name: "<html> & co", Author: Unknown, EngineVersion: Unknown},
		{Name: " padded ", Author: "a\"quote", EngineVersion: "2"},
	}

	for _, m := range manifests {
		data, err := Encode(m)
		if err != nil {
			t.Fatalf("Encode(%+v) error: %v", m, err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode(Encode(%+v)) error: %v", m, err)
		}
		if got != m {
			t.Errorf("round trip = %+v, want %+v", got, m)
		}
	}
}

func TestEncode_Deterministic(t *testing.T) {
	t.Parallel()

	m := Manifest{Name: "Test Mod", Author: "Alice", EngineVersion: "1.0"}
	first, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("Encode() is not deterministic")
	}

	want := "{\n    \"mod name\": \"Test Mod\",\n    \"mod author\": \"Alice\",\n    \"BarkEngine version\": \"1.0\"\n}\n"
	if string(first) != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", first, want)
	}
}

func TestEncode_FillsDefaults(t *testing.T) {
	t.Parallel()

	data, err := Encode(Manifest{Name: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"mod author": "Unknown"`) {
		t.Errorf("Encode() = %s, want default author", data)
	}
}

func TestEncode_RejectsBlankName(t *testing.T) {
	t.Parallel()

	if _, err := Encode(Manifest{Name: "  "}); !errors.Is(err, ErrMissingName) {
		t.Fatalf("Encode() error = %v, want ErrMissingName", err)
	}
}

func TestLint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{name: "valid", payload: `{"mod name": "A", "mod author": "B", "BarkEngine version": "1.0"}`},
		{name: "numeric version allowed", payload: `{"mod name": "A", "BarkEngine version": 1}`},
		{name: "missing name", payload: `{"mod author": "B"}`, wantErr: true},
		{name: "blank name", payload: `{"mod name": ""}`, wantErr: true},
		{name: "author wrong type", payload: `{"mod name": "A", "mod author": 3}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Lint([]byte(tt.payload), "")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Lint() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "info.json") {
				t.Errorf("Lint() error %q should mention the filename", err)
			}
		})
	}
}
