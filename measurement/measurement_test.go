// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package measurement

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidateHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "short input is left padded",
			input: "deadbeef",
			want:  strings.Repeat("0", 56) + "deadbeef",
		},
		{
			name:  "whitespace is stripped",
			input: " de ad\tbe ef\n",
			want:  strings.Repeat("0", 56) + "deadbeef",
		},
		{
			name:  "case is preserved",
			input: "DeadBeef",
			want:  strings.Repeat("0", 56) + "DeadBeef",
		},
		{
			name:  "exactly 64 characters",
			input: strings.Repeat("ab", 32),
			want:  strings.Repeat("ab", 32),
		},
		{
			name:  "empty input",
			input: "",
			want:  strings.Repeat("0", 64),
		},
		{
			name:    "65 characters",
			input:   strings.Repeat("a", 65),
			wantErr: ErrMeasurementTooLong,
		},
		{
			name:    "non-hex character",
			input:   "deadbeeg",
			wantErr: ErrInvalidCharacter,
		},
		{
			name:    "length is checked before characters",
			input:   strings.Repeat("z", 70),
			wantErr: ErrMeasurementTooLong,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateHex(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateHex(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateHex(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if tt.wantErr == nil && len(got) != CanonicalHexLen {
				t.Errorf("len(ValidateHex(%q)) = %d, want %d", tt.input, len(got), CanonicalHexLen)
			}
		})
	}
}

func TestDecodeHex(t *testing.T) {
	tests := []struct {
		input   string
		want    []byte
		wantErr bool
	}{
		{input: "", want: []byte{}},
		{input: "00", want: []byte{0x00}},
		{input: "DEADbeef", want: []byte{0xde, 0xad, 0xbe, 0xef}},
		{input: "abc", wantErr: true},
		{input: "zz", wantErr: true},
		{input: "de ad", wantErr: true},
	}
	for _, tt := range tests {
		got, err := DecodeHex(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("DecodeHex(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err != nil {
			if !errors.Is(err, ErrInvalidHexInput) {
				t.Errorf("DecodeHex(%q) error = %v, want ErrInvalidHexInput", tt.input, err)
			}
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("DecodeHex(%q) mismatch (-want +got):\n%s", tt.input, diff)
		}
	}
}

func TestParseHex(t *testing.T) {
	got, err := ParseHex("  de ad be ef  ")
	if err != nil {
		t.Fatalf("ParseHex() failed: %v", err)
	}
	if diff := cmp.Diff([]byte{0xde, 0xad, 0xbe, 0xef}, got); diff != "" {
		t.Errorf("ParseHex() mismatch (-want +got):\n%s", diff)
	}
	if _, err := ParseHex("de\tad"); !errors.Is(err, ErrInvalidHexInput) {
		t.Errorf("ParseHex with embedded tab: got %v, want ErrInvalidHexInput", err)
	}
}

func TestParseLines(t *testing.T) {
	got := ParseLines([]string{"# comment", "", "deadbeef", "zzzz", "   "})
	want := Parsed{
		Values:   []string{strings.Repeat("0", 56) + "deadbeef"},
		Comments: 1,
		Skipped:  1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseLines() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLinesDropsInvalidLines(t *testing.T) {
	lines := []string{
		"0x1234",
		strings.Repeat("a", 65),
		"12 34\t56",
		"  # indented comment",
		"ab cd",
	}
	got := ParseLines(lines)
	want := Parsed{
		Values:   []string{strings.Repeat("0", 60) + "abcd"},
		Comments: 1,
		Skipped:  3,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseLines() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLinesIsRestartable(t *testing.T) {
	lines := []string{"01", "02", "xx"}
	first := ParseLines(lines)
	second := ParseLines(lines)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("ParseLines() not repeatable (-first +second):\n%s", diff)
	}
}

func TestParseLinesEmpty(t *testing.T) {
	got := ParseLines(nil)
	if len(got.Values) != 0 || got.Skipped != 0 {
		t.Errorf("ParseLines(nil) = %+v, want zero value", got)
	}
}
