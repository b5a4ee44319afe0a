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

// Package measurement validates and decodes hex-encoded measurements, and
// parses line-oriented measurement files.
package measurement

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// CanonicalHexLen is the length of a validated measurement in hex characters.
const CanonicalHexLen = 64

// Errors returned by the validation and decoding functions.
var (
	ErrInvalidHexInput    = errors.New("invalid hex input")
	ErrMeasurementTooLong = fmt.Errorf("measurement must be at most %d hex characters", CanonicalHexLen)
	ErrInvalidCharacter   = errors.New("invalid hex characters")
)

// ValidateHex strips whitespace from text and left-pads it with '0' to
// CanonicalHexLen characters. Letter case is preserved.
func ValidateHex(text string) (string, error) {
	h := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	if len(h) > CanonicalHexLen {
		return "", fmt.Errorf("%w: got %d", ErrMeasurementTooLong, len(h))
	}
	if !isHex(h) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCharacter, h)
	}
	return strings.Repeat("0", CanonicalHexLen-len(h)) + h, nil
}

// DecodeHex decodes text as hex without any normalization.
func DecodeHex(text string) ([]byte, error) {
	b, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHexInput, err)
	}
	return b, nil
}

// ParseHex trims text, removes embedded spaces and decodes the result.
func ParseHex(text string) ([]byte, error) {
	return DecodeHex(strings.ReplaceAll(strings.TrimSpace(text), " ", ""))
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
