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

// Package hashcalc computes one-shot digests of text or hex input.
package hashcalc

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"github.com/google/go-pcrsim/digest"
	"github.com/google/go-pcrsim/measurement"
	"golang.org/x/crypto/sha3"
)

// InputKind selects how Calculate interprets its input.
type InputKind int

// Input kinds.
const (
	// Text hashes the UTF-8 bytes of the input.
	Text InputKind = iota
	// Hex hashes the hex-decoded input. Spaces are ignored.
	Hex
)

func (k InputKind) String() string {
	switch k {
	case Text:
		return "text"
	case Hex:
		return "hex"
	}
	return fmt.Sprintf("InputKind<%d>", int(k))
}

// ErrUnknownHash is returned by CalculateByName for names it does not know.
var ErrUnknownHash = errors.New("unknown algorithm")

// Truncated SHA-2 and SHA-3 variants. No PCR bank uses them, so they are
// available here only.
var truncated = []struct {
	name    string
	newHash func() hash.Hash
}{
	{"SHA224", sha256.New224},
	{"SHA3-224", sha3.New224},
}

// Names lists every name CalculateByName accepts, bank algorithms first.
func Names() []string {
	var names []string
	for _, a := range digest.Algorithms() {
		names = append(names, a.String())
	}
	for _, t := range truncated {
		names = append(names, t.name)
	}
	return names
}

func decode(input string, kind InputKind) ([]byte, error) {
	switch kind {
	case Text:
		return []byte(input), nil
	case Hex:
		return measurement.ParseHex(input)
	}
	return nil, fmt.Errorf("unknown input kind %v", kind)
}

// Calculate returns the lowercase hex digest of input under alg.
func Calculate(input string, kind InputKind, alg digest.Algorithm) (string, error) {
	data, err := decode(input, kind)
	if err != nil {
		return "", err
	}
	sum, err := digest.Sum(alg, data)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

// CalculateByName is Calculate with the hash chosen by name. Besides the
// bank algorithms it accepts "sha224" and "sha3-224" (or "sha3_224").
func CalculateByName(input string, kind InputKind, name string) (string, error) {
	if alg, ok := digest.ParseAlgorithm(name); ok {
		return Calculate(input, kind, alg)
	}
	key := strings.ReplaceAll(strings.ToUpper(name), "_", "-")
	for _, t := range truncated {
		if t.name != key {
			continue
		}
		data, err := decode(input, kind)
		if err != nil {
			return "", err
		}
		h := t.newHash()
		h.Write(data)
		return hex.EncodeToString(h.Sum(nil)), nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownHash, name)
}
