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

// Package digest provides the hash algorithms a simulated PCR bank can be
// extended with.
package digest

import (
	"fmt"
	"strings"

	"github.com/google/go-tpm/tpm2"
)

// Algorithm identifies a PCR bank hash algorithm.
type Algorithm uint8

// Supported algorithms, in display order.
const (
	SHA1 Algorithm = iota + 1
	SHA256
	SHA384
	SHA512
	SHA3_256
	SHA3_384
	SHA3_512
	SM3
)

type algInfo struct {
	name   string
	size   int
	tpmAlg tpm2.TPMAlgID
}

var algs = map[Algorithm]algInfo{
	SHA1:     {"SHA1", 20, tpm2.TPMAlgSHA1},
	SHA256:   {"SHA256", 32, tpm2.TPMAlgSHA256},
	SHA384:   {"SHA384", 48, tpm2.TPMAlgSHA384},
	SHA512:   {"SHA512", 64, tpm2.TPMAlgSHA512},
	SHA3_256: {"SHA3-256", 32, tpm2.TPMAlgSHA3256},
	SHA3_384: {"SHA3-384", 48, tpm2.TPMAlgSHA3384},
	SHA3_512: {"SHA3-512", 64, tpm2.TPMAlgSHA3512},
	SM3:      {"SM3", 32, tpm2.TPMAlgSM3256},
}

// Algorithms returns every supported algorithm in display order.
func Algorithms() []Algorithm {
	return []Algorithm{SHA1, SHA256, SHA384, SHA512, SHA3_256, SHA3_384, SHA3_512, SM3}
}

// ParseAlgorithm looks up an algorithm by name, ignoring case. SHA-3 names
// may use either '-' or '_' as separator. The second return value is false
// for unknown names.
func ParseAlgorithm(name string) (Algorithm, bool) {
	switch strings.ToLower(name) {
	case "sha1":
		return SHA1, true
	case "sha256":
		return SHA256, true
	case "sha384":
		return SHA384, true
	case "sha512":
		return SHA512, true
	case "sha3-256", "sha3_256":
		return SHA3_256, true
	case "sha3-384", "sha3_384":
		return SHA3_384, true
	case "sha3-512", "sha3_512":
		return SHA3_512, true
	case "sm3":
		return SM3, true
	}
	return 0, false
}

// FromTPMAlg converts a TCG algorithm registry identifier to an Algorithm.
func FromTPMAlg(id tpm2.TPMAlgID) (Algorithm, bool) {
	for a, info := range algs {
		if info.tpmAlg == id {
			return a, true
		}
	}
	return 0, false
}

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	_, ok := algs[a]
	return ok
}

// Size returns the digest size in bytes, or 0 for an invalid algorithm.
func (a Algorithm) Size() int {
	return algs[a].size
}

// TPMAlg returns the TCG algorithm registry identifier of the algorithm.
func (a Algorithm) TPMAlg() tpm2.TPMAlgID {
	if info, ok := algs[a]; ok {
		return info.tpmAlg
	}
	return tpm2.TPMAlgNull
}

// String returns a human-friendly representation of the hash algorithm.
func (a Algorithm) String() string {
	if info, ok := algs[a]; ok {
		return info.name
	}
	return fmt.Sprintf("Algorithm<%d>", int(a))
}
