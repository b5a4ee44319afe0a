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

package digest

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/tjfoc/gmsm/sm3"
	"golang.org/x/crypto/sha3"
)

// Digest is a fixed-size, deterministic hash over byte sequences.
// Implementations must be safe to call repeatedly and never fail.
type Digest interface {
	Algorithm() Algorithm
	// Size is the length in bytes of every value returned by Sum.
	Size() int
	Sum(data []byte) []byte
}

type hasher struct {
	alg     Algorithm
	newHash func() hash.Hash
}

func (h hasher) Algorithm() Algorithm {
	return h.alg
}

func (h hasher) Size() int {
	return h.alg.Size()
}

func (h hasher) Sum(data []byte) []byte {
	hh := h.newHash()
	hh.Write(data)
	return hh.Sum(nil)
}

var constructors = map[Algorithm]func() hash.Hash{
	SHA1:     sha1.New,
	SHA256:   sha256.New,
	SHA384:   sha512.New384,
	SHA512:   sha512.New,
	SHA3_256: sha3.New256,
	SHA3_384: sha3.New384,
	SHA3_512: sha3.New512,
	SM3:      sm3.New,
}

// New returns the Digest implementing a.
func New(a Algorithm) (Digest, error) {
	fn, ok := constructors[a]
	if !ok {
		return nil, fmt.Errorf("unsupported digest algorithm %v", a)
	}
	return hasher{alg: a, newHash: fn}, nil
}

// Sum hashes data with a. It returns an error only for unsupported algorithms.
func Sum(a Algorithm, data []byte) ([]byte, error) {
	d, err := New(a)
	if err != nil {
		return nil, err
	}
	return d.Sum(data), nil
}
