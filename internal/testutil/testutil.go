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

// Package testutil holds helpers shared by tests.
package testutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
)

// SHA256Chain extends init with each measurement using crypto/sha256 directly,
// independent of the digest package, and returns the result in hex.
func SHA256Chain(init []byte, measurements ...[]byte) string {
	v := init
	for _, m := range measurements {
		h := sha256.New()
		h.Write(v)
		h.Write(m)
		v = h.Sum(nil)
	}
	return hex.EncodeToString(v)
}

// Repeat returns n copies of b.
func Repeat(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

// MustHex decodes s or fails the test.
func MustHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decoding %q: %v", s, err)
	}
	return b
}

// Logger returns a logger that writes through t.Log.
func Logger(t *testing.T) *slog.Logger {
	return slogt.New(t, slogt.Text())
}
