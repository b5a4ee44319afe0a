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

package register

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/google/go-pcrsim/digest"
)

// ReplayDigest returns the value PCR index holds after extending it with
// measurements, in order, starting from its initial value.
func ReplayDigest(d digest.Digest, index int, measurements [][]byte) ([]byte, error) {
	if err := checkIndex(index); err != nil {
		return nil, err
	}
	replay := InitialValue(index, d.Size())
	for _, m := range measurements {
		replay = d.Sum(append(replay, m...))
	}
	return replay, nil
}

// MismatchError reports a register whose digest differs from the expected
// one.
type MismatchError struct {
	PCR  int
	Got  []byte
	Want []byte
}

// Error returns a human-friendly description of the mismatch.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("PCR%d mismatch: got %x, want %x", e.PCR, e.Got, e.Want)
}

// VerifyError describes the registers that failed to verify against their
// measurements.
type VerifyError struct {
	// InvalidMRs reports the set of MRs where the replay failed.
	InvalidMRs []int
}

// Error returns a human-friendly description of verification failures.
func (e *VerifyError) Error() string {
	return fmt.Sprintf("the following registers failed to replay: %v", e.InvalidMRs)
}

// Verify replays measurements for every MR in bank and checks the result
// against the MR's digest. MRs without measurements must hold their initial
// value.
func Verify(bank MRBank, measurements map[int][][]byte) error {
	d, err := digest.New(bank.Algorithm())
	if err != nil {
		return err
	}
	var invalid []int
	for _, mr := range bank.MRs() {
		if mr.DgstAlg() != bank.Algorithm() {
			invalid = append(invalid, mr.Idx())
			continue
		}
		replay, err := ReplayDigest(d, mr.Idx(), measurements[mr.Idx()])
		if err != nil || !bytes.Equal(replay, mr.Dgst()) {
			invalid = append(invalid, mr.Idx())
		}
	}
	if len(invalid) > 0 {
		sort.Ints(invalid)
		return &VerifyError{InvalidMRs: invalid}
	}
	return nil
}
