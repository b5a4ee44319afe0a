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

// Package register contains a simulated TPM PCR bank.
package register

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/go-pcrsim/digest"
	"github.com/google/go-pcrsim/measurement"
)

// NumPCRs is the number of PCRs in a bank.
const NumPCRs = 24

// PCRs in this range reset to all 0xFF bytes instead of zeroes. They are the
// dynamic root of trust PCRs, which a TPM only resets from higher localities.
const (
	firstOnesPCR = 17
	lastOnesPCR  = 22
)

// ErrInvalidIndex is returned for PCR indexes outside [0, NumPCRs).
var ErrInvalidIndex = errors.New("invalid PCR index")

// PCR encapsulates the value of a PCR at a point in time.
type PCR struct {
	Index     int
	Digest    []byte
	DigestAlg digest.Algorithm
}

// Idx gives the PCR index.
func (p PCR) Idx() int {
	return p.Index
}

// Dgst gives the PCR digest.
func (p PCR) Dgst() []byte {
	return p.Digest
}

// DgstAlg gives the PCR digest algorithm.
func (p PCR) DgstAlg() digest.Algorithm {
	return p.DigestAlg
}

// InitialValue returns the reset value of PCR index for a digest of size
// bytes.
func InitialValue(index, size int) []byte {
	v := make([]byte, size)
	if index >= firstOnesPCR && index <= lastOnesPCR {
		for i := range v {
			v[i] = 0xFF
		}
	}
	return v
}

// PCRBank is a bank of PCRs that all correspond to the same hash algorithm.
//
// A PCRBank is not safe for concurrent use.
type PCRBank struct {
	dgst digest.Digest
	pcrs [NumPCRs][]byte
}

// NewPCRBank returns a bank with every PCR at its initial value.
func NewPCRBank(d digest.Digest) *PCRBank {
	b := &PCRBank{dgst: d}
	b.Reset()
	return b
}

// Algorithm returns the hash algorithm of the bank.
func (b *PCRBank) Algorithm() digest.Algorithm {
	return b.dgst.Algorithm()
}

// SetDigest switches the bank to d and resets every PCR. Values are not
// carried across algorithms.
func (b *PCRBank) SetDigest(d digest.Digest) {
	b.dgst = d
	b.Reset()
}

// Reset returns every PCR to its initial value.
func (b *PCRBank) Reset() {
	for i := range b.pcrs {
		b.pcrs[i] = InitialValue(i, b.dgst.Size())
	}
}

// ResetPCR returns a single PCR to its initial value.
func (b *PCRBank) ResetPCR(index int) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	b.pcrs[index] = InitialValue(index, b.dgst.Size())
	return nil
}

// Extend sets PCR index to digest(PCR || measurement).
func (b *PCRBank) Extend(index int, measurement []byte) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	cur := b.pcrs[index]
	data := make([]byte, 0, len(cur)+len(measurement))
	data = append(data, cur...)
	data = append(data, measurement...)
	b.pcrs[index] = b.dgst.Sum(data)
	return nil
}

// Replay resets PCR index and extends it with each hex-encoded measurement in
// order, returning the final value in hex.
//
// Replay stops at the first measurement that fails to decode and returns a
// *ReplayError. Measurements extended before the failure are not rolled back,
// so the PCR holds a partial replay; callers should reset and replay the
// whole sequence again.
func (b *PCRBank) Replay(index int, measurements []string) (string, error) {
	if err := b.ResetPCR(index); err != nil {
		return "", err
	}
	for i, m := range measurements {
		v, err := measurement.ParseHex(m)
		if err != nil {
			return "", &ReplayError{PCR: index, Applied: i, Err: err}
		}
		if err := b.Extend(index, v); err != nil {
			return "", &ReplayError{PCR: index, Applied: i, Err: err}
		}
	}
	return b.Hex(index)
}

// PCR returns a copy of PCR index.
func (b *PCRBank) PCR(index int) (PCR, error) {
	if err := checkIndex(index); err != nil {
		return PCR{}, err
	}
	return PCR{
		Index:     index,
		Digest:    bytes.Clone(b.pcrs[index]),
		DigestAlg: b.Algorithm(),
	}, nil
}

// Hex returns the value of PCR index in lowercase hex.
func (b *PCRBank) Hex(index int) (string, error) {
	if err := checkIndex(index); err != nil {
		return "", err
	}
	return hex.EncodeToString(b.pcrs[index]), nil
}

// PCRs returns a snapshot of every PCR, ordered by index.
func (b *PCRBank) PCRs() []PCR {
	pcrs := make([]PCR, NumPCRs)
	for i := range b.pcrs {
		pcrs[i] = PCR{Index: i, Digest: bytes.Clone(b.pcrs[i]), DigestAlg: b.Algorithm()}
	}
	return pcrs
}

// MRs returns a slice of MR from the PCR implementation.
func (b *PCRBank) MRs() []MR {
	pcrs := b.PCRs()
	mrs := make([]MR, len(pcrs))
	for i, v := range pcrs {
		mrs[i] = v
	}
	return mrs
}

// ReplayError describes a replay that stopped on a measurement it could not
// apply.
type ReplayError struct {
	PCR int
	// Applied is the number of measurements extended into the PCR before the
	// failing one.
	Applied int
	Err     error
}

// Error returns a human-friendly description of the replay failure.
func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay of PCR%d failed at measurement %d: %v", e.PCR, e.Applied, e.Err)
}

func (e *ReplayError) Unwrap() error {
	return e.Err
}

func checkIndex(index int) error {
	if index < 0 || index >= NumPCRs {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	return nil
}
