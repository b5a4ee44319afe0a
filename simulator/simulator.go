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

// Package simulator combines a PCR bank and its measurement log into a single
// boot measurement simulator.
//
// A Simulator is not safe for concurrent use. Callers sharing one across
// goroutines must serialize access themselves.
package simulator

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/go-pcrsim/digest"
	"github.com/google/go-pcrsim/measurelog"
	"github.com/google/go-pcrsim/measurement"
	"github.com/google/go-pcrsim/register"
)

// PCRValue is the hex value of a PCR at a point in time.
type PCRValue struct {
	Index int
	Hex   string
}

// Simulator owns a PCR bank and the log of measurements extended into it.
type Simulator struct {
	bank   *register.PCRBank
	log    measurelog.Log
	logger *slog.Logger
}

// Option configures a Simulator.
type Option func(s *Simulator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = l
	}
}

// New returns a simulator with a freshly initialized bank for alg.
func New(alg digest.Algorithm, opts ...Option) (*Simulator, error) {
	d, err := digest.New(alg)
	if err != nil {
		return nil, err
	}
	s := &Simulator{
		bank:   register.NewPCRBank(d),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Algorithm returns the active hash algorithm.
func (s *Simulator) Algorithm() digest.Algorithm {
	return s.bank.Algorithm()
}

// AddMeasurement decodes hexValue, records it in the log and extends PCR
// index with it. If decoding fails or the index is invalid, neither the log
// nor the bank changes.
func (s *Simulator) AddMeasurement(description, hexValue string, index int) error {
	value, err := measurement.DecodeHex(hexValue)
	if err != nil {
		return fmt.Errorf("failed to decode measurement: %w", err)
	}
	if _, err := s.bank.PCR(index); err != nil {
		return err
	}
	s.log.Append(measurelog.Entry{Description: description, Data: value, PCRIndex: index})
	if err := s.bank.Extend(index, value); err != nil {
		return err
	}
	s.logger.Debug("extended PCR", "pcr", index, "description", description, "measurement", hexValue)
	return nil
}

// PCRHex returns the value of PCR index in hex.
func (s *Simulator) PCRHex(index int) (string, error) {
	return s.bank.Hex(index)
}

// AllPCRValues returns a snapshot of every PCR, ordered by index.
func (s *Simulator) AllPCRValues() []PCRValue {
	pcrs := s.bank.PCRs()
	values := make([]PCRValue, len(pcrs))
	for i, pcr := range pcrs {
		values[i] = PCRValue{Index: pcr.Index, Hex: hex.EncodeToString(pcr.Digest)}
	}
	return values
}

// Log returns the measurements applied since the last reset, in order.
func (s *Simulator) Log() []measurelog.Entry {
	return s.log.Entries()
}

// Reset returns every PCR to its initial value and clears the log.
func (s *Simulator) Reset() {
	s.bank.Reset()
	s.log.Clear()
	s.logger.Info("reset PCR bank", "algorithm", s.Algorithm())
}

// ChangeAlgorithm switches to alg, reinitializing every PCR and clearing the
// log.
func (s *Simulator) ChangeAlgorithm(alg digest.Algorithm) error {
	d, err := digest.New(alg)
	if err != nil {
		return err
	}
	s.bank.SetDigest(d)
	s.log.Clear()
	s.logger.Info("changed PCR bank algorithm", "algorithm", alg)
	return nil
}

// Replay resets PCR index and extends it with measurements in order. The log
// is not modified. See register.PCRBank.Replay for the failure semantics.
func (s *Simulator) Replay(index int, measurements []string) (string, error) {
	v, err := s.bank.Replay(index, measurements)
	if err != nil {
		s.logger.Warn("replay failed, PCR holds a partial value", "pcr", index, "error", err)
		return "", err
	}
	s.logger.Debug("replayed PCR", "pcr", index, "measurements", len(measurements), "value", v)
	return v, nil
}

// ReplayFile parses the measurement file at path and replays it into PCR
// index. A read failure leaves the bank untouched.
func (s *Simulator) ReplayFile(index int, path string) (string, measurement.Parsed, error) {
	parsed, err := measurement.ReadFile(path)
	if err != nil {
		return "", measurement.Parsed{}, err
	}
	if parsed.Skipped > 0 {
		s.logger.Warn("dropped invalid measurement lines", "file", path, "skipped", parsed.Skipped)
	}
	v, err := s.Replay(index, parsed.Values)
	return v, parsed, err
}

// Verify checks PCR index against the expected hex value.
func (s *Simulator) Verify(index int, wantHex string) error {
	want, err := measurement.ParseHex(wantHex)
	if err != nil {
		return fmt.Errorf("failed to decode expected value: %w", err)
	}
	pcr, err := s.bank.PCR(index)
	if err != nil {
		return err
	}
	if !bytes.Equal(pcr.Digest, want) {
		return &register.MismatchError{PCR: index, Got: pcr.Digest, Want: want}
	}
	return nil
}

// VerifyLog replays the log against the bank. It returns a
// *register.VerifyError naming every PCR whose value cannot be explained by
// the logged measurements, such as PCRs overwritten by Replay.
func (s *Simulator) VerifyLog() error {
	return register.Verify(s.bank, s.log.Measurements())
}
