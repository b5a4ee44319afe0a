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

package simulator

import (
	"errors"
	"fmt"

	"github.com/google/go-pcrsim/digest"
	"github.com/google/go-pcrsim/measurelog"
	"github.com/google/go-pcrsim/register"
	"github.com/google/go-tpm/tpm2"
	"google.golang.org/protobuf/encoding/protowire"
)

// Session wire format:
//
//	message Session {
//	  uint32 tpm_alg = 1; // TCG algorithm registry ID
//	  bytes  log     = 2; // measurelog.Log
//	}
const (
	sessionAlgField protowire.Number = 1
	sessionLogField protowire.Number = 2
)

// MarshalSession encodes the active algorithm and the measurement log. PCR
// values are not stored; RestoreSession recomputes them from the log.
func (s *Simulator) MarshalSession() ([]byte, error) {
	logBytes, err := s.log.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encoding measurement log: %w", err)
	}
	var b []byte
	b = protowire.AppendTag(b, sessionAlgField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Algorithm().TPMAlg()))
	b = protowire.AppendTag(b, sessionLogField, protowire.BytesType)
	b = protowire.AppendBytes(b, logBytes)
	return b, nil
}

// RestoreSession replaces the simulator state with the session in b, then
// re-extends every logged measurement in order. On error the simulator is
// left unchanged.
func (s *Simulator) RestoreSession(b []byte) error {
	var (
		alg      digest.Algorithm
		logBytes []byte
		hasAlg   bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("reading session: %v", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == sessionAlgField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("reading session algorithm: %v", protowire.ParseError(n))
			}
			if v > 0xFFFF {
				return fmt.Errorf("invalid session algorithm %#x", v)
			}
			a, ok := digest.FromTPMAlg(tpm2.TPMAlgID(v))
			if !ok {
				return fmt.Errorf("unsupported session algorithm %#x", v)
			}
			alg, hasAlg = a, true
			b = b[n:]
		case num == sessionLogField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("reading session log: %v", protowire.ParseError(n))
			}
			// Repeated log fields merge, as repeated entries concatenate.
			logBytes = append(logBytes, v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("reading session: %v", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if !hasAlg {
		return errors.New("session has no algorithm")
	}
	var log measurelog.Log
	if err := log.UnmarshalBinary(logBytes); err != nil {
		return fmt.Errorf("reading session log: %w", err)
	}

	d, err := digest.New(alg)
	if err != nil {
		return err
	}
	bank := register.NewPCRBank(d)
	for i, e := range log.Entries() {
		if err := bank.Extend(e.PCRIndex, e.Data); err != nil {
			return fmt.Errorf("session entry %d: %w", i, err)
		}
	}
	s.bank = bank
	s.log = log
	s.logger.Info("restored session", "algorithm", alg, "measurements", log.Len())
	return nil
}
