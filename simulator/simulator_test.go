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

package simulator_test

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-pcrsim/digest"
	"github.com/google/go-pcrsim/internal/testutil"
	"github.com/google/go-pcrsim/measurelog"
	"github.com/google/go-pcrsim/measurement"
	"github.com/google/go-pcrsim/register"
	"github.com/google/go-pcrsim/simulator"
	"github.com/google/go-pcrsim/testdata"
)

func newSimulator(t *testing.T, alg digest.Algorithm) *simulator.Simulator {
	t.Helper()
	s, err := simulator.New(alg, simulator.WithLogger(testutil.Logger(t)))
	if err != nil {
		t.Fatalf("simulator.New(%v) failed: %v", alg, err)
	}
	return s
}

func TestAddMeasurementEndToEnd(t *testing.T) {
	s := newSimulator(t, digest.SHA256)
	if err := s.AddMeasurement("m1", "00", 0); err != nil {
		t.Fatalf("AddMeasurement(m1) failed: %v", err)
	}
	if err := s.AddMeasurement("m2", "01", 0); err != nil {
		t.Fatalf("AddMeasurement(m2) failed: %v", err)
	}

	// SHA256(SHA256(32 zero bytes || 0x00) || 0x01), computed directly.
	first := sha256.Sum256(append(make([]byte, 32), 0x00))
	second := sha256.Sum256(append(first[:], 0x01))
	want := hex.EncodeToString(second[:])

	got, err := s.PCRHex(0)
	if err != nil {
		t.Fatalf("PCRHex(0) failed: %v", err)
	}
	if got != want {
		t.Errorf("PCRHex(0) = %s, want %s", got, want)
	}

	wantLog := []measurelog.Entry{
		{Description: "m1", Data: []byte{0x00}, PCRIndex: 0},
		{Description: "m2", Data: []byte{0x01}, PCRIndex: 0},
	}
	if diff := cmp.Diff(wantLog, s.Log()); diff != "" {
		t.Errorf("Log() mismatch (-want +got):\n%s", diff)
	}
}

func TestAddMeasurementFailureChangesNothing(t *testing.T) {
	tests := []struct {
		name    string
		hex     string
		index   int
		wantErr error
	}{
		{"odd length", "abc", 0, measurement.ErrInvalidHexInput},
		{"non-hex", "zz", 0, measurement.ErrInvalidHexInput},
		{"embedded space", "de ad", 0, measurement.ErrInvalidHexInput},
		{"negative index", "00", -1, register.ErrInvalidIndex},
		{"index too large", "00", 24, register.ErrInvalidIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSimulator(t, digest.SHA1)
			if err := s.AddMeasurement("ok", "aa", 0); err != nil {
				t.Fatal(err)
			}
			beforePCRs := s.AllPCRValues()
			beforeLog := s.Log()

			err := s.AddMeasurement("bad", tt.hex, tt.index)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("AddMeasurement(%q, %d) = %v, want %v", tt.hex, tt.index, err, tt.wantErr)
			}
			if diff := cmp.Diff(beforePCRs, s.AllPCRValues()); diff != "" {
				t.Errorf("PCRs changed (-before +after):\n%s", diff)
			}
			if diff := cmp.Diff(beforeLog, s.Log()); diff != "" {
				t.Errorf("log changed (-before +after):\n%s", diff)
			}
		})
	}
}

func TestAllPCRValues(t *testing.T) {
	s := newSimulator(t, digest.SHA3_384)
	values := s.AllPCRValues()
	if len(values) != register.NumPCRs {
		t.Fatalf("len(AllPCRValues()) = %d, want %d", len(values), register.NumPCRs)
	}
	for i, v := range values {
		want := strings.Repeat("00", 48)
		if i >= 17 && i <= 22 {
			want = strings.Repeat("ff", 48)
		}
		if v.Index != i || v.Hex != want {
			t.Errorf("AllPCRValues()[%d] = %+v, want {%d %s}", i, v, i, want)
		}
	}

	// The snapshot is not affected by later extends.
	s.AddMeasurement("m", "01", 0)
	if values[0].Hex != strings.Repeat("00", 48) {
		t.Errorf("snapshot changed after extend: %s", values[0].Hex)
	}
}

func TestResetClearsBankAndLog(t *testing.T) {
	s := newSimulator(t, digest.SHA256)
	s.AddMeasurement("a", "01", 0)
	s.AddMeasurement("b", "02", 18)
	s.Reset()

	fresh := newSimulator(t, digest.SHA256)
	if diff := cmp.Diff(fresh.AllPCRValues(), s.AllPCRValues()); diff != "" {
		t.Errorf("PCRs after Reset() mismatch (-want +got):\n%s", diff)
	}
	if got := s.Log(); len(got) != 0 {
		t.Errorf("Log() after Reset() = %v, want empty", got)
	}
}

func TestChangeAlgorithm(t *testing.T) {
	s := newSimulator(t, digest.SHA256)
	s.AddMeasurement("a", "01", 0)

	if err := s.ChangeAlgorithm(digest.SHA512); err != nil {
		t.Fatalf("ChangeAlgorithm() failed: %v", err)
	}
	if s.Algorithm() != digest.SHA512 {
		t.Errorf("Algorithm() = %v, want SHA512", s.Algorithm())
	}
	fresh := newSimulator(t, digest.SHA512)
	if diff := cmp.Diff(fresh.AllPCRValues(), s.AllPCRValues()); diff != "" {
		t.Errorf("PCRs after ChangeAlgorithm() mismatch (-want +got):\n%s", diff)
	}
	if got := s.Log(); len(got) != 0 {
		t.Errorf("Log() after ChangeAlgorithm() = %v, want empty", got)
	}

	if err := s.ChangeAlgorithm(digest.Algorithm(0)); err == nil {
		t.Error("ChangeAlgorithm(0) succeeded")
	}
	if s.Algorithm() != digest.SHA512 {
		t.Errorf("failed ChangeAlgorithm() changed algorithm to %v", s.Algorithm())
	}
}

func TestNewUnsupportedAlgorithm(t *testing.T) {
	if _, err := simulator.New(digest.Algorithm(99)); err == nil {
		t.Error("New(99) succeeded")
	}
}

func TestReplayMatchesAddMeasurement(t *testing.T) {
	measurements := []string{"00", "01", strings.Repeat("ab", 32)}
	for _, alg := range digest.Algorithms() {
		added := newSimulator(t, alg)
		for i, m := range measurements {
			if err := added.AddMeasurement("m", m, 8); err != nil {
				t.Fatalf("AddMeasurement(%d) failed: %v", i, err)
			}
		}
		want, _ := added.PCRHex(8)

		replayed := newSimulator(t, alg)
		got, err := replayed.Replay(8, measurements)
		if err != nil {
			t.Fatalf("%v: Replay() failed: %v", alg, err)
		}
		if got != want {
			t.Errorf("%v: Replay() = %s, want %s", alg, got, want)
		}
		if len(replayed.Log()) != 0 {
			t.Errorf("%v: Replay() appended to the log", alg)
		}
	}
}

func TestReplayPartialFailure(t *testing.T) {
	s := newSimulator(t, digest.SHA256)
	_, err := s.Replay(0, []string{"aa", "bb", "xyz"})
	var replayErr *register.ReplayError
	if !errors.As(err, &replayErr) || replayErr.Applied != 2 {
		t.Fatalf("Replay() error = %v, want *ReplayError with Applied 2", err)
	}
	got, _ := s.PCRHex(0)
	want := testutil.SHA256Chain(make([]byte, 32), []byte{0xaa}, []byte{0xbb})
	if got != want {
		t.Errorf("PCR0 = %s, want partially replayed %s", got, want)
	}
}

func TestReplayFile(t *testing.T) {
	s := newSimulator(t, digest.SHA256)
	got, parsed, err := s.ReplayFile(4, "../testdata/measurements/boot.txt")
	if err != nil {
		t.Fatalf("ReplayFile() failed: %v", err)
	}
	if diff := cmp.Diff(testdata.BootMeasurementValues, parsed.Values); diff != "" {
		t.Errorf("parsed values mismatch (-want +got):\n%s", diff)
	}
	if parsed.Skipped != testdata.BootMeasurementsSkipped {
		t.Errorf("parsed.Skipped = %d, want %d", parsed.Skipped, testdata.BootMeasurementsSkipped)
	}

	var ms [][]byte
	for _, v := range testdata.BootMeasurementValues {
		ms = append(ms, testutil.MustHex(t, v))
	}
	if want := testutil.SHA256Chain(make([]byte, 32), ms...); got != want {
		t.Errorf("ReplayFile() = %s, want %s", got, want)
	}
}

func TestReplayFileCommentsOnly(t *testing.T) {
	s := newSimulator(t, digest.SHA1)
	s.AddMeasurement("a", "01", 2)
	got, parsed, err := s.ReplayFile(2, "../testdata/measurements/comments-only.txt")
	if err != nil {
		t.Fatalf("ReplayFile() failed: %v", err)
	}
	if len(parsed.Values) != 0 {
		t.Errorf("parsed %d values, want 0", len(parsed.Values))
	}
	if got != strings.Repeat("00", 20) {
		t.Errorf("ReplayFile() = %s, want initial value", got)
	}
}

func TestReplayFileReadErrorLeavesStateUnchanged(t *testing.T) {
	s := newSimulator(t, digest.SHA256)
	s.AddMeasurement("a", "01", 3)
	before := s.AllPCRValues()

	_, _, err := s.ReplayFile(3, filepath.Join(t.TempDir(), "missing.txt"))
	var readErr *measurement.FileReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("ReplayFile() error = %v, want *FileReadError", err)
	}
	if diff := cmp.Diff(before, s.AllPCRValues()); diff != "" {
		t.Errorf("PCRs changed after read failure (-before +after):\n%s", diff)
	}
}

func TestVerify(t *testing.T) {
	s := newSimulator(t, digest.SHA256)
	s.AddMeasurement("m1", "00", 0)
	want := testutil.SHA256Chain(make([]byte, 32), []byte{0x00})

	if err := s.Verify(0, want); err != nil {
		t.Errorf("Verify(0) = %v, want nil", err)
	}
	if err := s.Verify(0, strings.ToUpper(want)); err != nil {
		t.Errorf("Verify(0) with uppercase hex = %v, want nil", err)
	}
	var mismatch *register.MismatchError
	if err := s.Verify(1, want); !errors.As(err, &mismatch) || mismatch.PCR != 1 {
		t.Errorf("Verify(1) = %v, want *MismatchError for PCR1", err)
	}
	if err := s.Verify(0, "nope"); !errors.Is(err, measurement.ErrInvalidHexInput) {
		t.Errorf("Verify(0, nope) = %v, want ErrInvalidHexInput", err)
	}
	if err := s.Verify(30, want); !errors.Is(err, register.ErrInvalidIndex) {
		t.Errorf("Verify(30) = %v, want ErrInvalidIndex", err)
	}
}

func TestVerifyLog(t *testing.T) {
	s := newSimulator(t, digest.SM3)
	s.AddMeasurement("a", "01", 0)
	s.AddMeasurement("b", "02", 17)
	s.AddMeasurement("c", "03", 0)
	if err := s.VerifyLog(); err != nil {
		t.Fatalf("VerifyLog() = %v, want nil", err)
	}

	// Replay bypasses the log, so PCR17 no longer matches it.
	if _, err := s.Replay(17, []string{"ff"}); err != nil {
		t.Fatal(err)
	}
	var verifyErr *register.VerifyError
	if err := s.VerifyLog(); !errors.As(err, &verifyErr) {
		t.Fatalf("VerifyLog() = %v, want *VerifyError", err)
	}
	if diff := cmp.Diff([]int{17}, verifyErr.InvalidMRs); diff != "" {
		t.Errorf("InvalidMRs mismatch (-want +got):\n%s", diff)
	}
}
