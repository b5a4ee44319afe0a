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

package testdata

import _ "embed" // Necessary to use go:embed

// Measurement files.
var (
	//go:embed measurements/boot.txt
	BootMeasurements string
	//go:embed measurements/comments-only.txt
	CommentsOnlyMeasurements string
	//go:embed measurements/binary.bin
	BinaryMeasurements []byte
)

// Values parsed from BootMeasurements, in file order.
var BootMeasurementValues = []string{
	"3d458cfe55cc03ea1f443f1562beec8df51c75e14a9fcf9a7234a13f198e7969",
	"00000000000000000000000000000000a1b2c3d4e5f60718293a4b5c6d7e8f90",
	"00000000000000000000000000000000000000000000000000000000deadbeef",
	"000000000000000000000000000000000f0e0d0c0b0a09080706050403020100",
}

// Number of BootMeasurements lines that are dropped by the parser.
const BootMeasurementsSkipped = 2
