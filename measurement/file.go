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

package measurement

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Parsed is the result of parsing a measurement file.
//
// Lines that are neither blank, comments, nor valid measurements are dropped
// rather than reported. Skipped counts them so callers can tell a file of
// comments apart from a file of garbage.
type Parsed struct {
	// Values holds the validated measurements in file order.
	Values   []string
	Comments int
	Skipped  int
}

// FileReadError describes a measurement file that could not be read.
type FileReadError struct {
	Path string
	Err  error
}

// Error returns a human-friendly description of the read failure.
func (e *FileReadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("error reading measurements: %v", e.Err)
	}
	return fmt.Sprintf("error reading file %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error {
	return e.Err
}

// ParseLines parses measurement file lines. It never fails: blank lines and
// '#' comments are skipped, and lines that do not hold at most
// CanonicalHexLen hex digits (spaces allowed) are dropped.
func ParseLines(lines []string) Parsed {
	var p Parsed
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			p.Comments++
			continue
		}
		hexOnly := strings.ReplaceAll(line, " ", "")
		if hexOnly == "" || !isHex(hexOnly) {
			p.Skipped++
			continue
		}
		v, err := ValidateHex(hexOnly)
		if err != nil {
			p.Skipped++
			continue
		}
		p.Values = append(p.Values, v)
	}
	return p
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// ParseReader reads all lines from r and parses them with ParseLines.
func ParseReader(r io.Reader) (Parsed, error) {
	lines, err := readLines(r)
	if err != nil {
		return Parsed{}, &FileReadError{Err: err}
	}
	return ParseLines(lines), nil
}

// ReadFile reads and parses the measurement file at path. Only a failure to
// open or read the file is an error; a file without measurements is not.
func ReadFile(path string) (Parsed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Parsed{}, &FileReadError{Path: path, Err: err}
	}
	defer f.Close()
	lines, err := readLines(f)
	if err != nil {
		return Parsed{}, &FileReadError{Path: path, Err: err}
	}
	return ParseLines(lines), nil
}
