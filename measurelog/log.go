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

// Package measurelog records the measurements applied to a simulated PCR bank.
package measurelog

import (
	"bytes"
)

// Entry is a single measurement applied to a PCR.
type Entry struct {
	Description string
	Data        []byte
	PCRIndex    int
}

// Log is an ordered, append-only list of entries. The zero value is an empty
// log ready to use.
type Log struct {
	entries []Entry
}

// Append adds e to the end of the log. The log keeps its own copy of e.Data.
func (l *Log) Append(e Entry) {
	e.Data = bytes.Clone(e.Data)
	if e.Data == nil {
		e.Data = []byte{}
	}
	l.entries = append(l.entries, e)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entries in the order they were appended.
func (l *Log) Entries() []Entry {
	return cloneEntries(l.entries)
}

// ForPCR returns the entries applied to PCR index, in order.
func (l *Log) ForPCR(index int) []Entry {
	var out []Entry
	for _, e := range l.entries {
		if e.PCRIndex == index {
			out = append(out, e)
		}
	}
	return cloneEntries(out)
}

// Measurements groups entry data by PCR index, preserving order.
func (l *Log) Measurements() map[int][][]byte {
	out := make(map[int][][]byte)
	for _, e := range l.entries {
		out[e.PCRIndex] = append(out[e.PCRIndex], bytes.Clone(e.Data))
	}
	return out
}

// Clear removes every entry.
func (l *Log) Clear() {
	l.entries = nil
}

func cloneEntries(in []Entry) []Entry {
	if in == nil {
		return nil
	}
	out := make([]Entry, len(in))
	for i, e := range in {
		e.Data = bytes.Clone(e.Data)
		out[i] = e
	}
	return out
}
