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

package measurelog

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire format, in protobuf terms:
//
//	message Entry {
//	  bytes  description = 1;
//	  bytes  data        = 2;
//	  uint64 pcr_index   = 3;
//	}
//	message Log {
//	  repeated Entry entries = 1;
//	}
const (
	entryDescriptionField protowire.Number = 1
	entryDataField        protowire.Number = 2
	entryPCRIndexField    protowire.Number = 3

	logEntriesField protowire.Number = 1
)

// MarshalBinary encodes the log in protobuf wire format.
func (l *Log) MarshalBinary() ([]byte, error) {
	var b []byte
	for i, e := range l.entries {
		if e.PCRIndex < 0 {
			return nil, fmt.Errorf("entry %d: negative PCR index %d", i, e.PCRIndex)
		}
		b = protowire.AppendTag(b, logEntriesField, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalEntry(e))
	}
	return b, nil
}

func marshalEntry(e Entry) []byte {
	var b []byte
	b = protowire.AppendTag(b, entryDescriptionField, protowire.BytesType)
	b = protowire.AppendString(b, e.Description)
	b = protowire.AppendTag(b, entryDataField, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Data)
	b = protowire.AppendTag(b, entryPCRIndexField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.PCRIndex))
	return b
}

// UnmarshalBinary replaces the contents of l with the entries encoded in b.
// On error l is left unchanged. Unknown fields are skipped.
func (l *Log) UnmarshalBinary(b []byte) error {
	var entries []Entry
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("reading log field tag: %v", protowire.ParseError(n))
		}
		b = b[n:]
		if num == logEntriesField && typ == protowire.BytesType {
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("reading entry %d: %v", len(entries), protowire.ParseError(n))
			}
			e, err := unmarshalEntry(raw)
			if err != nil {
				return fmt.Errorf("entry %d: %w", len(entries), err)
			}
			entries = append(entries, e)
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return fmt.Errorf("skipping field %d: %v", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	l.entries = entries
	return nil
}

func unmarshalEntry(b []byte) (Entry, error) {
	e := Entry{Data: []byte{}}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Entry{}, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == entryDescriptionField && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return Entry{}, protowire.ParseError(n)
			}
			e.Description = v
			b = b[n:]
		case num == entryDataField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Entry{}, protowire.ParseError(n)
			}
			e.Data = append([]byte{}, v...)
			b = b[n:]
		case num == entryPCRIndexField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Entry{}, protowire.ParseError(n)
			}
			if v > math.MaxInt32 {
				return Entry{}, errors.New("PCR index out of range")
			}
			e.PCRIndex = int(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Entry{}, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return e, nil
}
