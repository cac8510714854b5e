// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package protocol

import (
	"bytes"

	"github.com/gauntlet-dev/gauntlet/internal/errors"
)

// StringTable packs a list of names into a single buffer of NUL-terminated
// strings. Offset 0 holds a reserved NUL byte, so no valid name ever starts
// at offset 0.
type StringTable struct {
	// Offsets holds the byte offset of each name's first byte, in input
	// order.
	Offsets []uint32
	// Bytes is the packed buffer.
	Bytes []byte
}

// NewStringTable packs names into a fresh table.
func NewStringTable(names []string) *StringTable {
	st := &StringTable{
		Offsets: make([]uint32, 0, len(names)),
		Bytes:   []byte{0},
	}
	for _, name := range names {
		st.Offsets = append(st.Offsets, uint32(len(st.Bytes)))
		st.Bytes = append(st.Bytes, name...)
		st.Bytes = append(st.Bytes, 0)
	}
	return st
}

// Lookup returns the NUL-terminated string starting at off.
func (st *StringTable) Lookup(off uint32) (string, error) {
	if off >= uint32(len(st.Bytes)) {
		return "", errors.Errorf("string offset %d out of range [0, %d)", off, len(st.Bytes))
	}
	end := bytes.IndexByte(st.Bytes[off:], 0)
	if end < 0 {
		return "", errors.Errorf("unterminated string at offset %d", off)
	}
	return string(st.Bytes[off : int(off)+end]), nil
}
