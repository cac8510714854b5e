// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"io"

	"github.com/gauntlet-dev/gauntlet/internal/errors"
)

// TestResults flag word layout: three low bits for the boolean outcome
// flags, the rest for the log-error count.
const (
	resultFlagFail    = 1 << 0
	resultFlagSkip    = 1 << 1
	resultFlagLeak    = 1 << 2
	resultLogErrShift = 3

	// MaxLogErrors is the largest log-error count the flag word can carry.
	// Larger counts saturate to this value rather than wrapping.
	MaxLogErrors = 1<<(32-resultLogErrShift) - 1
)

// TestMetadata describes every registered test for the coordinator. The
// three slices and the string buffer match the registry in length and
// order.
type TestMetadata struct {
	// Names holds each test name's byte offset into StringBytes.
	Names []uint32
	// ExpectedPanicMsgs is reserved; it is always emitted as zeros and its
	// contents are never interpreted.
	ExpectedPanicMsgs []uint32
	// StringBytes is the packed NUL-terminated name buffer.
	StringBytes []byte
}

// NewTestMetadata builds metadata covering names, in order.
func NewTestMetadata(names []string) *TestMetadata {
	st := NewStringTable(names)
	return &TestMetadata{
		Names:             st.Offsets,
		ExpectedPanicMsgs: make([]uint32, len(names)),
		StringBytes:       st.Bytes,
	}
}

// TestNames resolves every name offset back to its string.
func (m *TestMetadata) TestNames() ([]string, error) {
	st := &StringTable{Bytes: m.StringBytes}
	names := make([]string, 0, len(m.Names))
	for i, off := range m.Names {
		name, err := st.Lookup(off)
		if err != nil {
			return nil, errors.Wrapf(err, "bad name offset for test %d", i)
		}
		names = append(names, name)
	}
	return names, nil
}

// WriteTestMetadata writes m to w as one response frame.
//
// Body layout: string buffer length and test count as uint32, then the name
// offsets, then the reserved per-test words, then the string buffer.
func WriteTestMetadata(w io.Writer, m *TestMetadata) error {
	n := len(m.Names)
	body := make([]byte, 0, 8+8*n+len(m.StringBytes))
	body = appendUint32(body, uint32(len(m.StringBytes)))
	body = appendUint32(body, uint32(n))
	for _, off := range m.Names {
		body = appendUint32(body, off)
	}
	for i := 0; i < n; i++ {
		// Reserved; see ExpectedPanicMsgs.
		body = appendUint32(body, 0)
	}
	body = append(body, m.StringBytes...)
	return WriteResponse(w, ResponseTestMetadata, body)
}

// decodeTestMetadata parses a ResponseTestMetadata body.
func decodeTestMetadata(body []byte) (*TestMetadata, error) {
	if len(body) < 8 {
		return nil, errors.Errorf("test metadata body too short (%d bytes)", len(body))
	}
	strLen := binary.LittleEndian.Uint32(body[0:4])
	n := binary.LittleEndian.Uint32(body[4:8])
	want := 8 + 8*uint64(n) + uint64(strLen)
	if uint64(len(body)) != want {
		return nil, errors.Errorf("test metadata body has %d bytes; want %d for %d tests", len(body), want, n)
	}
	m := &TestMetadata{
		Names:             make([]uint32, n),
		ExpectedPanicMsgs: make([]uint32, n),
	}
	p := body[8:]
	for i := range m.Names {
		m.Names[i] = binary.LittleEndian.Uint32(p[:4])
		p = p[4:]
	}
	for i := range m.ExpectedPanicMsgs {
		m.ExpectedPanicMsgs[i] = binary.LittleEndian.Uint32(p[:4])
		p = p[4:]
	}
	m.StringBytes = append([]byte(nil), p...)
	return m, nil
}

// TestResults reports one finished test run to the coordinator.
type TestResults struct {
	// Index is the registry index the run was requested with.
	Index uint32
	// Fail reports that the test returned an error.
	Fail bool
	// Skip reports that the test opted out.
	Skip bool
	// Leak reports that the test's scope leaked.
	Leak bool
	// LogErrors is the run's error-severity log count. Values beyond
	// MaxLogErrors saturate on the wire.
	LogErrors uint64
}

// WriteTestResults writes m to w as one response frame.
func WriteTestResults(w io.Writer, m *TestResults) error {
	var flags uint32
	if m.Fail {
		flags |= resultFlagFail
	}
	if m.Skip {
		flags |= resultFlagSkip
	}
	if m.Leak {
		flags |= resultFlagLeak
	}
	le := m.LogErrors
	if le > MaxLogErrors {
		le = MaxLogErrors
	}
	flags |= uint32(le) << resultLogErrShift

	body := make([]byte, 8)
	binary.LittleEndian.PutUint32(body[0:4], m.Index)
	binary.LittleEndian.PutUint32(body[4:8], flags)
	return WriteResponse(w, ResponseTestResults, body)
}

// decodeTestResults parses a ResponseTestResults body.
func decodeTestResults(body []byte) (*TestResults, error) {
	if len(body) != 8 {
		return nil, errors.Errorf("test results body has %d bytes; want 8", len(body))
	}
	flags := binary.LittleEndian.Uint32(body[4:8])
	return &TestResults{
		Index:     binary.LittleEndian.Uint32(body[0:4]),
		Fail:      flags&resultFlagFail != 0,
		Skip:      flags&resultFlagSkip != 0,
		Leak:      flags&resultFlagLeak != 0,
		LogErrors: uint64(flags >> resultLogErrShift),
	}, nil
}

// RunTestIndex extracts the test index from a RequestRunTest body.
func (r *Request) RunTestIndex() (uint32, error) {
	if r.Tag != RequestRunTest {
		return 0, errors.Errorf("request tag %d is not run_test", r.Tag)
	}
	if len(r.Body) != 4 {
		return 0, errors.Errorf("run_test body has %d bytes; want 4", len(r.Body))
	}
	return binary.LittleEndian.Uint32(r.Body), nil
}

// EncodeRunTestBody encodes index as a RequestRunTest body.
func EncodeRunTestBody(index uint32) []byte {
	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body, index)
	return body
}

func appendUint32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}
