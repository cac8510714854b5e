// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package protocol implements the framed binary protocol between a harness
// and the build coordinator driving it.
//
// Frames travel over a pair of byte streams (the harness's stdin and
// stdout). Each frame is a header of two little-endian uint32 values, the
// message tag and the body length, followed by that many body bytes. The
// tag values and body layouts are fixed by the coordinator's decoder and
// must not change.
package protocol

import (
	"encoding/binary"
	"io"

	"github.com/gauntlet-dev/gauntlet/internal/errors"
)

// RequestTag identifies a coordinator-to-harness message.
type RequestTag uint32

const (
	// RequestExit asks the harness to terminate cleanly. Empty body.
	RequestExit RequestTag = 0
	// RequestUpdate is reserved for coordinator use; the harness rejects it.
	RequestUpdate RequestTag = 1
	// RequestRun is reserved for coordinator use; the harness rejects it.
	RequestRun RequestTag = 2
	// RequestHotUpdate is reserved for coordinator use; the harness rejects it.
	RequestHotUpdate RequestTag = 3
	// RequestQueryTestMetadata asks for the name table of every registered
	// test. Empty body.
	RequestQueryTestMetadata RequestTag = 4
	// RequestRunTest asks to run one test. Body is its uint32 index.
	RequestRunTest RequestTag = 5
)

// ResponseTag identifies a harness-to-coordinator message.
type ResponseTag uint32

const (
	// ResponseVersion is reserved for coordinator compatibility.
	ResponseVersion ResponseTag = 0
	// ResponseErrorBundle is reserved for coordinator compatibility.
	ResponseErrorBundle ResponseTag = 1
	// ResponseProgress is reserved for coordinator compatibility.
	ResponseProgress ResponseTag = 2
	// ResponseEmitBinPath is reserved for coordinator compatibility.
	ResponseEmitBinPath ResponseTag = 3
	// ResponseTestMetadata carries a TestMetadata body.
	ResponseTestMetadata ResponseTag = 4
	// ResponseTestResults carries a TestResults body.
	ResponseTestResults ResponseTag = 5
)

// headerSize is the number of bytes in a frame header: a uint32 tag
// followed by a uint32 body length.
const headerSize = 8

// Request is one decoded coordinator-to-harness frame.
type Request struct {
	Tag  RequestTag
	Body []byte
}

// Response is one decoded harness-to-coordinator frame.
type Response struct {
	Tag  ResponseTag
	Body []byte
}

// ReadRequest reads one frame from r. It returns io.EOF unchanged when the
// stream ends at a frame boundary so callers can tell a hang-up from a
// truncated frame.
func ReadRequest(r io.Reader) (*Request, error) {
	tag, body, err := readFrame(r)
	if err != nil {
		return nil, err
	}
	return &Request{Tag: RequestTag(tag), Body: body}, nil
}

// ReadResponse reads one frame from r. EOF handling matches ReadRequest.
func ReadResponse(r io.Reader) (*Response, error) {
	tag, body, err := readFrame(r)
	if err != nil {
		return nil, err
	}
	return &Response{Tag: ResponseTag(tag), Body: body}, nil
}

// WriteRequest writes one coordinator-to-harness frame to w.
func WriteRequest(w io.Writer, tag RequestTag, body []byte) error {
	return writeFrame(w, uint32(tag), body)
}

// WriteResponse writes one harness-to-coordinator frame to w.
func WriteResponse(w io.Writer, tag ResponseTag, body []byte) error {
	return writeFrame(w, uint32(tag), body)
}

func readFrame(r io.Reader) (tag uint32, body []byte, err error) {
	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, errors.Wrap(err, "failed to read frame header")
	}
	tag = binary.LittleEndian.Uint32(hdr[0:4])
	length := binary.LittleEndian.Uint32(hdr[4:8])

	body = make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, errors.Wrapf(err, "failed to read %d-byte body of frame with tag %d", length, tag)
	}
	return tag, body, nil
}

func writeFrame(w io.Writer, tag uint32, body []byte) error {
	// Header and body go out in a single write so a frame is never split
	// across writes on the underlying pipe.
	d := make([]byte, headerSize+len(body))
	binary.LittleEndian.PutUint32(d[0:4], tag)
	binary.LittleEndian.PutUint32(d[4:8], uint32(len(body)))
	copy(d[headerSize:], body)

	if _, err := w.Write(d); err != nil {
		return errors.Wrapf(err, "failed to write frame with tag %d", tag)
	}
	return nil
}
