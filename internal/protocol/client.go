// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package protocol

import (
	"io"

	"github.com/gauntlet-dev/gauntlet/internal/errors"
)

// Client drives a harness from the coordinator's side of the protocol.
// Requests go out on w (the harness's stdin) and responses come back on r
// (the harness's stdout). The protocol is strictly request/response, so a
// Client needs no internal concurrency.
type Client struct {
	w io.Writer
	r io.Reader
}

// NewClient creates a Client talking over the given streams.
func NewClient(w io.Writer, r io.Reader) *Client {
	return &Client{w: w, r: r}
}

// QueryTestMetadata asks the harness for its full test name table.
func (c *Client) QueryTestMetadata() (*TestMetadata, error) {
	if err := WriteRequest(c.w, RequestQueryTestMetadata, nil); err != nil {
		return nil, err
	}
	resp, err := ReadResponse(c.r)
	if err != nil {
		return nil, errors.Wrap(err, "awaiting test metadata")
	}
	if resp.Tag != ResponseTestMetadata {
		return nil, errors.Errorf("unexpected response tag %d; want test metadata", resp.Tag)
	}
	return decodeTestMetadata(resp.Body)
}

// RunTest asks the harness to run the test at index and returns its
// results.
func (c *Client) RunTest(index uint32) (*TestResults, error) {
	if err := WriteRequest(c.w, RequestRunTest, EncodeRunTestBody(index)); err != nil {
		return nil, err
	}
	resp, err := ReadResponse(c.r)
	if err != nil {
		return nil, errors.Wrapf(err, "awaiting results for test %d", index)
	}
	if resp.Tag != ResponseTestResults {
		return nil, errors.Errorf("unexpected response tag %d; want test results", resp.Tag)
	}
	res, err := decodeTestResults(resp.Body)
	if err != nil {
		return nil, err
	}
	if res.Index != index {
		return nil, errors.Errorf("results are for test %d; want %d", res.Index, index)
	}
	return res, nil
}

// Exit asks the harness to terminate cleanly. No response follows.
func (c *Client) Exit() error {
	return WriteRequest(c.w, RequestExit, nil)
}
