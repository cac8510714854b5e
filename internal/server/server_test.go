// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package server_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	gotesting "testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/gauntlet-dev/gauntlet/internal/errors"
	"github.com/gauntlet-dev/gauntlet/internal/logging"
	"github.com/gauntlet-dev/gauntlet/internal/logging/loggingtest"
	"github.com/gauntlet-dev/gauntlet/internal/protocol"
	"github.com/gauntlet-dev/gauntlet/internal/registry"
	"github.com/gauntlet-dev/gauntlet/internal/server"
	"github.com/gauntlet-dev/gauntlet/internal/session"
)

func testContext(t *gotesting.T) context.Context {
	return logging.AttachLoggerNoPropagation(context.Background(), loggingtest.NewLogger(t, logging.LevelInfo))
}

// writeRequests encodes reqs into a buffer the way the coordinator would.
func writeRequests(t *gotesting.T, reqs ...*protocol.Request) *bytes.Buffer {
	t.Helper()
	var b bytes.Buffer
	for _, req := range reqs {
		if err := protocol.WriteRequest(&b, req.Tag, req.Body); err != nil {
			t.Fatalf("WriteRequest failed: %v", err)
		}
	}
	return &b
}

func runTestRequest(index uint32) *protocol.Request {
	return &protocol.Request{Tag: protocol.RequestRunTest, Body: protocol.EncodeRunTestBody(index)}
}

func TestServeMetadataAndExit(t *gotesting.T) {
	sess := session.New(loggingtest.NewLogger(t, logging.LevelInfo))
	reg := registry.New()
	reg.Add(&registry.Test{Name: "a", Func: func() error { return nil }})
	reg.Add(&registry.Test{Name: "bb", Func: func() error { return nil }})
	reg.Add(&registry.Test{Name: "ccc", Func: func() error { return nil }})
	reg.Seal()

	in := writeRequests(t,
		&protocol.Request{Tag: protocol.RequestQueryTestMetadata},
		&protocol.Request{Tag: protocol.RequestExit})
	var out bytes.Buffer
	if serr := server.Serve(testContext(t), reg, sess, in, &out); serr != nil {
		t.Fatalf("Serve failed: %v", serr)
	}

	var want bytes.Buffer
	if err := protocol.WriteTestMetadata(&want, protocol.NewTestMetadata(reg.Names())); err != nil {
		t.Fatalf("WriteTestMetadata failed: %v", err)
	}
	if diff := cmp.Diff(out.Bytes(), want.Bytes()); diff != "" {
		t.Errorf("Response stream mismatch (-got +want):\n%s", diff)
	}
}

func TestServeRunSequence(t *gotesting.T) {
	sess := session.New(loggingtest.NewLogger(t, logging.LevelInfo))
	reg := registry.New()
	reg.Add(&registry.Test{Name: "clean", Func: func() error { return nil }})
	reg.Add(&registry.Test{Name: "broken", Func: func() error { return errors.New("bad state") }})
	reg.Add(&registry.Test{Name: "leaky", Func: func() error {
		sess.Tracker.Acquire("buffer")
		return nil
	}})
	reg.Seal()

	// Indexes arrive out of order and repeat. The repeated run of the leaky
	// test must report a fresh leak, not an accumulated one.
	in := writeRequests(t,
		runTestRequest(2),
		runTestRequest(0),
		runTestRequest(2),
		&protocol.Request{Tag: protocol.RequestExit})
	var out bytes.Buffer
	if serr := server.Serve(testContext(t), reg, sess, in, &out); serr != nil {
		t.Fatalf("Serve failed: %v", serr)
	}

	var want bytes.Buffer
	for _, res := range []*protocol.TestResults{
		{Index: 2, Leak: true},
		{Index: 0},
		{Index: 2, Leak: true},
	} {
		if err := protocol.WriteTestResults(&want, res); err != nil {
			t.Fatalf("WriteTestResults failed: %v", err)
		}
	}
	if diff := cmp.Diff(out.Bytes(), want.Bytes()); diff != "" {
		t.Errorf("Response stream mismatch (-got +want):\n%s", diff)
	}

	wantCounters := session.Counters{Passed: 3, Leaked: 2}
	if diff := cmp.Diff(sess.Counters, wantCounters); diff != "" {
		t.Errorf("Counters mismatch (-got +want):\n%s", diff)
	}
}

func TestServeFailWithLogErrors(t *gotesting.T) {
	sess := session.New(loggingtest.NewLogger(t, logging.LevelInfo))
	reg := registry.New()
	reg.Add(&registry.Test{Name: "noisy", Func: func() error {
		sess.Tracker.Log(logging.LevelError, time.Unix(0, 0), "first")
		sess.Tracker.Log(logging.LevelError, time.Unix(0, 0), "second")
		return errors.New("gave up")
	}})
	reg.Seal()

	in := writeRequests(t, runTestRequest(0), &protocol.Request{Tag: protocol.RequestExit})
	var out bytes.Buffer
	if serr := server.Serve(testContext(t), reg, sess, in, &out); serr != nil {
		t.Fatalf("Serve failed: %v", serr)
	}

	var want bytes.Buffer
	if err := protocol.WriteTestResults(&want, &protocol.TestResults{Index: 0, Fail: true, LogErrors: 2}); err != nil {
		t.Fatalf("WriteTestResults failed: %v", err)
	}
	if diff := cmp.Diff(out.Bytes(), want.Bytes()); diff != "" {
		t.Errorf("Response stream mismatch (-got +want):\n%s", diff)
	}
}

func TestServeOutOfRangeIndex(t *gotesting.T) {
	sess := session.New(loggingtest.NewLogger(t, logging.LevelInfo))
	reg := registry.New()
	reg.Add(&registry.Test{Name: "only", Func: func() error { return nil }})
	reg.Seal()

	in := writeRequests(t, runTestRequest(7))
	var out bytes.Buffer
	serr := server.Serve(testContext(t), reg, sess, in, &out)
	if serr == nil {
		t.Fatal("Serve unexpectedly succeeded for out-of-range index")
	}
	if serr.Status() != 1 {
		t.Errorf("Serve returned status %d; want 1", serr.Status())
	}
	if out.Len() != 0 {
		t.Errorf("Serve wrote %d response bytes for a fatal request; want none", out.Len())
	}
}

func TestServeUnsupportedTag(t *gotesting.T) {
	for _, tc := range []struct {
		tag  protocol.RequestTag
		want string
	}{
		{protocol.RequestUpdate, "0x1"},
		{protocol.RequestRun, "0x2"},
		{protocol.RequestHotUpdate, "0x3"},
	} {
		sess := session.New(loggingtest.NewLogger(t, logging.LevelInfo))
		reg := registry.New()
		reg.Seal()

		in := writeRequests(t, &protocol.Request{Tag: tc.tag})
		var out bytes.Buffer
		serr := server.Serve(testContext(t), reg, sess, in, &out)
		if serr == nil {
			t.Fatalf("Serve unexpectedly succeeded for tag %d", tc.tag)
		}
		if serr.Status() != 1 {
			t.Errorf("Serve returned status %d for tag %d; want 1", serr.Status(), tc.tag)
		}
		if !strings.Contains(serr.Error(), tc.want) {
			t.Errorf("Serve returned %q for tag %d; want mention of %q", serr.Error(), tc.tag, tc.want)
		}
		if out.Len() != 0 {
			t.Errorf("Serve wrote %d response bytes for tag %d; want none", out.Len(), tc.tag)
		}
	}
}

func TestServeHangUpWithoutExit(t *gotesting.T) {
	sess := session.New(loggingtest.NewLogger(t, logging.LevelInfo))
	reg := registry.New()
	reg.Seal()

	serr := server.Serve(testContext(t), reg, sess, &bytes.Buffer{}, &bytes.Buffer{})
	if serr == nil {
		t.Fatal("Serve unexpectedly succeeded on hang-up")
	}
	if serr.Status() != 1 {
		t.Errorf("Serve returned status %d; want 1", serr.Status())
	}
}

func TestServeTruncatedFrame(t *gotesting.T) {
	sess := session.New(loggingtest.NewLogger(t, logging.LevelInfo))
	reg := registry.New()
	reg.Seal()

	in := bytes.NewBuffer([]byte{5, 0, 0, 0})
	serr := server.Serve(testContext(t), reg, sess, in, &bytes.Buffer{})
	if serr == nil {
		t.Fatal("Serve unexpectedly succeeded on a truncated frame")
	}
	if serr.Status() != 1 {
		t.Errorf("Serve returned status %d; want 1", serr.Status())
	}
}

func TestServeExitStopsProcessing(t *gotesting.T) {
	sess := session.New(loggingtest.NewLogger(t, logging.LevelInfo))
	ran := false
	reg := registry.New()
	reg.Add(&registry.Test{Name: "late", Func: func() error { ran = true; return nil }})
	reg.Seal()

	in := writeRequests(t, &protocol.Request{Tag: protocol.RequestExit}, runTestRequest(0))
	var out bytes.Buffer
	if serr := server.Serve(testContext(t), reg, sess, in, &out); serr != nil {
		t.Fatalf("Serve failed: %v", serr)
	}
	if ran {
		t.Error("Serve ran a test requested after exit")
	}
	if out.Len() != 0 {
		t.Errorf("Serve wrote %d response bytes after exit; want none", out.Len())
	}
}

func TestServeOverPipes(t *gotesting.T) {
	sess := session.New(loggingtest.NewLogger(t, logging.LevelInfo))
	reg := registry.New()
	reg.Add(&registry.Test{Name: "pass", Func: func() error { return nil }})
	reg.Add(&registry.Test{Name: "fail", Func: func() error { return errors.New("broken") }})
	reg.Add(&registry.Test{Name: "skip", Func: func() error { return registry.ErrSkip }})
	reg.Seal()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	var g errgroup.Group
	g.Go(func() error {
		defer outW.Close()
		if serr := server.Serve(testContext(t), reg, sess, inR, outW); serr != nil {
			return serr
		}
		return nil
	})

	cl := protocol.NewClient(inW, outR)
	md, err := cl.QueryTestMetadata()
	if err != nil {
		t.Fatalf("QueryTestMetadata failed: %v", err)
	}
	names, err := md.TestNames()
	if err != nil {
		t.Fatalf("TestNames failed: %v", err)
	}
	if diff := cmp.Diff(names, []string{"pass", "fail", "skip"}); diff != "" {
		t.Errorf("TestNames mismatch (-got +want):\n%s", diff)
	}
	for _, tc := range []struct {
		index uint32
		want  protocol.TestResults
	}{
		{1, protocol.TestResults{Index: 1, Fail: true}},
		{2, protocol.TestResults{Index: 2, Skip: true}},
		{0, protocol.TestResults{Index: 0}},
	} {
		res, err := cl.RunTest(tc.index)
		if err != nil {
			t.Fatalf("RunTest(%d) failed: %v", tc.index, err)
		}
		if diff := cmp.Diff(*res, tc.want); diff != "" {
			t.Errorf("RunTest(%d) mismatch (-got +want):\n%s", tc.index, diff)
		}
	}
	if err := cl.Exit(); err != nil {
		t.Fatalf("Exit failed: %v", err)
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
}
