// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	gotesting "testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"

	"github.com/gauntlet-dev/gauntlet/internal/fakesuite"
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

// startFakeHarness serves reg over in-memory pipes and returns a client
// connected to it, standing in for a spawned harness process. Tests must
// send an exit request before finishing or the serve goroutine never stops.
func startFakeHarness(t *gotesting.T, reg *registry.Registry) *protocol.Client {
	t.Helper()

	sess := session.New(nil)
	ctx := testContext(t)
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	var g errgroup.Group
	g.Go(func() error {
		defer outW.Close()
		if serr := server.Serve(ctx, reg, sess, inR, outW); serr != nil {
			return serr
		}
		return nil
	})
	t.Cleanup(func() {
		if err := g.Wait(); err != nil {
			t.Errorf("Serve failed: %v", err)
		}
	})
	return protocol.NewClient(inW, outR)
}

func TestListTests(t *gotesting.T) {
	cl := startFakeHarness(t, fakesuite.Mixed())
	names, err := fetchNames(cl)
	if err != nil {
		t.Fatalf("fetchNames failed: %v", err)
	}
	if err := cl.Exit(); err != nil {
		t.Fatalf("Exit failed: %v", err)
	}

	var out bytes.Buffer
	if err := printTests(&out, names); err != nil {
		t.Fatalf("printTests failed: %v", err)
	}
	want := "0 fake.Pass\n1 fake.Skip\n2 fake.Fail\n"
	if diff := cmp.Diff(out.String(), want); diff != "" {
		t.Errorf("Listing mismatch (-got +want):\n%s", diff)
	}
}

func TestSelectTests(t *gotesting.T) {
	names := []string{"a", "bb", "ccc"}
	for _, tc := range []struct {
		requested []string
		want      []int
	}{
		{nil, []int{0, 1, 2}},
		{[]string{"ccc", "a"}, []int{2, 0}},
		{[]string{"bb"}, []int{1}},
	} {
		sel, err := selectTests(names, tc.requested)
		if err != nil {
			t.Errorf("selectTests(%v) failed: %v", tc.requested, err)
			continue
		}
		if diff := cmp.Diff(sel, tc.want); diff != "" {
			t.Errorf("selectTests(%v) mismatch (-got +want):\n%s", tc.requested, diff)
		}
	}

	if _, err := selectTests(names, []string{"nope"}); err == nil {
		t.Error("selectTests unexpectedly succeeded for an unknown name")
	}
}

func TestRunAllTests(t *gotesting.T) {
	cl := startFakeHarness(t, fakesuite.Mixed())
	names, err := fetchNames(cl)
	if err != nil {
		t.Fatalf("fetchNames failed: %v", err)
	}

	var out bytes.Buffer
	clean, err := driveRun(cl, names, nil, &out)
	if err != nil {
		t.Fatalf("driveRun failed: %v", err)
	}
	if err := cl.Exit(); err != nil {
		t.Fatalf("Exit failed: %v", err)
	}

	if clean {
		t.Error("driveRun reported a clean run; want dirty")
	}
	want := `fake.Pass [ PASS ]
fake.Skip [ SKIP ]
fake.Fail [ FAIL ]
1 passed, 1 skipped, 1 failed.
`
	if diff := cmp.Diff(out.String(), want); diff != "" {
		t.Errorf("Output mismatch (-got +want):\n%s", diff)
	}
}

func TestRunSelectedTests(t *gotesting.T) {
	cl := startFakeHarness(t, fakesuite.Mixed())
	names, err := fetchNames(cl)
	if err != nil {
		t.Fatalf("fetchNames failed: %v", err)
	}

	var out bytes.Buffer
	clean, err := driveRun(cl, names, []string{"fake.Pass"}, &out)
	if err != nil {
		t.Fatalf("driveRun failed: %v", err)
	}
	if err := cl.Exit(); err != nil {
		t.Fatalf("Exit failed: %v", err)
	}

	if !clean {
		t.Error("driveRun reported a dirty run; want clean")
	}
	want := "fake.Pass [ PASS ]\nAll 1 tests passed.\n"
	if diff := cmp.Diff(out.String(), want); diff != "" {
		t.Errorf("Output mismatch (-got +want):\n%s", diff)
	}
}

func TestRunUnknownTest(t *gotesting.T) {
	cl := startFakeHarness(t, fakesuite.Mixed())
	names, err := fetchNames(cl)
	if err != nil {
		t.Fatalf("fetchNames failed: %v", err)
	}

	if _, err := driveRun(cl, names, []string{"nope"}, io.Discard); err == nil {
		t.Error("driveRun unexpectedly succeeded for an unknown name")
	}
	if err := cl.Exit(); err != nil {
		t.Fatalf("Exit failed: %v", err)
	}
}

func TestListCmdMissingHarness(t *gotesting.T) {
	cmd := newListCmd(&bytes.Buffer{})
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	cmd.SetFlags(flags)
	if err := flags.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if status := cmd.Execute(testContext(t), flags); status != subcommands.ExitUsageError {
		t.Errorf("Execute returned %v; want %v", status, subcommands.ExitUsageError)
	}
}

func TestRunCmdMissingHarness(t *gotesting.T) {
	cmd := newRunCmd(&bytes.Buffer{})
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	cmd.SetFlags(flags)
	if err := flags.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if status := cmd.Execute(testContext(t), flags); status != subcommands.ExitUsageError {
		t.Errorf("Execute returned %v; want %v", status, subcommands.ExitUsageError)
	}
}

func TestRunCmdTestsFlag(t *gotesting.T) {
	cmd := newRunCmd(&bytes.Buffer{})
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	cmd.SetFlags(flags)
	if err := flags.Parse([]string{"-tests", "a,bb"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cmd.tests, []string{"a", "bb"}); diff != "" {
		t.Errorf("-tests mismatch (-got +want):\n%s", diff)
	}
}
