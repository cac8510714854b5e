// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"io"

	"github.com/google/subcommands"

	"github.com/gauntlet-dev/gauntlet/internal/command"
	"github.com/gauntlet-dev/gauntlet/internal/logging"
)

// runCmd implements subcommands.Command to support running tests through a
// harness binary.
type runCmd struct {
	harness string    // path to the harness binary
	tests   []string  // names of tests to run; empty means all
	stdout  io.Writer // where to write results
}

var _ = subcommands.Command(&runCmd{})

// newRunCmd returns a new runCmd that will write results to stdout.
func newRunCmd(stdout io.Writer) *runCmd {
	return &runCmd{stdout: stdout}
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run tests" }
func (*runCmd) Usage() string {
	return `Usage: run -harness <path> [-tests <name>,...]

Description:
    Run tests through a harness binary and print one result line per test
    plus a summary. Without -tests every registered test runs in registry
    order; with -tests the named tests run in the given order.

    The exit status is zero only if every executed test passed without
    leaking resources or logging errors.

Flag:
`
}

func (rc *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&rc.harness, "harness", "", "path to the harness binary to run")
	f.Var(command.NewListFlag(",", func(vals []string) { rc.tests = vals }, nil),
		"tests", "comma-separated names of tests to run (default all)")
}

func (rc *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if rc.harness == "" {
		logging.Info(ctx, "Missing -harness.\n\n"+rc.Usage())
		return subcommands.ExitUsageError
	}

	proc, err := startHarness(ctx, rc.harness)
	if err != nil {
		logging.Error(ctx, "Failed to start harness: ", err)
		return subcommands.ExitFailure
	}
	clean := false
	names, err := fetchNames(proc.client)
	if err == nil {
		clean, err = driveRun(proc.client, names, rc.tests, rc.stdout)
	}
	if serr := proc.shutdown(ctx); serr != nil && err == nil {
		err = serr
	}
	if err != nil {
		logging.Error(ctx, "Failed to run tests: ", err)
		return subcommands.ExitFailure
	}

	if !clean {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
