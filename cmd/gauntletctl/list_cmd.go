// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"io"

	"github.com/google/subcommands"

	"github.com/gauntlet-dev/gauntlet/internal/logging"
)

// listCmd implements subcommands.Command to support listing the tests a
// harness binary exposes.
type listCmd struct {
	harness string    // path to the harness binary
	stdout  io.Writer // where to write the listing
}

var _ = subcommands.Command(&listCmd{})

// newListCmd returns a new listCmd that will write tests to stdout.
func newListCmd(stdout io.Writer) *listCmd {
	return &listCmd{stdout: stdout}
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list tests" }
func (*listCmd) Usage() string {
	return `Usage: list -harness <path>

Description:
    Query a harness binary for its registered tests and print one line per
    test with its protocol index and name.

Flag:
`
}

func (lc *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&lc.harness, "harness", "", "path to the harness binary to query")
}

func (lc *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if lc.harness == "" {
		logging.Info(ctx, "Missing -harness.\n\n"+lc.Usage())
		return subcommands.ExitUsageError
	}

	proc, err := startHarness(ctx, lc.harness)
	if err != nil {
		logging.Error(ctx, "Failed to start harness: ", err)
		return subcommands.ExitFailure
	}
	names, err := fetchNames(proc.client)
	if serr := proc.shutdown(ctx); serr != nil && err == nil {
		err = serr
	}
	if err != nil {
		logging.Error(ctx, "Failed to list tests: ", err)
		return subcommands.ExitFailure
	}

	if err := printTests(lc.stdout, names); err != nil {
		logging.Error(ctx, "Failed to write tests: ", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
