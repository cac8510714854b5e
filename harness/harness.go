// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package harness implements the entry point shared by test harness
// executables.
//
// A harness binary registers its tests through the testkit package and hands
// control to Run from main. Run picks a driver from the command line: with
// no arguments it runs every registered test and reports to the terminal,
// and with --listen=- it serves the coordinator protocol on stdin/stdout.
package harness

import (
	"context"
	"fmt"
	"io"

	"github.com/gauntlet-dev/gauntlet/internal/command"
	"github.com/gauntlet-dev/gauntlet/internal/config"
	"github.com/gauntlet-dev/gauntlet/internal/driver"
	"github.com/gauntlet-dev/gauntlet/internal/errors"
	"github.com/gauntlet-dev/gauntlet/internal/logging"
	"github.com/gauntlet-dev/gauntlet/internal/registry"
	"github.com/gauntlet-dev/gauntlet/internal/server"
	"github.com/gauntlet-dev/gauntlet/internal/session"
	"github.com/gauntlet-dev/gauntlet/internal/term"
	"github.com/gauntlet-dev/gauntlet/shutil"
)

const (
	statusSuccess = 0 // every executed test passed; nothing leaked, no errors logged
	statusError   = 1 // tests failed, a registration was bad or the coordinator misbehaved
	statusBadArgs = 2 // bad arguments or configuration were passed to the harness
)

// listenFlag is the only accepted command-line argument. The dash names the
// stdin/stdout pair; sockets are the coordinator's concern, not the
// harness's.
const listenFlag = "--listen=-"

// Run executes the tests in reg as directed by clArgs and returns the status
// code the process should exit with. clArgs should typically be os.Args[1:].
//
// Terminal mode writes progress and logs to stderr. Server mode writes
// protocol frames to stdout and keeps stderr for diagnostics, so a
// coordinator can multiplex both.
func Run(clArgs []string, stdin io.Reader, stdout, stderr io.Writer, reg *registry.Registry) int {
	serve, err := parseArgs(clArgs)
	if err != nil {
		return command.WriteError(stderr, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return command.WriteError(stderr, command.NewStatusErrorf(statusBadArgs, "%v", err))
	}

	reg.Seal()
	if errs := reg.Errs(); len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(stderr, "Bad test registration:", err)
		}
		return statusError
	}

	sess := session.New(logging.NewConsoleLogger(cfg.LogLevel, stderr))
	ctx := sess.Activate(context.Background())
	defer sess.Deactivate()

	if serve {
		if serr := server.Serve(ctx, reg, sess, stdin, stdout); serr != nil {
			return command.WriteError(stderr, serr)
		}
		return statusSuccess
	}

	dcfg := driver.TerminalConfig(colorEnabled(cfg.Color, stderr), cfg.Sysinfo)
	code, _ := driver.New(dcfg, reg, sess, stderr).RunAll(ctx)
	return code
}

// RunFailFast runs the tests in reg in order and stops at the first failure,
// returning that test's error. Skipped tests do not stop the run. Progress
// reporting and resource tracking are disabled; embedders that need those
// should use Run.
func RunFailFast(reg *registry.Registry) error {
	reg.Seal()
	if errs := reg.Errs(); len(errs) > 0 {
		return errors.Wrap(errs[0], "bad test registration")
	}

	sess := session.New(nil)
	ctx := sess.Activate(context.Background())
	defer sess.Deactivate()

	_, err := driver.New(driver.Config{FailFast: true}, reg, sess, io.Discard).RunAll(ctx)
	return err
}

// RunTally runs every test in reg in order, prints a summary block to w and
// returns the status code the process should exit with. Per-test progress
// and resource tracking are disabled, so only failures make the status
// nonzero.
func RunTally(reg *registry.Registry, w io.Writer) int {
	reg.Seal()
	if errs := reg.Errs(); len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(w, "Bad test registration:", err)
		}
		return statusError
	}

	sess := session.New(nil)
	ctx := sess.Activate(context.Background())
	defer sess.Deactivate()

	code, _ := driver.New(driver.Config{Summary: true}, reg, sess, w).RunAll(ctx)
	return code
}

// parseArgs decides the mode of operation from the command line. The
// harness takes no flags besides the listen directive; anything else is
// fatal so a typo never silently runs the whole suite.
func parseArgs(clArgs []string) (serve bool, err error) {
	switch {
	case len(clArgs) == 0:
		return false, nil
	case len(clArgs) == 1 && clArgs[0] == listenFlag:
		return true, nil
	default:
		return false, command.NewStatusErrorf(statusBadArgs, "unknown arguments: %s", shutil.EscapeSlice(clArgs))
	}
}

// colorEnabled reports whether progress markers written to w should carry
// ANSI colors under mode.
func colorEnabled(mode config.ColorMode, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
