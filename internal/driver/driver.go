// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package driver runs registered tests sequentially and renders the outcome.
//
// A single loop serves every sequential execution mode. Capabilities are
// selected per configuration rather than by maintaining parallel loops: the
// terminal reporter enables progress lines, tracking and the summary block,
// while the degraded variants switch most of that off.
package driver

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/gauntlet-dev/gauntlet/internal/engine"
	"github.com/gauntlet-dev/gauntlet/internal/errors"
	"github.com/gauntlet-dev/gauntlet/internal/logging"
	"github.com/gauntlet-dev/gauntlet/internal/registry"
	"github.com/gauntlet-dev/gauntlet/internal/resource"
	"github.com/gauntlet-dev/gauntlet/internal/session"
	"github.com/gauntlet-dev/gauntlet/internal/sysinfo"
)

const (
	statusSuccess = 0
	statusError   = 1
)

// Config selects the capabilities of a driver. The zero value is the most
// degraded configuration: run everything, render nothing, track nothing.
type Config struct {
	// Progress renders one line per test with its index, name, status
	// marker and duration.
	Progress bool
	// Track runs tests under resource tracking so leaks and error-level
	// log entries count against the session.
	Track bool
	// Summary renders the final summary block after the last test.
	Summary bool
	// FailFast stops at the first failing test and propagates its error.
	// No further tests run in that session.
	FailFast bool
	// Color renders status markers with ANSI colors.
	Color bool
	// Sysinfo logs a process resource footprint line after the summary.
	Sysinfo bool
}

// TerminalConfig returns the configuration used for interactive terminal
// runs. color additionally enables ANSI status markers and sysinfo the
// resource footprint line.
func TerminalConfig(color, sysinfo bool) Config {
	return Config{Progress: true, Track: true, Summary: true, Color: color, Sysinfo: sysinfo}
}

// Driver executes every test in a registry in order, one at a time.
type Driver struct {
	cfg  Config
	reg  *registry.Registry
	sess *session.Session
	out  io.Writer
	eng  *engine.Engine
	clk  clock.Clock
}

// New creates a Driver over reg. Progress lines and the summary are written
// to out. When cfg.Track is set, tests run under sess.Tracker; otherwise the
// engine runs untracked and sess only accumulates tallies.
func New(cfg Config, reg *registry.Registry, sess *session.Session, out io.Writer) *Driver {
	var tr *resource.Tracker
	if cfg.Track {
		tr = sess.Tracker
	}
	return &Driver{
		cfg:  cfg,
		reg:  reg,
		sess: sess,
		out:  out,
		eng:  engine.New(tr),
		clk:  clock.NewClock(),
	}
}

// SetClockForTesting replaces the wall clock used for durations.
func (d *Driver) SetClockForTesting(c clock.Clock) {
	d.clk = c
	d.eng.SetClockForTesting(c)
}

// RunAll visits every test in registry order and returns the process exit
// code. In a fail-fast configuration the first failure stops the loop and is
// additionally returned as an error; otherwise the error is always nil and
// the exit code alone reflects the session outcome.
func (d *Driver) RunAll(ctx context.Context) (int, error) {
	total := d.reg.Len()
	ml := 0
	for _, name := range d.reg.Names() {
		if len(name) > ml {
			ml = len(name)
		}
	}

	start := d.clk.Now()
	for i := 0; i < total; i++ {
		t := d.reg.Get(i)
		o := d.eng.Run(ctx, t)
		d.sess.Counters.Record(o)
		if d.cfg.Progress {
			d.reportProgress(ctx, i, total, ml, t.Name, o)
		}
		if d.cfg.FailFast && o.Status == engine.Fail {
			return statusError, errors.Wrapf(o.Err, "test %s failed", t.Name)
		}
	}
	elapsed := d.clk.Now().Sub(start)

	if d.cfg.Summary {
		d.reportSummary(ctx, elapsed)
	}
	if d.cfg.Sysinfo {
		sysinfo.Log(ctx)
	}

	if d.sess.Counters.Clean() {
		return statusSuccess, nil
	}
	return statusError, nil
}

const (
	passStr = " [ PASS ]"
	skipStr = " [ SKIP ]"
	failStr = " [ FAIL ] "

	ansiRed    = "\033[1;31m"
	ansiGreen  = "\033[1;32m"
	ansiYellow = "\033[1;33m"
	ansiReset  = "\033[0m"
)

func (d *Driver) reportProgress(ctx context.Context, i, total, ml int, name string, o *engine.Outcome) {
	pn := fmt.Sprintf("%d/%d %-"+strconv.Itoa(ml)+"s", i+1, total, name)
	dur := fmt.Sprintf("(%v)", o.Duration.Round(time.Millisecond))

	var plain, colored string
	switch o.Status {
	case engine.Pass:
		plain = pn + passStr + " " + dur
		colored = pn + ansiGreen + passStr + " " + ansiReset + dur
	case engine.Skip:
		plain = pn + skipStr + " " + dur
		colored = pn + ansiYellow + skipStr + " " + ansiReset + dur
	case engine.Fail:
		reason := o.Err.Error() + " " + dur
		plain = pn + failStr + reason
		colored = pn + ansiRed + failStr + ansiReset + reason
	}
	d.emit(ctx, plain, colored)
}

func (d *Driver) reportSummary(ctx context.Context, elapsed time.Duration) {
	c := d.sess.Counters
	sep := strings.Repeat("-", 80)
	d.emit(ctx, sep, sep)

	var counts string
	if c.Passed == c.Total() {
		counts = fmt.Sprintf("All %d tests passed in %v.", c.Passed, elapsed.Round(time.Millisecond))
	} else {
		counts = fmt.Sprintf("%d passed, %d skipped, %d failed in %v.",
			c.Passed, c.Skipped, c.Failed, elapsed.Round(time.Millisecond))
	}
	d.emit(ctx, counts, counts)
	if c.LogErrors > 0 {
		line := fmt.Sprintf("%d errors were logged.", c.LogErrors)
		d.emit(ctx, line, line)
	}
	if c.Leaked > 0 {
		line := fmt.Sprintf("%d tests leaked resources.", c.Leaked)
		d.emit(ctx, line, line)
	}
	d.emit(ctx, sep, sep)
}

// emit writes a rendered line to the output stream and mirrors the plain
// form to the session log.
func (d *Driver) emit(ctx context.Context, plain, colored string) {
	line := plain
	if d.cfg.Color {
		line = colored
	}
	fmt.Fprintln(d.out, line)
	logging.Debug(ctx, plain)
}
