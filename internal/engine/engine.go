// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package engine runs individual test cases and classifies their outcomes.
package engine

import (
	"context"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/gauntlet-dev/gauntlet/internal/errors"
	"github.com/gauntlet-dev/gauntlet/internal/logging"
	"github.com/gauntlet-dev/gauntlet/internal/registry"
	"github.com/gauntlet-dev/gauntlet/internal/resource"
)

// Status classifies how a single test run concluded.
type Status int

const (
	// Pass means the test function returned nil.
	Pass Status = iota
	// Skip means the test opted out by returning registry.ErrSkip.
	Skip
	// Fail means the test returned any other error or panicked.
	Fail
)

// String returns a lowercase name of the status, e.g. "pass".
func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Skip:
		return "skip"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// Outcome describes one completed test run. A fresh Outcome is created for
// every run; leak and log-error information never carries over between runs.
type Outcome struct {
	// Status is the test's own verdict.
	Status Status
	// Err is the error behind a Fail status, nil otherwise.
	Err error
	// Leaked reports whether the test left goroutines or handles behind.
	Leaked bool
	// LogErrors is the number of error-severity logs emitted during the run.
	LogErrors uint64
	// Duration is the wall time spent inside the test function.
	Duration time.Duration
}

// Engine runs one test at a time through a resource tracker.
type Engine struct {
	tracker *resource.Tracker
	clk     clock.Clock
}

// New returns an Engine that tracks each run with tracker. A nil tracker
// disables leak detection and log-error counting; runs then report neither.
func New(tracker *resource.Tracker) *Engine {
	return &Engine{tracker: tracker, clk: clock.NewClock()}
}

// SetClockForTesting replaces the clock used to measure test durations.
func (e *Engine) SetClockForTesting(c clock.Clock) {
	e.clk = c
}

// Run executes t and returns its outcome. The engine never retries and
// never imposes a timeout; a test that blocks forever blocks the session.
func (e *Engine) Run(ctx context.Context, t *registry.Test) *Outcome {
	if e.tracker != nil {
		e.tracker.Begin(resource.KindTest, t.Name)
	}

	start := e.clk.Now()
	err := runTestFunc(t)
	o := &Outcome{Duration: e.clk.Now().Sub(start)}

	switch {
	case err == nil:
		o.Status = Pass
	case errors.Is(err, registry.ErrSkip):
		o.Status = Skip
		logging.Debugf(ctx, "Skipped %s: %v", t.Name, err)
	default:
		o.Status = Fail
		o.Err = err
		// Informational only. The levels stay below error so the dump can
		// never feed back into the run's own log-error count.
		logging.Debugf(ctx, "Error trace for %s:\n%+v", t.Name, err)
		dumpGoroutines(ctx)
	}

	if e.tracker != nil {
		res := e.tracker.End()
		o.Leaked = res.Leaked
		o.LogErrors = res.LogErrors
		for _, name := range res.Unreleased {
			logging.Warningf(ctx, "Test %s never released %s", t.Name, name)
		}
	}
	return o
}

// runTestFunc calls t.Func, converting a panic into an error so one broken
// test cannot take down the whole session.
func runTestFunc(t *registry.Test) (err error) {
	defer func() {
		if val := recover(); val != nil {
			err = errors.Errorf("panic: %v", val)
		}
	}()
	return t.Func()
}
