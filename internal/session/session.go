// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package session holds the state shared by one harness invocation.
//
// A session is created by whichever driver is active (the terminal reporter
// or the protocol server), lives for exactly one process invocation, and
// owns the outcome counters, the resource tracker and the process-wide log
// hook. Nothing in here is a package global; drivers mutate session state
// through its methods only.
package session

import (
	"context"

	"github.com/gauntlet-dev/gauntlet/internal/engine"
	"github.com/gauntlet-dev/gauntlet/internal/logging"
	"github.com/gauntlet-dev/gauntlet/internal/resource"
)

// Counters tallies outcomes by category for one session. Counts only grow;
// they reset when the process does.
type Counters struct {
	Passed    uint64
	Skipped   uint64
	Failed    uint64
	Leaked    uint64
	LogErrors uint64
}

// Record folds one outcome into the counters.
func (c *Counters) Record(o *engine.Outcome) {
	switch o.Status {
	case engine.Pass:
		c.Passed++
	case engine.Skip:
		c.Skipped++
	case engine.Fail:
		c.Failed++
	}
	if o.Leaked {
		c.Leaked++
	}
	c.LogErrors += o.LogErrors
}

// Total returns the number of outcomes recorded.
func (c *Counters) Total() uint64 {
	return c.Passed + c.Skipped + c.Failed
}

// Clean reports whether the session may exit successfully: no failures, no
// leaking tests and no error-severity logs.
func (c *Counters) Clean() bool {
	return c.Failed == 0 && c.Leaked == 0 && c.LogErrors == 0
}

// Session is the per-invocation state.
type Session struct {
	Counters Counters
	Tracker  *resource.Tracker

	logger      logging.Logger
	prevLogger  logging.Logger
	prevTracker *resource.Tracker
}

// New creates a session whose intercepted logs are displayed via display.
// Display filtering and error counting act independently on each emission:
// the tracker counts error-severity logs toward the current scope while
// display applies its own threshold. A nil display drops everything except
// the counting.
func New(display logging.Logger) *Session {
	tr := resource.NewTracker()
	loggers := []logging.Logger{tr}
	if display != nil {
		loggers = append(loggers, display)
	}
	return &Session{
		Tracker: tr,
		logger:  logging.NewMultiLogger(loggers...),
	}
}

// Activate installs the session's logger as the process-wide log hook, makes
// its tracker the process-wide tracker, and returns a derived context
// carrying the same logger. Callers must call Deactivate when the session
// ends.
func (s *Session) Activate(ctx context.Context) context.Context {
	s.prevLogger = logging.SetProcessLogger(s.logger)
	s.prevTracker = resource.SetProcessTracker(s.Tracker)
	return logging.AttachLoggerNoPropagation(ctx, s.logger)
}

// Deactivate restores the process-wide hooks that were installed before
// Activate.
func (s *Session) Deactivate() {
	logging.SetProcessLogger(s.prevLogger)
	resource.SetProcessTracker(s.prevTracker)
}
