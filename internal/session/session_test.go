// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package session_test

import (
	"context"
	gotesting "testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gauntlet-dev/gauntlet/internal/engine"
	"github.com/gauntlet-dev/gauntlet/internal/logging"
	"github.com/gauntlet-dev/gauntlet/internal/logging/loggingtest"
	"github.com/gauntlet-dev/gauntlet/internal/resource"
	"github.com/gauntlet-dev/gauntlet/internal/session"
)

func TestCountersRecord(t *gotesting.T) {
	var c session.Counters
	for _, o := range []*engine.Outcome{
		{Status: engine.Pass},
		{Status: engine.Pass, Leaked: true},
		{Status: engine.Skip},
		{Status: engine.Fail, LogErrors: 3},
		{Status: engine.Fail, Leaked: true, LogErrors: 2},
	} {
		c.Record(o)
	}

	want := session.Counters{Passed: 2, Skipped: 1, Failed: 2, Leaked: 2, LogErrors: 5}
	if diff := cmp.Diff(c, want); diff != "" {
		t.Errorf("Counters mismatch (-got +want):\n%s", diff)
	}
	if c.Total() != 5 {
		t.Errorf("Total() = %d; want 5", c.Total())
	}
}

func TestCountersClean(t *gotesting.T) {
	for _, tc := range []struct {
		c    session.Counters
		want bool
	}{
		{session.Counters{}, true},
		{session.Counters{Passed: 10, Skipped: 2}, true},
		{session.Counters{Passed: 10, Failed: 1}, false},
		{session.Counters{Passed: 10, Leaked: 1}, false},
		{session.Counters{Passed: 10, LogErrors: 1}, false},
	} {
		if got := tc.c.Clean(); got != tc.want {
			t.Errorf("Clean() = %v for %+v; want %v", got, tc.c, tc.want)
		}
	}
}

func TestSessionLogRouting(t *gotesting.T) {
	display := loggingtest.NewLogger(t, logging.LevelWarning)
	s := session.New(display)

	ctx := s.Activate(context.Background())
	defer s.Deactivate()

	// An error log emitted inside a scope is counted by the tracker and
	// shown by the display logger; the two act independently.
	s.Tracker.Begin(resource.KindTest, "example.Test")
	logging.ProcessLog(logging.LevelError, "went wrong")
	logging.ProcessLog(logging.LevelInfo, "below display threshold")
	logging.Info(ctx, "context route, below display threshold")
	res := s.Tracker.End()

	if res.LogErrors != 1 {
		t.Errorf("LogErrors = %d; want 1", res.LogErrors)
	}
	if diff := cmp.Diff(display.Logs(), []string{"went wrong"}); diff != "" {
		t.Errorf("Displayed logs mismatch (-got +want):\n%s", diff)
	}
}

func TestSessionRestoresHook(t *gotesting.T) {
	outer := loggingtest.NewLogger(t, logging.LevelDebug)
	prev := logging.SetProcessLogger(outer)
	defer logging.SetProcessLogger(prev)

	s := session.New(loggingtest.NewLogger(t, logging.LevelDebug))
	s.Activate(context.Background())
	s.Deactivate()

	logging.ProcessLog(logging.LevelInfo, "after deactivate")
	if diff := cmp.Diff(outer.Logs(), []string{"after deactivate"}); diff != "" {
		t.Errorf("Outer logger logs mismatch (-got +want):\n%s", diff)
	}
}

func TestSessionTrackerHook(t *gotesting.T) {
	s := session.New(loggingtest.NewLogger(t, logging.LevelWarning))
	s.Activate(context.Background())

	// Handles acquired through the process-wide hook land in the session's
	// tracker and leak if not released before the scope ends.
	s.Tracker.Begin(resource.KindTest, "example.Holds")
	resource.Acquire("held")
	release := resource.Acquire("released")
	release()
	res := s.Tracker.End()

	if !res.Leaked {
		t.Error("End reported no leak for an unreleased handle")
	}
	if diff := cmp.Diff(res.Unreleased, []string{"held"}); diff != "" {
		t.Errorf("Unreleased mismatch (-got +want):\n%s", diff)
	}

	s.Deactivate()
	s.Tracker.Begin(resource.KindTest, "example.AfterDeactivate")
	resource.Acquire("ignored")
	if res := s.Tracker.End(); res.Leaked {
		t.Error("End reported a leak for a handle acquired after Deactivate")
	}
}
