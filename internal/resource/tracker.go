// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package resource isolates one test's resource and diagnostic-log behavior
// from all others.
//
// A Tracker owns at most one active scope at a time. A scope is opened
// before a unit of work (a test body, or internal work such as protocol
// metadata construction) and closed after it, and detects two kinds of
// leaks: goroutines the scope started but did not stop, and tracked handles
// acquired but not released. The tracker also counts error-severity logs
// emitted while the scope is active.
package resource

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/goleak"

	"github.com/gauntlet-dev/gauntlet/internal/logging"
)

// ScopeKind distinguishes who answers for a leak.
type ScopeKind int

const (
	// KindTest scopes wrap user test bodies; a leak is reported as data in
	// the test's outcome.
	KindTest ScopeKind = iota
	// KindInternal scopes wrap the harness's own work; a leak is a harness
	// bug and aborts the process.
	KindInternal
)

// Result describes what a scope observed by the time it ended.
type Result struct {
	// Leaked reports whether any goroutine or handle outlived the scope.
	Leaked bool
	// Unreleased lists names of handles that were never released.
	Unreleased []string
	// LogErrors is the number of error-severity logs emitted during the
	// scope.
	LogErrors uint64
}

// scope is the per-unit-of-work tracking state.
type scope struct {
	kind    ScopeKind
	name    string
	base    goleak.Option // goroutines alive at Begin, excluded from the leak check
	handles map[uint64]string
	nextID  uint64
	logErrs uint64
}

// Tracker detects leaks and counts error logs around units of work.
//
// The harness itself is single-threaded, but goroutines started by test
// bodies may call into the tracker concurrently, so all state is
// mutex-guarded.
type Tracker struct {
	mu  sync.Mutex
	cur *scope
}

// NewTracker returns a Tracker with no active scope.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Begin opens a fresh scope of the given kind. name is used in diagnostics
// only. Exactly one scope may be active at a time; opening a second is a
// harness bug.
func (t *Tracker) Begin(kind ScopeKind, name string) {
	base := goleak.IgnoreCurrent()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur != nil {
		panic(fmt.Sprintf("BUG: scope %q opened while scope %q is active", name, t.cur.name))
	}
	t.cur = &scope{
		kind:    kind,
		name:    name,
		base:    base,
		handles: make(map[uint64]string),
	}
}

// End closes the active scope and reports what it observed. The leak check
// is unconditional; it runs even when the unit of work failed. Ending an
// internal scope that leaked aborts the process.
func (t *Tracker) End() Result {
	t.mu.Lock()
	s := t.cur
	t.cur = nil
	var unreleased []string
	if s != nil {
		for _, name := range s.handles {
			unreleased = append(unreleased, name)
		}
	}
	t.mu.Unlock()

	if s == nil {
		panic("BUG: End called with no active scope")
	}

	// Find must run unlocked: goroutines under test may be blocked on the
	// tracker itself, and Find waits for stragglers to settle.
	res := Result{
		Unreleased: unreleased,
		LogErrors:  s.logErrs,
	}
	if len(unreleased) > 0 {
		res.Leaked = true
	}
	if err := goleak.Find(s.base); err != nil {
		res.Leaked = true
		if s.kind == KindInternal {
			panic(fmt.Sprintf("BUG: internal scope %q leaked goroutines: %v", s.name, err))
		}
	}
	if s.kind == KindInternal && len(unreleased) > 0 {
		panic(fmt.Sprintf("BUG: internal scope %q leaked handles: %v", s.name, unreleased))
	}
	return res
}

// Acquire registers a named resource with the active scope and returns the
// function that releases it. Releasing twice is a no-op. When no scope is
// active the resource is untracked and the returned function does nothing.
func (t *Tracker) Acquire(name string) (release func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.cur
	if s == nil {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.handles[id] = name
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(s.handles, id)
	}
}

// Log implements logging.Logger. Error-severity emissions received while a
// scope is active increment that scope's counter; everything else is
// ignored. Install the tracker alongside display loggers so counting and
// display stay independent.
func (t *Tracker) Log(level logging.Level, ts time.Time, msg string) {
	if level < logging.LevelError {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur != nil {
		t.cur.logErrs++
	}
}
