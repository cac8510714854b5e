// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package resource

import (
	"sync"
)

// Test bodies take no arguments, so handles they acquire cannot reach the
// active tracker through parameters. They reach it through a process-wide
// hook instead, installed by the session for its lifetime.

var (
	processMu      sync.Mutex
	processTracker *Tracker
)

// SetProcessTracker installs tr as the process-wide tracker serving Acquire,
// and returns the previously installed tracker (nil if none). Pass nil to
// uninstall.
func SetProcessTracker(tr *Tracker) (prev *Tracker) {
	processMu.Lock()
	defer processMu.Unlock()
	prev = processTracker
	processTracker = tr
	return prev
}

// Acquire registers a named handle with the process-wide tracker. The handle
// must be released before the surrounding scope ends or the scope reports a
// leak. Without an installed tracker, or outside any scope, the returned
// release function is a no-op.
func Acquire(name string) (release func()) {
	processMu.Lock()
	tr := processTracker
	processMu.Unlock()
	if tr == nil {
		return func() {}
	}
	return tr.Acquire(name)
}
