// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging

import (
	"fmt"
	"sync"
	"time"
)

// Test bodies take no arguments, so logs they emit cannot travel through a
// context.Context. They reach the active session through a single
// process-wide logger instead, installed by the session for its lifetime.

var (
	processMu     sync.Mutex
	processLogger Logger
)

// SetProcessLogger installs logger as the process-wide destination for logs
// emitted without a context, and returns the previously installed logger
// (nil if none). Pass nil to uninstall.
func SetProcessLogger(logger Logger) (prev Logger) {
	processMu.Lock()
	defer processMu.Unlock()
	prev = processLogger
	processLogger = logger
	return prev
}

// ProcessLog emits a log to the process-wide logger. It is a no-op if no
// logger is installed.
func ProcessLog(level Level, args ...interface{}) {
	ts := time.Now()
	processMu.Lock()
	logger := processLogger
	processMu.Unlock()
	if logger == nil {
		return
	}
	logger.Log(level, ts, ReplaceInvalidUTF8(fmt.Sprint(args...)))
}

// ProcessLogf is similar to ProcessLog but formats its arguments using
// fmt.Sprintf.
func ProcessLogf(level Level, format string, args ...interface{}) {
	ts := time.Now()
	processMu.Lock()
	logger := processLogger
	processMu.Unlock()
	if logger == nil {
		return
	}
	logger.Log(level, ts, ReplaceInvalidUTF8(fmt.Sprintf(format, args...)))
}
