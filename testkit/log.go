// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package testkit

import (
	"github.com/gauntlet-dev/gauntlet/internal/logging"
)

// Test bodies log through the harness so their output obeys the session's
// display threshold. Error-severity logs additionally count against the
// running test: a test that logs an error fails the session even if it
// returns nil.

// Log emits an informational log to the harness.
func Log(args ...interface{}) {
	logging.ProcessLog(logging.LevelInfo, args...)
}

// Logf is similar to Log but formats its arguments using fmt.Sprintf.
func Logf(format string, args ...interface{}) {
	logging.ProcessLogf(logging.LevelInfo, format, args...)
}

// Debugf emits a debug log to the harness, formatting its arguments using
// fmt.Sprintf.
func Debugf(format string, args ...interface{}) {
	logging.ProcessLogf(logging.LevelDebug, format, args...)
}

// Warningf emits a warning log to the harness, formatting its arguments
// using fmt.Sprintf.
func Warningf(format string, args ...interface{}) {
	logging.ProcessLogf(logging.LevelWarning, format, args...)
}

// Errorf emits an error log to the harness, formatting its arguments using
// fmt.Sprintf. The running test's log-error counter goes up by one.
func Errorf(format string, args ...interface{}) {
	logging.ProcessLogf(logging.LevelError, format, args...)
}
