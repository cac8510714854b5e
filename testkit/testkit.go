// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package testkit is the public API for writing test suites.
//
// Suite packages register their tests from init functions:
//
//	func init() {
//		testkit.Add(testkit.Test{
//			Name: "store.Reopen",
//			Func: testReopen,
//		})
//	}
//
// A generated main links suite packages with blank imports and hands
// testkit.Global() to harness.Run.
package testkit

import (
	"github.com/gauntlet-dev/gauntlet/internal/errors"
	"github.com/gauntlet-dev/gauntlet/internal/registry"
	"github.com/gauntlet-dev/gauntlet/internal/resource"
)

// ErrSkip is returned by a test function to opt out of a run. Wrapping it is
// fine; the harness detects it anywhere in the error chain.
var ErrSkip = registry.ErrSkip

// Skipf builds an error that marks the run skipped, giving the reason the
// way fmt.Sprintf would. The reason shows up in debug-level session logs;
// drivers report only the skip itself.
func Skipf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrSkip, format, args...)
}

// Test describes one test case for registration.
type Test struct {
	// Name uniquely identifies the test. It doubles as the test's protocol
	// identity, so renaming a test changes how coordinators address it.
	Name string
	// Func is the test body. A nil return is a pass, ErrSkip is a skip and
	// anything else is a failure.
	Func func() error
}

var globalReg *registry.Registry // singleton, initialized on first use

// Global returns the global registry that Add registers into.
func Global() *registry.Registry {
	if globalReg == nil {
		globalReg = registry.New()
	}
	return globalReg
}

// Add adds t to the global registry. Add is called from init functions,
// where there is no caller to return an error to, so registration problems
// are recorded in the registry instead; the harness refuses to start while
// any are present.
func Add(t Test) {
	Global().Add(&registry.Test{Name: t.Name, Func: t.Func})
}

// SetGlobalForTesting temporarily sets reg as the global registry.
// The caller must call the returned function later to restore the original
// registry. This is intended to be used by unit tests that need to register
// tests in the global registry but don't want to affect subsequent unit
// tests.
func SetGlobalForTesting(reg *registry.Registry) (restore func()) {
	orig := globalReg
	globalReg = reg
	return func() {
		globalReg = orig
	}
}

// Acquire puts a named resource under leak tracking for the duration of the
// current test and returns the function that releases it. A handle still
// held when the test ends is reported as a leak:
//
//	release := testkit.Acquire("db connection")
//	defer release()
//
// Outside a harness-driven test Acquire tracks nothing and the returned
// function is a no-op.
func Acquire(name string) (release func()) {
	return resource.Acquire(name)
}
