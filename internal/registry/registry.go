// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package registry holds the ordered set of test cases known to a harness
// process.
package registry

import (
	"fmt"

	"github.com/gauntlet-dev/gauntlet/internal/errors"
)

// ErrSkip is the distinguished error a test function returns to opt out of a
// run. A skipped test is recorded but never affects the process exit code.
var ErrSkip = errors.New("test skipped")

// Test is a single registered test case. Its position in the registry is its
// identity on the coordinator protocol.
type Test struct {
	// Name uniquely identifies the test within a registry.
	Name string
	// Func is the test body. A nil return is a pass, ErrSkip is a skip and
	// anything else is a failure.
	Func func() error
}

func (t *Test) clone() *Test {
	c := *t
	return &c
}

// Registry is an ordered collection of tests. It is populated once, before
// any driver runs, and is read-only thereafter.
type Registry struct {
	tests  []*Test
	names  map[string]struct{} // names of registered tests
	sealed bool
	errs   []error
}

// New returns a new test registry.
func New() *Registry {
	return &Registry{
		names: make(map[string]struct{}),
	}
}

// Add adds t to the registry.
//
// A registration failure is returned and also recorded; Errs surfaces
// recorded failures so callers registering from init functions can defer
// checking to harness startup.
func (r *Registry) Add(t *Test) error {
	if err := r.add(t); err != nil {
		r.errs = append(r.errs, err)
		return err
	}
	return nil
}

func (r *Registry) add(t *Test) error {
	if r.sealed {
		return errors.Errorf("test %q registered after registry was sealed", t.Name)
	}
	if t.Name == "" {
		return errors.New("test with empty name registered")
	}
	if t.Func == nil {
		return errors.Errorf("test %q registered with nil function", t.Name)
	}
	if _, ok := r.names[t.Name]; ok {
		return errors.Errorf("test %q already registered", t.Name)
	}
	r.tests = append(r.tests, t.clone())
	r.names[t.Name] = struct{}{}
	return nil
}

// Errs returns errors recorded by failed Add calls, in order of occurrence.
func (r *Registry) Errs() []error {
	return append([]error(nil), r.errs...)
}

// Seal marks the registry read-only. Later Add calls fail. Sealing an
// already sealed registry is a no-op.
func (r *Registry) Seal() {
	r.sealed = true
}

// Len returns the number of registered tests.
func (r *Registry) Len() int {
	return len(r.tests)
}

// Get returns a copy of the test at index i, which must satisfy
// 0 <= i < Len. Range validation belongs to callers taking indexes from
// outside the process; a violation here is a harness bug.
func (r *Registry) Get(i int) *Test {
	if i < 0 || i >= len(r.tests) {
		panic(fmt.Sprintf("BUG: test index %d out of range [0, %d)", i, len(r.tests)))
	}
	return r.tests[i].clone()
}

// Names returns all test names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tests))
	for i, t := range r.tests {
		names[i] = t.Name
	}
	return names
}
