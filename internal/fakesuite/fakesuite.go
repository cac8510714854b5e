// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package fakesuite provides canned test registries for unit tests.
package fakesuite

import (
	"fmt"

	"github.com/gauntlet-dev/gauntlet/internal/errors"
	"github.com/gauntlet-dev/gauntlet/internal/registry"
)

// ErrFail is the error returned by the failing test in Mixed.
var ErrFail = errors.New("intentional failure")

// Mixed returns a sealed registry holding one passing, one skipped and one
// failing test, named fake.Pass, fake.Skip and fake.Fail in that order.
func Mixed() *registry.Registry {
	reg := registry.New()
	mustAdd(reg, &registry.Test{Name: "fake.Pass", Func: func() error { return nil }})
	mustAdd(reg, &registry.Test{Name: "fake.Skip", Func: func() error { return registry.ErrSkip }})
	mustAdd(reg, &registry.Test{Name: "fake.Fail", Func: func() error { return ErrFail }})
	reg.Seal()
	return reg
}

// Passing returns a sealed registry holding n passing tests named
// fake.Pass0 through fake.Pass<n-1>.
func Passing(n int) *registry.Registry {
	reg := registry.New()
	for i := 0; i < n; i++ {
		mustAdd(reg, &registry.Test{
			Name: fmt.Sprintf("fake.Pass%d", i),
			Func: func() error { return nil },
		})
	}
	reg.Seal()
	return reg
}

func mustAdd(reg *registry.Registry, t *registry.Test) {
	if err := reg.Add(t); err != nil {
		panic(fmt.Sprintf("BUG: failed to register fake test: %v", err))
	}
}
