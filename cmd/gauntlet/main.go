// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package main implements the gauntlet executable, the reference harness
// binary.
//
// It links the demo suite and hands control to harness.Run. Projects build
// their own binary the same way: blank-import the packages that register
// tests and keep main to one line.
package main

import (
	"os"

	"github.com/gauntlet-dev/gauntlet/harness"
	"github.com/gauntlet-dev/gauntlet/internal/command"
	"github.com/gauntlet-dev/gauntlet/testkit"

	// Suites register themselves from init functions.
	_ "github.com/gauntlet-dev/gauntlet/examples/demo"
)

func main() {
	command.InstallSignalHandler(os.Stderr, func(os.Signal) {})
	os.Exit(harness.Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, testkit.Global()))
}
