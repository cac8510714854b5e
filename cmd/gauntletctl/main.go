// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package main implements the gauntletctl executable, a coordinator that
// drives harness binaries over the framed protocol.
//
// gauntletctl never links test code. It spawns a harness binary with
// --listen=- and talks to it over the child's stdin/stdout, the same way a
// build system or CI coordinator would.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/gauntlet-dev/gauntlet/internal/command"
	"github.com/gauntlet-dev/gauntlet/internal/logging"
)

// doMain implements the main body of the program. It's a separate function
// so that its deferred functions will run before os.Exit makes the program
// exit immediately.
func doMain() int {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(newListCmd(os.Stdout), "")
	subcommands.Register(newRunCmd(os.Stdout), "")

	level := logging.LevelInfo
	lf := command.NewEnumFlag(map[string]int{
		"debug":   int(logging.LevelDebug),
		"info":    int(logging.LevelInfo),
		"warning": int(logging.LevelWarning),
		"error":   int(logging.LevelError),
	}, func(v int) { level = logging.Level(v) }, "info")
	flag.Var(lf, "loglevel", fmt.Sprintf("minimum severity of messages to print (%s)", lf.QuotedValues()))
	flag.Parse()

	logger := logging.NewConsoleLogger(level, os.Stderr)
	ctx := logging.AttachLoggerNoPropagation(context.Background(), logger)

	command.InstallSignalHandler(os.Stderr, func(os.Signal) {})

	return int(subcommands.Execute(ctx))
}

func main() {
	os.Exit(doMain())
}
