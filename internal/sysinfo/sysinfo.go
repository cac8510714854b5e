// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package sysinfo reports the harness process's own resource footprint.
package sysinfo

import (
	"context"
	"os"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/gauntlet-dev/gauntlet/internal/logging"
)

// Log writes a debug-level line with the current process's resident set
// size and accumulated CPU time. Collection failures are logged and
// otherwise ignored; the footprint is purely informational.
func Log(ctx context.Context) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logging.Debugf(ctx, "Failed to inspect own process: %v", err)
		return
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		logging.Debugf(ctx, "Failed to read memory info: %v", err)
		return
	}
	times, err := proc.Times()
	if err != nil {
		logging.Debugf(ctx, "Failed to read CPU times: %v", err)
		return
	}
	logging.Debugf(ctx, "Process footprint: rss %d KiB, user %.2fs, system %.2fs",
		mem.RSS/1024, times.User, times.System)
}
