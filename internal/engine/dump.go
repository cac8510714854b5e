// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package engine

import (
	"bufio"
	"bytes"
	"context"
	"runtime/pprof"

	"github.com/gauntlet-dev/gauntlet/internal/errors"
	"github.com/gauntlet-dev/gauntlet/internal/logging"
)

// dumpGoroutines dumps all goroutines to the logger attached to ctx.
// Failing to produce the dump is tolerated; it is reported as a warning and
// nothing more.
func dumpGoroutines(ctx context.Context) {
	logging.Debug(ctx, "Dumping all goroutines")
	if err := func() error {
		p := pprof.Lookup("goroutine")
		if p == nil {
			return errors.New("goroutine pprof not found")
		}
		var buf bytes.Buffer
		if err := p.WriteTo(&buf, 2); err != nil {
			return err
		}
		sc := bufio.NewScanner(&buf)
		for sc.Scan() {
			logging.Debug(ctx, sc.Text())
		}
		return sc.Err()
	}(); err != nil {
		logging.Warningf(ctx, "Failed to dump goroutines: %v", err)
	}
}
