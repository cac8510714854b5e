// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package server implements the coordinator-driven execution mode.
//
// The server reads request frames from the inbound stream and answers on
// the outbound stream, one request at a time. The coordinator dictates
// which tests run and in what order; indexes may arrive out of order and
// may repeat, and every run starts from a clean tracking scope.
package server

import (
	"context"
	"io"

	"github.com/gauntlet-dev/gauntlet/internal/command"
	"github.com/gauntlet-dev/gauntlet/internal/engine"
	"github.com/gauntlet-dev/gauntlet/internal/logging"
	"github.com/gauntlet-dev/gauntlet/internal/protocol"
	"github.com/gauntlet-dev/gauntlet/internal/registry"
	"github.com/gauntlet-dev/gauntlet/internal/resource"
	"github.com/gauntlet-dev/gauntlet/internal/session"
)

const statusError = 1

// Serve runs the request/response loop until the coordinator sends an exit
// request. It returns nil on a clean exit. Any protocol violation (an
// unrecognized tag, an out-of-range index, a truncated frame, or a hang-up
// without exit) is fatal to the whole process: Serve stops reading and
// returns a StatusError carrying the exit status.
func Serve(ctx context.Context, reg *registry.Registry, sess *session.Session, r io.Reader, w io.Writer) *command.StatusError {
	eng := engine.New(sess.Tracker)

	for {
		req, err := protocol.ReadRequest(r)
		if err != nil {
			if err == io.EOF {
				return command.NewStatusErrorf(statusError, "coordinator hung up without exit")
			}
			return command.NewStatusErrorf(statusError, "failed to read request: %v", err)
		}

		switch req.Tag {
		case protocol.RequestExit:
			logging.Debug(ctx, "Exit requested")
			return nil
		case protocol.RequestQueryTestMetadata:
			logging.Debugf(ctx, "Sending metadata for %d tests", reg.Len())
			if err := protocol.WriteTestMetadata(w, buildMetadata(reg, sess.Tracker)); err != nil {
				return command.NewStatusErrorf(statusError, "failed to write test metadata: %v", err)
			}
		case protocol.RequestRunTest:
			index, err := req.RunTestIndex()
			if err != nil {
				return command.NewStatusErrorf(statusError, "bad run_test request: %v", err)
			}
			if index >= uint32(reg.Len()) {
				return command.NewStatusErrorf(statusError, "test index %d out of range [0, %d)", index, reg.Len())
			}
			t := reg.Get(int(index))
			logging.Debugf(ctx, "Running %s (%d/%d)", t.Name, index+1, reg.Len())
			o := eng.Run(ctx, t)
			sess.Counters.Record(o)
			res := &protocol.TestResults{
				Index:     index,
				Fail:      o.Status == engine.Fail,
				Skip:      o.Status == engine.Skip,
				Leak:      o.Leaked,
				LogErrors: o.LogErrors,
			}
			if err := protocol.WriteTestResults(w, res); err != nil {
				return command.NewStatusErrorf(statusError, "failed to write results for test %d: %v", index, err)
			}
		default:
			return command.NewStatusErrorf(statusError, "unsupported message: %#x", uint32(req.Tag))
		}
	}
}

// buildMetadata assembles the registry-wide metadata inside an internal
// tracking scope. A leak here is the harness's own bug; End aborts the
// process on one.
func buildMetadata(reg *registry.Registry, tr *resource.Tracker) *protocol.TestMetadata {
	tr.Begin(resource.KindInternal, "test metadata")
	defer tr.End()
	return protocol.NewTestMetadata(reg.Names())
}
