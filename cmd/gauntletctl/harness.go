// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/gauntlet-dev/gauntlet/internal/errors"
	"github.com/gauntlet-dev/gauntlet/internal/logging"
	"github.com/gauntlet-dev/gauntlet/internal/protocol"
	"github.com/gauntlet-dev/gauntlet/shutil"
)

// listenFlag puts a harness binary into protocol server mode.
const listenFlag = "--listen=-"

// harnessProc is a running harness child serving the protocol on its
// stdin/stdout pair. Its stderr goes straight to ours so harness
// diagnostics stay visible.
type harnessProc struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	client *protocol.Client
}

// startHarness spawns the harness binary at path in server mode.
func startHarness(ctx context.Context, path string) (*harnessProc, error) {
	cmd := exec.CommandContext(ctx, path, listenFlag)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open stdout pipe")
	}

	logging.Debug(ctx, "Starting ", shutil.EscapeSlice(cmd.Args))
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", path)
	}
	return &harnessProc{
		cmd:    cmd,
		stdin:  stdin,
		client: protocol.NewClient(stdin, stdout),
	}, nil
}

// shutdown asks the harness to exit and reaps it. The exit request is sent
// even after a protocol error so a healthy harness never outlives the
// coordinator.
func (p *harnessProc) shutdown(ctx context.Context) error {
	if err := p.client.Exit(); err != nil {
		logging.Debug(ctx, "Failed to send exit: ", err)
	}
	p.stdin.Close()
	if err := p.cmd.Wait(); err != nil {
		return errors.Wrap(err, "harness exited abnormally")
	}
	return nil
}
