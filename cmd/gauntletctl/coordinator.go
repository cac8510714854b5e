// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gauntlet-dev/gauntlet/internal/errors"
	"github.com/gauntlet-dev/gauntlet/internal/protocol"
)

const (
	passStr = " [ PASS ]"
	skipStr = " [ SKIP ]"
	failStr = " [ FAIL ]"
)

// fetchNames queries the harness for its metadata and decodes the name
// table. The returned slice is indexed by protocol test index.
func fetchNames(c *protocol.Client) ([]string, error) {
	md, err := c.QueryTestMetadata()
	if err != nil {
		return nil, err
	}
	return md.TestNames()
}

// printTests writes one line per test with its protocol index and name.
func printTests(w io.Writer, names []string) error {
	for i, name := range names {
		if _, err := fmt.Fprintf(w, "%d %s\n", i, name); err != nil {
			return err
		}
	}
	return nil
}

// selectTests maps requested test names to protocol indexes, preserving the
// requested order. An empty request selects every test in registry order.
func selectTests(names, requested []string) ([]int, error) {
	if len(requested) == 0 {
		sel := make([]int, len(names))
		for i := range names {
			sel[i] = i
		}
		return sel, nil
	}

	byName := make(map[string]int, len(names))
	for i, name := range names {
		byName[name] = i
	}
	sel := make([]int, 0, len(requested))
	for _, name := range requested {
		i, ok := byName[name]
		if !ok {
			return nil, errors.Errorf("unknown test %q", name)
		}
		sel = append(sel, i)
	}
	return sel, nil
}

// driveRun runs the selected tests one at a time, writes a result line per
// test plus a summary to w, and reports whether the whole run came back
// clean: no failures, no leaks, no logged errors.
func driveRun(c *protocol.Client, names, requested []string, w io.Writer) (clean bool, err error) {
	sel, err := selectTests(names, requested)
	if err != nil {
		return false, err
	}

	ml := 0
	for _, i := range sel {
		if len(names[i]) > ml {
			ml = len(names[i])
		}
	}

	var passed, skipped, failed, leaked int
	var logErrors uint64
	for _, i := range sel {
		res, err := c.RunTest(uint32(i))
		if err != nil {
			return false, errors.Wrapf(err, "test %s did not finish", names[i])
		}

		line := fmt.Sprintf("%-"+strconv.Itoa(ml)+"s", names[i])
		switch {
		case res.Fail:
			failed++
			line += failStr
		case res.Skip:
			skipped++
			line += skipStr
		default:
			passed++
			line += passStr
		}
		if res.Leak {
			leaked++
			line += " (leaked resources)"
		}
		if res.LogErrors > 0 {
			logErrors += res.LogErrors
			line += fmt.Sprintf(" (%d errors logged)", res.LogErrors)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return false, err
		}
	}

	if passed == len(sel) {
		fmt.Fprintf(w, "All %d tests passed.\n", passed)
	} else {
		fmt.Fprintf(w, "%d passed, %d skipped, %d failed.\n", passed, skipped, failed)
	}
	if logErrors > 0 {
		fmt.Fprintf(w, "%d errors were logged.\n", logErrors)
	}
	if leaked > 0 {
		fmt.Fprintf(w, "%d tests leaked resources.\n", leaked)
	}

	return failed == 0 && leaked == 0 && logErrors == 0, nil
}
